package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sstent/garmin-summary/internal/models"
)

// Parser extracts activity metrics from the raw bytes of one file. The
// returned Sport is the name as written in the file; FileParser normalises it.
type Parser interface {
	ParseData(data []byte) (*models.ActivityMetrics, error)
}

// New creates a parser based on file extension or content
func New(path string) (Parser, FileType, error) {
	if ft := typeFromExt(path); ft != FileTypeUnknown {
		return forType(ft), ft, nil
	}

	// If extension doesn't match, detect by content
	ft, err := DetectFileType(path)
	if err != nil {
		return nil, FileTypeUnknown, fmt.Errorf("failed to detect file type: %w", err)
	}
	if ft == FileTypeUnknown {
		return nil, ft, fmt.Errorf("unsupported file type: %s", path)
	}
	return forType(ft), ft, nil
}

// NewFromData creates a parser based on file content
func NewFromData(data []byte) (Parser, FileType, error) {
	ft := DetectFileTypeFromData(data)
	if ft == FileTypeUnknown {
		return nil, ft, fmt.Errorf("unsupported file type")
	}
	return forType(ft), ft, nil
}

func typeFromExt(path string) FileType {
	name := strings.ToLower(filepath.Base(path))
	// Compressed archives such as run.tcx.gz keep their inner extension.
	name = strings.TrimSuffix(name, ".gz")
	switch filepath.Ext(name) {
	case ".fit":
		return FileTypeFIT
	case ".tcx":
		return FileTypeTCX
	case ".gpx":
		return FileTypeGPX
	case ".txt":
		return FileTypeTXT
	case ".gmn":
		return FileTypeGMN
	}
	return FileTypeUnknown
}

func forType(ft FileType) Parser {
	switch ft {
	case FileTypeFIT:
		return NewFITParser()
	case FileTypeTCX:
		return NewTCXParser()
	case FileTypeGPX:
		return NewGPXParser()
	case FileTypeTXT:
		return NewTXTParser()
	case FileTypeGMN:
		return gmnParser{}
	}
	return nil
}

// gmnParser stands in for the proprietary GMN format, which has no decoder.
type gmnParser struct{}

func (gmnParser) ParseData([]byte) (*models.ActivityMetrics, error) {
	return nil, fmt.Errorf("gmn files are not decoded: %w", models.ErrNoActivityData)
}
