// internal/parser/detector.go
package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

type FileType string

const (
	FileTypeFIT     FileType = "fit"
	FileTypeTCX     FileType = "tcx"
	FileTypeGPX     FileType = "gpx"
	FileTypeTXT     FileType = "txt"
	FileTypeGMN     FileType = "gmn"
	FileTypeUnknown FileType = "unknown"
)

const sniffLen = 512

func DetectFileType(path string) (FileType, error) {
	file, err := os.Open(path)
	if err != nil {
		return FileTypeUnknown, err
	}
	defer file.Close()

	// Read first bytes for detection
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("reading %s: %w", path, err)
	}
	return DetectFileTypeFromData(header[:n]), nil
}

func DetectFileTypeFromData(data []byte) FileType {
	// FIT header carries ".FIT" at offset 8
	if len(data) >= 12 && bytes.Equal(data[8:12], []byte(".FIT")) {
		return FileTypeFIT
	}

	head := bytes.TrimSpace(data)
	if bytes.HasPrefix(head, []byte("<?xml")) || bytes.HasPrefix(head, []byte("<")) {
		switch {
		case bytes.Contains(head, []byte("TrainingCenterDatabase")):
			return FileTypeTCX
		case bytes.Contains(head, []byte("<gpx")) || bytes.Contains(head, []byte("topografix.com/GPX")):
			return FileTypeGPX
		}
		return FileTypeUnknown
	}

	if bytes.Contains(head, []byte("date=")) && isText(head) {
		return FileTypeTXT
	}
	return FileTypeUnknown
}

func isText(data []byte) bool {
	for _, b := range data {
		if b < 0x09 || (b > 0x0d && b < 0x20) {
			return false
		}
	}
	return true
}
