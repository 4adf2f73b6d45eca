package cache

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// cache-internal file markers that are never activity files
var internalMarkers = []string{".pkl", ".gob", ".tmp"}

// Candidates expands paths (files or directories, walked recursively) into
// the activity files to consider. A file qualifies when its name contains one
// of extensions, case-insensitively. Anything under one of exclude, or named
// like a cache file, is skipped. Paths that do not exist are ignored.
func Candidates(paths []string, extensions []string, exclude ...string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	excluded := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		if e == "" {
			continue
		}
		if abs, err := filepath.Abs(e); err == nil {
			excluded[abs] = true
		}
	}

	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		if !matches(filepath.Base(path), extensions) || seen[path] {
			return
		}
		seen[path] = true
		out = append(out, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if abs, aerr := filepath.Abs(path); aerr == nil && excluded[abs] {
					return filepath.SkipDir
				}
				return nil
			}
			if d.Type().IsRegular() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

// IsCandidate reports whether a file name would be picked up by Candidates.
func IsCandidate(name string, extensions []string) bool {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	return matches(filepath.Base(name), extensions)
}

func matches(name string, extensions []string) bool {
	lower := strings.ToLower(name)
	for _, m := range internalMarkers {
		if strings.Contains(lower, m) {
			return false
		}
	}
	for _, ext := range extensions {
		if strings.Contains(lower, strings.ToLower(ext)) {
			return true
		}
	}
	return false
}
