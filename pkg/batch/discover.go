// Package batch discovers C++ sources and parses many of them in parallel
package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the file extensions treated as C++ sources
var DefaultExtensions = []string{".h", ".hh", ".hpp", ".hxx", ".c", ".cc", ".cpp", ".cxx"}

// DefaultExclude are directory names skipped during discovery
var DefaultExclude = []string{"build", "vendor", "third_party", ".git", "node_modules"}

// Discover walks roots and returns the C++ sources below them, sorted and
// without duplicates. A root that is a file is taken as is. Directories whose
// base name matches an exclude pattern are skipped.
func Discover(roots []string, extensions, exclude []string) ([]string, error) {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("failed to access %s: %w", root, err)
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
				if path != root && excluded(d.Name(), exclude) {
					return filepath.SkipDir
				}
				return nil
			}
			if hasExtension(path, extensions) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

func excluded(name string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

func hasExtension(path string, extensions []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range extensions {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
