package batch

import (
	"os"
	"path/filepath"
)

// IncludeResolver maps the path of an #include directive to a file
type IncludeResolver interface {
	// ResolveQuote resolves #include "path" written in fromFile
	ResolveQuote(fromFile, path string) (string, bool)
	// ResolveAngled resolves #include <path> written in fromFile
	ResolveAngled(fromFile, path string) (string, bool)
}

// DirResolver searches include directories the way a compiler does: quoted
// includes look next to the including file first, then in Dirs; angled
// includes look in Dirs only.
type DirResolver struct {
	Dirs []string
}

// NewDirResolver creates a resolver over the given include directories
func NewDirResolver(dirs ...string) *DirResolver {
	return &DirResolver{Dirs: dirs}
}

// ResolveQuote implements IncludeResolver
func (r *DirResolver) ResolveQuote(fromFile, path string) (string, bool) {
	if filepath.IsAbs(path) {
		return existing(path)
	}
	if found, ok := existing(filepath.Join(filepath.Dir(fromFile), path)); ok {
		return found, true
	}
	return r.search(path)
}

// ResolveAngled implements IncludeResolver
func (r *DirResolver) ResolveAngled(fromFile, path string) (string, bool) {
	if filepath.IsAbs(path) {
		return existing(path)
	}
	return r.search(path)
}

func (r *DirResolver) search(path string) (string, bool) {
	for _, dir := range r.Dirs {
		if found, ok := existing(filepath.Join(dir, path)); ok {
			return found, true
		}
	}
	return "", false
}

func existing(path string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return filepath.Clean(path), true
}
