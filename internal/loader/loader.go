// Package loader is the source-loader external collaborator (spec.md §1):
// it maps a logical file path to bytes and nothing else. Parsing, caching
// of parsed ASTs, and dependency graphs belong to internal/module; this
// package only knows how to turn a path into content.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileLoader reads module source files from the local filesystem, trying
// each root in order (spec.md §4.3 "searched under each configured module
// root in the order they were provided").
type FileLoader struct {
	roots     []string
	roDefault string // implicit root (the driver's project root, or cwd for `check -i`); skipped when rootsOnly
	rootsOnly bool
}

// New creates a FileLoader over the given module roots. implicitRoot, if
// non-empty, is consulted last unless roots-only is true.
func New(roots []string, implicitRoot string, rootsOnly bool) *FileLoader {
	return &FileLoader{roots: roots, roDefault: implicitRoot, rootsOnly: rootsOnly}
}

// searchRoots returns the ordered list of roots this loader consults,
// honoring --roots-only (spec.md §4.3).
func (fl *FileLoader) searchRoots() []string {
	if fl.rootsOnly || fl.roDefault == "" {
		return fl.roots
	}
	return append(append([]string{}, fl.roots...), fl.roDefault)
}

// Load reads the bytes at relPath (e.g. "A/B/C.flx") under the first root
// that has it, returning the absolute path it read from and the file's raw
// bytes. Callers normalize the bytes themselves via internal/source.
func (fl *FileLoader) Load(relPath string) (absPath string, contents []byte, err error) {
	for _, root := range fl.searchRoots() {
		candidate := filepath.Join(root, relPath)
		b, readErr := os.ReadFile(candidate)
		if readErr == nil {
			return candidate, b, nil
		}
	}
	return "", nil, fmt.Errorf("loader: %s not found under any configured root", relPath)
}

// Exists reports whether relPath resolves to a readable file under any
// configured root, without reading its contents.
func (fl *FileLoader) Exists(relPath string) bool {
	for _, root := range fl.searchRoots() {
		if _, err := os.Stat(filepath.Join(root, relPath)); err == nil {
			return true
		}
	}
	return false
}
