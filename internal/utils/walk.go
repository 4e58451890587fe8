package utils

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// Entry is one item found under a listed root
type Entry struct {
	// Path relative to the listed root
	Path string

	Dir bool
}

// ListTree recursively lists root, skipping dot-prefixed files and
// directories (and everything below a dot-prefixed directory).
// Entries come back in lexical order with paths relative to root.
func ListTree(root string) ([]Entry, error) {
	var entries []Entry

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		entries = append(entries, Entry{Path: rel, Dir: d.IsDir()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	return entries, nil
}

// HasExtension reports whether p ends in one of exts (compared exactly, dot included)
func HasExtension(p string, exts []string) bool {
	return slices.Contains(exts, filepath.Ext(p))
}
