package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTree(t *testing.T) {
	root := t.TempDir()

	files := []string{
		"a.cpp",
		filepath.Join("lib", "b.cpp"),
		filepath.Join("lib", "b.hpp"),
		filepath.Join(".git", "config"),
		filepath.Join("lib", ".hidden.cpp"),
		filepath.Join(".cache", "deep", "c.cpp"),
	}
	for _, f := range files {
		path := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("// test"), 0o644))
	}

	entries, err := ListTree(root)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Path: "a.cpp"},
		{Path: "lib", Dir: true},
		{Path: filepath.Join("lib", "b.cpp")},
		{Path: filepath.Join("lib", "b.hpp")},
	}, entries)
}

func TestListTree_MissingRoot(t *testing.T) {
	_, err := ListTree(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list")
}

func TestHasExtension(t *testing.T) {
	exts := []string{".cpp", ".cxx", ".cc"}

	tests := []struct {
		name string
		path string
		want bool
	}{
		{"cpp", "a.cpp", true},
		{"cxx", filepath.Join("dir", "b.cxx"), true},
		{"cc", "c.cc", true},
		{"header", "h.hpp", false},
		{"c source", "d.c", false},
		{"no extension", "Makefile", false},
		{"case sensitive", "E.CPP", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasExtension(tt.path, exts))
		})
	}
}
