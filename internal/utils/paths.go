package utils

import (
	"os"
	"path/filepath"
	"strings"
)

// Normalize collapses "." elements and resolves ".." against the preceding
// element. When the preceding element is a symlink the ".." is kept, since
// the parent of a link target cannot be known lexically.
func Normalize(p string) string {
	if p == "" {
		return ""
	}

	vol := filepath.VolumeName(p)
	rest := p[len(vol):]
	abs := len(rest) > 0 && os.IsPathSeparator(rest[0])

	prefix := vol
	if abs {
		prefix += string(filepath.Separator)
	}

	parts := strings.FieldsFunc(rest, func(r rune) bool {
		return r < 0x80 && os.IsPathSeparator(uint8(r))
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		switch part {
		case ".":
			// nothing
		case "..":
			if len(out) == 0 {
				// ".." above the root is the root
				if !abs {
					out = append(out, part)
				}

				continue
			}

			last := out[len(out)-1]
			if last == ".." || isSymlink(prefix+strings.Join(out, string(filepath.Separator))) {
				out = append(out, part)
				continue
			}

			out = out[:len(out)-1]
		default:
			out = append(out, part)
		}
	}

	joined := prefix + strings.Join(out, string(filepath.Separator))
	if joined == "" {
		return "."
	}

	return joined
}

// Remap moves a path relative to one root under another root and rewrites its
// extension, e.g. ("obj", "dir/a.cpp", ".o") -> "obj/dir/a.o".
func Remap(root, rel, ext string) string {
	return Normalize(root + string(filepath.Separator) + ReplaceExt(rel, ext))
}

// ReplaceExt swaps the extension of p for ext (which includes the dot).
func ReplaceExt(p, ext string) string {
	return strings.TrimSuffix(p, filepath.Ext(p)) + ext
}

func isSymlink(p string) bool {
	info, err := os.Lstat(p)
	if err != nil {
		return false
	}

	return info.Mode()&os.ModeSymlink != 0
}
