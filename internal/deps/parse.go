package deps

import (
	"path/filepath"
	"strings"

	"github.com/Norgate-AV/respite/internal/utils"
)

// ParseListing turns the output of the compiler's dependency listing mode
// into normalized paths. The ":" separating the (empty) target and the "\"
// line continuations are dropped; relative paths are taken relative to dir,
// the directory the compiler ran in.
func ParseListing(output, dir string) []string {
	var deps []string

	for _, word := range splitRule(output) {
		if word == ":" {
			continue
		}

		if !filepath.IsAbs(word) && dir != "" {
			word = dir + string(filepath.Separator) + word
		}

		deps = append(deps, utils.Normalize(word))
	}

	return deps
}

// splitRule splits a make rule into words. Unescaped whitespace and
// backslash-newline continuations separate words; "\ " and "\#" stand for
// a literal space and hash, and "$$" for a dollar sign, as gcc writes them.
// Any other backslash is kept.
func splitRule(s string) []string {
	var (
		words []string
		word  strings.Builder
	)

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c == '\\' && i+1 < len(s) && (s[i+1] == ' ' || s[i+1] == '#'):
			word.WriteByte(s[i+1])
			i++
		case c == '\\' && i+1 < len(s) && s[i+1] == '\n':
			flush()
			i++
		case c == '\\' && i+2 < len(s) && s[i+1] == '\r' && s[i+2] == '\n':
			flush()
			i += 2
		case c == '\\' && i+1 == len(s):
			flush()
		case c == '$' && i+1 < len(s) && s[i+1] == '$':
			word.WriteByte('$')
			i++
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			flush()
		default:
			word.WriteByte(c)
		}
	}

	flush()

	return words
}
