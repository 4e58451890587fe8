package cache

import (
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/Norgate-AV/respite/internal/compiler"
)

// HashCommand fingerprints a command: program, arguments and working
// directory. Arguments are NUL separated so ("a b") and ("a", "b") differ.
func HashCommand(cmd *compiler.ShellCommand) string {
	h := xxh3.New()

	h.WriteString(cmd.Dir)
	h.WriteString("\x00")

	for _, arg := range cmd.Argv() {
		h.WriteString(arg)
		h.WriteString("\x00")
	}

	return fmt.Sprintf("%016x", h.Sum64())
}
