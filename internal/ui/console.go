// Package ui renders build progress and results on a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"

	"github.com/Norgate-AV/respite/internal/scheduler"
)

// Console writes user-facing output. It is safe for concurrent use.
type Console struct {
	mu  sync.Mutex
	out io.Writer

	done    lipgloss.Style
	pending lipgloss.Style
	info    lipgloss.Style

	// A progress line without its newline is on screen
	progressOpen bool
}

// NewConsole creates a console writing to out. Colours follow what out
// supports, so a pipe or buffer gets plain text.
func NewConsole(out io.Writer) *Console {
	r := lipgloss.NewRenderer(out)

	return &Console{
		out:     out,
		done:    r.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		pending: r.NewStyle().Foreground(lipgloss.Color("8")),
		info:    r.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// Update redraws the progress line: one slot per worker and the share of
// units completed, e.g. "[*][ ] (50%)".
func (c *Console) Update(p scheduler.Progress) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.WriteByte('\r')

	for _, done := range p.Slots {
		if done {
			b.WriteString(c.done.Render("[*]"))
		} else {
			b.WriteString(c.pending.Render("[ ]"))
		}
	}

	fmt.Fprintf(&b, " (%d%%)", p.Percent())

	io.WriteString(c.out, b.String())
	c.progressOpen = true
}

// Info prints a status line
func (c *Console) Info(msg string) {
	c.println(c.info.Render(msg) + "\n")
}

// Success prints the final summary of a successful run
func (c *Console) Success(msg string) {
	c.println(pterm.Success.Sprintln(msg))
}

// Error prints a failure
func (c *Console) Error(msg string) {
	c.println(pterm.Error.Sprintln(msg))
}

// Warning prints a non-fatal problem
func (c *Console) Warning(msg string) {
	c.println(pterm.Warning.Sprintln(msg))
}

// Diagnostics passes compiler output through unchanged
func (c *Console) Diagnostics(text string) {
	if text == "" {
		return
	}

	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}

	c.println(text)
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.progressOpen {
		io.WriteString(c.out, "\n")
		c.progressOpen = false
	}

	io.WriteString(c.out, s)
}
