// Package compilertest provides a scriptable stand-in for the compiler driver,
// answering dependency listing, compile and link invocations in-process.
package compilertest

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/Norgate-AV/respite/internal/compiler"
)

// Mode is the kind of invocation the fake recognised
type Mode int

const (
	ModeDeps Mode = iota
	ModeCompile
	ModeLink
)

// FakeCompiler implements compiler.Runner. Compiles and links write their
// output file so timestamps behave like a real build.
type FakeCompiler struct {
	mu sync.Mutex

	// Deps maps a source path to what dependency listing prints for it.
	// Sources without an entry list only themselves.
	Deps map[string][]string

	// DepsFail maps a source path to diagnostics of a failed listing
	DepsFail map[string]string

	// Fail maps a source path to diagnostics of a failed compile
	Fail map[string]string

	// Warn maps a source path to diagnostics of a successful compile
	Warn map[string]string

	// LinkFail, when set, is the diagnostics of a failed link
	LinkFail string

	calls []*compiler.ShellCommand
}

// New creates an empty fake
func New() *FakeCompiler {
	return &FakeCompiler{
		Deps:     map[string][]string{},
		DepsFail: map[string]string{},
		Fail:     map[string]string{},
		Warn:     map[string]string{},
	}
}

func (f *FakeCompiler) Run(ctx context.Context, cmd *compiler.ShellCommand) compiler.Result {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	switch ModeOf(cmd) {
	case ModeDeps:
		return f.listDeps(cmd)
	case ModeCompile:
		return f.compile(cmd)
	default:
		return f.link(cmd)
	}
}

func (f *FakeCompiler) listDeps(cmd *compiler.ShellCommand) compiler.Result {
	source := cmd.Args[len(cmd.Args)-1]

	f.mu.Lock()
	defer f.mu.Unlock()

	if diag, ok := f.DepsFail[source]; ok {
		return compiler.Result{ExitCode: 1, Diagnostics: diag}
	}

	deps, ok := f.Deps[source]
	if !ok {
		deps = []string{source}
	}

	// Escaped the way gcc escapes make rules
	escaped := make([]string, len(deps))
	for i, d := range deps {
		escaped[i] = strings.ReplaceAll(d, " ", "\\ ")
	}

	return compiler.Result{
		Success: true,
		Stdout:  ": " + strings.Join(escaped, " \\\n  ") + "\n",
	}
}

func (f *FakeCompiler) compile(cmd *compiler.ShellCommand) compiler.Result {
	source := argAfter(cmd.Args, "-c")
	object := argAfter(cmd.Args, "-o")

	f.mu.Lock()
	diag, failed := f.Fail[source]
	warn := f.Warn[source]
	f.mu.Unlock()

	if failed {
		return compiler.Result{ExitCode: 1, Diagnostics: diag}
	}

	if err := os.WriteFile(object, []byte("object of "+source), 0o644); err != nil {
		return compiler.Result{ExitCode: 1, Diagnostics: err.Error()}
	}

	return compiler.Result{Success: true, Diagnostics: warn}
}

func (f *FakeCompiler) link(cmd *compiler.ShellCommand) compiler.Result {
	executable := argAfter(cmd.Args, "-o")

	f.mu.Lock()
	diag := f.LinkFail
	f.mu.Unlock()

	if diag != "" {
		return compiler.Result{ExitCode: 1, Diagnostics: diag}
	}

	if err := os.WriteFile(executable, []byte(fmt.Sprintf("linked %d args", len(cmd.Args))), 0o755); err != nil {
		return compiler.Result{ExitCode: 1, Diagnostics: err.Error()}
	}

	return compiler.Result{Success: true}
}

// Calls returns every invocation seen so far
func (f *FakeCompiler) Calls() []*compiler.ShellCommand {
	f.mu.Lock()
	defer f.mu.Unlock()

	return slices.Clone(f.calls)
}

// CallsOf returns the invocations of one mode
func (f *FakeCompiler) CallsOf(mode Mode) []*compiler.ShellCommand {
	var out []*compiler.ShellCommand

	for _, c := range f.Calls() {
		if ModeOf(c) == mode {
			out = append(out, c)
		}
	}

	return out
}

// Compiled returns the sources compiled so far, in call order
func (f *FakeCompiler) Compiled() []string {
	var out []string

	for _, c := range f.CallsOf(ModeCompile) {
		out = append(out, argAfter(c.Args, "-c"))
	}

	return out
}

// Reset forgets recorded calls
func (f *FakeCompiler) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = nil
}

// ModeOf classifies an invocation by its flags
func ModeOf(cmd *compiler.ShellCommand) Mode {
	switch {
	case slices.Contains(cmd.Args, "-MM"):
		return ModeDeps
	case slices.Contains(cmd.Args, "-c"):
		return ModeCompile
	default:
		return ModeLink
	}
}

func argAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}

	return args[i+1]
}
