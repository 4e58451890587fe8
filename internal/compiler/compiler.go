package compiler

import (
	"fmt"

	"al.essio.dev/pkg/shellescape"
	"github.com/mattn/go-shellwords"

	"github.com/Norgate-AV/respite/internal/config"
)

// ShellCommand is one external invocation
type ShellCommand struct {
	Path string
	Args []string

	// Working directory, empty means the current one
	Dir string
}

// String renders the command the way a shell would accept it
func (c *ShellCommand) String() string {
	return shellescape.QuoteCommand(append([]string{c.Path}, c.Args...))
}

// Argv is the program followed by its arguments
func (c *ShellCommand) Argv() []string {
	return append([]string{c.Path}, c.Args...)
}

// GetDepsCommand lists the headers a source file includes. The empty -MT
// target makes the output start with ":" followed by the dependencies.
func GetDepsCommand(cfg *config.Config, source string) (*ShellCommand, error) {
	cmdArgs := []string{"-MM", "-MT", ""}

	flags, err := splitFlags(cfg.CPPFlags, cfg.CXXFlags)
	if err != nil {
		return nil, err
	}

	cmdArgs = append(cmdArgs, flags...)
	cmdArgs = append(cmdArgs, source)

	return &ShellCommand{
		Path: cfg.Compiler,
		Args: cmdArgs,
		Dir:  cfg.BaseDir,
	}, nil
}

// GetCompileCommand compiles one source file into one object file
func GetCompileCommand(cfg *config.Config, source, object string) (*ShellCommand, error) {
	cmdArgs, err := splitFlags(cfg.CPPFlags, cfg.CXXFlags)
	if err != nil {
		return nil, err
	}

	cmdArgs = append(cmdArgs, "-c", source, "-o", object)

	return &ShellCommand{
		Path: cfg.Compiler,
		Args: cmdArgs,
		Dir:  cfg.BaseDir,
	}, nil
}

// GetLinkCommand links every object into the executable
func GetLinkCommand(cfg *config.Config, executable string, objects []string) (*ShellCommand, error) {
	cmdArgs, err := splitFlags(cfg.LDFlags)
	if err != nil {
		return nil, err
	}

	cmdArgs = append(cmdArgs, objects...)

	libs, err := splitFlags(cfg.LDLibs)
	if err != nil {
		return nil, err
	}

	cmdArgs = append(cmdArgs, libs...)
	cmdArgs = append(cmdArgs, "-o", executable)

	return &ShellCommand{
		Path: cfg.Compiler,
		Args: cmdArgs,
		Dir:  cfg.BaseDir,
	}, nil
}

func splitFlags(flagStrings ...string) ([]string, error) {
	var out []string

	for _, s := range flagStrings {
		words, err := shellwords.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("failed to parse flags %q: %w", s, err)
		}

		out = append(out, words...)
	}

	return out, nil
}
