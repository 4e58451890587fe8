// Package link produces the executable from the full set of object files.
package link

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Norgate-AV/respite/internal/compiler"
	"github.com/Norgate-AV/respite/internal/config"
)

// Result of a link stage run
type Result struct {
	// The linker was invoked
	Relinked bool

	Success     bool
	Diagnostics string
	Duration    time.Duration
}

// Stage links the executable when it is out of date
type Stage struct {
	cfg    *config.Config
	runner compiler.Runner
	log    *slog.Logger
}

// New creates a link stage
func New(cfg *config.Config, runner compiler.Runner, log *slog.Logger) *Stage {
	return &Stage{
		cfg:    cfg,
		runner: runner,
		log:    log,
	}
}

// NeedsRelink reports whether the executable is absent, or older than any
// object. A missing object also forces a relink so the linker gets to
// report it.
func (s *Stage) NeedsRelink(executable string, objects []string) (bool, error) {
	exeInfo, err := os.Stat(executable)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat executable: %w", err)
	}

	for _, obj := range objects {
		info, err := os.Stat(obj)
		if os.IsNotExist(err) {
			s.log.Debug("Object missing, relinking.", "object", obj)
			return true, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to stat object: %w", err)
		}

		if info.ModTime().After(exeInfo.ModTime()) {
			s.log.Debug("Object newer than executable, relinking.", "object", obj)
			return true, nil
		}
	}

	return false, nil
}

// Run relinks executable over every object when needed, and is a successful
// no-op otherwise. Linker failures are reported in the Result; the error is
// for failures to get as far as running the linker.
func (s *Stage) Run(ctx context.Context, executable string, objects []string) (Result, error) {
	needed, err := s.NeedsRelink(executable, objects)
	if err != nil {
		return Result{}, err
	}

	if !needed {
		return Result{Success: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(executable), 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	cmd, err := compiler.GetLinkCommand(s.cfg, executable, objects)
	if err != nil {
		return Result{}, err
	}

	s.log.Debug("Linking.", "command", cmd.String())

	res := s.runner.Run(ctx, cmd)

	return Result{
		Relinked:    true,
		Success:     res.Success,
		Diagnostics: res.Diagnostics,
		Duration:    res.Duration,
	}, nil
}
