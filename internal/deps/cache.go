// Package deps keeps one dependency cache file per source file.
//
// A cache file lists the source and every header it transitively includes,
// as reported by the compiler's dependency listing mode. Its own mtime is
// part of the protocol: the file is written after the listing, so it is at
// least as new as everything it lists. A listed path that is missing, or
// strictly newer than the cache file, means the list may be out of date and
// is regenerated. No content hashing is involved.
package deps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Norgate-AV/respite/internal/compiler"
	"github.com/Norgate-AV/respite/internal/config"
	"github.com/Norgate-AV/respite/internal/utils"
)

// ErrDependencyScan is wrapped by every failed dependency listing
var ErrDependencyScan = errors.New("dependency scan failed")

// ScanError carries the diagnostics of a failed dependency listing
type ScanError struct {
	Source      string
	Diagnostics string
	ExitCode    int
}

func (e *ScanError) Error() string {
	msg := fmt.Sprintf("dependency scan of %s failed (exit code %d)", e.Source, e.ExitCode)
	if d := strings.TrimSpace(e.Diagnostics); d != "" {
		msg += ": " + d
	}

	return msg
}

func (e *ScanError) Unwrap() error {
	return ErrDependencyScan
}

// Record is the dependency snapshot of one source file
type Record struct {
	// Source path relative to the source root
	Unit string

	// Cache file holding the list
	Path string

	// Normalized dependency paths, the source itself included
	Deps []string

	// The list was produced by the compiler during this call rather than read back
	Regenerated bool
}

// Cache resolves source files to their dependency lists
type Cache struct {
	sourceRoot string
	root       string

	runner  compiler.Runner
	command func(source string) (*compiler.ShellCommand, error)

	log *slog.Logger
}

// New creates a cache rooted at cfg.DepDir that lists dependencies with cfg.Compiler
func New(cfg *config.Config, runner compiler.Runner, log *slog.Logger) *Cache {
	return &Cache{
		sourceRoot: cfg.SourceDir,
		root:       cfg.DepDir,
		runner:     runner,
		command: func(source string) (*compiler.ShellCommand, error) {
			return compiler.GetDepsCommand(cfg, source)
		},
		log: log,
	}
}

// PathFor returns the cache file of a source path relative to the source root
func (c *Cache) PathFor(unit string) string {
	return utils.Remap(c.root, unit, Extension)
}

// SourcePath returns the normalized absolute path of a unit
func (c *Cache) SourcePath(unit string) string {
	return utils.Normalize(c.sourceRoot + string(filepath.Separator) + unit)
}

// Resolve returns the dependency list of unit, listing it with the compiler
// when there is no cache file yet or the cached list is stale. A stale list
// is regenerated at most once per call.
func (c *Cache) Resolve(ctx context.Context, unit string) (*Record, error) {
	rec := &Record{
		Unit: unit,
		Path: c.PathFor(unit),
	}

	info, err := os.Stat(rec.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat cache file: %w", err)
		}

		c.log.Debug("No dependency cache, listing.", "unit", unit)

		return c.regenerate(ctx, rec)
	}

	deps, err := ReadFile(rec.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	if reason := staleReason(deps, info.ModTime()); reason != "" {
		c.log.Debug("Dependency cache stale, listing.", "unit", unit, "reason", reason)

		return c.regenerate(ctx, rec)
	}

	rec.Deps = deps
	return rec, nil
}

func (c *Cache) regenerate(ctx context.Context, rec *Record) (*Record, error) {
	source := c.SourcePath(rec.Unit)

	cmd, err := c.command(source)
	if err != nil {
		return nil, err
	}

	res := c.runner.Run(ctx, cmd)
	if !res.Success {
		return nil, &ScanError{Source: source, Diagnostics: res.Diagnostics, ExitCode: res.ExitCode}
	}

	deps := ParseListing(res.Stdout, cmd.Dir)
	if len(deps) == 0 {
		return nil, &ScanError{Source: source, Diagnostics: "no dependencies listed"}
	}

	if err := WriteFile(rec.Path, deps); err != nil {
		return nil, err
	}

	rec.Deps = deps
	rec.Regenerated = true

	return rec, nil
}

// staleReason reports why a cached list written at cacheTime can no longer
// be trusted, or "" if it can
func staleReason(deps []string, cacheTime time.Time) string {
	if len(deps) == 0 {
		return "empty"
	}

	for _, d := range deps {
		info, err := os.Stat(d)
		if err != nil {
			return "missing " + d
		}

		if info.ModTime().After(cacheTime) {
			return "newer " + d
		}
	}

	return ""
}
