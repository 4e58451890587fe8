// Package stale decides which source files need recompiling.
package stale

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Norgate-AV/respite/internal/cache"
	"github.com/Norgate-AV/respite/internal/compiler"
	"github.com/Norgate-AV/respite/internal/config"
	"github.com/Norgate-AV/respite/internal/deps"
	"github.com/Norgate-AV/respite/internal/utils"
)

// ObjectExtension of every object file
const ObjectExtension = ".o"

// Reasons a Verdict can carry
const (
	ReasonUpToDate          = "up-to-date"
	ReasonNoObject          = "no-object"
	ReasonNewerDependency   = "newer-dependency"
	ReasonCommandChanged    = "command-changed"
	ReasonMissingDependency = "missing-dependency"
)

// Resolver produces the dependency list of a unit
type Resolver interface {
	Resolve(ctx context.Context, unit string) (*deps.Record, error)
}

// History looks up the last recorded compile of a source
type History interface {
	Get(source string) (*cache.Entry, error)
}

// Verdict is the rebuild decision for one unit
type Verdict struct {
	Unit   string
	Source string
	Object string

	// Dependencies as resolved, the source itself included
	Deps []string

	NeedsRebuild bool

	// Newest mtime across the dependencies that exist
	NewestDependencyTime time.Time

	// Dependencies still absent after the list was regenerated. Such a unit
	// is never compiled.
	MissingDependency bool
	Missing           []string

	Reason string
}

// Evaluator computes verdicts
type Evaluator struct {
	cfg      *config.Config
	resolver Resolver

	// nil unless command tracking is on
	history History
}

// New creates an evaluator. history may be nil, in which case mtimes are
// the only rebuild signal.
func New(cfg *config.Config, resolver Resolver, history History) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		resolver: resolver,
		history:  history,
	}
}

// ObjectPath returns the object file of a unit
func (e *Evaluator) ObjectPath(unit string) string {
	return utils.Remap(e.cfg.ObjDir, unit, ObjectExtension)
}

// SourcePath returns the absolute path of a unit
func (e *Evaluator) SourcePath(unit string) string {
	return utils.Normalize(e.cfg.SourceDir + string(filepath.Separator) + unit)
}

// Evaluate resolves the dependencies of unit and decides whether its object
// must be rebuilt: when it does not exist, or when any dependency is strictly
// newer than it.
func (e *Evaluator) Evaluate(ctx context.Context, unit string) (Verdict, error) {
	v := Verdict{
		Unit:   unit,
		Source: e.SourcePath(unit),
		Object: e.ObjectPath(unit),
	}

	rec, err := e.resolver.Resolve(ctx, unit)
	if err != nil {
		return v, err
	}

	v.Deps = rec.Deps

	for _, d := range rec.Deps {
		info, err := os.Stat(d)
		if err != nil {
			if !os.IsNotExist(err) {
				return v, fmt.Errorf("failed to stat dependency: %w", err)
			}

			v.Missing = append(v.Missing, d)
			continue
		}

		if info.ModTime().After(v.NewestDependencyTime) {
			v.NewestDependencyTime = info.ModTime()
		}
	}

	if len(v.Missing) > 0 {
		v.MissingDependency = true
		v.Reason = ReasonMissingDependency

		return v, nil
	}

	info, err := os.Stat(v.Object)
	switch {
	case os.IsNotExist(err):
		v.NeedsRebuild = true
		v.Reason = ReasonNoObject
	case err != nil:
		return v, fmt.Errorf("failed to stat object: %w", err)
	case v.NewestDependencyTime.After(info.ModTime()):
		v.NeedsRebuild = true
		v.Reason = ReasonNewerDependency
	default:
		v.Reason = ReasonUpToDate
	}

	if !v.NeedsRebuild && e.history != nil {
		changed, err := e.commandChanged(v)
		if err != nil {
			return v, err
		}

		if changed {
			v.NeedsRebuild = true
			v.Reason = ReasonCommandChanged
		}
	}

	return v, nil
}

// commandChanged reports whether the recorded compile of v used a different
// command line than the current one. A unit with no record is unchanged.
func (e *Evaluator) commandChanged(v Verdict) (bool, error) {
	entry, err := e.history.Get(v.Source)
	if err != nil || entry == nil {
		return false, err
	}

	cmd, err := compiler.GetCompileCommand(e.cfg, v.Source, v.Object)
	if err != nil {
		return false, err
	}

	return entry.CommandHash != cache.HashCommand(cmd), nil
}
