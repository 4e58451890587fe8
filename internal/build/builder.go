// Package build runs one incremental build: enumerate the sources, resolve
// their dependencies, compile what is stale in parallel, then relink.
package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/Norgate-AV/respite/internal/cache"
	"github.com/Norgate-AV/respite/internal/compiler"
	"github.com/Norgate-AV/respite/internal/config"
	"github.com/Norgate-AV/respite/internal/deps"
	"github.com/Norgate-AV/respite/internal/link"
	"github.com/Norgate-AV/respite/internal/scheduler"
	"github.com/Norgate-AV/respite/internal/stale"
	"github.com/Norgate-AV/respite/internal/utils"
)

// Console receives everything a build wants the user to see. Update is
// called from worker goroutines with the scheduler's lock held.
type Console interface {
	scheduler.Reporter

	Info(msg string)
	Success(msg string)
	Error(msg string)

	// Diagnostics passes compiler output through verbatim
	Diagnostics(text string)
}

// Plan is what a build would do
type Plan struct {
	Units    []string
	Verdicts []stale.Verdict

	// Subset of Verdicts that need compiling
	Rebuild []stale.Verdict

	// Every object, in unit order, as handed to the linker
	Objects    []string
	Executable string
}

// Report is what a build did
type Report struct {
	RunID  string
	DryRun bool

	Plan    *Plan
	Outcome scheduler.Outcome

	// Set when the link stage ran
	Link *link.Result

	Duration time.Duration
}

// Builder runs builds for one configuration
type Builder struct {
	cfg     *config.Config
	runner  compiler.Runner
	journal *cache.Cache
	console Console
	log     *slog.Logger
}

// New creates a builder. journal may be nil to disable the build journal.
func New(cfg *config.Config, runner compiler.Runner, journal *cache.Cache, console Console, log *slog.Logger) *Builder {
	return &Builder{
		cfg:     cfg,
		runner:  runner,
		journal: journal,
		console: console,
		log:     log,
	}
}

// Plan enumerates the sources and decides which of them need compiling.
// Dependency caches are resolved one unit at a time, so no cache file is
// ever touched concurrently.
func (b *Builder) Plan(ctx context.Context) (*Plan, error) {
	units, err := b.sources()
	if err != nil {
		return nil, err
	}

	b.console.Info(fmt.Sprintf("Found %d source files.", len(units)))

	if len(units) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSources, b.cfg.SourceDir)
	}

	var history stale.History
	if b.cfg.TrackCommands && b.journal != nil {
		history = b.journal
	}

	resolver := deps.New(b.cfg, b.runner, b.log)
	eval := stale.New(b.cfg, resolver, history)

	if err := checkOutputs(units, eval.ObjectPath, resolver.PathFor); err != nil {
		return nil, err
	}

	plan := &Plan{
		Units:      units,
		Executable: b.cfg.ExecutablePath(),
	}

	for _, unit := range units {
		v, err := eval.Evaluate(ctx, unit)
		if err != nil {
			return nil, err
		}

		if v.MissingDependency {
			return nil, &MissingDependencyError{Unit: unit, Object: v.Object, Missing: v.Missing}
		}

		b.log.Debug("Evaluated unit.", "unit", unit, "rebuild", v.NeedsRebuild, "reason", v.Reason)

		plan.Verdicts = append(plan.Verdicts, v)
		plan.Objects = append(plan.Objects, v.Object)

		if v.NeedsRebuild {
			plan.Rebuild = append(plan.Rebuild, v)
		}
	}

	return plan, nil
}

// Run plans and executes a build. Every failure already shown on the console
// wraps ErrBuildFailed or ErrLinkFailed; the report is non-nil whenever
// planning succeeded.
func (b *Builder) Run(ctx context.Context) (*Report, error) {
	start := time.Now()

	report := &Report{
		RunID:  uuid.NewString(),
		DryRun: b.cfg.DryRun,
	}
	defer func() { report.Duration = time.Since(start) }()

	b.log.Debug("Starting build.", "run_id", report.RunID, "workers", b.cfg.Workers())

	plan, err := b.Plan(ctx)
	if err != nil {
		b.console.Error(err.Error())
		b.console.Error("BUILD FAILED")
		return nil, fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	report.Plan = plan

	if b.cfg.DryRun {
		return report, b.dryRun(plan)
	}

	if len(plan.Rebuild) == 0 {
		b.console.Info("All objects are up-to-date!")
	} else {
		b.console.Info(fmt.Sprintf("Building %d objects...", len(plan.Rebuild)))

		tasks, err := b.tasks(plan.Rebuild)
		if err != nil {
			return report, err
		}

		report.Outcome = scheduler.New(b.runner, b.cfg.Workers(), b.console).Run(ctx, tasks)
		b.record(report)

		b.console.Diagnostics(report.Outcome.Diagnostics())

		if !report.Outcome.Success {
			b.console.Error("BUILD FAILED")
			return report, fmt.Errorf("%w: %d of %d objects failed", ErrBuildFailed, len(report.Outcome.Failed()), len(plan.Rebuild))
		}
	}

	stage := link.New(b.cfg, b.runner, b.log)

	needed, err := stage.NeedsRelink(plan.Executable, plan.Objects)
	if err != nil {
		return report, err
	}

	if needed {
		b.console.Info(fmt.Sprintf("Building executable %s...", plan.Executable))
	}

	res, err := stage.Run(ctx, plan.Executable, plan.Objects)
	if err != nil {
		return report, err
	}

	report.Link = &res

	if !res.Success {
		b.console.Diagnostics(res.Diagnostics)
		b.console.Error("BUILD FAILED")
		return report, ErrLinkFailed
	}

	b.console.Diagnostics(res.Diagnostics)
	b.console.Success("BUILD SUCCESS")

	b.log.Debug("Build finished.", "run_id", report.RunID, "duration", time.Since(start))

	return report, nil
}

// checkOutputs fails when two units would share an object or cache file,
// e.g. a.cpp and a.cc. Nothing has been written when it does.
func checkOutputs(units []string, paths ...func(unit string) string) error {
	for _, pathOf := range paths {
		owners := make(map[string]string, len(units))

		for _, unit := range units {
			path := pathOf(unit)
			if other, ok := owners[path]; ok {
				return fmt.Errorf("%w: %s and %s both map to %s", ErrOutputConflict, other, unit, path)
			}

			owners[path] = unit
		}
	}

	return nil
}

func (b *Builder) sources() ([]string, error) {
	entries, err := utils.ListTree(b.cfg.SourceDir)
	if err != nil {
		return nil, err
	}

	var units []string
	for _, e := range entries {
		if !e.Dir && utils.HasExtension(e.Path, b.cfg.Extensions) {
			units = append(units, e.Path)
		}
	}

	return units, nil
}

// tasks builds the compile commands and creates the object directories
func (b *Builder) tasks(verdicts []stale.Verdict) ([]scheduler.Task, error) {
	tasks := make([]scheduler.Task, 0, len(verdicts))

	for _, v := range verdicts {
		if err := os.MkdirAll(filepath.Dir(v.Object), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create object directory: %w", err)
		}

		cmd, err := compiler.GetCompileCommand(b.cfg, v.Source, v.Object)
		if err != nil {
			return nil, err
		}

		tasks = append(tasks, scheduler.Task{
			Unit:    v.Unit,
			Source:  v.Source,
			Object:  v.Object,
			Command: cmd,
		})
	}

	return tasks, nil
}

// record writes one journal entry per compiled unit. A journal failure is
// logged, never fatal to the build.
func (b *Builder) record(report *Report) {
	if b.journal == nil {
		return
	}

	now := time.Now()
	entries := make([]cache.Entry, 0, len(report.Outcome.Results))

	for _, r := range report.Outcome.Results {
		entries = append(entries, cache.Entry{
			Source:      r.Source,
			Object:      r.Object,
			CommandHash: cache.HashCommand(r.Command),
			Success:     r.Success,
			Duration:    r.Duration,
			RunID:       report.RunID,
			Timestamp:   now,
		})
	}

	if err := b.journal.Store(entries...); err != nil {
		b.log.Warn("Failed to record build journal.", "error", err)
	}
}

func (b *Builder) dryRun(plan *Plan) error {
	if len(plan.Rebuild) == 0 {
		b.console.Info("All objects are up-to-date!")
	} else {
		b.console.Info(fmt.Sprintf("Would build %d objects:", len(plan.Rebuild)))
		for _, v := range plan.Rebuild {
			b.console.Info(fmt.Sprintf("  %s (%s)", v.Unit, v.Reason))
		}
	}

	// Objects that would be rebuilt count as newer than the executable
	needed := len(plan.Rebuild) > 0
	if !needed {
		var err error
		needed, err = link.New(b.cfg, b.runner, b.log).NeedsRelink(plan.Executable, plan.Objects)
		if err != nil {
			return err
		}
	}

	if needed {
		b.console.Info(fmt.Sprintf("Would build executable %s", plan.Executable))
	} else {
		b.console.Info(fmt.Sprintf("Executable %s is up-to-date", plan.Executable))
	}

	return nil
}
