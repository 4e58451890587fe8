// Package scheduler compiles units in parallel on a fixed pool of workers.
//
// The work list is split once into contiguous chunks, one per worker; there
// is no work stealing. A failed unit never stops the others: every scheduled
// unit runs to completion and the outcome aggregates all of them.
package scheduler

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/Norgate-AV/respite/internal/compiler"
)

// Task is one unit to compile
type Task struct {
	Unit    string
	Source  string
	Object  string
	Command *compiler.ShellCommand
}

// UnitResult is the outcome of one task
type UnitResult struct {
	Task
	Worker int

	Success     bool
	ExitCode    int
	Diagnostics string
	Duration    time.Duration
}

// Outcome aggregates every unit result of a run
type Outcome struct {
	// AND of every unit's success, true for an empty run
	Success bool

	// In completion order; per worker, the order of its chunk
	Results []UnitResult
}

// Diagnostics concatenates the diagnostic text of every unit, in completion order
func (o Outcome) Diagnostics() string {
	var b strings.Builder

	for _, r := range o.Results {
		b.WriteString(r.Diagnostics)
		if r.Diagnostics != "" && !strings.HasSuffix(r.Diagnostics, "\n") {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// Failed returns the results of the units that did not compile
func (o Outcome) Failed() []UnitResult {
	var out []UnitResult

	for _, r := range o.Results {
		if !r.Success {
			out = append(out, r)
		}
	}

	return out
}

// Progress is a snapshot of a run in flight
type Progress struct {
	// One slot per worker, true once its chunk is exhausted
	Slots []bool

	Completed int
	Total     int
}

// Percent of units completed
func (p Progress) Percent() int {
	if p.Total == 0 {
		return 100
	}

	return p.Completed * 100 / p.Total
}

// Reporter renders progress. Update is called with the sink locked, so it
// must not block.
type Reporter interface {
	Update(p Progress)
}

type nopReporter struct{}

func (nopReporter) Update(Progress) {}

// Scheduler runs compile tasks
type Scheduler struct {
	runner   compiler.Runner
	workers  int
	reporter Reporter
}

// New creates a scheduler with the given number of workers; 0 or less means
// one per logical CPU. reporter may be nil.
func New(runner compiler.Runner, workers int, reporter Reporter) *Scheduler {
	if workers < 1 {
		workers = max(runtime.NumCPU(), 1)
	}

	if reporter == nil {
		reporter = nopReporter{}
	}

	return &Scheduler{
		runner:   runner,
		workers:  workers,
		reporter: reporter,
	}
}

// Workers returns the pool size
func (s *Scheduler) Workers() int {
	return s.workers
}

// Run compiles every task and blocks until all workers are done
func (s *Scheduler) Run(ctx context.Context, tasks []Task) Outcome {
	if len(tasks) == 0 {
		return Outcome{Success: true}
	}

	chunks := Partition(tasks, s.workers)
	sink := newSink(len(chunks), len(tasks), s.reporter)

	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func() {
			defer wg.Done()

			sink.register()
			for _, task := range chunk {
				res := s.runner.Run(ctx, task.Command)

				sink.add(UnitResult{
					Task:        task,
					Worker:      i,
					Success:     res.Success,
					ExitCode:    res.ExitCode,
					Diagnostics: res.Diagnostics,
					Duration:    res.Duration,
				})
			}
			sink.finish(i)
		}()
	}

	sink.awaitRegistration()
	sink.awaitDone()
	wg.Wait()

	out := Outcome{
		Success: true,
		Results: sink.results,
	}

	for _, r := range out.Results {
		out.Success = out.Success && r.Success
	}

	return out
}
