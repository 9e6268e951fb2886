// Package batch runs several optimization scenarios concurrently through a
// bounded worker pool. Each scenario gets a uuid-identified run with its own
// artifact directory, and the batch ends with summary statistics across the
// completed runs.
package batch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/cwbudde/railfit/internal/report"
	"github.com/cwbudde/railfit/internal/scenario"
	"github.com/cwbudde/railfit/internal/validate"
	"github.com/google/uuid"
)

// RunState is the lifecycle state of one scenario run.
type RunState string

const (
	StatePending   RunState = "pending"
	StateRunning   RunState = "running"
	StateCompleted RunState = "completed"
	StateFailed    RunState = "failed"
)

// Run tracks one scenario through the pool.
type Run struct {
	ID           string     `json:"id"`
	Scenario     string     `json:"scenario"`
	ScenarioPath string     `json:"scenarioPath"`
	OutDir       string     `json:"outDir"`
	State        RunState   `json:"state"`
	EnergyJ      float64    `json:"energyJ"`
	Cost         float64    `json:"cost"`
	Converged    bool       `json:"converged"`
	Feasible     bool       `json:"feasible"`
	StartTime    time.Time  `json:"startTime"`
	EndTime      *time.Time `json:"endTime,omitempty"`
	Error        string     `json:"error,omitempty"`
}

// Runner executes scenario files with at most Workers solves in flight.
type Runner struct {
	// Workers bounds concurrency; values below 1 mean one.
	Workers int
	// OutDir is the root artifact directory; each run writes into
	// OutDir/<scenario name>.
	OutDir string
	// WriteTrace includes trace.jsonl in each run's artifacts.
	WriteTrace bool
}

// Execute runs every scenario path and returns one Run per path, in input
// order. A failed scenario marks its run failed and never aborts the rest.
func (r *Runner) Execute(paths []string) []*Run {
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	runs := make([]*Run, len(paths))
	for i, path := range paths {
		runs[i] = &Run{
			ID:           uuid.New().String(),
			Scenario:     trimName(path),
			ScenarioPath: path,
			State:        StatePending,
		}
	}

	slog.Info("starting batch", "scenarios", len(paths), "workers", workers)

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				r.executeOne(runs[idx])
			}
		}()
	}
	for i := range runs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	slog.Info("batch finished", "completed", countState(runs, StateCompleted), "failed", countState(runs, StateFailed))
	return runs
}

func (r *Runner) executeOne(run *Run) {
	run.State = StateRunning
	run.StartTime = time.Now()
	defer func() {
		end := time.Now()
		run.EndTime = &end
	}()

	slog.Info("run started", "run_id", run.ID, "scenario", run.Scenario)

	result, rep, err := Solve(run.ScenarioPath)
	if err != nil {
		markFailed(run, err)
		return
	}

	run.OutDir = filepath.Join(r.OutDir, run.Scenario)
	art := &report.Run{
		Scenario:  run.Scenario,
		CreatedAt: time.Now(),
		Trip:      &result.Trip,
		Result:    result.Result,
		Report:    rep,
	}
	if !r.WriteTrace {
		art.Result.Trace = nil
	}
	if err := report.WriteRun(run.OutDir, art); err != nil {
		markFailed(run, err)
		return
	}

	run.State = StateCompleted
	run.EnergyJ = result.Result.Report.EnergyJ
	run.Cost = result.Result.BestCost
	run.Converged = result.Result.Converged
	run.Feasible = rep.Feasible
	slog.Info("run completed",
		"run_id", run.ID,
		"scenario", run.Scenario,
		"energy_j", run.EnergyJ,
		"converged", run.Converged,
		"feasible", run.Feasible,
	)
}

// Solved bundles a finished solve with the trip it ran against.
type Solved struct {
	Trip   drive.TripSpec
	Result *drive.OptimizationResult
}

// Solve loads a scenario file, optimizes it and validates the solution.
// It is the single-scenario path the CLI run command also uses.
func Solve(path string) (*Solved, *validate.Report, error) {
	s, err := scenario.Load(path)
	if err != nil {
		return nil, nil, err
	}

	opts := s.SolveOptions()
	var result *drive.OptimizationResult
	if global := s.GlobalOptimizer(); global != nil {
		result, err = drive.OptimizeSeeded(&s.Trip, global, s.LocalOptimizer(), opts)
	} else {
		result, err = drive.Optimize(&s.Trip, s.LocalOptimizer(), opts)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("optimize %s: %w", s.Name, err)
	}

	rep, err := validate.Run(&s.Trip, result, *s.Weights, s.Solver.Samples, s.ValidateConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("validate %s: %w", s.Name, err)
	}
	return &Solved{Trip: s.Trip, Result: result}, rep, nil
}

func markFailed(run *Run, err error) {
	run.State = StateFailed
	run.Error = err.Error()
	slog.Error("run failed", "run_id", run.ID, "scenario", run.Scenario, "error", err)
}

func countState(runs []*Run, state RunState) int {
	n := 0
	for _, run := range runs {
		if run.State == state {
			n++
		}
	}
	return n
}

func trimName(path string) string {
	base := filepath.Base(path)
	return base[:len(base)-len(filepath.Ext(base))]
}
