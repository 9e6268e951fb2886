package drive

import (
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/cwbudde/railfit/internal/opt"
)

// SolveOptions configures a pipeline run. Zero values select defaults.
type SolveOptions struct {
	// ControlPoints is the number of free interior speeds; <= 0 selects
	// DefaultControlPoints for the trip distance.
	ControlPoints int
	// Samples is the trajectory resolution; <= 1 selects DefaultSamples.
	Samples int
	// Restarts is the number of multi-start attempts; < 1 means one.
	Restarts int
	// Seed drives the restart jitter.
	Seed int64
	// Weights scale the soft constraints; the zero value selects
	// DefaultPenaltyWeights.
	Weights PenaltyWeights
	// Convergence controls early stopping across restarts.
	Convergence ConvergenceConfig
}

func (o SolveOptions) withDefaults(spec *TripSpec) SolveOptions {
	if o.ControlPoints <= 0 {
		o.ControlPoints = DefaultControlPoints(spec.DistanceM)
	}
	if o.Restarts < 1 {
		o.Restarts = 1
	}
	if o.Weights == (PenaltyWeights{}) {
		o.Weights = DefaultPenaltyWeights()
	}
	return o
}

// OptimizationResult is the outcome of a pipeline run. Profile and Trace
// are kept out of the JSON form; they are written as separate artifacts.
type OptimizationResult struct {
	BestParams  ControlPoints `json:"bestParams"`
	BestCost    float64       `json:"bestCost"`
	InitialCost float64       `json:"initialCost"`
	Converged   bool          `json:"converged"`
	Status      string        `json:"status"`
	Iterations  int           `json:"iterations"`
	FuncEvals   int           `json:"funcEvals"`
	Restarts    int           `json:"restarts"`
	Report      *CostReport   `json:"report"`

	Profile *SpeedProfile    `json:"-"`
	Trace   []opt.TracePoint `json:"-"`
}

// Objective builds the scalar cost function the optimizer minimizes:
// generate a profile from the control points, simulate it, return the cost.
// The closure is total over all of R^n, so unconstrained methods can
// evaluate anywhere.
func Objective(spec *TripSpec, weights PenaltyWeights, samples int) opt.Objective {
	return func(x []float64) float64 {
		profile := GenerateProfile(spec, ControlPoints(x), samples)
		return Simulate(spec, profile, weights).Cost
	}
}

// Optimize runs the multi-start search with the given optimizer. The first
// start is the uniform-speed guess distance/duration; later starts draw
// random speeds from the lower 80% of the speed range. It returns an error
// for an invalid spec or when every restart fails outright.
func Optimize(spec *TripSpec, optimizer opt.Optimizer, opts SolveOptions) (*OptimizationResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults(spec)
	guess := uniformGuess(spec, opts.ControlPoints)
	return runRestarts(spec, optimizer, opts, guess)
}

// OptimizeSeeded runs a global swarm stage over the whole box first and
// hands its best vector to the local refiner as the first start.
func OptimizeSeeded(spec *TripSpec, global, local opt.Optimizer, opts SolveOptions) (*OptimizationResult, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	opts = opts.withDefaults(spec)

	eval := Objective(spec, opts.Weights, opts.Samples)
	bounds := NewBounds(opts.ControlPoints, spec.MaxSpeedMPS)
	guess := uniformGuess(spec, opts.ControlPoints)

	slog.Info("starting global seeding stage", "dim", opts.ControlPoints)
	seedRes, err := global.Run(eval, guess, bounds.Lower, bounds.Upper)
	if err != nil {
		slog.Warn("global stage failed, refining from uniform guess", "error", err)
		seedRes = opt.Result{X: guess, Cost: eval(guess)}
	}
	slog.Info("global seeding stage finished", "cost", seedRes.Cost)

	result, err := runRestarts(spec, local, opts, ControlPoints(seedRes.X))
	if err != nil {
		return nil, err
	}
	result.Iterations += seedRes.Iterations
	result.FuncEvals += seedRes.FuncEvals
	return result, nil
}

func runRestarts(spec *TripSpec, optimizer opt.Optimizer, opts SolveOptions, guess ControlPoints) (*OptimizationResult, error) {
	eval := Objective(spec, opts.Weights, opts.Samples)
	bounds := NewBounds(opts.ControlPoints, spec.MaxSpeedMPS)
	tracker := NewConvergenceTracker(opts.Convergence)
	rng := rand.New(rand.NewSource(opts.Seed))

	result := &OptimizationResult{InitialCost: eval(guess)}
	var best *opt.Result
	var lastErr error
	var trace []opt.TracePoint

	for r := 0; r < opts.Restarts; r++ {
		x0 := guess.Clone()
		if r > 0 {
			for i := range x0 {
				x0[i] = rng.Float64() * 0.8 * spec.MaxSpeedMPS
			}
		}

		res, err := optimizer.Run(eval, x0, bounds.Lower, bounds.Upper)
		result.Restarts++
		if err != nil {
			lastErr = err
			slog.Warn("restart failed", "restart", r, "error", err)
			continue
		}

		offset := result.Iterations
		for _, p := range res.Trace {
			trace = append(trace, opt.TracePoint{Iteration: offset + p.Iteration, Cost: p.Cost})
		}
		result.Iterations += res.Iterations
		result.FuncEvals += res.FuncEvals

		slog.Debug("restart finished",
			"restart", r,
			"cost", res.Cost,
			"converged", res.Converged,
			"status", res.Status,
		)
		if best == nil || res.Cost < best.Cost {
			resCopy := res
			best = &resCopy
		}
		if tracker.Update(res.Cost) {
			break
		}
	}

	if best == nil {
		return nil, fmt.Errorf("all %d restarts failed: %w", result.Restarts, lastErr)
	}

	result.BestParams = ControlPoints(best.X)
	result.BestCost = best.Cost
	result.Converged = best.Converged
	result.Status = best.Status
	result.Trace = trace
	result.Profile = GenerateProfile(spec, result.BestParams, opts.Samples)
	result.Report = Simulate(spec, result.Profile, opts.Weights)

	slog.Info("optimization finished",
		"best_cost", result.BestCost,
		"initial_cost", result.InitialCost,
		"converged", result.Converged,
		"status", result.Status,
		"restarts", result.Restarts,
		"iterations", result.Iterations,
	)
	return result, nil
}

func uniformGuess(spec *TripSpec, dim int) ControlPoints {
	v := clamp(spec.DistanceM/spec.DurationS, 0, spec.MaxSpeedMPS)
	guess := make(ControlPoints, dim)
	for i := range guess {
		guess[i] = v
	}
	return guess
}
