package opt

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// nonFiniteCost replaces NaN or infinite objective values so the line
// search always sees comparable numbers.
const nonFiniteCost = 1e12

// convergePatience is the number of consecutive stale iterations the
// function-value converger requires before it declares convergence.
const convergePatience = 15

// LBFGSAdapter runs gonum's L-BFGS quasi-Newton method with central
// finite-difference gradients. The method itself is unconstrained; the
// adapter projects the start point and the final iterate into the box and
// relies on the objective's own clamping and penalties in between.
type LBFGSAdapter struct {
	maxIters int
	tol      float64
	gradTol  float64
}

// NewLBFGS creates an L-BFGS adapter. maxIters bounds the major iterations
// and tol is the relative cost-improvement tolerance: the run converges
// once improvements stay below tol times the cost magnitude for a stretch
// of iterations. Relative, because objectives here range from unit-scale
// test functions to trips costing tens of MJ, and a Joule-absolute
// criterion on the latter never triggers. The run counts as converged only
// when a tolerance criterion stops it before the budget.
func NewLBFGS(maxIters int, tol float64) Optimizer {
	return &LBFGSAdapter{
		maxIters: maxIters,
		tol:      tol,
		gradTol:  1e-6,
	}
}

// Run executes the local refinement from x0.
func (l *LBFGSAdapter) Run(eval Objective, x0, lower, upper []float64) (Result, error) {
	if len(x0) == 0 {
		return Result{}, errors.New("lbfgs: empty start vector")
	}

	evals := 0
	wrapped := func(x []float64) float64 {
		evals++
		cost := eval(x)
		if math.IsNaN(cost) || math.IsInf(cost, 0) {
			return nonFiniteCost
		}
		return cost
	}

	start := projectBox(x0, lower, upper)
	problem := optimize.Problem{
		Func: wrapped,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, wrapped, x, &fd.Settings{Formula: fd.Central})
		},
	}
	rec := &traceRecorder{}
	settings := &optimize.Settings{
		MajorIterations:   l.maxIters,
		GradientThreshold: l.gradTol,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   l.tol,
			Iterations: convergePatience,
		},
		Recorder: rec,
	}

	res, err := optimize.Minimize(problem, start, settings, &optimize.LBFGS{})
	if res == nil {
		out := Result{
			X:      start,
			Cost:   wrapped(start),
			Status: fmt.Sprintf("lbfgs produced no iterate: %v", err),
		}
		return out, fmt.Errorf("lbfgs: %w", err)
	}

	best := projectBox(res.X, lower, upper)
	out := Result{
		X:          best,
		Cost:       wrapped(best),
		Iterations: res.Stats.MajorIterations,
		FuncEvals:  evals,
		Converged:  err == nil && convergedStatus(res.Status),
		Status:     res.Status.String(),
		Trace:      rec.points,
	}
	if err != nil {
		// Line-search stalls and similar numerical trouble still leave a
		// usable iterate behind; surface them through the status string.
		// A stall whose trailing iterations were already flat to within
		// the tolerance is the converged plateau, not a failure.
		if stalledAtPlateau(rec.points, l.tol) {
			out.Converged = true
			out.Status = fmt.Sprintf("converged before stall (%s: %v)", res.Status, err)
		} else {
			out.Status = fmt.Sprintf("%s: %v", res.Status, err)
		}
	}
	return out, nil
}

// stalledAtPlateau reports whether the run logged at least a full patience
// window of iterations and the cost moved by less than relTol of its
// magnitude across that window.
func stalledAtPlateau(points []TracePoint, relTol float64) bool {
	if len(points) <= convergePatience {
		return false
	}
	last := points[len(points)-1]
	first := points[len(points)-1-convergePatience]
	scale := math.Max(math.Abs(first.Cost), math.Abs(last.Cost))
	return first.Cost-last.Cost <= relTol*scale
}

func convergedStatus(s optimize.Status) bool {
	switch s {
	case optimize.Success,
		optimize.FunctionThreshold,
		optimize.FunctionConvergence,
		optimize.GradientThreshold,
		optimize.StepConvergence,
		optimize.MethodConverge:
		return true
	}
	return false
}

func projectBox(x, lower, upper []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		if math.IsNaN(v) {
			v = lower[i]
		}
		out[i] = math.Max(lower[i], math.Min(upper[i], v))
	}
	return out
}

// traceRecorder collects the cost after every major iteration.
type traceRecorder struct {
	points []TracePoint
}

func (r *traceRecorder) Init() error { return nil }

func (r *traceRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if op&optimize.MajorIteration != 0 {
		r.points = append(r.points, TracePoint{
			Iteration: stats.MajorIterations,
			Cost:      loc.F,
		})
	}
	return nil
}
