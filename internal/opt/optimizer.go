package opt

// Objective is a total scalar function to minimize. Implementations must
// accept any finite input and return a finite cost.
type Objective func(x []float64) float64

// TracePoint is one recorded step of an optimizer run.
type TracePoint struct {
	Iteration int     `json:"iteration"`
	Cost      float64 `json:"cost"`
}

// Result is the outcome of a single optimizer run.
type Result struct {
	// X is the best parameter vector found, clamped to the bounds.
	X []float64
	// Cost is the objective value at X.
	Cost float64
	// Iterations and FuncEvals count the work performed.
	Iterations int
	FuncEvals  int
	// Converged reports whether the run stopped on a tolerance criterion.
	// A run that merely exhausted its iteration budget reports false.
	Converged bool
	// Status names the stopping condition in solver terms.
	Status string
	// Trace holds the per-iteration cost curve when the method records one.
	Trace []TracePoint
}

// Optimizer is a minimization strategy over a box-constrained domain.
type Optimizer interface {
	// Run minimizes eval over the box [lower, upper], starting from x0
	// where the method supports warm starts. Population methods ignore x0
	// and draw their initial population from the box instead. Run returns
	// an error only when no usable iterate was produced at all; numerical
	// trouble mid-run yields a Result with Converged == false.
	Run(eval Objective, x0, lower, upper []float64) (Result, error)
}
