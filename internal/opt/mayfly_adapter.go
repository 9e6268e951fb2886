package opt

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// mayflyMinPop is the smallest population the library accepts.
const mayflyMinPop = 20

// MayflyAdapter wraps the external Mayfly swarm library behind the
// Optimizer interface. As a population method it ignores the warm start
// and explores the whole box, which makes it useful as a global seeding
// stage ahead of a gradient refiner.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a Mayfly optimizer adapter. Population sizes below the
// library minimum are raised to it.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	if popSize < mayflyMinPop {
		popSize = mayflyMinPop
	}
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

// Run executes the swarm search. The library takes scalar bounds, so the
// first dimension's bounds apply to all dimensions; profile control points
// share [0, maxSpeed] anyway.
func (m *MayflyAdapter) Run(eval Objective, x0, lower, upper []float64) (Result, error) {
	dim := len(x0)
	if dim == 0 {
		return Result{}, errors.New("mayfly: empty start vector")
	}
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = mayfly.ObjectiveFunction(eval)
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize
	config.LowerBound = lower[0]
	config.UpperBound = upper[0]
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		// Keep the warm start as the best-effort iterate.
		fallback := append([]float64{}, x0...)
		return Result{
			X:      fallback,
			Cost:   eval(fallback),
			Status: fmt.Sprintf("mayfly failed: %v", err),
		}, nil
	}

	return Result{
		X:          result.GlobalBest.Position,
		Cost:       result.GlobalBest.Cost,
		Iterations: m.maxIters,
		FuncEvals:  m.maxIters * m.popSize,
		// Swarm runs always spend the full budget; there is no tolerance
		// criterion to converge on.
		Converged: false,
		Status:    "iteration budget exhausted",
	}, nil
}
