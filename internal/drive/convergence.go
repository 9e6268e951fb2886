package drive

import (
	"log/slog"
	"math"
)

// ConvergenceConfig controls early stopping of the restart loop.
type ConvergenceConfig struct {
	// Enabled controls whether early stopping is active.
	Enabled bool

	// Patience is the number of restarts with no significant improvement
	// before the loop stops early.
	Patience int

	// Threshold is the minimum relative improvement that counts as
	// progress: (oldCost - newCost) / oldCost.
	Threshold float64
}

// DefaultConvergenceConfig returns defaults tuned for short restart loops.
func DefaultConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{
		Enabled:   true,
		Patience:  2,
		Threshold: 0.001,
	}
}

// DisabledConvergenceConfig returns a config that never stops early.
func DisabledConvergenceConfig() ConvergenceConfig {
	return ConvergenceConfig{Enabled: false}
}

// ConvergenceTracker records per-restart best costs and reports when the
// loop has gone stale.
type ConvergenceTracker struct {
	config          ConvergenceConfig
	history         []float64
	bestCost        float64
	lastSignificant float64
	staleCount      int
}

// NewConvergenceTracker creates a tracker with the given config.
func NewConvergenceTracker(config ConvergenceConfig) *ConvergenceTracker {
	return &ConvergenceTracker{
		config:          config,
		bestCost:        math.Inf(1),
		lastSignificant: math.Inf(1),
	}
}

// Update records the cost of a finished restart and returns true when the
// configured patience has run out without significant improvement.
func (c *ConvergenceTracker) Update(cost float64) bool {
	if !c.config.Enabled {
		return false
	}

	c.history = append(c.history, cost)
	if cost < c.bestCost {
		c.bestCost = cost
	}

	if len(c.history) == 1 {
		c.lastSignificant = cost
		return false
	}

	improvement := (c.lastSignificant - cost) / c.lastSignificant
	if improvement >= c.config.Threshold {
		c.lastSignificant = cost
		c.staleCount = 0
		slog.Debug("restart improved cost",
			"cost", cost,
			"relative_improvement", improvement,
		)
		return false
	}

	c.staleCount++
	slog.Debug("restart made no significant progress",
		"cost", cost,
		"last_significant", c.lastSignificant,
		"stale_count", c.staleCount,
		"patience", c.config.Patience,
	)
	if c.staleCount >= c.config.Patience {
		slog.Info("restart loop stale, stopping early",
			"stale_count", c.staleCount,
			"best_cost", c.bestCost,
		)
		return true
	}
	return false
}

// BestCost returns the best cost seen so far.
func (c *ConvergenceTracker) BestCost() float64 {
	return c.bestCost
}

// History returns a copy of the recorded costs.
func (c *ConvergenceTracker) History() []float64 {
	return append([]float64{}, c.history...)
}

// StaleCount returns the number of restarts since the last improvement.
func (c *ConvergenceTracker) StaleCount() int {
	return c.staleCount
}

// Reset clears the tracker state.
func (c *ConvergenceTracker) Reset() {
	c.history = nil
	c.bestCost = math.Inf(1)
	c.lastSignificant = math.Inf(1)
	c.staleCount = 0
}
