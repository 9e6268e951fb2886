// Package scenario defines the JSON input contract of the optimizer: one
// file describes a trip, the penalty weights and the solver budget. Loading
// materializes every default into the returned value, so downstream code
// never consults process-wide state.
package scenario

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/cwbudde/railfit/internal/opt"
	"github.com/cwbudde/railfit/internal/validate"
)

// Solver defaults applied by ApplyDefaults.
const (
	DefaultIterations = 150
	DefaultTolerance  = 1e-4
	DefaultRestarts   = 1
	DefaultSeed       = 42
	DefaultPopulation = 30
)

// SolverConfig bounds and seeds the optimization run.
type SolverConfig struct {
	// ControlPoints is the number of free interior speeds; 0 derives it
	// from the trip distance.
	ControlPoints int `json:"controlPoints,omitempty"`
	// Samples is the trajectory resolution; 0 derives it from the trip
	// duration.
	Samples int `json:"samples,omitempty"`
	// Iterations caps the local refiner's major iterations per restart.
	Iterations int `json:"iterations,omitempty"`
	// Tolerance is the relative cost-improvement convergence criterion:
	// the run converges once improvements fall below Tolerance times the
	// cost magnitude for a stretch of iterations.
	Tolerance float64 `json:"tolerance,omitempty"`
	// Restarts is the multi-start attempt count.
	Restarts int `json:"restarts,omitempty"`
	// Seed drives restart jitter and the swarm stage.
	Seed int64 `json:"seed,omitempty"`
	// GlobalStage prepends a mayfly swarm search over the whole box.
	GlobalStage bool `json:"globalStage,omitempty"`
	// Population sizes the swarm when GlobalStage is set.
	Population int `json:"population,omitempty"`
}

// ValidationConfig selects the post-solve validation work.
type ValidationConfig struct {
	// Parameters lists the spec fields for the sensitivity study; empty
	// selects the validator's defaults.
	Parameters []string `json:"parameters,omitempty"`
	// Fraction is the relative perturbation; 0 selects 5%.
	Fraction float64 `json:"fraction,omitempty"`
	// Reoptimize re-solves per perturbation instead of re-simulating.
	Reoptimize bool `json:"reoptimize,omitempty"`
	// SkipSensitivity turns the perturbation study off entirely.
	SkipSensitivity bool `json:"skipSensitivity,omitempty"`
}

// Scenario is one optimization task as read from disk, with all defaults
// materialized after ApplyDefaults.
type Scenario struct {
	Name       string                `json:"name,omitempty"`
	Trip       drive.TripSpec        `json:"trip"`
	Weights    *drive.PenaltyWeights `json:"weights,omitempty"`
	Solver     SolverConfig          `json:"solver,omitempty"`
	Validation ValidationConfig      `json:"validation,omitempty"`
}

// Load reads, defaults and validates a scenario file. Validation failures
// come back as *drive.InvalidSpecError wrapped with the file path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = nameFromPath(path)
	}
	return s, nil
}

// Parse decodes a scenario from JSON, applies defaults and validates it.
// Unknown fields are rejected so typos in weight or solver keys fail fast
// instead of silently keeping defaults.
func Parse(data []byte) (*Scenario, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	s.ApplyDefaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ApplyDefaults fills every unset field with its explicit default. An
// absent weights object selects drive.DefaultPenaltyWeights; a present one
// is taken verbatim, so a zero weight genuinely disables that term.
func (s *Scenario) ApplyDefaults() {
	if s.Weights == nil {
		w := drive.DefaultPenaltyWeights()
		s.Weights = &w
	}
	if s.Solver.ControlPoints <= 0 {
		s.Solver.ControlPoints = drive.DefaultControlPoints(s.Trip.DistanceM)
	}
	if s.Solver.Samples <= 0 {
		s.Solver.Samples = drive.DefaultSamples(s.Trip.DurationS)
	}
	if s.Solver.Iterations <= 0 {
		s.Solver.Iterations = DefaultIterations
	}
	if s.Solver.Tolerance <= 0 {
		s.Solver.Tolerance = DefaultTolerance
	}
	if s.Solver.Restarts <= 0 {
		s.Solver.Restarts = DefaultRestarts
	}
	if s.Solver.Seed == 0 {
		s.Solver.Seed = DefaultSeed
	}
	if s.Solver.Population <= 0 {
		s.Solver.Population = DefaultPopulation
	}
	if s.Validation.Fraction <= 0 {
		s.Validation.Fraction = 0.05
	}
}

// Validate checks the trip and the solver budget. Errors are
// *drive.InvalidSpecError so callers can treat them as fail-fast input
// rejection.
func (s *Scenario) Validate() error {
	if err := s.Trip.Validate(); err != nil {
		return err
	}
	if s.Solver.Samples < 2 {
		return &drive.InvalidSpecError{Field: "solver.samples", Reason: "must be >= 2"}
	}
	if s.Weights == nil {
		return &drive.InvalidSpecError{Field: "weights", Reason: "must be set; call ApplyDefaults first"}
	}
	if s.Weights.Distance < 0 || s.Weights.Speed < 0 || s.Weights.Accel < 0 ||
		s.Weights.Decel < 0 || s.Weights.Jerk < 0 {
		return &drive.InvalidSpecError{Field: "weights", Reason: "must be >= 0"}
	}
	if s.Validation.Fraction >= 1 {
		return &drive.InvalidSpecError{Field: "validation.fraction", Reason: "must be < 1"}
	}
	for i, g := range s.Trip.Grade {
		if g.PositionM < 0 || g.PositionM > s.Trip.DistanceM {
			return &drive.InvalidSpecError{
				Field:  fmt.Sprintf("trip.grade[%d].positionM", i),
				Reason: "must lie within the trip distance",
			}
		}
	}
	return nil
}

// SolveOptions maps the scenario onto the pipeline's options. Restarted
// runs get early stopping; single-shot runs do not need it.
func (s *Scenario) SolveOptions() drive.SolveOptions {
	opts := drive.SolveOptions{
		ControlPoints: s.Solver.ControlPoints,
		Samples:       s.Solver.Samples,
		Restarts:      s.Solver.Restarts,
		Seed:          s.Solver.Seed,
		Weights:       *s.Weights,
	}
	if opts.Restarts > 1 {
		opts.Convergence = drive.DefaultConvergenceConfig()
	}
	return opts
}

// LocalOptimizer builds the gradient refiner for this scenario.
func (s *Scenario) LocalOptimizer() opt.Optimizer {
	return opt.NewLBFGS(s.Solver.Iterations, s.Solver.Tolerance)
}

// GlobalOptimizer builds the swarm seeding stage, or nil when the scenario
// does not ask for one.
func (s *Scenario) GlobalOptimizer() opt.Optimizer {
	if !s.Solver.GlobalStage {
		return nil
	}
	return opt.NewMayfly(s.Solver.Iterations, s.Solver.Population, s.Solver.Seed)
}

// ValidateConfig maps the scenario onto the validator's configuration.
// Reoptimizing sensitivity runs reuse the scenario's own solver setup.
func (s *Scenario) ValidateConfig() validate.Config {
	cfg := validate.DefaultConfig()
	cfg.SkipSensitivity = s.Validation.SkipSensitivity
	cfg.Sensitivity = validate.SensitivityConfig{
		Parameters: s.Validation.Parameters,
		Fraction:   s.Validation.Fraction,
		Reoptimize: s.Validation.Reoptimize,
	}
	if s.Validation.Reoptimize {
		cfg.Sensitivity.Optimizer = s.LocalOptimizer()
		cfg.Sensitivity.Solve = s.SolveOptions()
	}
	return cfg
}

func nameFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
