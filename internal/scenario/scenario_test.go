package scenario

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalScenario = `{
	"trip": {
		"distanceM": 2000,
		"durationS": 120,
		"maxSpeedMps": 25,
		"maxAccelMps2": 1.0,
		"maxDecelMps2": 1.2,
		"massKg": 40000,
		"dragCoeff": 5.0,
		"rollingCoeff": 0.002
	}
}`

func TestParseMinimalAppliesDefaults(t *testing.T) {
	s, err := Parse([]byte(minimalScenario))
	require.NoError(t, err)

	assert.Equal(t, drive.DefaultControlPoints(2000), s.Solver.ControlPoints)
	assert.Equal(t, drive.DefaultSamples(120), s.Solver.Samples)
	assert.Equal(t, DefaultIterations, s.Solver.Iterations)
	assert.Equal(t, DefaultRestarts, s.Solver.Restarts)
	assert.Equal(t, int64(DefaultSeed), s.Solver.Seed)
	assert.InDelta(t, DefaultTolerance, s.Solver.Tolerance, 0)
	assert.InDelta(t, 0.05, s.Validation.Fraction, 0)

	require.NotNil(t, s.Weights)
	assert.Equal(t, drive.DefaultPenaltyWeights(), *s.Weights)
}

func TestParseExplicitZeroWeightSurvives(t *testing.T) {
	s, err := Parse([]byte(`{
		"trip": {
			"distanceM": 2000, "durationS": 120, "maxSpeedMps": 25,
			"maxAccelMps2": 1.0, "maxDecelMps2": 1.2, "massKg": 40000,
			"dragCoeff": 5.0, "rollingCoeff": 0.002
		},
		"weights": {"distance": 500, "speed": 0, "accel": 1e6, "decel": 1e6}
	}`))
	require.NoError(t, err)
	assert.InDelta(t, 500, s.Weights.Distance, 0)
	assert.Zero(t, s.Weights.Speed, "explicit zero must disable the term, not fall back to a default")
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte(`{"trip": {"distanceM": 1}, "wieghts": {}}`))
	require.Error(t, err)
}

func TestParseRejectsInvalidTrip(t *testing.T) {
	cases := map[string]string{
		"non-positive distance": `{"trip": {"distanceM": 0, "durationS": 120, "maxSpeedMps": 25, "maxAccelMps2": 1, "maxDecelMps2": 1, "massKg": 1, "dragCoeff": 0, "rollingCoeff": 0}}`,
		"negative weight":       `{"trip": {"distanceM": 2000, "durationS": 120, "maxSpeedMps": 25, "maxAccelMps2": 1, "maxDecelMps2": 1, "massKg": 1, "dragCoeff": 0, "rollingCoeff": 0}, "weights": {"distance": -1}}`,
		"fraction too large":    `{"trip": {"distanceM": 2000, "durationS": 120, "maxSpeedMps": 25, "maxAccelMps2": 1, "maxDecelMps2": 1, "massKg": 1, "dragCoeff": 0, "rollingCoeff": 0}, "validation": {"fraction": 1.5}}`,
		"grade beyond trip":     `{"trip": {"distanceM": 2000, "durationS": 120, "maxSpeedMps": 25, "maxAccelMps2": 1, "maxDecelMps2": 1, "massKg": 1, "dragCoeff": 0, "rollingCoeff": 0, "grade": [{"positionM": 5000, "slope": 0.01}]}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(payload))
			require.Error(t, err)
			var specErr *drive.InvalidSpecError
			assert.ErrorAs(t, err, &specErr)
		})
	}
}

func TestLoadNamesScenarioAfterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "commuter.json")
	require.NoError(t, os.WriteFile(path, []byte(minimalScenario), 0644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "commuter", s.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestSolveOptionsMapping(t *testing.T) {
	s, err := Parse([]byte(`{
		"trip": {
			"distanceM": 2000, "durationS": 120, "maxSpeedMps": 25,
			"maxAccelMps2": 1.0, "maxDecelMps2": 1.2, "massKg": 40000,
			"dragCoeff": 5.0, "rollingCoeff": 0.002
		},
		"solver": {"controlPoints": 8, "samples": 60, "restarts": 3, "seed": 7}
	}`))
	require.NoError(t, err)

	opts := s.SolveOptions()
	assert.Equal(t, 8, opts.ControlPoints)
	assert.Equal(t, 60, opts.Samples)
	assert.Equal(t, 3, opts.Restarts)
	assert.Equal(t, int64(7), opts.Seed)
	assert.True(t, opts.Convergence.Enabled, "restarted runs stop early when stale")

	single := *s
	single.Solver.Restarts = 1
	assert.False(t, single.SolveOptions().Convergence.Enabled)
}

func TestOptimizerConstruction(t *testing.T) {
	s, err := Parse([]byte(minimalScenario))
	require.NoError(t, err)
	require.NotNil(t, s.LocalOptimizer())
	assert.Nil(t, s.GlobalOptimizer(), "no swarm stage unless asked for")

	s.Solver.GlobalStage = true
	assert.NotNil(t, s.GlobalOptimizer())
}

func TestValidateConfigReoptimizeWiring(t *testing.T) {
	s, err := Parse([]byte(minimalScenario))
	require.NoError(t, err)

	cfg := s.ValidateConfig()
	assert.Nil(t, cfg.Sensitivity.Optimizer)

	s.Validation.Reoptimize = true
	cfg = s.ValidateConfig()
	require.NotNil(t, cfg.Sensitivity.Optimizer)
	assert.True(t, cfg.Sensitivity.Reoptimize)
}
