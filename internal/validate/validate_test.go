package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/cwbudde/railfit/internal/opt"
)

// TestRunStandardCommute solves the reference trip end to end and holds
// the result to the acceptance bar: converged within the budget, on
// target to the meter, under the speed ceiling, and clean through every
// validation stage.
func TestRunStandardCommute(t *testing.T) {
	if testing.Short() {
		t.Skip("full solve is slow")
	}

	spec := &drive.TripSpec{
		DistanceM:    2000,
		DurationS:    120,
		MaxSpeedMPS:  25,
		MaxAccelMPS2: 1.0,
		MaxDecelMPS2: 1.2,
		MassKg:       40000,
		DragCoeff:    5.0,
		RollingCoeff: 0.002,
	}
	opts := drive.SolveOptions{ControlPoints: 6, Seed: 42}

	res, err := drive.Optimize(spec, opt.NewLBFGS(200, 1e-4), opts)
	require.NoError(t, err)
	require.NotNil(t, res.Profile)

	assert.True(t, res.Converged, "solver status: %s", res.Status)
	assert.LessOrEqual(t, res.Iterations, 200)
	assert.InDelta(t, spec.DistanceM, res.Profile.FinalPosition(), 1.0)
	assert.LessOrEqual(t, res.Profile.PeakSpeed(), spec.MaxSpeedMPS+1e-3)

	cfg := DefaultConfig()
	cfg.SkipSensitivity = true
	rep, err := Run(spec, res, drive.DefaultPenaltyWeights(), 0, cfg)
	require.NoError(t, err)

	assert.Empty(t, rep.SanityFlags)
	assert.True(t, rep.Feasible)
	assert.Greater(t, rep.TheoreticalMinJ, 0.0)
	assert.LessOrEqual(t, rep.TheoreticalMinJ, rep.AchievedJ)
	assert.False(t, math.IsNaN(rep.EfficiencyRatio))
}

func TestRunInfeasibleTripFlagsNotFails(t *testing.T) {
	spec := testSpec()
	spec.DurationS = 10 // 2 km in 10 s is beyond any limit here

	res, err := drive.Optimize(spec, opt.NewLBFGS(50, 1e-4), drive.SolveOptions{ControlPoints: 4})
	require.NoError(t, err)

	rep, err := Run(spec, res, drive.DefaultPenaltyWeights(), 0, Config{
		Sanity:          DefaultSanityConfig(),
		SkipSensitivity: true,
	})
	require.NoError(t, err)

	assert.Contains(t, rep.SanityFlags, FlagInfeasibleTrip)
	assert.False(t, rep.Feasible)
}
