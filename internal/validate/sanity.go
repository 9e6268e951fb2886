package validate

import (
	"math"
	"sort"

	"github.com/cwbudde/railfit/internal/drive"
)

// Sanity flag names. An empty flag list means the solution honors every
// hard constraint within the configured slack.
const (
	FlagDistance         = "distance"
	FlagMaxSpeed         = "max_speed"
	FlagMaxAccel         = "max_accel"
	FlagMaxDecel         = "max_decel"
	FlagDuration         = "duration"
	FlagBelowTheoretical = "below_theoretical"
	FlagInfeasibleTrip   = "infeasible_trip"
)

// SanityConfig sets the slack applied before a violation is flagged.
type SanityConfig struct {
	// DistanceTolFrac is the allowed relative distance error.
	DistanceTolFrac float64
	// SpeedSlackMPS is the allowed overshoot above the speed ceiling.
	SpeedSlackMPS float64
	// AccelSlackFrac is the allowed relative overshoot of the
	// acceleration and deceleration limits. Soft penalties leave small
	// residual violations; those below the slack are accepted.
	AccelSlackFrac float64
	// DurationSlackS is the allowed error in total duration.
	DurationSlackS float64
	// EnergyFloorFrac is how far below the theoretical minimum the
	// achieved energy may fall before the accounting is declared broken.
	EnergyFloorFrac float64
}

// DefaultSanityConfig returns the slack used by the CLI.
func DefaultSanityConfig() SanityConfig {
	return SanityConfig{
		DistanceTolFrac: drive.DistanceTolFrac,
		SpeedSlackMPS:   1e-3,
		AccelSlackFrac:  0.05,
		DurationSlackS:  1e-6,
		EnergyFloorFrac: 0.02,
	}
}

// CheckSolution inspects a profile and its cost report against the trip's
// hard constraints and returns the sorted list of violated flags. It works
// from the trajectory itself, not from optimizer claims. theoreticalJ <= 0
// skips the energy floor check.
func CheckSolution(spec *drive.TripSpec, p *drive.SpeedProfile, report *drive.CostReport, theoreticalJ float64, cfg SanityConfig) []string {
	flags := map[string]bool{}

	// Residual from the positions themselves; the profile's stored
	// DistanceError is an optimizer claim an external artifact can omit
	// or fake.
	if math.Abs(spec.DistanceM-p.FinalPosition()) > cfg.DistanceTolFrac*spec.DistanceM {
		flags[FlagDistance] = true
	}
	if p.PeakSpeed() > spec.MaxSpeedMPS+cfg.SpeedSlackMPS {
		flags[FlagMaxSpeed] = true
	}

	accelLimit := spec.MaxAccelMPS2 * (1 + cfg.AccelSlackFrac)
	decelLimit := spec.MaxDecelMPS2 * (1 + cfg.AccelSlackFrac)
	for i := 0; i < p.Samples()-1; i++ {
		if p.Accels[i] > accelLimit {
			flags[FlagMaxAccel] = true
		}
		if -p.Accels[i] > decelLimit {
			flags[FlagMaxDecel] = true
		}
	}

	if math.Abs(p.Duration()-spec.DurationS) > cfg.DurationSlackS {
		flags[FlagDuration] = true
	}
	if theoreticalJ > 0 && report.EnergyJ < theoreticalJ*(1-cfg.EnergyFloorFrac) {
		flags[FlagBelowTheoretical] = true
	}

	out := make([]string, 0, len(flags))
	for name := range flags {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
