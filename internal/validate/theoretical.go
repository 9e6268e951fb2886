// Package validate judges optimizer output: it bounds the achievable energy
// from below, probes how sensitive a solution is to its inputs, and flags
// constraint violations a solution slipped past the soft penalties.
package validate

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/railfit/internal/drive"
)

// ErrInfeasibleTrip reports that no profile can cover the distance in the
// allotted time under the spec's speed and acceleration limits.
var ErrInfeasibleTrip = errors.New("trip is infeasible under its speed and acceleration limits")

// TheoreticalBreakdown is the energy floor of a trip and the minimal-peak
// trapezoid it is computed from: accelerate at the limit, cruise, brake at
// the limit.
type TheoreticalBreakdown struct {
	CruiseSpeedMPS float64 `json:"cruiseSpeedMps"`
	AccelTimeS     float64 `json:"accelTimeS"`
	CruiseTimeS    float64 `json:"cruiseTimeS"`
	DecelTimeS     float64 `json:"decelTimeS"`

	KineticJ float64 `json:"kineticJ"`
	AeroJ    float64 `json:"aeroJ"`
	RollingJ float64 `json:"rollingJ"`
	GradeJ   float64 `json:"gradeJ"`
	TotalJ   float64 `json:"totalJ"`
}

// TheoreticalMinimum computes a lower bound on the traction energy for the
// trip. Two independent bounds are taken and the floor is the larger:
//
//   - KineticJ: the max-ramp trapezoid is the fastest distance-coverer for
//     a given peak, so every feasible profile peaks at or above the
//     trapezoid's cruise speed, and traction has paid at least that
//     kinetic energy by the moment of the peak.
//   - AeroJ+RollingJ+GradeJ: total traction work is at least the total
//     resistive work, and v^3 is convex, so the constant mean-speed
//     profile minimizes the aero integral.
//
// The two cannot be summed: a coasting profile pays resistive work out of
// the kinetic bank. Charging trapezoid-shaped losses on top of the full
// kinetic term would overshoot what an accelerate-coast-brake profile
// actually spends, and the floor would stop being a floor.
//
// It returns ErrInfeasibleTrip when no trapezoid within the acceleration
// limits and the speed ceiling covers the distance in time.
func TheoreticalMinimum(spec *drive.TripSpec) (*TheoreticalBreakdown, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	// Peak speed v of the minimal trapezoid solves q*v^2 - T*v + D = 0
	// with q = 1/(2a) + 1/(2d); the smaller root keeps ramp time inside T.
	q := 1/(2*spec.MaxAccelMPS2) + 1/(2*spec.MaxDecelMPS2)
	disc := spec.DurationS*spec.DurationS - 4*q*spec.DistanceM
	if disc < 0 {
		return nil, fmt.Errorf("%.0f m in %.1f s: %w", spec.DistanceM, spec.DurationS, ErrInfeasibleTrip)
	}
	v := (spec.DurationS - math.Sqrt(disc)) / (2 * q)
	if v > spec.MaxSpeedMPS {
		return nil, fmt.Errorf("needs %.2f m/s against a %.2f m/s ceiling: %w",
			v, spec.MaxSpeedMPS, ErrInfeasibleTrip)
	}

	b := &TheoreticalBreakdown{
		CruiseSpeedMPS: v,
		AccelTimeS:     v / spec.MaxAccelMPS2,
		DecelTimeS:     v / spec.MaxDecelMPS2,
	}
	b.CruiseTimeS = spec.DurationS - b.AccelTimeS - b.DecelTimeS

	b.KineticJ = 0.5 * spec.MassKg * v * v
	meanSpeed := spec.DistanceM / spec.DurationS
	b.AeroJ = spec.DragCoeff * meanSpeed * meanSpeed * meanSpeed * spec.DurationS
	b.RollingJ = spec.RollingCoeff * spec.MassKg * drive.Gravity * spec.DistanceM
	if lift := drive.NewGradeCurve(spec).Lift(0, spec.DistanceM); lift > 0 {
		b.GradeJ = spec.MassKg * drive.Gravity * lift
	}
	// Net descents are not credited: without regeneration the floor
	// cannot go below the flat-track losses.
	b.TotalJ = math.Max(b.KineticJ, b.AeroJ+b.RollingJ+b.GradeJ)
	return b, nil
}
