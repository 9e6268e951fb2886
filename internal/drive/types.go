package drive

import (
	"fmt"
	"math"
)

// ControlPoints are the free parameters of a speed profile: interior speed
// values in m/s, evenly spaced in time between the pinned zero endpoints.
type ControlPoints []float64

// Clone returns a copy of the control points.
func (c ControlPoints) Clone() ControlPoints {
	out := make(ControlPoints, len(c))
	copy(out, c)
	return out
}

// GradePoint is one entry of a track grade table: the dimensionless slope
// (rise over run, positive uphill) that applies at the given position.
type GradePoint struct {
	PositionM float64 `json:"positionM"`
	Slope     float64 `json:"slope"`
}

// TripSpec describes a single fixed-distance, fixed-duration trip together
// with the vehicle parameters needed to account energy.
type TripSpec struct {
	DistanceM    float64 `json:"distanceM"`
	DurationS    float64 `json:"durationS"`
	MaxSpeedMPS  float64 `json:"maxSpeedMps"`
	MaxAccelMPS2 float64 `json:"maxAccelMps2"`
	MaxDecelMPS2 float64 `json:"maxDecelMps2"`
	MassKg       float64 `json:"massKg"`
	// DragCoeff is the lumped aerodynamic coefficient in N/(m/s)^2,
	// i.e. 0.5*rho*Cd*A already multiplied out. See LumpedDrag.
	DragCoeff    float64      `json:"dragCoeff"`
	RollingCoeff float64      `json:"rollingCoeff"`
	Grade        []GradePoint `json:"grade,omitempty"`
}

// InvalidSpecError reports a trip or solver field that fails validation.
type InvalidSpecError struct {
	Field  string
	Reason string
}

func (e *InvalidSpecError) Error() string {
	return fmt.Sprintf("invalid spec: field %q %s", e.Field, e.Reason)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Validate checks physical plausibility of the trip. It returns the first
// violation found as an *InvalidSpecError.
func (s *TripSpec) Validate() error {
	checks := []struct {
		field string
		value float64
		// strictly positive unless stated otherwise below
	}{
		{"distanceM", s.DistanceM},
		{"durationS", s.DurationS},
		{"maxSpeedMps", s.MaxSpeedMPS},
		{"maxAccelMps2", s.MaxAccelMPS2},
		{"maxDecelMps2", s.MaxDecelMPS2},
		{"massKg", s.MassKg},
	}
	for _, c := range checks {
		if !finite(c.value) {
			return &InvalidSpecError{Field: c.field, Reason: "must be finite"}
		}
		if c.value <= 0 {
			return &InvalidSpecError{Field: c.field, Reason: "must be > 0"}
		}
	}
	if !finite(s.DragCoeff) || s.DragCoeff < 0 {
		return &InvalidSpecError{Field: "dragCoeff", Reason: "must be finite and >= 0"}
	}
	if !finite(s.RollingCoeff) || s.RollingCoeff < 0 {
		return &InvalidSpecError{Field: "rollingCoeff", Reason: "must be finite and >= 0"}
	}
	for i, g := range s.Grade {
		if !finite(g.PositionM) || !finite(g.Slope) {
			return &InvalidSpecError{Field: fmt.Sprintf("grade[%d]", i), Reason: "must be finite"}
		}
		if i > 0 && g.PositionM <= s.Grade[i-1].PositionM {
			return &InvalidSpecError{Field: fmt.Sprintf("grade[%d].positionM", i), Reason: "must be strictly increasing"}
		}
	}
	return nil
}

// Clone returns a deep copy of the spec.
func (s *TripSpec) Clone() *TripSpec {
	out := *s
	if s.Grade != nil {
		out.Grade = make([]GradePoint, len(s.Grade))
		copy(out.Grade, s.Grade)
	}
	return &out
}

// Bounds holds per-parameter box constraints for the control points.
type Bounds struct {
	Lower []float64
	Upper []float64
}

// NewBounds returns speed bounds [0, maxSpeed] for dim control points.
func NewBounds(dim int, maxSpeed float64) *Bounds {
	b := &Bounds{
		Lower: make([]float64, dim),
		Upper: make([]float64, dim),
	}
	for i := 0; i < dim; i++ {
		b.Upper[i] = maxSpeed
	}
	return b
}

// ClampVector clamps x in place to the bounds. Non-finite entries collapse
// to the lower bound so downstream stages always see usable numbers.
func (b *Bounds) ClampVector(x []float64) {
	for i := range x {
		if i >= len(b.Lower) || i >= len(b.Upper) {
			break
		}
		if !finite(x[i]) {
			x[i] = b.Lower[i]
			continue
		}
		x[i] = clamp(x[i], b.Lower[i], b.Upper[i])
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// SpeedProfile is a sampled trajectory over the trip. All slices have equal
// length; Times spans [0, DurationS] with uniform spacing.
type SpeedProfile struct {
	Times     []float64 `json:"times"`
	Positions []float64 `json:"positions"`
	Speeds    []float64 `json:"speeds"`
	Accels    []float64 `json:"accels"`
	// DistanceError is target distance minus travelled distance, in m.
	// It remains nonzero when clamping prevents full correction.
	DistanceError float64 `json:"distanceError"`
}

// Samples returns the number of trajectory samples.
func (p *SpeedProfile) Samples() int { return len(p.Times) }

// Duration returns the time of the last sample, or 0 for an empty profile.
func (p *SpeedProfile) Duration() float64 {
	if len(p.Times) == 0 {
		return 0
	}
	return p.Times[len(p.Times)-1]
}

// FinalPosition returns the travelled distance at the last sample.
func (p *SpeedProfile) FinalPosition() float64 {
	if len(p.Positions) == 0 {
		return 0
	}
	return p.Positions[len(p.Positions)-1]
}

// PeakSpeed returns the maximum sampled speed, or 0 for an empty profile.
func (p *SpeedProfile) PeakSpeed() float64 {
	peak := 0.0
	for _, v := range p.Speeds {
		if v > peak {
			peak = v
		}
	}
	return peak
}

// Penalty map keys used in CostReport.Penalties.
const (
	PenaltyDistance = "distance"
	PenaltySpeed    = "speed"
	PenaltyAccel    = "accel"
	PenaltyDecel    = "decel"
	PenaltyJerk     = "jerk"
)

// PenaltyWeights scale the soft-constraint terms added to the energy cost.
// A zero weight disables the corresponding term.
type PenaltyWeights struct {
	Distance float64 `json:"distance"`
	Speed    float64 `json:"speed"`
	Accel    float64 `json:"accel"`
	Decel    float64 `json:"decel"`
	Jerk     float64 `json:"jerk,omitempty"`
}

// DefaultPenaltyWeights returns weights that keep the hard kinematic terms
// orders of magnitude above the energy scale of a heavy-train trip (tens of
// MJ), so the optimum cannot absorb a limit violation as a cheap trade
// against energy. The distance term stays lighter: the generator's
// correction pass keeps that residual near zero on its own.
func DefaultPenaltyWeights() PenaltyWeights {
	return PenaltyWeights{
		Distance: 1e3,
		Speed:    1e9,
		Accel:    1e9,
		Decel:    1e9,
		Jerk:     0,
	}
}

// EnergyBreakdown splits the traction energy by the force component that
// consumed it. The accel term counts only positive kinetic contributions.
// Because the no-regeneration clipping applies to the summed power, the
// components are informational and need not sum exactly to EnergyJ.
type EnergyBreakdown struct {
	AeroJ    float64 `json:"aeroJ"`
	RollingJ float64 `json:"rollingJ"`
	GradeJ   float64 `json:"gradeJ"`
	AccelJ   float64 `json:"accelJ"`
}

// CostReport is the simulator output for one profile: total traction energy,
// its breakdown, the accumulated penalty magnitudes, and the scalar cost
// (energy plus penalties) the optimizer minimizes.
type CostReport struct {
	EnergyJ   float64            `json:"energyJ"`
	Breakdown EnergyBreakdown    `json:"breakdown"`
	Penalties map[string]float64 `json:"penalties"`
	Cost      float64            `json:"cost"`
}

// PenaltyTotal returns the sum of all penalty magnitudes.
func (r *CostReport) PenaltyTotal() float64 {
	total := 0.0
	for _, v := range r.Penalties {
		total += v
	}
	return total
}
