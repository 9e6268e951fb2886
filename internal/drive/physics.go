package drive

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// Physical constants shared by the simulator and the validator.
const (
	// Gravity is standard gravity in m/s^2.
	Gravity = 9.80665
	// AirDensity is dry air at sea level and 15 degC, in kg/m^3.
	AirDensity = 1.225
)

// LumpedDrag folds air density, drag coefficient and frontal area into the
// single aerodynamic coefficient used by TripSpec.DragCoeff, in N/(m/s)^2.
func LumpedDrag(airDensity, dragCoefficient, frontalAreaM2 float64) float64 {
	return 0.5 * airDensity * dragCoefficient * frontalAreaM2
}

// ResistiveForce returns the total force in N opposing motion at speed v on
// the given dimensionless slope: aerodynamic drag, rolling resistance and
// the gravity component along the track. The slope enters through its exact
// sine and cosine, so the force stays smooth for gradient-based solvers.
// Downhill slopes yield a negative grade term.
func ResistiveForce(v, slope, massKg, dragCoeff, rollingCoeff float64) float64 {
	hyp := math.Sqrt(1 + slope*slope)
	sin := slope / hyp
	cos := 1 / hyp
	aero := dragCoeff * v * v
	rolling := rollingCoeff * massKg * Gravity * cos
	grade := massKg * Gravity * sin
	return aero + rolling + grade
}

// EnergyIncrement returns the traction energy in J spent over a step of dt
// seconds at mean speed v, mean acceleration accel and resistive force
// resistive. Steps where the wheel power is negative (braking, steep
// downhill) cost nothing: the model has no regenerative path, so the
// increment is clipped at zero and energy never decreases.
func EnergyIncrement(v, accel, resistive, massKg, dt float64) float64 {
	power := (massKg*accel + resistive) * v
	if power <= 0 {
		return 0
	}
	return power * dt
}

// GradeCurve interpolates a trip's grade table over position. The zero value
// is a flat track; table entries extend as constants beyond their range.
type GradeCurve struct {
	pl       interp.PiecewiseLinear
	min, max float64
	constant float64
	mode     gradeMode
}

type gradeMode int

const (
	gradeFlat gradeMode = iota
	gradeConstant
	gradeTable
)

// NewGradeCurve builds the lookup for the spec's grade table. Tables the
// spec validation would reject (unsorted positions) degrade to a flat
// track rather than failing, keeping the simulator total.
func NewGradeCurve(spec *TripSpec) *GradeCurve {
	g := &GradeCurve{}
	switch len(spec.Grade) {
	case 0:
		return g
	case 1:
		g.mode = gradeConstant
		g.constant = spec.Grade[0].Slope
		return g
	}
	xs := make([]float64, len(spec.Grade))
	ys := make([]float64, len(spec.Grade))
	for i, p := range spec.Grade {
		xs[i] = p.PositionM
		ys[i] = p.Slope
	}
	if err := g.pl.Fit(xs, ys); err != nil {
		return &GradeCurve{}
	}
	g.mode = gradeTable
	g.min = xs[0]
	g.max = xs[len(xs)-1]
	return g
}

// SlopeAt returns the dimensionless slope at the given position.
func (g *GradeCurve) SlopeAt(pos float64) float64 {
	switch g.mode {
	case gradeConstant:
		return g.constant
	case gradeTable:
		return g.pl.Predict(clamp(pos, g.min, g.max))
	default:
		return 0
	}
}

// Lift returns the equivalent lift in m accumulated between positions a and
// b: the integral of sin(theta) over track distance, which multiplied by
// m*g gives the exact work done against gravity.
func (g *GradeCurve) Lift(a, b float64) float64 {
	if b <= a {
		return 0
	}
	const steps = 256
	h := (b - a) / steps
	sum := 0.0
	prev := sinFromSlope(g.SlopeAt(a))
	for i := 1; i <= steps; i++ {
		cur := sinFromSlope(g.SlopeAt(a + float64(i)*h))
		sum += (prev + cur) / 2 * h
		prev = cur
	}
	return sum
}

func sinFromSlope(slope float64) float64 {
	return slope / math.Sqrt(1+slope*slope)
}
