package drive

import (
	"math"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/interp"
)

const (
	// MinProfileSamples is the sample-count floor for generated profiles.
	MinProfileSamples = 50
	// DistanceTolFrac is the relative tolerance on travelled distance used
	// by the correction loop and by the validator's distance check.
	DistanceTolFrac = 1e-3
	// maxCorrectionIters bounds the rescale-and-clamp loop. Without
	// clamping one pass corrects the distance exactly, so a handful of
	// iterations is enough for the clamped cases that can still improve.
	maxCorrectionIters = 5
)

// DefaultSamples returns the trajectory sample count for a trip duration:
// roughly one per second, never below MinProfileSamples.
func DefaultSamples(durationS float64) int {
	n := int(durationS) + 1
	if n < MinProfileSamples {
		n = MinProfileSamples
	}
	return n
}

// DefaultControlPoints returns the control point count for a trip distance:
// one per 100 m, clamped to [3, 24].
func DefaultControlPoints(distanceM float64) int {
	n := int(distanceM / 100)
	if n < 3 {
		n = 3
	}
	if n > 24 {
		n = 24
	}
	return n
}

// GenerateProfile maps control points to a sampled trajectory. The interior
// speeds are clamped to [0, MaxSpeedMPS], padded with pinned zero endpoints,
// interpolated monotonically over [0, DurationS], and rescaled so the
// travelled distance matches DistanceM. Rescaling that would exceed the speed
// ceiling is clamped and retried, so an unreachable distance leaves a
// residual in DistanceError instead of violating the ceiling.
//
// samples <= 1 selects DefaultSamples. The function is total: any finite or
// non-finite input yields a well-formed profile.
func GenerateProfile(spec *TripSpec, points ControlPoints, samples int) *SpeedProfile {
	if samples <= 1 {
		samples = DefaultSamples(spec.DurationS)
	}

	knots := len(points) + 2
	knotT := make([]float64, knots)
	knotV := make([]float64, knots)
	for i := range knotT {
		knotT[i] = spec.DurationS * float64(i) / float64(knots-1)
	}
	interior := points.Clone()
	NewBounds(len(interior), spec.MaxSpeedMPS).ClampVector(interior)
	copy(knotV[1:], interior)
	// knotV[0] and knotV[knots-1] stay 0: the trip starts and ends at rest.

	times := make([]float64, samples)
	speeds := make([]float64, samples)
	dt := spec.DurationS / float64(samples-1)
	for i := range times {
		times[i] = float64(i) * dt
	}
	times[samples-1] = spec.DurationS

	var curve interp.FritschButland
	if err := curve.Fit(knotT, knotV); err == nil {
		for i, t := range times {
			speeds[i] = clamp(curve.Predict(t), 0, spec.MaxSpeedMPS)
		}
	}
	// On a degenerate time axis the fit fails and the profile stays at
	// rest; the distance penalty reports the shortfall.

	for iter := 0; iter < maxCorrectionIters; iter++ {
		dist := integrate.Trapezoidal(times, speeds)
		if dist <= 0 {
			break
		}
		if math.Abs(spec.DistanceM-dist) <= DistanceTolFrac*spec.DistanceM {
			break
		}
		factor := spec.DistanceM / dist
		saturated := true
		for i := 1; i < samples-1; i++ {
			scaled := clamp(speeds[i]*factor, 0, spec.MaxSpeedMPS)
			if scaled != speeds[i] {
				saturated = false
			}
			speeds[i] = scaled
		}
		if saturated {
			break
		}
	}

	positions := make([]float64, samples)
	for i := 1; i < samples; i++ {
		positions[i] = positions[i-1] + (speeds[i-1]+speeds[i])/2*(times[i]-times[i-1])
	}

	accels := make([]float64, samples)
	for i := 0; i < samples-1; i++ {
		step := times[i+1] - times[i]
		if step > 0 {
			accels[i] = (speeds[i+1] - speeds[i]) / step
		}
	}
	// accels[samples-1] stays 0 by the forward-difference convention.

	return &SpeedProfile{
		Times:         times,
		Positions:     positions,
		Speeds:        speeds,
		Accels:        accels,
		DistanceError: spec.DistanceM - positions[samples-1],
	}
}
