package drive

import (
	"math"
	"testing"
)

func TestGenerateProfilePinsEndpoints(t *testing.T) {
	spec := testSpec()
	p := GenerateProfile(spec, ControlPoints{15, 20, 15}, 0)

	if p.Speeds[0] != 0 {
		t.Errorf("Start speed = %f, want 0", p.Speeds[0])
	}
	if p.Speeds[p.Samples()-1] != 0 {
		t.Errorf("End speed = %f, want 0", p.Speeds[p.Samples()-1])
	}
	if p.Times[0] != 0 || p.Times[p.Samples()-1] != spec.DurationS {
		t.Errorf("Time axis [%f, %f], want [0, %f]",
			p.Times[0], p.Times[p.Samples()-1], spec.DurationS)
	}
}

func TestGenerateProfileSampleCounts(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		samples  int
		want     int
	}{
		{"per-second default", 120, 0, 121},
		{"floor for short trips", 10, 0, MinProfileSamples},
		{"explicit override", 120, 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := testSpec()
			spec.DurationS = tt.duration
			p := GenerateProfile(spec, ControlPoints{10, 10, 10}, tt.samples)
			if p.Samples() != tt.want {
				t.Errorf("Samples = %d, want %d", p.Samples(), tt.want)
			}
		})
	}
}

func TestGenerateProfileCorrectsDistance(t *testing.T) {
	spec := testSpec()
	p := GenerateProfile(spec, ControlPoints{16, 22, 20, 17}, 0)

	tol := DistanceTolFrac * spec.DistanceM
	if math.Abs(p.FinalPosition()-spec.DistanceM) > tol {
		t.Errorf("FinalPosition = %f, want %f within %f",
			p.FinalPosition(), spec.DistanceM, tol)
	}
	if math.Abs(p.DistanceError) > tol {
		t.Errorf("DistanceError = %f, want within %f", p.DistanceError, tol)
	}
}

func TestGenerateProfileRespectsSpeedCeiling(t *testing.T) {
	spec := testSpec()
	p := GenerateProfile(spec, ControlPoints{100, -5, 40}, 0)

	if peak := p.PeakSpeed(); peak > spec.MaxSpeedMPS+1e-9 {
		t.Errorf("PeakSpeed = %f exceeds ceiling %f", peak, spec.MaxSpeedMPS)
	}
	for i, v := range p.Speeds {
		if v < 0 {
			t.Fatalf("Speeds[%d] = %f, must be nonnegative", i, v)
		}
	}
}

func TestGenerateProfileUnreachableDistance(t *testing.T) {
	// 5000 m in 100 s with a 25 m/s ceiling caps out at 2500 m. The
	// generator must saturate, keep the ceiling, and report the residual.
	spec := testSpec()
	spec.DistanceM = 5000
	spec.DurationS = 100
	p := GenerateProfile(spec, ControlPoints{20, 20, 20}, 0)

	if peak := p.PeakSpeed(); peak > spec.MaxSpeedMPS+1e-9 {
		t.Errorf("PeakSpeed = %f exceeds ceiling under saturation", peak)
	}
	if p.DistanceError < 2000 {
		t.Errorf("DistanceError = %f, expected a large shortfall", p.DistanceError)
	}
}

func TestGenerateProfileTotalOverGarbage(t *testing.T) {
	spec := testSpec()
	inputs := []ControlPoints{
		{math.NaN(), math.NaN(), math.NaN()},
		{math.Inf(1), 10, math.Inf(-1)},
		{},
		nil,
	}
	for _, points := range inputs {
		p := GenerateProfile(spec, points, 0)
		for i := range p.Times {
			if !finite(p.Times[i]) || !finite(p.Speeds[i]) ||
				!finite(p.Positions[i]) || !finite(p.Accels[i]) {
				t.Fatalf("Non-finite sample %d for input %v", i, points)
			}
		}
		if !finite(p.DistanceError) {
			t.Fatalf("Non-finite DistanceError for input %v", points)
		}
	}
}

func TestGenerateProfileMonotoneAxes(t *testing.T) {
	spec := testSpec()
	p := GenerateProfile(spec, ControlPoints{15, 20, 15}, 0)

	for i := 1; i < p.Samples(); i++ {
		if p.Times[i] <= p.Times[i-1] {
			t.Fatalf("Times not strictly increasing at %d", i)
		}
		if p.Positions[i] < p.Positions[i-1] {
			t.Fatalf("Positions decrease at %d: speeds are nonnegative", i)
		}
	}
}

func TestGenerateProfileAccelConsistency(t *testing.T) {
	spec := testSpec()
	p := GenerateProfile(spec, ControlPoints{15, 20, 15}, 0)

	n := p.Samples()
	for i := 0; i < n-1; i++ {
		dt := p.Times[i+1] - p.Times[i]
		want := (p.Speeds[i+1] - p.Speeds[i]) / dt
		if math.Abs(p.Accels[i]-want) > 1e-9 {
			t.Fatalf("Accels[%d] = %f, want forward difference %f", i, p.Accels[i], want)
		}
	}
	if p.Accels[n-1] != 0 {
		t.Errorf("Final accel = %f, want 0 by convention", p.Accels[n-1])
	}
}

func TestDefaultControlPoints(t *testing.T) {
	tests := []struct {
		distance float64
		want     int
	}{
		{50, 3},
		{300, 3},
		{1000, 10},
		{2000, 20},
		{10000, 24},
	}
	for _, tt := range tests {
		if got := DefaultControlPoints(tt.distance); got != tt.want {
			t.Errorf("DefaultControlPoints(%f) = %d, want %d", tt.distance, got, tt.want)
		}
	}
}
