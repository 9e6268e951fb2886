package drive

import "math"

// Simulate walks a profile step by step and accounts traction energy plus
// soft-constraint penalties. It never fails: degenerate profiles simply
// accumulate penalty mass. The scalar Cost is EnergyJ plus all penalties.
func Simulate(spec *TripSpec, p *SpeedProfile, w PenaltyWeights) *CostReport {
	report := &CostReport{Penalties: map[string]float64{
		PenaltyDistance: 0,
		PenaltySpeed:    0,
		PenaltyAccel:    0,
		PenaltyDecel:    0,
	}}
	if w.Jerk > 0 {
		report.Penalties[PenaltyJerk] = 0
	}
	n := p.Samples()
	if n < 2 {
		report.Penalties[PenaltyDistance] = w.Distance * spec.DistanceM * spec.DistanceM
		report.Cost = report.PenaltyTotal()
		return report
	}

	grade := NewGradeCurve(spec)
	for i := 0; i < n-1; i++ {
		dt := p.Times[i+1] - p.Times[i]
		if dt <= 0 {
			continue
		}
		v := (p.Speeds[i] + p.Speeds[i+1]) / 2
		a := (p.Speeds[i+1] - p.Speeds[i]) / dt
		pos := (p.Positions[i] + p.Positions[i+1]) / 2
		slope := grade.SlopeAt(pos)

		resistive := ResistiveForce(v, slope, spec.MassKg, spec.DragCoeff, spec.RollingCoeff)
		report.EnergyJ += EnergyIncrement(v, a, resistive, spec.MassKg, dt)

		hyp := math.Sqrt(1 + slope*slope)
		report.Breakdown.AeroJ += spec.DragCoeff * v * v * v * dt
		report.Breakdown.RollingJ += spec.RollingCoeff * spec.MassKg * Gravity / hyp * v * dt
		report.Breakdown.GradeJ += spec.MassKg * Gravity * slope / hyp * v * dt
		if kinetic := spec.MassKg * a * v * dt; kinetic > 0 {
			report.Breakdown.AccelJ += kinetic
		}
	}

	addPenalties(spec, p, w, report)
	report.Cost = report.EnergyJ + report.PenaltyTotal()
	return report
}

func addPenalties(spec *TripSpec, p *SpeedProfile, w PenaltyWeights, report *CostReport) {
	if w.Distance > 0 {
		// Residual from the trajectory, not the stored DistanceError
		// claim: externally loaded profiles may carry neither.
		residual := spec.DistanceM - p.FinalPosition()
		report.Penalties[PenaltyDistance] = w.Distance * residual * residual
	}
	if w.Speed > 0 {
		sum := 0.0
		for _, v := range p.Speeds {
			if over := v - spec.MaxSpeedMPS; over > 0 {
				sum += over * over
			}
		}
		report.Penalties[PenaltySpeed] = w.Speed * sum
	}
	n := p.Samples()
	if w.Accel > 0 || w.Decel > 0 {
		accelSum, decelSum := 0.0, 0.0
		for i := 0; i < n-1; i++ {
			a := p.Accels[i]
			if over := a - spec.MaxAccelMPS2; over > 0 {
				accelSum += over * over
			}
			if over := -a - spec.MaxDecelMPS2; over > 0 {
				decelSum += over * over
			}
		}
		if w.Accel > 0 {
			report.Penalties[PenaltyAccel] = w.Accel * accelSum
		}
		if w.Decel > 0 {
			report.Penalties[PenaltyDecel] = w.Decel * decelSum
		}
	}
	if w.Jerk > 0 {
		sum := 0.0
		for i := 0; i < n-2; i++ {
			dt := p.Times[i+1] - p.Times[i]
			if dt <= 0 {
				continue
			}
			jerk := (p.Accels[i+1] - p.Accels[i]) / dt
			sum += jerk * jerk * dt
		}
		report.Penalties[PenaltyJerk] = w.Jerk * sum
	}
}

// CumulativeEnergy returns the running traction energy in J at each profile
// sample, matching the accounting in Simulate. The first entry is 0.
func CumulativeEnergy(spec *TripSpec, p *SpeedProfile) []float64 {
	n := p.Samples()
	out := make([]float64, n)
	if n < 2 {
		return out
	}
	grade := NewGradeCurve(spec)
	for i := 0; i < n-1; i++ {
		out[i+1] = out[i]
		dt := p.Times[i+1] - p.Times[i]
		if dt <= 0 {
			continue
		}
		v := (p.Speeds[i] + p.Speeds[i+1]) / 2
		a := (p.Speeds[i+1] - p.Speeds[i]) / dt
		pos := (p.Positions[i] + p.Positions[i+1]) / 2
		resistive := ResistiveForce(v, grade.SlopeAt(pos), spec.MassKg, spec.DragCoeff, spec.RollingCoeff)
		out[i+1] += EnergyIncrement(v, a, resistive, spec.MassKg, dt)
	}
	return out
}
