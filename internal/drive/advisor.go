package drive

import "sort"

// Advice is a driving recommendation relative to an optimized profile.
type Advice string

const (
	AdviceAccelerate Advice = "accelerate"
	AdviceDecelerate Advice = "decelerate"
	AdviceHold       Advice = "hold"
)

// Recommendation bands in m/s. The coarse band applies while following the
// ideal curve; near the stop the accelerate band tightens and the
// decelerate band widens so braking starts early.
const (
	adviceBand      = 5.0 / 3.6
	finalAccelBand  = 3.0 / 3.6
	finalBrakeBand  = 7.0 / 3.6
	farDistanceFrac = 0.7
	endDistanceFrac = 0.3
)

// Advisor answers driving questions against an optimized profile: what
// speed the profile wants at a given position, and whether a train that has
// drifted off the profile should speed up, hold, or brake.
type Advisor struct {
	spec    *TripSpec
	profile *SpeedProfile
}

// NewAdvisor wraps an optimized profile for advisory lookups.
func NewAdvisor(spec *TripSpec, profile *SpeedProfile) *Advisor {
	return &Advisor{spec: spec, profile: profile}
}

// SpeedAt returns the profile speed in m/s at the given track position.
// Positions past the end of the profile return 0: the trip is over.
func (a *Advisor) SpeedAt(positionM float64) float64 {
	idx := sort.SearchFloat64s(a.profile.Positions, positionM)
	if idx >= len(a.profile.Speeds) {
		return 0
	}
	return a.profile.Speeds[idx]
}

// Recommend compares the current state against the profile and returns a
// recommendation plus the ideal speed in m/s at the current position.
//
// currentSpeed is in m/s, remainingM in m. elapsedS may be negative when
// the elapsed time is unknown; the remaining time is then estimated from
// the current speed. Far from the stop the advice tracks the ideal curve;
// in the middle it balances the curve against the average speed still
// needed to arrive on time; close to the stop arriving on time dominates.
func (a *Advisor) Recommend(currentSpeed, remainingM, elapsedS float64) (Advice, float64) {
	traveled := a.spec.DistanceM - remainingM
	idx := sort.SearchFloat64s(a.profile.Positions, traveled)
	if idx >= len(a.profile.Speeds) {
		return AdviceDecelerate, 0
	}
	ideal := a.profile.Speeds[idx]

	remainTime := a.spec.DurationS
	switch {
	case elapsedS >= 0:
		remainTime = a.spec.DurationS - elapsedS
	case currentSpeed > 0:
		remainTime = remainingM / currentSpeed
	}
	requiredAvg := 0.0
	if remainTime > 0 {
		requiredAvg = remainingM / remainTime
	}

	ratio := remainingM / a.spec.DistanceM
	switch {
	case ratio > farDistanceFrac:
		diff := ideal - currentSpeed
		if diff > adviceBand {
			return AdviceAccelerate, ideal
		}
		if diff < -adviceBand {
			return AdviceDecelerate, ideal
		}
		return AdviceHold, ideal
	case ratio > endDistanceFrac:
		target := (ideal + requiredAvg) / 2
		if currentSpeed < target-adviceBand {
			return AdviceAccelerate, ideal
		}
		if currentSpeed > target+adviceBand {
			return AdviceDecelerate, ideal
		}
		return AdviceHold, ideal
	default:
		if requiredAvg > currentSpeed+finalAccelBand {
			return AdviceAccelerate, ideal
		}
		if requiredAvg < currentSpeed-finalBrakeBand {
			return AdviceDecelerate, ideal
		}
		return AdviceHold, ideal
	}
}
