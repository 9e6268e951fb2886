package validate

import (
	"fmt"
	"sync"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/cwbudde/railfit/internal/opt"
)

// Sensitivity parameter names, matching the trip spec's JSON fields.
const (
	ParamMass     = "massKg"
	ParamDrag     = "dragCoeff"
	ParamRolling  = "rollingCoeff"
	ParamMaxSpeed = "maxSpeedMps"
	ParamDistance = "distanceM"
	ParamDuration = "durationS"
	ParamMaxAccel = "maxAccelMps2"
	ParamMaxDecel = "maxDecelMps2"
)

// DefaultParameters are the spec fields perturbed when none are configured.
var DefaultParameters = []string{
	ParamMass, ParamDrag, ParamRolling, ParamMaxSpeed, ParamDistance, ParamDuration,
}

// Delta holds the cost changes caused by perturbing one parameter down and
// up by the configured fraction.
type Delta struct {
	Minus float64 `json:"minus"`
	Plus  float64 `json:"plus"`
}

// SensitivityConfig controls the perturbation study.
type SensitivityConfig struct {
	// Parameters lists the spec fields to perturb; empty selects
	// DefaultParameters.
	Parameters []string
	// Fraction is the relative perturbation; <= 0 selects 0.05.
	Fraction float64
	// Reoptimize re-runs the full pipeline per perturbation instead of
	// re-simulating the frozen control points. Much more expensive.
	Reoptimize bool
	// Optimizer and Solve are required when Reoptimize is set.
	Optimizer opt.Optimizer
	Solve     drive.SolveOptions
}

func (c SensitivityConfig) withDefaults() SensitivityConfig {
	if len(c.Parameters) == 0 {
		c.Parameters = DefaultParameters
	}
	if c.Fraction <= 0 {
		c.Fraction = 0.05
	}
	return c
}

// Sensitivity measures how the solution cost moves when single spec fields
// are perturbed by +/- the configured fraction. By default the control
// points stay frozen and only the profile and simulation are re-run, which
// answers "how fragile is this solution"; with Reoptimize it answers "how
// fragile is this trip". Perturbations run concurrently.
func Sensitivity(spec *drive.TripSpec, points drive.ControlPoints, weights drive.PenaltyWeights, samples int, cfg SensitivityConfig) (map[string]Delta, error) {
	cfg = cfg.withDefaults()
	if cfg.Reoptimize && cfg.Optimizer == nil {
		return nil, fmt.Errorf("sensitivity: reoptimize requires an optimizer")
	}
	for _, name := range cfg.Parameters {
		if _, err := perturbSpec(spec, name, 1); err != nil {
			return nil, err
		}
	}

	base := drive.Simulate(spec, drive.GenerateProfile(spec, points, samples), weights).Cost

	type task struct {
		param string
		scale float64
	}
	tasks := make([]task, 0, 2*len(cfg.Parameters))
	for _, name := range cfg.Parameters {
		tasks = append(tasks,
			task{name, 1 - cfg.Fraction},
			task{name, 1 + cfg.Fraction},
		)
	}

	costs := make([]float64, len(tasks))
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, tk := range tasks {
		wg.Add(1)
		go func(i int, tk task) {
			defer wg.Done()
			perturbed, err := perturbSpec(spec, tk.param, tk.scale)
			if err != nil {
				errs[i] = err
				return
			}
			costs[i], errs[i] = perturbedCost(perturbed, points, weights, samples, cfg)
		}(i, tk)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]Delta, len(cfg.Parameters))
	for i, name := range cfg.Parameters {
		out[name] = Delta{
			Minus: costs[2*i] - base,
			Plus:  costs[2*i+1] - base,
		}
	}
	return out, nil
}

func perturbedCost(spec *drive.TripSpec, points drive.ControlPoints, weights drive.PenaltyWeights, samples int, cfg SensitivityConfig) (float64, error) {
	if !cfg.Reoptimize {
		return drive.Simulate(spec, drive.GenerateProfile(spec, points, samples), weights).Cost, nil
	}
	solve := cfg.Solve
	solve.Weights = weights
	solve.Samples = samples
	res, err := drive.Optimize(spec, cfg.Optimizer, solve)
	if err != nil {
		return 0, fmt.Errorf("sensitivity: reoptimize: %w", err)
	}
	return res.BestCost, nil
}

func perturbSpec(spec *drive.TripSpec, param string, scale float64) (*drive.TripSpec, error) {
	out := spec.Clone()
	switch param {
	case ParamMass:
		out.MassKg *= scale
	case ParamDrag:
		out.DragCoeff *= scale
	case ParamRolling:
		out.RollingCoeff *= scale
	case ParamMaxSpeed:
		out.MaxSpeedMPS *= scale
	case ParamDistance:
		out.DistanceM *= scale
	case ParamDuration:
		out.DurationS *= scale
	case ParamMaxAccel:
		out.MaxAccelMPS2 *= scale
	case ParamMaxDecel:
		out.MaxDecelMPS2 *= scale
	default:
		return nil, fmt.Errorf("sensitivity: unknown parameter %q", param)
	}
	return out, nil
}
