package validate

import (
	"errors"
	"log/slog"
	"sort"

	"github.com/cwbudde/railfit/internal/drive"
)

// Config bundles the validation stages.
type Config struct {
	Sensitivity SensitivityConfig
	Sanity      SanityConfig
	// SkipSensitivity turns the perturbation study off; the sanity checks
	// and the energy floor always run.
	SkipSensitivity bool
}

// DefaultConfig returns the validation the CLI runs after every solve.
func DefaultConfig() Config {
	return Config{Sanity: DefaultSanityConfig()}
}

// Report is the validator verdict for one solution.
type Report struct {
	TheoreticalMinJ float64               `json:"theoreticalMinJ"`
	Breakdown       *TheoreticalBreakdown `json:"breakdown,omitempty"`
	AchievedJ       float64               `json:"achievedJ"`
	// EfficiencyRatio is theoretical over achieved: 1 means the solution
	// sits on the floor, smaller means headroom remains.
	EfficiencyRatio float64          `json:"efficiencyRatio"`
	Sensitivity     map[string]Delta `json:"sensitivity,omitempty"`
	SanityFlags     []string         `json:"sanityFlags"`
	Feasible        bool             `json:"feasible"`
}

// Run validates an optimization result: energy floor, sanity flags and,
// unless skipped, the sensitivity study. An infeasible trip is not an
// error; it comes back as a report flagged infeasible_trip.
func Run(spec *drive.TripSpec, result *drive.OptimizationResult, weights drive.PenaltyWeights, samples int, cfg Config) (*Report, error) {
	report := &Report{AchievedJ: result.Report.EnergyJ}

	theo, err := TheoreticalMinimum(spec)
	switch {
	case errors.Is(err, ErrInfeasibleTrip):
		slog.Warn("trip is infeasible", "error", err)
	case err != nil:
		return nil, err
	default:
		report.TheoreticalMinJ = theo.TotalJ
		report.Breakdown = theo
		if report.AchievedJ > 0 {
			report.EfficiencyRatio = theo.TotalJ / report.AchievedJ
		}
	}

	report.SanityFlags = CheckSolution(spec, result.Profile, result.Report, report.TheoreticalMinJ, cfg.Sanity)
	if errors.Is(err, ErrInfeasibleTrip) {
		report.SanityFlags = append(report.SanityFlags, FlagInfeasibleTrip)
		sort.Strings(report.SanityFlags)
	}
	report.Feasible = len(report.SanityFlags) == 0

	if !cfg.SkipSensitivity {
		report.Sensitivity, err = Sensitivity(spec, result.BestParams, weights, samples, cfg.Sensitivity)
		if err != nil {
			return nil, err
		}
	}

	slog.Info("validation finished",
		"theoretical_min_j", report.TheoreticalMinJ,
		"achieved_j", report.AchievedJ,
		"efficiency_ratio", report.EfficiencyRatio,
		"sanity_flags", report.SanityFlags,
		"feasible", report.Feasible,
	)
	return report, nil
}
