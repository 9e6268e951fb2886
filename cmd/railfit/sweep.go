package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/cwbudde/railfit/internal/batch"
	"github.com/cwbudde/railfit/internal/scenario"
	"github.com/cwbudde/railfit/internal/validate"
	"github.com/spf13/cobra"
)

var (
	sweepScenario string
	sweepParams   []string
	sweepFraction float64
	sweepReopt    bool
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a parameter sensitivity sweep",
	Long: `Optimizes the scenario once, then perturbs the selected trip
parameters by the given fraction in both directions and reports how the
cost moves. With --reopt every perturbation is re-optimized from scratch
instead of re-simulating the frozen solution.`,
	RunE: runSweep,
}

func init() {
	sweepCmd.Flags().StringVar(&sweepScenario, "scenario", "", "Scenario file to sweep (required)")
	sweepCmd.Flags().StringSliceVar(&sweepParams, "param", nil, "Trip fields to perturb (default: the standard set)")
	sweepCmd.Flags().Float64Var(&sweepFraction, "frac", 0.05, "Relative perturbation per direction")
	sweepCmd.Flags().BoolVar(&sweepReopt, "reopt", false, "Re-optimize each perturbation")
	sweepCmd.MarkFlagRequired("scenario")
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(sweepScenario)
	if err != nil {
		return err
	}

	solved, _, err := batch.Solve(sweepScenario)
	if err != nil {
		return err
	}

	cfg := validate.SensitivityConfig{
		Parameters: sweepParams,
		Fraction:   sweepFraction,
		Reoptimize: sweepReopt,
	}
	if sweepReopt {
		cfg.Optimizer = s.LocalOptimizer()
		cfg.Solve = s.SolveOptions()
	}

	deltas, err := validate.Sensitivity(&s.Trip, solved.Result.BestParams, *s.Weights, s.Solver.Samples, cfg)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(deltas))
	for name := range deltas {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "PARAMETER\t-%.0f%% COST DELTA\t+%.0f%% COST DELTA\n", sweepFraction*100, sweepFraction*100)
	for _, name := range names {
		d := deltas[name]
		fmt.Fprintf(tw, "%s\t%+.1f\t%+.1f\n", name, d.Minus, d.Plus)
	}
	fmt.Fprintf(tw, "\nbase cost\t%.1f\tconverged: %t\n", solved.Result.BestCost, solved.Result.Converged)
	return tw.Flush()
}
