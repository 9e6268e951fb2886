package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/cwbudde/railfit/internal/report"
	"github.com/cwbudde/railfit/internal/scenario"
	"github.com/cwbudde/railfit/internal/validate"
	"github.com/spf13/cobra"
)

var (
	validateScenario string
	validateProfile  string
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Re-check a previously written profile artifact",
	Long: `Loads a profile.json artifact, re-simulates it against the scenario's
trip and reports constraint violations and the theoretical energy floor.
Exits non-zero when the profile is infeasible.`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateScenario, "scenario", "", "Scenario file the profile was solved for (required)")
	validateCmd.Flags().StringVar(&validateProfile, "profile", "", "profile.json artifact to check (required)")
	validateCmd.MarkFlagRequired("scenario")
	validateCmd.MarkFlagRequired("profile")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(validateScenario)
	if err != nil {
		return err
	}
	profile, err := report.ReadProfile(validateProfile)
	if err != nil {
		return err
	}

	costs := drive.Simulate(&s.Trip, profile, *s.Weights)

	var floor float64
	theo, err := validate.TheoreticalMinimum(&s.Trip)
	switch {
	case errors.Is(err, validate.ErrInfeasibleTrip):
		// The floor stays zero; the sanity check flags the trip itself.
	case err != nil:
		return err
	default:
		floor = theo.TotalJ
	}

	flags := validate.CheckSolution(&s.Trip, profile, costs, floor, validate.DefaultSanityConfig())
	if errors.Is(err, validate.ErrInfeasibleTrip) {
		flags = append(flags, validate.FlagInfeasibleTrip)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "scenario\t%s\n", s.Name)
	fmt.Fprintf(tw, "final position\t%.2f m (target %.2f m)\n", profile.FinalPosition(), s.Trip.DistanceM)
	fmt.Fprintf(tw, "peak speed\t%.2f m/s (limit %.2f m/s)\n", profile.PeakSpeed(), s.Trip.MaxSpeedMPS)
	fmt.Fprintf(tw, "energy\t%.1f kJ\n", costs.EnergyJ/1000)
	if floor > 0 {
		fmt.Fprintf(tw, "theoretical floor\t%.1f kJ\n", floor/1000)
	}
	if len(flags) == 0 {
		fmt.Fprintf(tw, "verdict\tfeasible\n")
	} else {
		fmt.Fprintf(tw, "verdict\tinfeasible: %v\n", flags)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(flags) > 0 {
		return fmt.Errorf("profile violates %d constraint(s)", len(flags))
	}
	return nil
}
