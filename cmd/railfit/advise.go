package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/cwbudde/railfit/internal/report"
	"github.com/cwbudde/railfit/internal/scenario"
	"github.com/spf13/cobra"
)

var (
	adviseScenario string
	adviseProfile  string
	advisePosition float64
	adviseSpeed    float64
	adviseElapsed  float64
)

var adviseCmd = &cobra.Command{
	Use:   "advise",
	Short: "Driving advice for a train tracking an optimized profile",
	Long: `Compares the train's current position and speed against a solved
profile.json artifact and recommends whether to accelerate, hold or brake
to stay on the energy-optimal curve and still arrive on time.`,
	RunE: runAdvise,
}

func init() {
	adviseCmd.Flags().StringVar(&adviseScenario, "scenario", "", "Scenario file the profile was solved for (required)")
	adviseCmd.Flags().StringVar(&adviseProfile, "profile", "", "profile.json artifact to follow (required)")
	adviseCmd.Flags().Float64Var(&advisePosition, "position", 0, "Current track position in m (required)")
	adviseCmd.Flags().Float64Var(&adviseSpeed, "speed", 0, "Current speed in m/s (required)")
	adviseCmd.Flags().Float64Var(&adviseElapsed, "elapsed", -1, "Elapsed trip time in s; omit to estimate from speed")
	adviseCmd.MarkFlagRequired("scenario")
	adviseCmd.MarkFlagRequired("profile")
	adviseCmd.MarkFlagRequired("position")
	adviseCmd.MarkFlagRequired("speed")
	rootCmd.AddCommand(adviseCmd)
}

func runAdvise(cmd *cobra.Command, args []string) error {
	s, err := scenario.Load(adviseScenario)
	if err != nil {
		return err
	}
	profile, err := report.ReadProfile(adviseProfile)
	if err != nil {
		return err
	}
	if advisePosition < 0 || advisePosition > s.Trip.DistanceM {
		return fmt.Errorf("position %.1f m outside the %.1f m trip", advisePosition, s.Trip.DistanceM)
	}
	if adviseSpeed < 0 {
		return fmt.Errorf("speed must be nonnegative, got %.2f", adviseSpeed)
	}

	advisor := drive.NewAdvisor(&s.Trip, profile)
	remaining := s.Trip.DistanceM - advisePosition
	advice, ideal := advisor.Recommend(adviseSpeed, remaining, adviseElapsed)

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "scenario\t%s\n", s.Name)
	fmt.Fprintf(tw, "position\t%.1f m (%.1f m remaining)\n", advisePosition, remaining)
	fmt.Fprintf(tw, "current speed\t%.2f m/s\n", adviseSpeed)
	fmt.Fprintf(tw, "profile speed\t%.2f m/s\n", ideal)
	fmt.Fprintf(tw, "advice\t%s\n", advice)
	return tw.Flush()
}
