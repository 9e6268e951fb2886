package main

import (
	"fmt"
	"os"

	"github.com/cwbudde/railfit/internal/batch"
	"github.com/spf13/cobra"
)

var (
	runOutDir  string
	runTrace   bool
	runWorkers int
)

var runCmd = &cobra.Command{
	Use:   "run <scenario.json> [scenario.json...]",
	Short: "Optimize one or more trip scenarios",
	Long: `Runs the optimization pipeline for each scenario file, validates the
solution and writes profile.json, profile.csv and report.json into a
per-scenario directory under --out. Multiple scenarios run concurrently.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScenarios,
}

func init() {
	runCmd.Flags().StringVar(&runOutDir, "out", "out", "Artifact output directory")
	runCmd.Flags().BoolVar(&runTrace, "trace", false, "Write the per-iteration cost trace as trace.jsonl")
	runCmd.Flags().IntVar(&runWorkers, "workers", 4, "Concurrent scenario solves")
	rootCmd.AddCommand(runCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	runner := &batch.Runner{
		Workers:    runWorkers,
		OutDir:     runOutDir,
		WriteTrace: runTrace,
	}
	runs := runner.Execute(args)
	summary := batch.Summarize(runs)

	if err := batch.WriteTable(os.Stdout, runs, summary); err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", summary.Failed, summary.Total)
	}
	return nil
}
