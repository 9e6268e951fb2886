package batch

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/railfit/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, name string, distanceM float64) string {
	t.Helper()
	payload := fmt.Sprintf(`{
		"trip": {
			"distanceM": %g,
			"durationS": 120,
			"maxSpeedMps": 25,
			"maxAccelMps2": 1.0,
			"maxDecelMps2": 1.2,
			"massKg": 40000,
			"dragCoeff": 5.0,
			"rollingCoeff": 0.002
		},
		"solver": {"controlPoints": 4, "samples": 50, "iterations": 40},
		"validation": {"skipSensitivity": true}
	}`, distanceM)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))
	return path
}

func TestSolveSingleScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "trip.json", 1500)

	solved, rep, err := Solve(path)
	require.NoError(t, err)
	require.NotNil(t, solved.Result.Profile)
	require.NotNil(t, rep)

	assert.InDelta(t, 1500, solved.Result.Profile.FinalPosition(), 1500*2e-3)
	assert.GreaterOrEqual(t, solved.Result.Report.EnergyJ, 0.0)
}

func TestSolveInfeasibleTripNeverCrashes(t *testing.T) {
	// 2000 m in 10 s cannot be driven under a 25 m/s ceiling. The solve
	// must come back with a flagged report, not an error.
	dir := t.TempDir()
	path := filepath.Join(dir, "rush.json")
	payload := `{
		"trip": {
			"distanceM": 2000, "durationS": 10, "maxSpeedMps": 25,
			"maxAccelMps2": 1.0, "maxDecelMps2": 1.2, "massKg": 40000,
			"dragCoeff": 5.0, "rollingCoeff": 0.002
		},
		"solver": {"controlPoints": 4, "samples": 50, "iterations": 40},
		"validation": {"skipSensitivity": true}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0644))

	_, rep, err := Solve(path)
	require.NoError(t, err)
	assert.False(t, rep.Feasible)
	assert.NotEmpty(t, rep.SanityFlags)
}

func TestSolveInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"trip": {"distanceM": -5}}`), 0644))

	_, _, err := Solve(path)
	require.Error(t, err)
}

func TestExecuteWritesArtifactsPerRun(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	paths := []string{
		writeScenario(t, dir, "short.json", 800),
		writeScenario(t, dir, "long.json", 1600),
	}

	runner := &Runner{Workers: 2, OutDir: out}
	runs := runner.Execute(paths)
	require.Len(t, runs, 2)

	assert.NotEqual(t, runs[0].ID, runs[1].ID)
	for _, run := range runs {
		assert.Equal(t, StateCompleted, run.State, run.Scenario)
		assert.NotEmpty(t, run.ID)
		assert.NotNil(t, run.EndTime)

		for _, name := range []string{report.ProfileJSONName, report.ProfileCSVName, report.ReportJSONName} {
			_, err := os.Stat(filepath.Join(out, run.Scenario, name))
			assert.NoError(t, err, name)
		}
	}
}

func TestExecuteKeepsGoingPastFailures(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0644))
	good := writeScenario(t, dir, "fine.json", 1000)

	runner := &Runner{Workers: 1, OutDir: filepath.Join(dir, "out")}
	runs := runner.Execute([]string{bad, good})

	require.Len(t, runs, 2)
	assert.Equal(t, StateFailed, runs[0].State)
	assert.NotEmpty(t, runs[0].Error)
	assert.Equal(t, StateCompleted, runs[1].State)
}

func TestExecuteEmptyInput(t *testing.T) {
	runner := &Runner{Workers: 4, OutDir: t.TempDir()}
	runs := runner.Execute(nil)
	assert.Empty(t, runs)
}

func TestSummarize(t *testing.T) {
	runs := []*Run{
		{State: StateCompleted, EnergyJ: 1000, Converged: true, Feasible: true},
		{State: StateCompleted, EnergyJ: 3000, Converged: true},
		{State: StateFailed, Error: "boom"},
	}
	s := Summarize(runs)

	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 2, s.Converged)
	assert.Equal(t, 1, s.Feasible)
	assert.InDelta(t, 2000, s.MeanJ, 1e-9)
	assert.InDelta(t, 1000, s.MinJ, 1e-9)
	assert.InDelta(t, 3000, s.MaxJ, 1e-9)
	assert.Greater(t, s.StdDevJ, 0.0)
}

func TestSummarizeNothingCompleted(t *testing.T) {
	s := Summarize([]*Run{{State: StateFailed}})
	assert.Equal(t, 1, s.Failed)
	assert.Zero(t, s.MeanJ)
	assert.Zero(t, s.StdDevJ)
}

func TestWriteTable(t *testing.T) {
	runs := []*Run{
		{Scenario: "short", State: StateCompleted, EnergyJ: 12345, Converged: true, Feasible: true},
		{Scenario: "broken", State: StateFailed, Error: "decode scenario: bad"},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, runs, Summarize(runs)))

	out := buf.String()
	assert.Contains(t, out, "SCENARIO")
	assert.Contains(t, out, "short")
	assert.Contains(t, out, "12.3")
	assert.Contains(t, out, "decode scenario: bad")
}
