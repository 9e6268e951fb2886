// Package report writes the optimizer's artifacts: plain numeric-array
// profiles for external renderers, a machine-readable run report, and a
// JSONL iteration trace. All writes are atomic (temp file plus rename) so
// a crashed run never leaves a half-written artifact behind.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cwbudde/railfit/internal/drive"
	"github.com/cwbudde/railfit/internal/validate"
)

// Artifact file names inside a run directory.
const (
	ProfileJSONName = "profile.json"
	ProfileCSVName  = "profile.csv"
	ReportJSONName  = "report.json"
	TraceName       = "trace.jsonl"
)

// Run is the report.json artifact: everything about one solve except the
// bulky profile arrays, which live in their own files.
type Run struct {
	Scenario  string                    `json:"scenario"`
	CreatedAt time.Time                 `json:"createdAt"`
	Trip      *drive.TripSpec           `json:"trip"`
	Result    *drive.OptimizationResult `json:"result"`
	Report    *validate.Report          `json:"validation,omitempty"`
}

// WriteJSON atomically writes v as indented JSON to path, creating parent
// directories as needed.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", filepath.Base(path), err)
	}
	return writeAtomic(path, data)
}

// ReadProfile loads a profile.json artifact back.
func ReadProfile(path string) (*drive.SpeedProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p drive.SpeedProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// WriteProfileCSV writes the profile as one row per sample with columns
// time_s, position_m, speed_mps, accel_mps2, energy_j, where energy_j is
// the cumulative traction energy up to that sample.
func WriteProfileCSV(path string, spec *drive.TripSpec, p *drive.SpeedProfile) error {
	energy := drive.CumulativeEnergy(spec, p)

	tmp, err := tempFile(path)
	if err != nil {
		return err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write([]string{"time_s", "position_m", "speed_mps", "accel_mps2", "energy_j"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i := range p.Times {
		row := []string{
			formatFloat(p.Times[i]),
			formatFloat(p.Positions[i]),
			formatFloat(p.Speeds[i]),
			formatFloat(p.Accels[i]),
			formatFloat(energy[i]),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename csv into place: %w", err)
	}
	return nil
}

// WriteRun writes a complete artifact set for one solve into dir:
// profile.json, profile.csv, report.json and, when the result carries a
// trace, trace.jsonl.
func WriteRun(dir string, run *Run) error {
	if run.Result == nil || run.Result.Profile == nil {
		return fmt.Errorf("run %q has no profile to write", run.Scenario)
	}
	if run.Trip == nil {
		return fmt.Errorf("run %q has no trip spec", run.Scenario)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create run directory: %w", err)
	}

	if err := WriteJSON(filepath.Join(dir, ProfileJSONName), run.Result.Profile); err != nil {
		return err
	}
	if err := WriteProfileCSV(filepath.Join(dir, ProfileCSVName), run.Trip, run.Result.Profile); err != nil {
		return err
	}
	if err := WriteJSON(filepath.Join(dir, ReportJSONName), run); err != nil {
		return err
	}
	if len(run.Result.Trace) > 0 {
		if err := WriteTrace(filepath.Join(dir, TraceName), run.Result.Trace); err != nil {
			return err
		}
	}
	slog.Debug("run artifacts written", "scenario", run.Scenario, "dir", dir)
	return nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create artifact directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

func tempFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}
	tmp, err := os.Create(path + ".tmp")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return tmp, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
