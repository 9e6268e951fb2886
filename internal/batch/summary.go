package batch

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Summary aggregates a finished batch.
type Summary struct {
	Total     int     `json:"total"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Converged int     `json:"converged"`
	Feasible  int     `json:"feasible"`
	MeanJ     float64 `json:"meanEnergyJ"`
	StdDevJ   float64 `json:"stdDevEnergyJ"`
	MinJ      float64 `json:"minEnergyJ"`
	MaxJ      float64 `json:"maxEnergyJ"`
}

// Summarize computes batch statistics over the completed runs. Energy
// statistics are zero when nothing completed.
func Summarize(runs []*Run) Summary {
	s := Summary{Total: len(runs)}
	var energies []float64
	for _, run := range runs {
		switch run.State {
		case StateCompleted:
			s.Completed++
			energies = append(energies, run.EnergyJ)
			if run.Converged {
				s.Converged++
			}
			if run.Feasible {
				s.Feasible++
			}
		case StateFailed:
			s.Failed++
		}
	}
	if len(energies) == 0 {
		return s
	}

	s.MeanJ = stat.Mean(energies, nil)
	if len(energies) > 1 {
		s.StdDevJ = stat.StdDev(energies, nil)
	}
	s.MinJ, s.MaxJ = energies[0], energies[0]
	for _, e := range energies[1:] {
		if e < s.MinJ {
			s.MinJ = e
		}
		if e > s.MaxJ {
			s.MaxJ = e
		}
	}
	return s
}

// WriteTable renders the per-run results and the summary as an aligned
// text table.
func WriteTable(w io.Writer, runs []*Run, summary Summary) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)

	fmt.Fprintln(tw, "SCENARIO\tSTATE\tENERGY (kJ)\tCONVERGED\tFEASIBLE\tDURATION\tERROR")
	for _, run := range runs {
		energy, converged, feasible := "-", "-", "-"
		if run.State == StateCompleted {
			energy = fmt.Sprintf("%.1f", run.EnergyJ/1000)
			converged = fmt.Sprintf("%t", run.Converged)
			feasible = fmt.Sprintf("%t", run.Feasible)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.Scenario,
			run.State,
			energy,
			converged,
			feasible,
			runDuration(run),
			run.Error,
		)
	}

	fmt.Fprintln(tw, "\t\t\t\t\t\t")
	fmt.Fprintf(tw, "TOTAL: %d\tcompleted: %d\tfailed: %d\tconverged: %d\tfeasible: %d\t\t\n",
		summary.Total, summary.Completed, summary.Failed, summary.Converged, summary.Feasible)
	if summary.Completed > 0 {
		fmt.Fprintf(tw, "ENERGY kJ\tmean: %.1f\tstddev: %.1f\tmin: %.1f\tmax: %.1f\t\t\n",
			summary.MeanJ/1000, summary.StdDevJ/1000, summary.MinJ/1000, summary.MaxJ/1000)
	}
	return tw.Flush()
}

func runDuration(run *Run) string {
	if run.EndTime == nil || run.StartTime.IsZero() {
		return "-"
	}
	return run.EndTime.Sub(run.StartTime).Round(time.Millisecond).String()
}
