// report.go implements the per-run completion record emitted by the receiver:
// one structured console line, optionally appended to a CSV file whose
// columns match the recorded-scenario analysis scripts:
//
//	run,scheme,total_us,first_us,last_us,note
package metrics

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sara-star-quant/v2x-go/internal/constants"
	verrors "github.com/sara-star-quant/v2x-go/internal/errors"
)

// RunReport summarizes one receiver run: the span between the first fragment
// seen and the last message completion.
type RunReport struct {
	RunID          string
	Scheme         constants.Scheme
	FirstFragment  time.Time
	LastCompletion time.Time
	Note           string
}

// Total returns the elapsed time between first fragment and last completion.
func (r *RunReport) Total() time.Duration {
	return r.LastCompletion.Sub(r.FirstFragment)
}

// ConsoleLine renders the report in the METRIC key=value form echoed to the
// console at the end of every run.
func (r *RunReport) ConsoleLine() string {
	return fmt.Sprintf("METRIC run=%s scheme=%d total_us=%d first_us=%d last_us=%d",
		r.runID(), int(r.Scheme), r.Total().Microseconds(),
		r.FirstFragment.UnixMicro(), r.LastCompletion.UnixMicro())
}

// CSVLine renders the report as one CSV row.
func (r *RunReport) CSVLine() string {
	note := strings.ReplaceAll(r.Note, ",", ";")
	return fmt.Sprintf("%s,%d,%d,%d,%d,%s",
		r.runID(), int(r.Scheme), r.Total().Microseconds(),
		r.FirstFragment.UnixMicro(), r.LastCompletion.UnixMicro(), note)
}

// AppendCSV appends the report to the metrics file, creating it if needed.
func (r *RunReport) AppendCSV(path string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return verrors.NewOpError("metrics.AppendCSV", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintln(f, r.CSVLine()); err != nil {
		return verrors.NewOpError("metrics.AppendCSV", err)
	}
	return nil
}

func (r *RunReport) runID() string {
	if r.RunID == "" {
		return "0"
	}
	return r.RunID
}
