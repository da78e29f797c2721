package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

// Status is the outcome of one input file.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// RegionFailure is a single crop that could not be written.
type RegionFailure struct {
	Index int    `json:"index"`
	Dest  string `json:"dest"`
	Error string `json:"error"`
}

// Result is the outcome of processing one input file.
type Result struct {
	Input  string `json:"input"`
	Image  string `json:"image,omitempty"`
	Status Status `json:"status"`

	// Err is the failure cause. Error mirrors it for the JSON report.
	Err   error  `json:"-"`
	Error string `json:"error,omitempty"`

	Regions int `json:"regions"`

	// Annotation is the annotation file written for this input, if any.
	Annotation string `json:"annotation,omitempty"`

	// Outputs are the image files written for this input.
	Outputs []string `json:"outputs,omitempty"`

	// Preview is the overlay written alongside the crops by RunDir.
	Preview string `json:"preview,omitempty"`

	// Failures lists crops that failed while the file as a whole succeeded.
	Failures []RegionFailure `json:"failures,omitempty"`
}

func failed(input string, err error) Result {
	return Result{Input: input, Status: StatusFailed, Err: err, Error: err.Error()}
}

func skipped(input string, err error) Result {
	return Result{Input: input, Status: StatusSkipped, Err: err, Error: err.Error()}
}

// Report aggregates the results of one batch, in input order.
type Report struct {
	RunID    string    `json:"run_id"`
	Command  string    `json:"command"`
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	Total   int `json:"total"`
	OK      int `json:"ok"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`

	// Crops counts written crop files across all inputs.
	Crops int `json:"crops"`

	Results []Result `json:"results"`
}

func newReport(command string, started time.Time, results []Result) *Report {
	r := &Report{
		RunID:    uuid.NewString(),
		Command:  command,
		Started:  started,
		Finished: time.Now(),
		Total:    len(results),
		Results:  results,
	}
	for _, res := range results {
		switch res.Status {
		case StatusOK:
			r.OK++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
		if command == CommandCrop || command == CommandRun {
			r.Crops += len(res.Outputs)
		}
	}
	return r
}

// HasFailures reports whether any input or any single crop failed.
func (r *Report) HasFailures() bool {
	if r.Failed > 0 {
		return true
	}
	for _, res := range r.Results {
		if len(res.Failures) > 0 {
			return true
		}
	}
	return false
}

// Summary returns a one-line human readable summary.
func (r *Report) Summary() string {
	s := fmt.Sprintf("%s: %d files, %d ok, %d failed, %d skipped",
		r.Command, r.Total, r.OK, r.Failed, r.Skipped)
	if r.Crops > 0 {
		s += fmt.Sprintf(", %d crops", r.Crops)
	}
	return s
}

// WriteFile writes the report as indented JSON.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
