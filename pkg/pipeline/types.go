package pipeline

import (
	"fmt"
	"time"
)

// Stage identifies one of the two pipeline drivers
type Stage string

// Stage constants
const (
	StageCollect  Stage = "collect"
	StageAnnotate Stage = "annotate"
)

// ParseStage converts a stage name as typed on the command line
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageCollect, StageAnnotate:
		return st, nil
	}
	return "", fmt.Errorf("unknown stage %q (want %s or %s)", s, StageCollect, StageAnnotate)
}

// WorkItem is one unit of batch work. OutputPath is derived from ID only.
type WorkItem struct {
	ID         string `json:"id"`
	InputPath  string `json:"input_path,omitempty"` // annotate stage only
	OutputPath string `json:"output_path"`
}

// ItemStatus is the terminal state of a work item
type ItemStatus string

// ItemStatus constants
const (
	StatusSucceeded ItemStatus = "succeeded"
	StatusFailed    ItemStatus = "failed"
)

// ItemResult records the outcome of one external command invocation
type ItemResult struct {
	Item     WorkItem      `json:"item"`
	Status   ItemStatus    `json:"status"`
	Command  string        `json:"command"`
	ExitCode int           `json:"exit_code"`
	Output   string        `json:"output,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the item did not complete successfully
func (r ItemResult) Failed() bool {
	return r.Status != StatusSucceeded
}

// RunSummary collects every item result of one stage run
type RunSummary struct {
	RunID      string       `json:"run_id"`
	Stage      Stage        `json:"stage"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Items      []ItemResult `json:"items"`
}

// Add appends a result to the summary
func (s *RunSummary) Add(r ItemResult) {
	s.Items = append(s.Items, r)
}

// Succeeded returns the number of succeeded items
func (s *RunSummary) Succeeded() int {
	n := 0
	for _, r := range s.Items {
		if !r.Failed() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed items
func (s *RunSummary) Failed() int {
	return len(s.Items) - s.Succeeded()
}

// FailedItems returns the failed results in processing order
func (s *RunSummary) FailedItems() []ItemResult {
	var failed []ItemResult
	for _, r := range s.Items {
		if r.Failed() {
			failed = append(failed, r)
		}
	}
	return failed
}
