package models

import "time"

// RunStatus is the terminal disposition of a single workflow run.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusSkipped   RunStatus = "skipped"
	RunStatusFailed    RunStatus = "failed"
)

// RunOutcome summarizes a finished run for the registry. Recorded for
// every run regardless of disposition; the registry derives
// failure counts and pause decisions from it.
type RunOutcome struct {
	TargetID   string    `json:"target_id"`
	Status     RunStatus `json:"status"`
	Retryable  bool      `json:"retryable,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}
