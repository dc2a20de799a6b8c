package models

import "time"

// Severity is the classifier-assigned significance of a detected change.
type Severity string

const (
	SeverityNone  Severity = "none"
	SeverityMinor Severity = "minor"
	SeverityMajor Severity = "major"
)

// AtLeast reports whether s is at or above the given threshold.
func (s Severity) AtLeast(threshold Severity) bool {
	return s.rank() >= threshold.rank()
}

func (s Severity) rank() int {
	switch s {
	case SeverityMinor:
		return 1
	case SeverityMajor:
		return 2
	default:
		return 0
	}
}

// ChangeRecord is one detected change in a target's append-only
// history. Records are never mutated after creation except for the
// one-shot Notified flag.
type ChangeRecord struct {
	ID         string    `json:"id"`
	TargetID   string    `json:"target_id"`
	DetectedAt time.Time `json:"detected_at"`
	Severity   Severity  `json:"severity"`
	Summary    string    `json:"summary"`
	KeyChanges []string  `json:"key_changes,omitempty"`
	Notified   bool      `json:"notified"`
}
