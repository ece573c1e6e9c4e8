package orchestrator

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal state of one entity within a run.
type Status int

const (
	StatusSucceeded Status = iota
	StatusFailed
	StatusSkipped
)

// String returns the human-readable status name.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalYAML renders the status as its name.
func (s Status) MarshalYAML() (any, error) { return s.String(), nil }

// EntityResult is the outcome of one entity's job.
type EntityResult struct {
	Entity string `yaml:"entity"`
	Status Status `yaml:"status"`
	Wave   int    `yaml:"wave"`

	// Err is the structured error; Error mirrors it as text for the
	// serialized report.
	Err   error  `yaml:"-"`
	Error string `yaml:"error,omitempty"`

	// SkippedBecause names the entity whose failure caused the skip.
	SkippedBecause string `yaml:"skipped_because,omitempty"`

	Duration time.Duration `yaml:"duration"`
}

// Report is the full account of one run.
type Report struct {
	RunID      string        `yaml:"run_id"`
	Mode       string        `yaml:"mode"`
	StartedAt  time.Time     `yaml:"started_at"`
	FinishedAt time.Time     `yaml:"finished_at"`
	Duration   time.Duration `yaml:"duration"`

	// Warnings carries resolution warnings from before execution started.
	Warnings []string `yaml:"warnings,omitempty"`

	Entities []EntityResult `yaml:"entities"`
}

// NewReport starts a report for a run.
func NewReport(mode string, warnings []string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now().UTC(),
		Warnings:  warnings,
	}
}

// finish stamps the end time.
func (r *Report) finish() {
	r.FinishedAt = time.Now().UTC()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}

// Counts returns how many entities succeeded, failed and were skipped.
func (r *Report) Counts() (succeeded, failed, skipped int) {
	for _, e := range r.Entities {
		switch e.Status {
		case StatusSucceeded:
			succeeded++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return succeeded, failed, skipped
}

// Failed reports whether any entity failed.
func (r *Report) Failed() bool {
	for _, e := range r.Entities {
		if e.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Result returns the result for an entity, if present.
func (r *Report) Result(entityName string) (EntityResult, bool) {
	for _, e := range r.Entities {
		if e.Entity == entityName {
			return e, true
		}
	}
	return EntityResult{}, false
}
