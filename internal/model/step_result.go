package model

import (
	"time"
)

const (
	// StatusPending indicates a step has not been reached yet.
	StatusPending = "pending"
	// StatusRunning indicates a step's action is executing.
	StatusRunning = "running"
	// StatusSuccess marks a step whose action ran to completion.
	StatusSuccess = "success"
	// StatusSkipped indicates the step's guard short-circuited the action.
	StatusSkipped = "skipped"
	// StatusFailed marks a failure while evaluating the guard or running the action.
	StatusFailed = "failed"
)

// StepResult captures the outcome of a single convergence step.
type StepResult struct {
	Step      string
	Status    string
	Changed   bool
	Message   string
	Error     error
	Duration  time.Duration
	Timestamp time.Time
}

// Acted reports whether the step's action executed.
func (r StepResult) Acted() bool {
	return r.Status == StatusSuccess || r.Status == StatusFailed
}

// IsTerminal reports whether the step has finished one way or another.
func (r StepResult) IsTerminal() bool {
	switch r.Status {
	case StatusSuccess, StatusSkipped, StatusFailed:
		return true
	default:
		return false
	}
}

// RunSummary aggregates the step results of one convergence run.
type RunSummary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Results  []StepResult
	Err      error
}

// Changed returns the number of steps that reported a change.
func (s RunSummary) Changed() int {
	count := 0
	for _, res := range s.Results {
		if res.Changed {
			count++
		}
	}
	return count
}

// Status returns "success" or "failed" for the run as a whole.
func (s RunSummary) Status() string {
	if s.Err != nil {
		return StatusFailed
	}
	return StatusSuccess
}
