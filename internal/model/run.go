package model

// RunStatus is the terminal state of a single agent run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// RunRecord is an immutable log entry describing one completed or failed
// execution of an agent. Records live in the agent's in-memory ring buffer
// for the process lifetime and, when the archive is enabled, in SQLite.
type RunRecord struct {
	RunNumber       int       `json:"run_number"`
	Timestamp       string    `json:"timestamp"` // run start, RFC3339
	Status          RunStatus `json:"status"`
	ResultSummary   string    `json:"result_summary"`
	DurationSeconds float64   `json:"duration_seconds"`
	Error           *string   `json:"error,omitempty"`
}

// OutcomeStatus classifies the result of a ScheduledRun invocation.
// Skipped is deliberately distinct from error: an already-running agent
// rejecting a second invocation is expected behavior, not a failure.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeError     OutcomeStatus = "error"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeNotFound  OutcomeStatus = "not_found"
)

// Outcome is the value returned by every run entry point. Failures are
// carried as data, never as Go errors: a failing run must not propagate
// into the scheduler.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Agent  string        `json:"agent"`
	Result string        `json:"result,omitempty"`
	Reason string        `json:"reason,omitempty"` // populated for skipped/not_found
	Error  string        `json:"error,omitempty"`  // populated for error outcomes
}
