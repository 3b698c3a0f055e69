package koyomi

import (
	"github.com/ashita-ai/koyomi/internal/model"
)

// AgentState is the derived execution state of an agent.
type AgentState string

const (
	StateIdle    AgentState = "idle"
	StateRunning AgentState = "running"
	StateError   AgentState = "error"
)

// AgentStatus is the public status projection of a registered agent.
// It is a curated view of the internal status type, with no internal
// package imports leaking through, safe to consume from outside the
// module.
type AgentStatus struct {
	Name        string
	Description string
	Schedule    string
	RunCount    int
	LastRun     *string // RFC3339, nil before the first run
	Enabled     bool
	Status      AgentState
}

// RunStatus is the terminal state of a single run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunError     RunStatus = "error"
)

// RunRecord describes one completed or failed run.
type RunRecord struct {
	RunNumber       int
	Timestamp       string
	Status          RunStatus
	ResultSummary   string
	DurationSeconds float64
	Error           *string
}

// OutcomeStatus classifies the result of running an agent.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeError     OutcomeStatus = "error"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeNotFound  OutcomeStatus = "not_found"
)

// Outcome is the result of a single run invocation. Failures are data,
// not errors: a failed run returns an error outcome, never a Go error.
type Outcome struct {
	Status OutcomeStatus
	Agent  string
	Result string
	Reason string
	Error  string
}

// Memory is one recalled memory entry.
type Memory struct {
	Content   string
	Metadata  map[string]any
	Relevance *float32
}

func toPublicStatus(st model.AgentStatus) AgentStatus {
	return AgentStatus{
		Name:        st.Name,
		Description: st.Description,
		Schedule:    st.Schedule,
		RunCount:    st.RunCount,
		LastRun:     st.LastRun,
		Enabled:     st.Enabled,
		Status:      AgentState(st.Status),
	}
}

func toPublicOutcome(out model.Outcome) Outcome {
	return Outcome{
		Status: OutcomeStatus(out.Status),
		Agent:  out.Agent,
		Result: out.Result,
		Reason: out.Reason,
		Error:  out.Error,
	}
}

func toPublicRecords(recs []model.RunRecord) []RunRecord {
	out := make([]RunRecord, 0, len(recs))
	for _, r := range recs {
		out = append(out, RunRecord{
			RunNumber:       r.RunNumber,
			Timestamp:       r.Timestamp,
			Status:          RunStatus(r.Status),
			ResultSummary:   r.ResultSummary,
			DurationSeconds: r.DurationSeconds,
			Error:           r.Error,
		})
	}
	return out
}
