package model

import "time"

// ErrorCode constants for standard API error codes.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// APIError is the standard error response envelope. Success bodies are the
// documented plain shapes; only errors carry the envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains request metadata included in every error response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status        string `json:"status"` // "ok" or "degraded"
	UptimeSeconds int64  `json:"uptime_seconds"`
	AgentCount    int    `json:"agent_count"`
	Memory        string `json:"memory,omitempty"` // "connected"/"disconnected", absent for the in-process store
}

// AgentDetailResponse is the body of GET /api/agents/{name}.
type AgentDetailResponse struct {
	AgentStatus
	Config       map[string]any `json:"config"`
	RecentRuns   []RunRecord    `json:"recent_runs"`
	LifetimeRuns *int64         `json:"lifetime_runs,omitempty"` // archive-backed, absent when disabled
}

// TriggerResponse is the body of POST /api/agents/{name}/run.
type TriggerResponse struct {
	Status string `json:"status"` // always "started"
	Agent  string `json:"agent"`
}
