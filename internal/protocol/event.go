package protocol

import "time"

// EventType is the fixed taxonomy of events the engine emits to its UI
// collaborator (§3 EventMsg).
type EventType string

const (
	// Lifecycle
	EventTurnStarted      EventType = "turn_started"
	EventTurnComplete     EventType = "turn_complete"
	EventTaskComplete     EventType = "task_complete"
	EventTurnAborted      EventType = "turn_aborted"
	EventThreadRolledBack EventType = "thread_rolled_back"
	EventSessionConfigured EventType = "session_configured"

	// Streaming
	EventAgentMessageDelta  EventType = "agent_message_delta"
	EventAgentReasoningDelta EventType = "agent_reasoning_delta"
	EventPlanDelta          EventType = "plan_delta"
	EventOutputTextDelta    EventType = "output_text_delta"

	// Approvals
	EventExecApprovalRequest       EventType = "exec_approval_request"
	EventApplyPatchApprovalRequest EventType = "apply_patch_approval_request"
	EventRequestUserInput          EventType = "request_user_input"
	EventElicitationRequest        EventType = "elicitation_request"

	// Tool activity
	EventExecCommandBegin      EventType = "exec_command_begin"
	EventExecCommandEnd        EventType = "exec_command_end"
	EventExecCommandOutputDelta EventType = "exec_command_output_delta"
	EventPatchApplyBegin       EventType = "patch_apply_begin"
	EventPatchApplyEnd         EventType = "patch_apply_end"
	EventMcpToolCallBegin      EventType = "mcp_tool_call_begin"
	EventMcpToolCallEnd        EventType = "mcp_tool_call_end"

	// Metadata
	EventTokenCount       EventType = "token_count"
	EventContextCompacted EventType = "context_compacted"
	EventRateLimits       EventType = "rate_limits"

	// Review-mode / rollback / undo, persisted per §4.B
	EventReviewModeEnter EventType = "review_mode_enter"
	EventReviewModeExit  EventType = "review_mode_exit"
	EventUndoComplete    EventType = "undo_complete"

	// ItemCompleted, persisted only when the completed item is a Plan
	EventItemCompleted EventType = "item_completed"
)

// EventMsg is a single event emitted for a sub_id.
type EventMsg struct {
	Type  EventType `json:"type"`
	SubID string    `json:"sub_id"`

	// Populated depending on Type; kept as a flat struct (rather than an
	// interface union) so EventMsg stays trivially JSON round-trippable.
	Text           string          `json:"text,omitempty"`
	Item           *ResponseItem   `json:"item,omitempty"`
	CallID         string          `json:"call_id,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	LastAgentMsg   string          `json:"last_agent_message,omitempty"`
	TokenUsage     *TokenUsageInfo `json:"token_usage,omitempty"`
	RateLimits     *RateLimitSnapshot `json:"rate_limits,omitempty"`
	CompletedPlan  bool            `json:"completed_plan,omitempty"`
	NumTurnsKept   int             `json:"num_turns_kept,omitempty"`
}

// ShouldPersistEvent implements the §4.B event persistence predicate.
func ShouldPersistEvent(e EventMsg) bool {
	switch e.Type {
	case EventAgentMessageDelta, EventAgentReasoningDelta: // streaming deltas aren't persisted...
		return false
	case EventTokenCount, EventContextCompacted,
		EventReviewModeEnter, EventReviewModeExit,
		EventThreadRolledBack, EventUndoComplete, EventTurnAborted:
		return true
	case EventItemCompleted:
		return e.CompletedPlan
	default:
		return false
	}
}

// TokenUsageInfo summarizes cumulative token accounting for a thread.
type TokenUsageInfo struct {
	InputTokens       int64 `json:"input_tokens"`
	OutputTokens      int64 `json:"output_tokens"`
	CachedInputTokens int64 `json:"cached_input_tokens,omitempty"`
	TotalTokens       int64 `json:"total_tokens"`
	ContextWindow     int64 `json:"context_window,omitempty"`
}

// RateLimitSnapshot mirrors the X-Codex-* rate-limit headers (§4.H).
type RateLimitSnapshot struct {
	PrimaryUsedPercent   float64   `json:"primary_used_percent,omitempty"`
	PrimaryWindowMinutes int       `json:"primary_window_minutes,omitempty"`
	PrimaryResetAt       time.Time `json:"primary_reset_at,omitempty"`

	SecondaryUsedPercent   float64   `json:"secondary_used_percent,omitempty"`
	SecondaryWindowMinutes int       `json:"secondary_window_minutes,omitempty"`
	SecondaryResetAt       time.Time `json:"secondary_reset_at,omitempty"`
}

// Merge folds an incoming snapshot over the receiver: fields present in
// `in` take precedence (in-band over headers per §4.H), fields absent in
// `in` keep the prior value.
func (r RateLimitSnapshot) Merge(in RateLimitSnapshot) RateLimitSnapshot {
	out := r
	if in.PrimaryUsedPercent != 0 {
		out.PrimaryUsedPercent = in.PrimaryUsedPercent
	}
	if in.PrimaryWindowMinutes != 0 {
		out.PrimaryWindowMinutes = in.PrimaryWindowMinutes
	}
	if !in.PrimaryResetAt.IsZero() {
		out.PrimaryResetAt = in.PrimaryResetAt
	}
	if in.SecondaryUsedPercent != 0 {
		out.SecondaryUsedPercent = in.SecondaryUsedPercent
	}
	if in.SecondaryWindowMinutes != 0 {
		out.SecondaryWindowMinutes = in.SecondaryWindowMinutes
	}
	if !in.SecondaryResetAt.IsZero() {
		out.SecondaryResetAt = in.SecondaryResetAt
	}
	return out
}
