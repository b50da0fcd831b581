package protocol

import (
	"encoding/json"
	"time"
)

// RolloutLineType discriminates RolloutLine.Payload.
type RolloutLineType string

const (
	LineSessionMeta  RolloutLineType = "session_meta"
	LineResponseItem RolloutLineType = "response_item"
	LineEventMsg     RolloutLineType = "event_msg"
	LineCompacted    RolloutLineType = "compacted"
	LineTurnContext  RolloutLineType = "turn_context"
)

// RolloutLine is one timestamped JSONL record. Invariants (§3): lines are
// appended strictly in recording order; the first line of a non-empty
// rollout must be session_meta; timestamps are monotonic within a file.
type RolloutLine struct {
	Timestamp time.Time       `json:"timestamp"`
	Type      RolloutLineType `json:"type"`
	Payload   json.RawMessage `json:"payload"`
}

// SessionMetaPayload is the payload of the first line of a rollout.
type SessionMetaPayload struct {
	ID               ThreadID  `json:"id"`
	Timestamp        time.Time `json:"timestamp"`
	Cwd              string    `json:"cwd"`
	Originator       string    `json:"originator"`
	CLIVersion       string    `json:"cli_version"`
	Source           Source    `json:"source"`
	ModelProvider    string    `json:"model_provider,omitempty"`
	BaseInstructions string    `json:"base_instructions,omitempty"`
	Git              *GitInfo  `json:"git,omitempty"`
}

// GitInfo is the optional git context embedded in session_meta.
type GitInfo struct {
	Commit string `json:"commit,omitempty"`
	Branch string `json:"branch,omitempty"`
	Repo   string `json:"repo_url,omitempty"`
}

// CompactedPayload records a context-compaction event for replay.
type CompactedPayload struct {
	Summary        string `json:"summary"`
	ItemsCompacted int    `json:"items_compacted"`
}
