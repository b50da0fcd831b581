package appserver

import (
	"time"

	"github.com/codex-engine/codex/internal/protocol"
	"github.com/codex-engine/codex/internal/rollout"
)

// InitializeParams carries the collaborator's handshake info.
type InitializeParams struct {
	ClientName      string   `json:"clientName"`
	ClientVersion   string   `json:"clientVersion"`
	Capabilities    []string `json:"capabilities,omitempty"`
	ExperimentalAPI bool     `json:"experimentalApi,omitempty"`
}

// InitializeResult describes the engine back to the collaborator.
type InitializeResult struct {
	ServerName      string   `json:"serverName"`
	ServerVersion   string   `json:"serverVersion"`
	Capabilities    []string `json:"capabilities,omitempty"`
	ExperimentalAPI bool     `json:"experimentalApi"`
}

// NewConversationParams starts a thread. Named newConversation/thread/start
// interchangeably in the method surface (§6); both names route to the same
// facet method.
type NewConversationParams struct {
	Cwd              string         `json:"cwd"`
	ModelProvider    string         `json:"modelProvider,omitempty"`
	BaseInstructions string         `json:"baseInstructions,omitempty"`
	Name             string         `json:"name,omitempty"`
	Source           protocol.Source `json:"source,omitempty"`
}

// NewConversationResult is the newly created thread's identity.
type NewConversationResult struct {
	ThreadID  protocol.ThreadID `json:"threadId"`
	CreatedAt time.Time         `json:"createdAt"`
}

// SendUserMessageParams starts or continues a turn with user input.
// Named sendUserMessage/turn/start interchangeably.
type SendUserMessageParams struct {
	ThreadID protocol.ThreadID        `json:"threadId"`
	Items    []protocol.ResponseItem `json:"items"`
}

// SendUserMessageResult is the turn the engine began running.
type SendUserMessageResult struct {
	TurnID string `json:"turnId"`
}

// AddConversationListenerParams subscribes the caller to a thread's
// codex/event/* notifications.
type AddConversationListenerParams struct {
	ThreadID protocol.ThreadID `json:"threadId"`
}

// AddConversationListenerResult acknowledges a subscription.
type AddConversationListenerResult struct {
	SubscriptionID string `json:"subscriptionId"`
}

// ArchiveConversationParams identifies the thread to archive. Named
// archiveConversation/thread/archive interchangeably.
type ArchiveConversationParams struct {
	ThreadID protocol.ThreadID `json:"threadId"`
}

// ArchiveConversationResult is empty; success is the absence of an error.
type ArchiveConversationResult struct{}

// ForkConversationParams branches a thread at the nth-from-last user
// message. Named forkConversation/thread/fork interchangeably.
type ForkConversationParams struct {
	ThreadID protocol.ThreadID `json:"threadId"`
	N        int              `json:"n"`
	KeepName bool             `json:"keepName,omitempty"`
}

// ForkConversationResult is the new thread's identity.
type ForkConversationResult struct {
	ThreadID protocol.ThreadID `json:"threadId"`
}

// ThreadReadParams requests one thread's full persisted history.
type ThreadReadParams struct {
	ThreadID protocol.ThreadID `json:"threadId"`
}

// ThreadReadResult is a thread's metadata plus its replayed items.
type ThreadReadResult struct {
	Thread protocol.Thread          `json:"thread"`
	Items  []protocol.ResponseItem `json:"items"`
}

// ThreadRollbackParams truncates a thread's history to the last numTurns
// user-assistant turns.
type ThreadRollbackParams struct {
	ThreadID protocol.ThreadID `json:"threadId"`
	NumTurns int              `json:"numTurns"`
}

// ThreadRollbackResult reports how many turns remain after rollback.
type ThreadRollbackResult struct {
	NumTurnsKept int `json:"numTurnsKept"`
}

// ThreadResumeParams reopens a thread from its rollout path.
type ThreadResumeParams struct {
	RolloutPath string `json:"rolloutPath"`
}

// ThreadResumeResult mirrors ThreadReadResult for the reopened thread.
type ThreadResumeResult struct {
	Thread protocol.Thread          `json:"thread"`
	Items  []protocol.ResponseItem `json:"items"`
}

// TurnSteerParams redirects the currently active turn. ExpectedTurnID must
// match the thread's current active turn id or the call fails (§6).
type TurnSteerParams struct {
	ThreadID       protocol.ThreadID        `json:"threadId"`
	ExpectedTurnID string                   `json:"expectedTurnId"`
	Items          []protocol.ResponseItem `json:"items"`
}

// TurnSteerResult is the turn id the steer call was applied to.
type TurnSteerResult struct {
	TurnID string `json:"turnId"`
}

// ListModelsParams paginates the model catalog. Named listModels/model/list
// interchangeably.
type ListModelsParams struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ListModelsResult is one page of the model catalog.
type ListModelsResult struct {
	Models     []protocol.ModelInfo `json:"models"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

// ListThreadsParams paginates discovered threads, most recent first. Not
// named in §6's method list directly, but rollout.ListByRecency is the
// underlying discovery primitive every app-server thread picker needs;
// exposed here as a facet method rather than left for a collaborator to
// reinvent against internal/rollout directly.
type ListThreadsParams struct {
	Cursor string `json:"cursor,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// ListThreadsResult is one page of thread summaries.
type ListThreadsResult struct {
	Threads    []rollout.Summary `json:"threads"`
	NextCursor string            `json:"nextCursor,omitempty"`
}
