// Package protocol defines the shared domain vocabulary exchanged between
// the agent execution engine's components: thread identity, the rollout
// wire format, response items, and the event taxonomy emitted to a UI
// collaborator.
package protocol

import (
	"time"

	"github.com/google/uuid"
)

// ThreadID uniquely identifies a Thread. Created on new/fork, never reused.
type ThreadID string

// NewThreadID mints a fresh, globally unique thread identifier.
func NewThreadID() ThreadID {
	return ThreadID(uuid.NewString())
}

func (id ThreadID) String() string { return string(id) }

// Source identifies what created a Thread.
type Source string

const (
	SourceCLI        Source = "cli"
	SourceAppServer  Source = "app-server"
	SourceExec       Source = "exec"
	SourceSubAgent   Source = "sub-agent"
	SourceVsCode     Source = "vscode"
	SourceUnknown    Source = "unknown"
)

// SubAgentVariant refines SourceSubAgent threads.
type SubAgentVariant string

const (
	SubAgentReview       SubAgentVariant = "review"
	SubAgentCompact      SubAgentVariant = "compact"
	SubAgentThreadSpawn  SubAgentVariant = "thread-spawn"
	SubAgentOther        SubAgentVariant = "other"
)

// Thread is the durable conversation record. It is created by the Thread
// Manager and mutated only by appending rollout lines and by rollback.
type Thread struct {
	ThreadID       ThreadID
	ParentThreadID ThreadID // empty when the thread has no parent
	Source         Source
	SubAgentKind   SubAgentVariant // only meaningful when Source == SourceSubAgent
	Cwd            string
	CLIVersion     string
	ModelProvider  string
	BaseInstructions string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Name           string
	RolloutPath    string // empty until the rollout is materialized
}

// Clone returns a deep-enough copy safe for a caller to mutate without
// affecting the Thread Manager's internal state.
func (t *Thread) Clone() *Thread {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// IsMaterialized reports whether the thread's rollout file has been created
// on disk (i.e. at least one line has been persisted).
func (t *Thread) IsMaterialized() bool {
	return t != nil && t.RolloutPath != ""
}
