package protocol

import "context"

// ModelSession is the narrow interface the engine needs from a Model
// Client Session (§4.H); the concrete streaming client lives in
// internal/modelclient and implements this.
type ModelSession interface {
	// StartTurn opens a streaming connection for one model turn.
	StartTurn(ctx context.Context, req TurnRequest) (EventStream, error)
	Provider() string
}

// TurnRequest is what the Turn Scheduler hands to the Model Client Session.
type TurnRequest struct {
	Model        ModelInfo
	Instructions string
	Items        []ResponseItem
	Tools        []ToolSpec
}

// ToolSpec is the wire-level tool declaration sent to the model.
type ToolSpec struct {
	Name        string
	Description string
	Schema      []byte // JSON Schema
}

// EventStream is the consumer-facing handle over a streamed model turn;
// concretely backed by the Stream Parser's aggregation adapter.
type EventStream interface {
	Next(ctx context.Context) (ParserEvent, bool, error)
}

// TurnContext is the immutable per-turn configuration snapshot (§3).
type TurnContext struct {
	Model                  ModelInfo
	Cwd                    string
	SandboxPolicy          SandboxPolicy
	ApprovalPolicy         ApprovalPolicy
	CollaborationMode      CollaborationMode
	Personality            string
	DeveloperInstructions  string
	BaseInstructions       string
	CompactPrompt          string
	UserInstructions       string
	ShellEnvironmentPolicy ShellEnvironmentPolicy
	Client                 ModelSession
	SubID                  string
}

// ShellEnvironmentPolicy controls which environment variables a spawned
// shell process inherits.
type ShellEnvironmentPolicy struct {
	InheritAll bool
	Allow      []string
	Deny       []string
}

// Clone returns a shallow copy; TurnContext is treated as immutable so a
// shallow copy is always safe to hand to a new turn.
func (c TurnContext) Clone() TurnContext {
	clone := c
	clone.ShellEnvironmentPolicy.Allow = append([]string(nil), c.ShellEnvironmentPolicy.Allow...)
	clone.ShellEnvironmentPolicy.Deny = append([]string(nil), c.ShellEnvironmentPolicy.Deny...)
	return clone
}
