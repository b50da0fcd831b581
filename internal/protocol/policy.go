package protocol

// SandboxPolicy is one of the three sandbox axes (§4.D).
type SandboxPolicy struct {
	Kind SandboxKind

	// WorkspaceWrite fields, only meaningful when Kind == SandboxWorkspaceWrite.
	WritableRoots        []string
	NetworkAccess        bool
	ExcludeTmpdirEnvVar  bool
	ExcludeSlashTmp      bool
	ReadOnlyAccess       []string
}

// SandboxKind enumerates the sandbox axis values.
type SandboxKind string

const (
	SandboxReadOnly        SandboxKind = "read_only"
	SandboxWorkspaceWrite  SandboxKind = "workspace_write"
	SandboxDangerFullAccess SandboxKind = "danger_full_access"
)

// ApprovalPolicy is the other orthogonal axis (§4.D).
type ApprovalPolicy string

const (
	ApprovalNever          ApprovalPolicy = "never"
	ApprovalOnRequest      ApprovalPolicy = "on_request"
	ApprovalUnlessTrusted  ApprovalPolicy = "unless_trusted"
	ApprovalAskForApproval ApprovalPolicy = "ask_for_approval"
)

// CollaborationMode gates which tools the model may see.
type CollaborationMode string

const (
	ModePlan           CollaborationMode = "plan"
	ModePairProgramming CollaborationMode = "pair_programming"
	ModeExecute        CollaborationMode = "execute"
	ModeCustom         CollaborationMode = "custom"
)

// ModelInfo names the model in use for a turn.
type ModelInfo struct {
	Slug        string
	Provider    string
	Personality string
}
