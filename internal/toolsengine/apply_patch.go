package toolsengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codex-engine/codex/internal/protocol"
	"github.com/codex-engine/codex/internal/tools/files"
)

// ApplyPatchHandler computes and applies a unified-diff patch set
// atomically, wrapping the shared files.ApplyPatchTool (§4.E "ApplyPatch").
// Approval is enforced upstream by the Approval & Sandbox Gate before
// Invoke is ever called.
type ApplyPatchHandler struct {
	tool   *files.ApplyPatchTool
	Events chan<- protocol.EventMsg
}

// NewApplyPatchHandler wraps a files.ApplyPatchTool scoped to workspace.
func NewApplyPatchHandler(cfg files.Config, events chan<- protocol.EventMsg) *ApplyPatchHandler {
	return &ApplyPatchHandler{tool: files.NewApplyPatchTool(cfg), Events: events}
}

func (h *ApplyPatchHandler) Name() string       { return "apply_patch" }
func (h *ApplyPatchHandler) Kind() ToolKind     { return KindFunction }
func (h *ApplyPatchHandler) ParallelSafe() bool { return false }

func (h *ApplyPatchHandler) MatchesKind(payload json.RawMessage) bool {
	var probe struct {
		Patch string `json:"patch"`
	}
	return json.Unmarshal(payload, &probe) == nil && probe.Patch != ""
}

func (h *ApplyPatchHandler) Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError) {
	if h.Events != nil {
		h.Events <- protocol.EventMsg{Type: protocol.EventPatchApplyBegin, CallID: inv.CallID}
	}

	result, err := h.tool.Execute(ctx, inv.Payload)
	if h.Events != nil {
		h.Events <- protocol.EventMsg{Type: protocol.EventPatchApplyEnd, CallID: inv.CallID}
	}
	if err != nil {
		return Output{}, Fatal(fmt.Sprintf("apply_patch: %v", err))
	}
	if result.IsError {
		return Output{}, RespondToModel(result.Content)
	}
	return Output{Body: result.Content, Success: true}, nil
}
