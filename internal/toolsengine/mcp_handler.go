package toolsengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codex-engine/codex/internal/mcp"
)

// MCPHandler dispatches calls for a single MCP tool to whichever server
// owns it, via the teacher's internal/mcp.Manager (§4.E KindMCP). Each
// discovered tool gets its own MCPHandler instance registered under the
// tool's own name -- Manager.FindTool resolves the owning server lazily at
// invoke time, so reconnects/rediscovery never require re-registration.
type MCPHandler struct {
	Manager *mcp.Manager
	name    string
}

// NewMCPHandler creates a handler for the MCP tool named name.
func NewMCPHandler(manager *mcp.Manager, name string) *MCPHandler {
	return &MCPHandler{Manager: manager, name: name}
}

func (h *MCPHandler) Name() string       { return h.name }
func (h *MCPHandler) Kind() ToolKind     { return KindMCP }
func (h *MCPHandler) ParallelSafe() bool { return true }

func (h *MCPHandler) MatchesKind(payload json.RawMessage) bool { return true }

func (h *MCPHandler) Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError) {
	serverID, tool := h.Manager.FindTool(h.name)
	if tool == nil {
		return Output{}, RespondToModel(fmt.Sprintf("mcp tool not found: %s", h.name))
	}

	var args map[string]any
	if len(inv.Payload) > 0 {
		if err := json.Unmarshal(inv.Payload, &args); err != nil {
			return Output{}, RespondToModel(fmt.Sprintf("invalid arguments for %s: %v", h.name, err))
		}
	}

	result, err := h.Manager.CallTool(ctx, serverID, h.name, args)
	if err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("mcp call %s failed: %v", h.name, err))
	}

	body, err := json.Marshal(result.Content)
	if err != nil {
		return Output{}, Fatal("failed to encode mcp result: " + err.Error())
	}
	return Output{Body: string(body), Success: !result.IsError}, nil
}

// RegisterDiscoveredMCPTools registers one MCPHandler per tool the manager
// currently knows about, so a fresh Connect/rediscovery is picked up by a
// re-call of this function rather than requiring bespoke per-server wiring.
func RegisterDiscoveredMCPTools(registry *Registry, manager *mcp.Manager) {
	for _, tools := range manager.AllTools() {
		for _, tool := range tools {
			registry.Register(NewMCPHandler(manager, tool.Name))
		}
	}
}
