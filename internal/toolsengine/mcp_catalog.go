package toolsengine

import (
	"sync"

	"github.com/codex-engine/codex/internal/mcp"
)

// MCPCatalog adapts internal/mcp.Manager's discovered tools to the
// ToolCatalog interface SearchToolBm25Handler scores against, and tracks
// which tool names the model has most recently selected via search_tools.
type MCPCatalog struct {
	Manager *mcp.Manager

	mu       sync.RWMutex
	selected map[string]bool
}

// NewMCPCatalog creates a catalog backed by manager.
func NewMCPCatalog(manager *mcp.Manager) *MCPCatalog {
	return &MCPCatalog{Manager: manager, selected: make(map[string]bool)}
}

// Discovered returns every currently connected MCP tool as a scoreable doc.
func (c *MCPCatalog) Discovered() []toolDoc {
	all := c.Manager.AllTools()
	docs := make([]toolDoc, 0, len(all))
	for _, tools := range all {
		for _, tool := range tools {
			docs = append(docs, toolDoc{Name: tool.Name, Text: tool.Name + " " + tool.Description})
		}
	}
	return docs
}

// Select replaces the active tool selection with names.
func (c *MCPCatalog) Select(names []string) {
	selected := make(map[string]bool, len(names))
	for _, n := range names {
		selected[n] = true
	}
	c.mu.Lock()
	c.selected = selected
	c.mu.Unlock()
}

// Selected reports whether name is in the most recent search_tools result.
func (c *MCPCatalog) Selected(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected[name]
}
