package contextmgr

import (
	"context"
	"sync"

	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
)

// Manager is the ordered history of response items for one thread, plus its
// cumulative token-usage summary (§3 ContextManager). One Manager per
// Thread, guarded by its own mutex per §5's "one lock per Thread" model.
type Manager struct {
	mu     sync.RWMutex
	items  []protocol.ResponseItem
	usage  protocol.TokenUsageInfo
	policy TruncationPolicy

	prevTurnContext *protocol.TurnContext

	// Logger, if set, records truncation and compaction decisions. Nil
	// disables logging entirely.
	Logger *observability.Logger
}

// New creates an empty Manager using the given truncation policy.
func New(policy TruncationPolicy) *Manager {
	return &Manager{policy: policy}
}

func (m *Manager) logf(msg string, args ...any) {
	if m.Logger == nil {
		return
	}
	m.Logger.Debug(context.Background(), msg, args...)
}

// RecordItems appends items to history respecting the truncation policy.
func (m *Manager) RecordItems(items []protocol.ResponseItem) {
	if len(items) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = applyPolicy(m.items, items, m.policy)
}

// Replace swaps the entire history, used by compaction and rollback.
func (m *Manager) Replace(items []protocol.ResponseItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logf("contextmgr: history replaced", "prev_items", len(m.items), "new_items", len(items))
	m.items = append([]protocol.ResponseItem(nil), items...)
}

// TruncateByTurnCount drops the last n user->assistant turns, used by fork
// and rollback. A "turn" boundary is a user Message item; dropping n turns
// means cutting strictly before the nth-from-last user message.
func (m *Manager) TruncateByTurnCount(n int) int {
	if n <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	userIdxs := make([]int, 0)
	for i, item := range m.items {
		if item.Kind == protocol.ItemMessage && item.Role == protocol.RoleUser {
			userIdxs = append(userIdxs, i)
		}
	}
	if n > len(userIdxs) {
		n = len(userIdxs)
	}
	if n == 0 {
		return 0
	}
	cutAt := userIdxs[len(userIdxs)-n]
	dropped := len(m.items) - cutAt
	m.items = append([]protocol.ResponseItem(nil), m.items[:cutAt]...)
	m.logf("contextmgr: truncated history by turn count", "turns", n, "items_dropped", dropped)
	return dropped
}

// Items returns a defensive copy of the current history.
func (m *Manager) Items() []protocol.ResponseItem {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]protocol.ResponseItem(nil), m.items...)
}

// Len reports the number of items currently in history.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// UpdateTokenInfo monotonically increases the cumulative counters, taking
// whichever of the new/prior values is larger per field, and sets the
// context window from usage's window if given.
func (m *Manager) UpdateTokenInfo(usage protocol.TokenUsageInfo, contextWindow int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage.InputTokens = maxInt64(m.usage.InputTokens, usage.InputTokens)
	m.usage.OutputTokens = maxInt64(m.usage.OutputTokens, usage.OutputTokens)
	m.usage.CachedInputTokens = maxInt64(m.usage.CachedInputTokens, usage.CachedInputTokens)
	m.usage.TotalTokens = maxInt64(m.usage.TotalTokens, usage.TotalTokens)
	if contextWindow > 0 {
		m.usage.ContextWindow = contextWindow
	}
}

// SetTokenUsageFull is an idempotent cap used when a "context limit hit"
// event fires: it pins TotalTokens (and InputTokens, if unset) to window so
// downstream usage-percentage computations read 100% without needing an
// exact provider-reported count.
func (m *Manager) SetTokenUsageFull(window int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logf("contextmgr: context window marked full", "window", window)
	m.usage.ContextWindow = window
	m.usage.TotalTokens = window
	if m.usage.InputTokens == 0 {
		m.usage.InputTokens = window
	}
}

// TokenUsage returns a copy of the current cumulative usage summary.
func (m *Manager) TokenUsage() protocol.TokenUsageInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usage
}

// CloneHistory snapshots this Manager's history and usage into a new,
// independent Manager -- used when spawning a sub-agent so the child can
// mutate its own copy without affecting the parent's.
func (m *Manager) CloneHistory() *Manager {
	m.mu.RLock()
	defer m.mu.RUnlock()
	clone := &Manager{
		items:  append([]protocol.ResponseItem(nil), m.items...),
		usage:  m.usage,
		policy: m.policy,
	}
	if m.prevTurnContext != nil {
		tc := m.prevTurnContext.Clone()
		clone.prevTurnContext = &tc
	}
	return clone
}

// ApplyTurnContext diffs next against the previously applied TurnContext
// (nil on the first call), records any synthesized settings-update items,
// and remembers next for the following call.
func (m *Manager) ApplyTurnContext(next protocol.TurnContext) []protocol.ResponseItem {
	m.mu.Lock()
	prev := m.prevTurnContext
	cloned := next.Clone()
	m.prevTurnContext = &cloned
	m.mu.Unlock()

	updates := DiffTurnContext(prev, next)
	m.RecordItems(updates)
	return updates
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
