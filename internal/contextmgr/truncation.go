package contextmgr

import (
	"github.com/codex-engine/codex/internal/protocol"
)

// charsPerToken mirrors the teacher's compaction.CharsPerToken estimation
// ratio, reused here for the reasoning-retention threshold.
const charsPerToken = 4

// TruncationPolicy controls how record_items folds new items into history.
type TruncationPolicy struct {
	// MaxItems caps the history length; the oldest items beyond the cap are
	// dropped first (reasoning items are dropped before message items).
	MaxItems int

	// KeepReasoningTurns bounds how many trailing turns may still carry a
	// Reasoning item; older Reasoning items are dropped on append since most
	// providers don't accept stale reasoning back in context.
	KeepReasoningTurns int

	// DedupeConsecutive drops an incoming item that is a byte-for-byte
	// duplicate of the current last item (same Kind, Role, Text).
	DedupeConsecutive bool
}

// DefaultTruncationPolicy matches the defaults the teacher's context packer
// applies (internal/agent/context.DefaultPackOptions), adapted from a
// char/message budget to an item-count-and-reasoning-age budget.
func DefaultTruncationPolicy() TruncationPolicy {
	return TruncationPolicy{
		MaxItems:           500,
		KeepReasoningTurns: 3,
		DedupeConsecutive:  true,
	}
}

func isDuplicate(a, b protocol.ResponseItem) bool {
	return a.Kind == b.Kind && a.Role == b.Role && a.Text() == b.Text()
}

// applyPolicy appends incoming onto items under policy, returning the
// resulting slice. It never mutates items in place.
func applyPolicy(items []protocol.ResponseItem, incoming []protocol.ResponseItem, policy TruncationPolicy) []protocol.ResponseItem {
	out := append([]protocol.ResponseItem(nil), items...)
	for _, item := range incoming {
		if policy.DedupeConsecutive && len(out) > 0 && isDuplicate(out[len(out)-1], item) {
			continue
		}
		out = append(out, item)
	}
	out = dropStaleReasoning(out, policy.KeepReasoningTurns)
	out = capItems(out, policy.MaxItems)
	return out
}

// dropStaleReasoning removes Reasoning items that precede the last
// keepTurns Message items, per the "keep/drop reasoning beyond a threshold"
// rule (§4.C record_items).
func dropStaleReasoning(items []protocol.ResponseItem, keepTurns int) []protocol.ResponseItem {
	if keepTurns <= 0 {
		return items
	}
	messageCount := 0
	cutoff := -1
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Kind == protocol.ItemMessage {
			messageCount++
			if messageCount > keepTurns {
				cutoff = i
				break
			}
		}
	}
	if cutoff < 0 {
		return items
	}
	out := make([]protocol.ResponseItem, 0, len(items))
	for i, item := range items {
		if i <= cutoff && item.Kind == protocol.ItemReasoning {
			continue
		}
		out = append(out, item)
	}
	return out
}

// capItems enforces the max-items budget, dropping the oldest items first.
func capItems(items []protocol.ResponseItem, maxItems int) []protocol.ResponseItem {
	if maxItems <= 0 || len(items) <= maxItems {
		return items
	}
	return items[len(items)-maxItems:]
}
