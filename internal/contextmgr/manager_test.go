package contextmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

func TestRecordItems_DedupesConsecutive(t *testing.T) {
	m := New(TruncationPolicy{DedupeConsecutive: true})
	m.RecordItems([]protocol.ResponseItem{
		protocol.TextOnlyMessage(protocol.RoleUser, "hi"),
		protocol.TextOnlyMessage(protocol.RoleUser, "hi"),
	})
	require.Len(t, m.Items(), 1)
}

func TestRecordItems_CapsMaxItems(t *testing.T) {
	m := New(TruncationPolicy{MaxItems: 3})
	for i := 0; i < 5; i++ {
		m.RecordItems([]protocol.ResponseItem{protocol.TextOnlyMessage(protocol.RoleUser, "x")})
	}
	require.Len(t, m.Items(), 3)
}

func TestRecordItems_DropsStaleReasoning(t *testing.T) {
	m := New(TruncationPolicy{KeepReasoningTurns: 1})
	m.RecordItems([]protocol.ResponseItem{
		{Kind: protocol.ItemReasoning, ReasoningID: "r1"},
		protocol.TextOnlyMessage(protocol.RoleAssistant, "turn 1"),
		{Kind: protocol.ItemReasoning, ReasoningID: "r2"},
		protocol.TextOnlyMessage(protocol.RoleAssistant, "turn 2"),
	})
	items := m.Items()
	reasoningCount := 0
	for _, it := range items {
		if it.Kind == protocol.ItemReasoning {
			reasoningCount++
		}
	}
	require.Equal(t, 1, reasoningCount, "only the reasoning item within the last kept turn should survive")
}

func TestReplace_OverwritesHistory(t *testing.T) {
	m := New(DefaultTruncationPolicy())
	m.RecordItems([]protocol.ResponseItem{protocol.TextOnlyMessage(protocol.RoleUser, "old")})
	m.Replace([]protocol.ResponseItem{protocol.TextOnlyMessage(protocol.RoleUser, "new")})
	require.Len(t, m.Items(), 1)
	require.Equal(t, "new", m.Items()[0].Text())
}

func TestTruncateByTurnCount(t *testing.T) {
	m := New(DefaultTruncationPolicy())
	m.RecordItems([]protocol.ResponseItem{
		protocol.TextOnlyMessage(protocol.RoleUser, "u1"),
		protocol.TextOnlyMessage(protocol.RoleAssistant, "a1"),
		protocol.TextOnlyMessage(protocol.RoleUser, "u2"),
		protocol.TextOnlyMessage(protocol.RoleAssistant, "a2"),
	})
	dropped := m.TruncateByTurnCount(1)
	require.Equal(t, 2, dropped)
	items := m.Items()
	require.Len(t, items, 2)
	require.Equal(t, "u1", items[0].Text())
}

func TestUpdateTokenInfo_Monotonic(t *testing.T) {
	m := New(DefaultTruncationPolicy())
	m.UpdateTokenInfo(protocol.TokenUsageInfo{InputTokens: 100, TotalTokens: 100}, 8000)
	m.UpdateTokenInfo(protocol.TokenUsageInfo{InputTokens: 50, TotalTokens: 50}, 8000)
	require.Equal(t, int64(100), m.TokenUsage().InputTokens, "lower usage must not regress the cumulative counter")

	m.UpdateTokenInfo(protocol.TokenUsageInfo{InputTokens: 200, TotalTokens: 200}, 8000)
	require.Equal(t, int64(200), m.TokenUsage().InputTokens)
}

func TestSetTokenUsageFull_Idempotent(t *testing.T) {
	m := New(DefaultTruncationPolicy())
	m.SetTokenUsageFull(8000)
	m.SetTokenUsageFull(8000)
	usage := m.TokenUsage()
	require.Equal(t, int64(8000), usage.TotalTokens)
	require.Equal(t, int64(8000), usage.ContextWindow)
}

func TestCloneHistory_IsIndependent(t *testing.T) {
	m := New(DefaultTruncationPolicy())
	m.RecordItems([]protocol.ResponseItem{protocol.TextOnlyMessage(protocol.RoleUser, "hello")})

	clone := m.CloneHistory()
	clone.RecordItems([]protocol.ResponseItem{protocol.TextOnlyMessage(protocol.RoleUser, "only on clone")})

	require.Len(t, m.Items(), 1)
	require.Len(t, clone.Items(), 2)
}

func TestApplyTurnContext_FirstCallEmitsNothing(t *testing.T) {
	m := New(DefaultTruncationPolicy())
	updates := m.ApplyTurnContext(protocol.TurnContext{Cwd: "/work"})
	require.Empty(t, updates)
}

func TestApplyTurnContext_DetectsCwdChange(t *testing.T) {
	m := New(DefaultTruncationPolicy())
	m.ApplyTurnContext(protocol.TurnContext{Cwd: "/work"})
	updates := m.ApplyTurnContext(protocol.TurnContext{Cwd: "/other"})
	require.Len(t, updates, 1)
	tag, _, ok := DetectFragment(updates[0])
	require.True(t, ok)
	require.Equal(t, FragmentEnvironmentContext, tag)
}
