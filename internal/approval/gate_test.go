package approval

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

func TestGate_AllowProceedsDirectly(t *testing.T) {
	policy := NewExecPolicy([]PrefixRule{
		{Pattern: []Token{{Literal: "ls"}}, Decision: DecisionAllow},
	})
	gate := NewGate(policy, NewMemoryStore())
	decision, event, err := gate.EvaluateExec(context.Background(), "call-1", []string{"ls"})
	require.NoError(t, err)
	require.Equal(t, DecisionAllow, decision)
	require.Equal(t, protocol.EventMsg{}, event)
}

func TestGate_ForbiddenReturnsError(t *testing.T) {
	policy := NewExecPolicy([]PrefixRule{
		{Pattern: []Token{{Literal: "rm"}}, Decision: DecisionForbidden, Justification: "destructive"},
	})
	gate := NewGate(policy, NewMemoryStore())
	_, _, err := gate.EvaluateExec(context.Background(), "call-2", []string{"rm", "-rf", "/"})
	require.Error(t, err)
}

func TestGate_PromptRaisesApprovalRequest(t *testing.T) {
	store := NewMemoryStore()
	gate := NewGate(NewExecPolicy(nil), store)
	decision, event, err := gate.EvaluateExec(context.Background(), "call-3", []string{"curl", "evil.example"})
	require.NoError(t, err)
	require.Equal(t, DecisionPrompt, decision)
	require.Equal(t, protocol.EventExecApprovalRequest, event.Type)
	require.Equal(t, "call-3", event.CallID)

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
}

func TestGate_ResolveWithAmendmentUpdatesPolicy(t *testing.T) {
	store := NewMemoryStore()
	policy := NewExecPolicy(nil)
	gate := NewGate(policy, store)

	_, _, err := gate.EvaluateExec(context.Background(), "call-4", []string{"curl", "example.com"})
	require.NoError(t, err)

	err = gate.Resolve(context.Background(), "call-4-approval", DecisionAllow, &ExecPolicyAmendment{Command: []string{"curl", "example.com"}})
	require.NoError(t, err)

	decision, _, err := gate.EvaluateExec(context.Background(), "call-5", []string{"curl", "example.com"})
	require.NoError(t, err)
	require.Equal(t, DecisionAllow, decision)
}

func TestGate_RaiseNetworkApproval(t *testing.T) {
	gate := NewGate(NewExecPolicy(nil), NewMemoryStore())
	event, err := gate.RaiseNetworkApproval(context.Background(), "call-6", NetworkApprovalContext{Host: "evil.example", Protocol: ProtocolHTTPS})
	require.NoError(t, err)
	require.Equal(t, protocol.EventExecApprovalRequest, event.Type)
	require.Contains(t, event.Reason, "evil.example")
}
