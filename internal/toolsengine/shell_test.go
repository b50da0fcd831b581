package toolsengine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/approval"
	"github.com/codex-engine/codex/internal/protocol"
	execmgr "github.com/codex-engine/codex/internal/tools/exec"
)

func TestShellHandler_RunsCommandAndEmitsFraming(t *testing.T) {
	events := make(chan protocol.EventMsg, 8)
	h := NewShellHandler(execmgr.NewManager(t.TempDir()), events)

	payload, _ := json.Marshal(shellArgs{Command: "echo hello"})
	output, err := h.Invoke(context.Background(), Invocation{CallID: "c1", Payload: payload})
	require.Nil(t, err)
	require.True(t, output.Success)
	require.Contains(t, output.Body, "hello")

	close(events)
	var types []protocol.EventType
	for e := range events {
		types = append(types, e.Type)
	}
	require.Equal(t, []protocol.EventType{protocol.EventExecCommandBegin, protocol.EventExecCommandEnd}, types)
}

func TestShellHandler_MatchesKind(t *testing.T) {
	h := NewShellHandler(execmgr.NewManager(t.TempDir()), nil)
	require.True(t, h.MatchesKind(json.RawMessage(`{"command":"ls"}`)))
	require.False(t, h.MatchesKind(json.RawMessage(`{"patch":"x"}`)))
}

func TestShellHandler_GateForbidsCommand(t *testing.T) {
	policy := approval.NewExecPolicy([]approval.PrefixRule{
		{Pattern: []approval.Token{{Literal: "rm"}}, Decision: approval.DecisionForbidden, Justification: "destructive"},
	})
	h := NewShellHandler(execmgr.NewManager(t.TempDir()), nil)
	h.Gate = approval.NewGate(policy, approval.NewMemoryStore())

	payload, _ := json.Marshal(shellArgs{Command: "rm -rf /tmp/x"})
	_, err := h.Invoke(context.Background(), Invocation{CallID: "c2", Payload: payload})
	require.NotNil(t, err)
}

func TestShellHandler_GatePromptsOnChainedCommand(t *testing.T) {
	policy := approval.NewExecPolicy([]approval.PrefixRule{
		{Pattern: []approval.Token{{Literal: "echo"}}, Decision: approval.DecisionAllow},
	})
	events := make(chan protocol.EventMsg, 8)
	h := NewShellHandler(execmgr.NewManager(t.TempDir()), events)
	h.Gate = approval.NewGate(policy, approval.NewMemoryStore())

	payload, _ := json.Marshal(shellArgs{Command: "echo hi && rm -rf /"})
	_, err := h.Invoke(context.Background(), Invocation{CallID: "c3", Payload: payload})
	require.NotNil(t, err)

	close(events)
	event := <-events
	require.Equal(t, protocol.EventExecApprovalRequest, event.Type)
}
