package toolsengine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

type fakeCollabSession struct {
	id          protocol.ThreadID
	sentInputs  []string
	waitResult  string
	waitErr     error
	closed      bool
	closeErr    error
}

func (s *fakeCollabSession) ThreadID() protocol.ThreadID { return s.id }

func (s *fakeCollabSession) SendInput(ctx context.Context, text string) error {
	s.sentInputs = append(s.sentInputs, text)
	return nil
}

func (s *fakeCollabSession) Wait(ctx context.Context) (string, error) {
	return s.waitResult, s.waitErr
}

func (s *fakeCollabSession) Close(ctx context.Context) error {
	s.closed = true
	return s.closeErr
}

type fakeCollabSpawner struct {
	session *fakeCollabSession
	err     error
}

func (f *fakeCollabSpawner) Spawn(ctx context.Context, parent protocol.TurnContext, name, task string, allowed, denied []string) (CollabSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

func invokeCollab(t *testing.T, h *CollabAgentHandler, args collabArgs) (Output, FunctionCallError) {
	t.Helper()
	payload, err := json.Marshal(args)
	require.NoError(t, err)
	return h.Invoke(context.Background(), Invocation{Payload: payload})
}

func TestCollabAgentHandler_SpawnSendWaitClose(t *testing.T) {
	session := &fakeCollabSession{id: protocol.ThreadID("child-1"), waitResult: "done"}
	h := NewCollabAgentHandler(&fakeCollabSpawner{session: session})

	spawnOut, err := invokeCollab(t, h, collabArgs{Action: collabSpawn, Name: "reviewer", Task: "review the diff"})
	require.Nil(t, err)
	require.True(t, spawnOut.Success)

	var spawned struct {
		AgentID string `json:"agent_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(spawnOut.Body), &spawned))
	require.Equal(t, "child-1", spawned.AgentID)

	sendOut, err := invokeCollab(t, h, collabArgs{Action: collabSendInput, AgentID: spawned.AgentID, Input: "go ahead"})
	require.Nil(t, err)
	require.True(t, sendOut.Success)
	require.Equal(t, []string{"go ahead"}, session.sentInputs)

	waitOut, err := invokeCollab(t, h, collabArgs{Action: collabWait, AgentID: spawned.AgentID})
	require.Nil(t, err)
	var waited struct {
		LastMessage string `json:"last_message"`
	}
	require.NoError(t, json.Unmarshal([]byte(waitOut.Body), &waited))
	require.Equal(t, "done", waited.LastMessage)

	closeOut, err := invokeCollab(t, h, collabArgs{Action: collabClose, AgentID: spawned.AgentID})
	require.Nil(t, err)
	require.True(t, closeOut.Success)
	require.True(t, session.closed)

	_, err = invokeCollab(t, h, collabArgs{Action: collabWait, AgentID: spawned.AgentID})
	_, ok := err.(RespondToModel)
	require.True(t, ok, "session should be forgotten after close")
}

func TestCollabAgentHandler_SpawnFailureRespondsToModel(t *testing.T) {
	h := NewCollabAgentHandler(&fakeCollabSpawner{err: errors.New("no capacity")})
	_, err := invokeCollab(t, h, collabArgs{Action: collabSpawn, Name: "x", Task: "y"})
	_, ok := err.(RespondToModel)
	require.True(t, ok)
}

func TestCollabAgentHandler_UnknownAgentIDRespondsToModel(t *testing.T) {
	h := NewCollabAgentHandler(&fakeCollabSpawner{})

	for _, action := range []collabAction{collabSendInput, collabWait, collabClose} {
		_, err := invokeCollab(t, h, collabArgs{Action: action, AgentID: "ghost"})
		_, ok := err.(RespondToModel)
		require.True(t, ok, "action %s should respond to model for unknown agent_id", action)
	}
}

func TestCollabAgentHandler_UnknownActionRespondsToModel(t *testing.T) {
	h := NewCollabAgentHandler(&fakeCollabSpawner{})
	_, err := invokeCollab(t, h, collabArgs{Action: "bogus"})
	_, ok := err.(RespondToModel)
	require.True(t, ok)
}
