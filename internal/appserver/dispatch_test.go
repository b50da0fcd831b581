package appserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

type fakeFacet struct {
	lastForkParams ForkConversationParams
}

func (f *fakeFacet) Initialize(ctx context.Context, params InitializeParams) (InitializeResult, error) {
	return InitializeResult{ServerName: "codex", ServerVersion: "test", ExperimentalAPI: params.ExperimentalAPI}, nil
}

func (f *fakeFacet) NewConversation(ctx context.Context, params NewConversationParams) (NewConversationResult, error) {
	return NewConversationResult{ThreadID: protocol.ThreadID("thread-1")}, nil
}

func (f *fakeFacet) SendUserMessage(ctx context.Context, params SendUserMessageParams) (SendUserMessageResult, error) {
	return SendUserMessageResult{TurnID: "turn-1"}, nil
}

func (f *fakeFacet) AddConversationListener(ctx context.Context, params AddConversationListenerParams) (AddConversationListenerResult, error) {
	return AddConversationListenerResult{SubscriptionID: "sub-1"}, nil
}

func (f *fakeFacet) ArchiveConversation(ctx context.Context, params ArchiveConversationParams) (ArchiveConversationResult, error) {
	return ArchiveConversationResult{}, nil
}

func (f *fakeFacet) ForkConversation(ctx context.Context, params ForkConversationParams) (ForkConversationResult, error) {
	f.lastForkParams = params
	return ForkConversationResult{ThreadID: protocol.ThreadID("fork-1")}, nil
}

func (f *fakeFacet) ThreadRead(ctx context.Context, params ThreadReadParams) (ThreadReadResult, error) {
	return ThreadReadResult{Thread: protocol.Thread{ThreadID: params.ThreadID}}, nil
}

func (f *fakeFacet) ThreadRollback(ctx context.Context, params ThreadRollbackParams) (ThreadRollbackResult, error) {
	return ThreadRollbackResult{NumTurnsKept: params.NumTurns}, nil
}

func (f *fakeFacet) ThreadResume(ctx context.Context, params ThreadResumeParams) (ThreadResumeResult, error) {
	return ThreadResumeResult{}, nil
}

func (f *fakeFacet) TurnSteer(ctx context.Context, params TurnSteerParams) (TurnSteerResult, error) {
	return TurnSteerResult{TurnID: params.ExpectedTurnID}, nil
}

func (f *fakeFacet) ListModels(ctx context.Context, params ListModelsParams) (ListModelsResult, error) {
	return ListModelsResult{Models: []protocol.ModelInfo{{Slug: "gpt-5"}}}, nil
}

func (f *fakeFacet) ListThreads(ctx context.Context, params ListThreadsParams) (ListThreadsResult, error) {
	return ListThreadsResult{}, nil
}

func TestDispatcher_RoutesDualNamedMethods(t *testing.T) {
	d := NewDispatcher(&fakeFacet{})

	for _, method := range []string{"forkConversation", "thread/fork"} {
		params, err := json.Marshal(ForkConversationParams{ThreadID: "t1", N: 2, KeepName: true})
		require.NoError(t, err)
		resp := d.Dispatch(context.Background(), JSONRPCRequest{JSONRPC: "2.0", ID: 7, Method: method, Params: params})
		require.Nil(t, resp.Error)
		require.EqualValues(t, 7, resp.ID)

		var result ForkConversationResult
		require.NoError(t, json.Unmarshal(resp.Result, &result))
		require.Equal(t, protocol.ThreadID("fork-1"), result.ThreadID)
	}
}

func TestDispatcher_UnknownMethodIsInvalidRequest(t *testing.T) {
	d := NewDispatcher(&fakeFacet{})
	resp := d.Dispatch(context.Background(), JSONRPCRequest{JSONRPC: "2.0", ID: 1, Method: "bogus/method"})
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrCodeInvalidRequest, resp.Error.Code)
}

func TestDispatcher_MalformedParamsIsInvalidParams(t *testing.T) {
	d := NewDispatcher(&fakeFacet{})
	resp := d.Dispatch(context.Background(), JSONRPCRequest{
		JSONRPC: "2.0", ID: 2, Method: "thread/rollback", Params: json.RawMessage(`{"numTurns": "not-a-number"}`),
	})
	require.NotNil(t, resp.Error)
	require.Equal(t, ErrCodeInvalidParams, resp.Error.Code)
}

func TestDispatcher_TurnSteerRoundTrip(t *testing.T) {
	d := NewDispatcher(&fakeFacet{})
	params, err := json.Marshal(TurnSteerParams{ThreadID: "t1", ExpectedTurnID: "turn-9"})
	require.NoError(t, err)
	resp := d.Dispatch(context.Background(), JSONRPCRequest{JSONRPC: "2.0", ID: 3, Method: "turn/steer", Params: params})
	require.Nil(t, resp.Error)

	var result TurnSteerResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Equal(t, "turn-9", result.TurnID)
}

func TestNewEventNotification_EncodesMethodFromEventType(t *testing.T) {
	note, err := NewEventNotification("t1", protocol.EventMsg{Type: protocol.EventTurnComplete})
	require.NoError(t, err)
	require.Equal(t, "codex/event/turn_complete", note.Method)

	var params EventNotificationParams
	require.NoError(t, json.Unmarshal(note.Params, &params))
	require.Equal(t, protocol.ThreadID("t1"), params.ThreadID)
}
