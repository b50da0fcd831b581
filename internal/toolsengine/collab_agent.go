package toolsengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codex-engine/codex/internal/protocol"
)

// CollabSession is the narrow view CollabAgentHandler needs of a spawned
// child thread's lifecycle.
type CollabSession interface {
	ThreadID() protocol.ThreadID
	SendInput(ctx context.Context, text string) error
	Wait(ctx context.Context) (lastMessage string, err error)
	Close(ctx context.Context) error
}

// CollabSpawner spawns a child thread inheriting the parent's TurnContext
// fields enumerated in the teacher's identical-configuration convention
// (internal/tools/subagent.Manager.Spawn, generalized from a goroutine
// running the parent's agent.Runtime to a sibling Thread on the Turn
// Scheduler).
type CollabSpawner interface {
	Spawn(ctx context.Context, parent protocol.TurnContext, name, task string, allowedTools, deniedTools []string) (CollabSession, error)
}

// collabAction discriminates the four CollabAgent operations multiplexed
// onto a single tool name, mirroring the teacher's Spawn/Status/Cancel
// split but unified behind one handler per §4.E.
type collabAction string

const (
	collabSpawn     collabAction = "spawn"
	collabSendInput collabAction = "send_input"
	collabWait      collabAction = "wait"
	collabClose     collabAction = "close"
)

type collabArgs struct {
	Action       collabAction `json:"action"`
	AgentID      string       `json:"agent_id,omitempty"`
	Name         string       `json:"name,omitempty"`
	Task         string       `json:"task,omitempty"`
	Input        string       `json:"input,omitempty"`
	AllowedTools []string     `json:"allowed_tools,omitempty"`
	DeniedTools  []string     `json:"denied_tools,omitempty"`
}

// CollabAgentHandler implements spawn/send_input/wait/close for sub-agent
// collaboration (§4.E "CollabAgent"). Close and wait are reserved for
// lifecycle completion: Wait blocks until the child's turn finishes, Close
// tears down a child regardless of its state.
type CollabAgentHandler struct {
	Spawner  CollabSpawner
	sessions map[string]CollabSession
}

// NewCollabAgentHandler creates a handler backed by spawner.
func NewCollabAgentHandler(spawner CollabSpawner) *CollabAgentHandler {
	return &CollabAgentHandler{Spawner: spawner, sessions: make(map[string]CollabSession)}
}

func (h *CollabAgentHandler) Name() string       { return "collab_agent" }
func (h *CollabAgentHandler) Kind() ToolKind     { return KindFunction }
func (h *CollabAgentHandler) ParallelSafe() bool { return false }

func (h *CollabAgentHandler) MatchesKind(payload json.RawMessage) bool {
	var probe collabArgs
	return json.Unmarshal(payload, &probe) == nil && probe.Action != ""
}

func (h *CollabAgentHandler) Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError) {
	var args collabArgs
	if err := json.Unmarshal(inv.Payload, &args); err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("invalid collab_agent arguments: %v", err))
	}

	switch args.Action {
	case collabSpawn:
		return h.spawn(ctx, inv, args)
	case collabSendInput:
		return h.sendInput(ctx, args)
	case collabWait:
		return h.wait(ctx, args)
	case collabClose:
		return h.close(ctx, args)
	default:
		return Output{}, RespondToModel(fmt.Sprintf("unknown collab_agent action: %s", args.Action))
	}
}

func (h *CollabAgentHandler) spawn(ctx context.Context, inv Invocation, args collabArgs) (Output, FunctionCallError) {
	session, err := h.Spawner.Spawn(ctx, inv.Turn, args.Name, args.Task, args.AllowedTools, args.DeniedTools)
	if err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("spawn failed: %v", err))
	}
	id := string(session.ThreadID())
	h.sessions[id] = session
	body, _ := json.Marshal(map[string]string{"agent_id": id})
	return Output{Body: string(body), Success: true}, nil
}

func (h *CollabAgentHandler) sendInput(ctx context.Context, args collabArgs) (Output, FunctionCallError) {
	session, ok := h.sessions[args.AgentID]
	if !ok {
		return Output{}, RespondToModel("unknown agent_id: " + args.AgentID)
	}
	if err := session.SendInput(ctx, args.Input); err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("send_input failed: %v", err))
	}
	return Output{Body: "{}", Success: true}, nil
}

func (h *CollabAgentHandler) wait(ctx context.Context, args collabArgs) (Output, FunctionCallError) {
	session, ok := h.sessions[args.AgentID]
	if !ok {
		return Output{}, RespondToModel("unknown agent_id: " + args.AgentID)
	}
	lastMessage, err := session.Wait(ctx)
	if err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("wait failed: %v", err))
	}
	body, _ := json.Marshal(map[string]string{"last_message": lastMessage})
	return Output{Body: string(body), Success: true}, nil
}

func (h *CollabAgentHandler) close(ctx context.Context, args collabArgs) (Output, FunctionCallError) {
	session, ok := h.sessions[args.AgentID]
	if !ok {
		return Output{}, RespondToModel("unknown agent_id: " + args.AgentID)
	}
	delete(h.sessions, args.AgentID)
	if err := session.Close(ctx); err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("close failed: %v", err))
	}
	return Output{Body: "{}", Success: true}, nil
}
