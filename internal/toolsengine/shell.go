package toolsengine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/codex-engine/codex/internal/approval"
	"github.com/codex-engine/codex/internal/protocol"
	execmgr "github.com/codex-engine/codex/internal/tools/exec"
	"github.com/codex-engine/codex/internal/tools/security"
)

// ShellHandler runs commands under the thread's active sandbox via the
// shared exec.Manager, emitting ExecCommandBegin/End framing events onto
// Events as it goes (§4.E "Shell/UnifiedExec").
type ShellHandler struct {
	manager *execmgr.Manager
	Events  chan<- protocol.EventMsg

	// Gate, if set, runs the command through the exec policy engine before
	// it executes (§4.D). Left nil, Invoke runs every command unchecked.
	Gate *approval.Gate
}

// NewShellHandler wraps an exec.Manager scoped to workspace.
func NewShellHandler(manager *execmgr.Manager, events chan<- protocol.EventMsg) *ShellHandler {
	return &ShellHandler{manager: manager, Events: events}
}

func (h *ShellHandler) Name() string       { return "shell" }
func (h *ShellHandler) Kind() ToolKind     { return KindLocalShell }
func (h *ShellHandler) ParallelSafe() bool { return false }

func (h *ShellHandler) MatchesKind(payload json.RawMessage) bool {
	var probe struct {
		Command string `json:"command"`
	}
	return json.Unmarshal(payload, &probe) == nil && probe.Command != ""
}

type shellArgs struct {
	Command   string            `json:"command"`
	Cwd       string            `json:"cwd,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	TimeoutMS int64             `json:"timeout_ms,omitempty"`
}

func (h *ShellHandler) Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError) {
	var args shellArgs
	if err := json.Unmarshal(inv.Payload, &args); err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("invalid shell arguments: %v", err))
	}

	if h.Gate != nil {
		if fnErr := h.checkPolicy(ctx, inv.CallID, args.Command); fnErr != nil {
			return Output{}, fnErr
		}
	}

	h.emit(protocol.EventExecCommandBegin, inv.CallID, args.Command)

	timeout := time.Duration(args.TimeoutMS) * time.Millisecond
	result, err := h.manager.RunCommand(ctx, args.Command, args.Cwd, args.Env, "", timeout)
	if err != nil {
		h.emit(protocol.EventExecCommandEnd, inv.CallID, err.Error())
		return Output{}, RespondToModel(fmt.Sprintf("exec failed: %v", err))
	}

	h.emit(protocol.EventExecCommandEnd, inv.CallID, fmt.Sprintf("exit=%d", result.ExitCode))

	body, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		return Output{}, Fatal(fmt.Sprintf("failed to encode exec result: %v", marshalErr))
	}
	return Output{Body: string(body), Success: result.ExitCode == 0}, nil
}

// checkPolicy evaluates a raw shell command string against the exec policy
// engine, which only knows how to prefix-match argv. A shell string can
// smuggle a second, unreviewed command past that check through chaining,
// piping, redirection, or a subshell, so any command the quote-aware
// analyzer flags as dangerous is forced to Prompt even when its leading
// tokens alone would Allow.
func (h *ShellHandler) checkPolicy(ctx context.Context, callID, command string) FunctionCallError {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil
	}

	decision, event, err := h.Gate.EvaluateExec(ctx, callID, argv)
	if err != nil {
		return RespondToModel(fmt.Sprintf("command forbidden: %v", err))
	}

	analysis := security.AnalyzeCommandQuoteAware(command)
	if decision == approval.DecisionAllow && !analysis.IsSafe {
		decision = approval.DecisionPrompt
		event = protocol.EventMsg{
			Type:   protocol.EventExecApprovalRequest,
			CallID: callID,
			Reason: analysis.Reason,
		}
	}

	if decision == approval.DecisionPrompt {
		if event.Reason == "" {
			event.Reason = analysis.Reason
		}
		h.emit(event.Type, callID, event.Reason)
		return RespondToModel(fmt.Sprintf("command requires approval: %s", event.Reason))
	}

	return nil
}

func (h *ShellHandler) emit(eventType protocol.EventType, callID, text string) {
	if h.Events == nil {
		return
	}
	h.Events <- protocol.EventMsg{Type: eventType, CallID: callID, Text: text}
}
