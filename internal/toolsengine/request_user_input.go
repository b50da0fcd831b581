package toolsengine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codex-engine/codex/internal/protocol"
)

// Question is one elicitation question; every question must carry
// non-empty Options per §4.E, and the handler forces IsOther=true so the
// UI always offers a free-text escape hatch alongside the fixed choices.
type Question struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
	IsOther bool     `json:"is_other"`
}

type requestUserInputArgs struct {
	Questions []Question `json:"questions"`
}

// Answer is the structured response the UI returns for one question.
type Answer struct {
	Prompt   string `json:"prompt"`
	Selected string `json:"selected"`
	Other    string `json:"other,omitempty"`
}

// Elicitor awaits a UI response to a RequestUserInput call.
type Elicitor interface {
	Elicit(ctx context.Context, callID string, questions []Question) ([]Answer, error)
}

// RequestUserInputHandler is only available in Plan collaboration mode
// (§4.E). It validates every question carries options, forces IsOther,
// awaits the UI response, and serializes the structured answer back as the
// tool output.
type RequestUserInputHandler struct {
	Elicitor Elicitor
	Events   chan<- protocol.EventMsg
}

func (h *RequestUserInputHandler) Name() string       { return "request_user_input" }
func (h *RequestUserInputHandler) Kind() ToolKind     { return KindFunction }
func (h *RequestUserInputHandler) ParallelSafe() bool { return false }

func (h *RequestUserInputHandler) MatchesKind(payload json.RawMessage) bool {
	var probe requestUserInputArgs
	return json.Unmarshal(payload, &probe) == nil && len(probe.Questions) > 0
}

func (h *RequestUserInputHandler) Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError) {
	if inv.Turn.CollaborationMode != protocol.ModePlan {
		return Output{}, RespondToModel("request_user_input is only available in Plan collaboration mode")
	}

	var args requestUserInputArgs
	if err := json.Unmarshal(inv.Payload, &args); err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("invalid request_user_input arguments: %v", err))
	}
	for i, q := range args.Questions {
		if len(q.Options) == 0 {
			return Output{}, RespondToModel(fmt.Sprintf("question %d must carry non-empty options", i))
		}
		args.Questions[i].IsOther = true
	}

	if h.Events != nil {
		h.Events <- protocol.EventMsg{Type: protocol.EventRequestUserInput, CallID: inv.CallID}
	}

	answers, err := h.Elicitor.Elicit(ctx, inv.CallID, args.Questions)
	if err != nil {
		return Output{}, RespondToModel(fmt.Sprintf("elicitation failed: %v", err))
	}

	body, err := json.Marshal(answers)
	if err != nil {
		return Output{}, Fatal(fmt.Sprintf("failed to encode answers: %v", err))
	}
	return Output{Body: string(body), Success: true}, nil
}
