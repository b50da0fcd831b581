package appserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/codex-engine/codex/internal/observability"
)

// Dispatcher routes a decoded JSONRPCRequest to an AppServerFacet method,
// unmarshaling Params into the method's typed input and marshaling its
// typed output back into Result. It does not read or write bytes off any
// wire; a transport implementation owns framing and calls Dispatch per
// decoded request.
type Dispatcher struct {
	Facet AppServerFacet

	// Logger, if set, records each dispatched method and any error
	// returned. Nil disables logging entirely.
	Logger *observability.Logger
}

// NewDispatcher wraps facet for dispatch.
func NewDispatcher(facet AppServerFacet) *Dispatcher {
	return &Dispatcher{Facet: facet}
}

func (d *Dispatcher) logf(ctx context.Context, msg string, args ...any) {
	if d.Logger == nil {
		return
	}
	d.Logger.Debug(ctx, msg, args...)
}

// Dispatch resolves req.Method (accepting either name of a dual-named
// method, e.g. "newConversation" or "thread/start"), invokes the matching
// AppServerFacet call, and returns a JSONRPCResponse carrying either the
// marshaled result or a JSONRPCError. An unrecognized method or malformed
// params produces -32600 (§6); the response always echoes req.ID.
func (d *Dispatcher) Dispatch(ctx context.Context, req JSONRPCRequest) JSONRPCResponse {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: req.ID}

	canonical, ok := CanonicalMethod(req.Method)
	if !ok {
		d.logf(ctx, "appserver: unknown method", "method", req.Method)
		resp.Error = NewInvalidRequest(fmt.Sprintf("unknown method: %s", req.Method))
		return resp
	}

	result, err := d.call(ctx, canonical, req.Params)
	if err != nil {
		d.logf(ctx, "appserver: method failed", "method", canonical, "error", err.Message)
		resp.Error = err
		return resp
	}
	d.logf(ctx, "appserver: method dispatched", "method", canonical)

	encoded, marshalErr := json.Marshal(result)
	if marshalErr != nil {
		resp.Error = &JSONRPCError{Code: ErrCodeInternalError, Message: marshalErr.Error()}
		return resp
	}
	resp.Result = encoded
	return resp
}

func (d *Dispatcher) call(ctx context.Context, canonical string, raw json.RawMessage) (any, *JSONRPCError) {
	switch canonical {
	case "Initialize":
		return invoke(ctx, raw, d.Facet.Initialize)
	case "NewConversation":
		return invoke(ctx, raw, d.Facet.NewConversation)
	case "SendUserMessage":
		return invoke(ctx, raw, d.Facet.SendUserMessage)
	case "AddConversationListener":
		return invoke(ctx, raw, d.Facet.AddConversationListener)
	case "ArchiveConversation":
		return invoke(ctx, raw, d.Facet.ArchiveConversation)
	case "ForkConversation":
		return invoke(ctx, raw, d.Facet.ForkConversation)
	case "ThreadRead":
		return invoke(ctx, raw, d.Facet.ThreadRead)
	case "ThreadRollback":
		return invoke(ctx, raw, d.Facet.ThreadRollback)
	case "ThreadResume":
		return invoke(ctx, raw, d.Facet.ThreadResume)
	case "TurnSteer":
		return invoke(ctx, raw, d.Facet.TurnSteer)
	case "ListModels":
		return invoke(ctx, raw, d.Facet.ListModels)
	case "ListThreads":
		return invoke(ctx, raw, d.Facet.ListThreads)
	default:
		return nil, NewInvalidRequest(fmt.Sprintf("unhandled method: %s", canonical))
	}
}

// invoke decodes raw into P, calls fn, and normalizes any returned error
// into a JSONRPCError. Generic over each facet method's (params, result)
// pair so Dispatch's switch stays a flat list of one-liners instead of
// twelve near-identical decode/call/encode blocks.
func invoke[P any, R any](ctx context.Context, raw json.RawMessage, fn func(context.Context, P) (R, error)) (any, *JSONRPCError) {
	var params P
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, &JSONRPCError{Code: ErrCodeInvalidParams, Message: err.Error()}
		}
	}
	result, err := fn(ctx, params)
	if err != nil {
		return nil, &JSONRPCError{Code: ErrCodeInternalError, Message: err.Error()}
	}
	return result, nil
}
