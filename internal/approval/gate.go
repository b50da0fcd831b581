package approval

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
)

// Request is a pending approval, generalized from the teacher's
// ApprovalRequest to cover exec, apply_patch, and network approvals
// uniformly via Kind.
type Request struct {
	ID        string
	CallID    string
	Kind      RequestKind
	Argv      []string
	Network   *NetworkApprovalContext
	Reason    string
	CreatedAt time.Time
	ExpiresAt time.Time
	Decision  Decision
	DecidedAt time.Time
}

// RequestKind discriminates what triggered the approval request.
type RequestKind string

const (
	RequestExec       RequestKind = "exec"
	RequestApplyPatch RequestKind = "apply_patch"
	RequestNetwork    RequestKind = "network"
)

// Store persists pending approval requests, mirroring the teacher's
// ApprovalStore contract.
type Store interface {
	Create(ctx context.Context, req *Request) error
	Get(ctx context.Context, id string) (*Request, error)
	Update(ctx context.Context, req *Request) error
	ListPending(ctx context.Context) ([]*Request, error)
}

// Gate is the Approval & Sandbox Gate: it evaluates argv against an
// ExecPolicy, raises approval requests for Prompt decisions, and tracks the
// elicitation stopwatch for the call currently awaiting approval.
type Gate struct {
	mu         sync.Mutex
	policy     *ExecPolicy
	store      Store
	requestTTL time.Duration

	// Logger, if set, records every evaluation decision and approval
	// resolution. Nil disables logging entirely.
	Logger *observability.Logger
}

// NewGate builds a Gate over the given policy and store.
func NewGate(policy *ExecPolicy, store Store) *Gate {
	return &Gate{policy: policy, store: store, requestTTL: 5 * time.Minute}
}

func (g *Gate) logf(ctx context.Context, msg string, args ...any) {
	if g.Logger == nil {
		return
	}
	g.Logger.Info(ctx, msg, args...)
}

// EvaluateExec runs the exec policy engine against argv (§4.D). Forbidden
// aborts the call; Allow proceeds directly; Prompt raises an
// ExecApprovalRequest event and records a pending Request.
func (g *Gate) EvaluateExec(ctx context.Context, callID string, argv []string) (Decision, protocol.EventMsg, error) {
	decision, justification := g.policy.Evaluate(argv)
	g.logf(ctx, "approval: exec policy decision", "call_id", callID, "decision", decision, "justification", justification)
	switch decision {
	case DecisionForbidden:
		return decision, protocol.EventMsg{}, fmt.Errorf("approval: command forbidden by exec policy: %s", justification)
	case DecisionAllow:
		return decision, protocol.EventMsg{}, nil
	default:
		req := &Request{
			ID:        callID + "-approval",
			CallID:    callID,
			Kind:      RequestExec,
			Argv:      append([]string(nil), argv...),
			Reason:    justification,
			CreatedAt: time.Now(),
			ExpiresAt: time.Now().Add(g.requestTTL),
			Decision:  DecisionPrompt,
		}
		if g.store != nil {
			if err := g.store.Create(ctx, req); err != nil {
				return decision, protocol.EventMsg{}, err
			}
		}
		event := protocol.EventMsg{
			Type:   protocol.EventExecApprovalRequest,
			CallID: callID,
			Reason: justification,
		}
		return decision, event, nil
	}
}

// RaiseNetworkApproval re-raises a blocked outbound request as an approval
// carrying a NetworkApprovalContext (§4.D "network approvals").
func (g *Gate) RaiseNetworkApproval(ctx context.Context, callID string, netCtx NetworkApprovalContext) (protocol.EventMsg, error) {
	req := &Request{
		ID:        callID + "-network-approval",
		CallID:    callID,
		Kind:      RequestNetwork,
		Network:   &netCtx,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(g.requestTTL),
		Decision:  DecisionPrompt,
	}
	if g.store != nil {
		if err := g.store.Create(ctx, req); err != nil {
			return protocol.EventMsg{}, err
		}
	}
	return protocol.EventMsg{
		Type:   protocol.EventExecApprovalRequest,
		CallID: callID,
		Reason: fmt.Sprintf("network access requested: %s://%s", netCtx.Protocol, netCtx.Host),
	}, nil
}

// Resolve records a user decision for a pending request and, on Allow,
// applies an optional amendment so future calls matching the same prefix
// no longer prompt.
func (g *Gate) Resolve(ctx context.Context, requestID string, decision Decision, amendment *ExecPolicyAmendment) error {
	if g.store == nil {
		return nil
	}
	req, err := g.store.Get(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("approval: unknown request %s", requestID)
	}
	req.Decision = decision
	req.DecidedAt = time.Now()
	if err := g.store.Update(ctx, req); err != nil {
		return err
	}
	if decision == DecisionAllow && amendment != nil {
		g.mu.Lock()
		g.policy.Amend(*amendment)
		g.mu.Unlock()
		g.logf(ctx, "approval: policy amended", "request_id", requestID, "command", amendment.Command)
	}
	return nil
}

// MemoryStore is an in-memory Store, used by tests and single-process runs.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*Request
}

// NewMemoryStore creates an empty in-memory approval request store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*Request)}
}

func (s *MemoryStore) Create(ctx context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests[id], nil
}

func (s *MemoryStore) Update(ctx context.Context, req *Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = req
	return nil
}

func (s *MemoryStore) ListPending(ctx context.Context) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Request
	for _, req := range s.requests {
		if req.Decision == DecisionPrompt {
			out = append(out, req)
		}
	}
	return out, nil
}
