package toolsengine

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/codex-engine/codex/internal/observability"
	"github.com/codex-engine/codex/internal/protocol"
	"github.com/codex-engine/codex/internal/tools/policy"
)

// ToolKind discriminates how a call is dispatched (§4.E registry).
type ToolKind string

const (
	KindFunction   ToolKind = "function"
	KindCustom     ToolKind = "custom"
	KindLocalShell ToolKind = "local_shell"
	KindMCP        ToolKind = "mcp"
)

// Invocation is what a Handler receives for one call.
type Invocation struct {
	Session *protocol.Thread
	Turn    protocol.TurnContext
	Name    string
	CallID  string
	Payload json.RawMessage
}

// Output is the successful result of invoking a tool.
type Output struct {
	Body    string
	Success bool
}

// Handler is a named tool implementation.
type Handler interface {
	Name() string
	Kind() ToolKind
	// MatchesKind reports whether payload's shape is one this handler
	// accepts, used when more than one handler declares the same Name
	// across different kinds (e.g. a custom tool shadowing a function).
	MatchesKind(payload json.RawMessage) bool
	// ParallelSafe reports whether concurrent invocations of this handler
	// may run in a batch with other parallel-safe handlers (§4.E).
	ParallelSafe() bool
	Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError)
}

// Registry holds named handlers, looked up by tool name at dispatch time,
// gated by an optional access policy (§4.D's tool-visibility axis,
// implemented on internal/tools/policy's profile/allow/deny resolver).
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler

	resolver *policy.Resolver
	pol      *policy.Policy

	// Logger, if set, records registration, policy denials, and dispatch
	// outcomes. Nil disables logging entirely.
	Logger *observability.Logger
}

// NewRegistry creates an empty, unrestricted registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

func (r *Registry) logf(ctx context.Context, msg string, args ...any) {
	if r.Logger == nil {
		return
	}
	r.Logger.Debug(ctx, msg, args...)
}

// SetPolicy gates every future Get/Allowed call through resolver's
// profile/allow/deny rules for pol. Passing a nil pol removes gating.
func (r *Registry) SetPolicy(resolver *policy.Resolver, pol *policy.Policy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolver = resolver
	r.pol = pol
}

// Allowed reports whether name is currently permitted, and if not, the
// resolver's reason string for the denial.
func (r *Registry) Allowed(name string) (bool, string) {
	r.mu.RLock()
	resolver, pol := r.resolver, r.pol
	r.mu.RUnlock()
	if resolver == nil || pol == nil {
		return true, ""
	}
	decision := resolver.Decide(pol, name)
	return decision.Allowed, decision.Reason
}

// Register adds or replaces a handler under its own Name().
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Name()] = h
	r.logf(context.Background(), "toolsengine: handler registered", "name", h.Name(), "kind", h.Kind())
}

// Get looks up a handler by name.
func (r *Registry) Get(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns every registered tool name, primarily for tool-selection
// surfaces like SearchToolBm25.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}
