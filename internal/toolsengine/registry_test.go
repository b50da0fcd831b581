package toolsengine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/tools/policy"
)

type stubHandler struct {
	name     string
	parallel bool
	sleep    func(ctx context.Context)
	err      FunctionCallError
}

func (s *stubHandler) Name() string                              { return s.name }
func (s *stubHandler) Kind() ToolKind                             { return KindFunction }
func (s *stubHandler) ParallelSafe() bool                         { return s.parallel }
func (s *stubHandler) MatchesKind(payload json.RawMessage) bool   { return true }
func (s *stubHandler) Invoke(ctx context.Context, inv Invocation) (Output, FunctionCallError) {
	if s.sleep != nil {
		s.sleep(ctx)
	}
	if s.err != nil {
		return Output{}, s.err
	}
	return Output{Body: s.name, Success: true}, nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{name: "foo"}
	r.Register(h)

	got, ok := r.Get("foo")
	require.True(t, ok)
	require.Equal(t, h, got)

	_, ok = r.Get("missing")
	require.False(t, ok)
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubHandler{name: "a"})
	r.Register(&stubHandler{name: "b"})
	require.ElementsMatch(t, []string{"a", "b"}, r.Names())
}

func TestRegistry_AllowedWithoutPolicyIsUnrestricted(t *testing.T) {
	r := NewRegistry()
	allowed, reason := r.Allowed("anything")
	require.True(t, allowed)
	require.Empty(t, reason)
}

func TestRegistry_SetPolicyDeniesDisallowedTool(t *testing.T) {
	r := NewRegistry()
	resolver := policy.NewResolver()
	r.SetPolicy(resolver, &policy.Policy{Allow: []string{"read_file"}})

	allowed, reason := r.Allowed("exec_command")
	require.False(t, allowed)
	require.NotEmpty(t, reason)

	allowed, _ = r.Allowed("read_file")
	require.True(t, allowed)
}
