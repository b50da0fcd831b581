package contextmgr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/codex-engine/codex/internal/protocol"
)

func baseTurnContext() protocol.TurnContext {
	return protocol.TurnContext{
		Cwd:               "/work",
		Model:             protocol.ModelInfo{Slug: "gpt-codex"},
		SandboxPolicy:     protocol.SandboxPolicy{Kind: protocol.SandboxReadOnly},
		ApprovalPolicy:    protocol.ApprovalOnRequest,
		CollaborationMode: protocol.ModeExecute,
		Personality:       "default",
	}
}

func TestDiffTurnContext_NilPrevEmitsNothing(t *testing.T) {
	require.Empty(t, DiffTurnContext(nil, baseTurnContext()))
}

func TestDiffTurnContext_NoChangesEmitsNothing(t *testing.T) {
	prev := baseTurnContext()
	require.Empty(t, DiffTurnContext(&prev, baseTurnContext()))
}

func TestDiffTurnContext_OrderIsFixed(t *testing.T) {
	prev := baseTurnContext()
	next := baseTurnContext()
	next.Cwd = "/elsewhere"
	next.ApprovalPolicy = protocol.ApprovalNever
	next.CollaborationMode = protocol.ModePlan
	next.Model.Slug = "gpt-codex-2"
	next.Personality = "terse" // suppressed: model also changed

	updates := DiffTurnContext(&prev, next)
	require.Len(t, updates, 4)

	tags := make([]FragmentTag, len(updates))
	for i, u := range updates {
		tag, _, ok := DetectFragment(u)
		require.True(t, ok)
		tags[i] = tag
	}
	require.Equal(t, []FragmentTag{
		FragmentEnvironmentContext,
		FragmentPermissionsUpdate,
		FragmentCollaborationModeUpdate,
		FragmentModelInstructionsUpdate,
	}, tags)
}

func TestDiffTurnContext_PersonalitySuppressedWhenModelChanges(t *testing.T) {
	prev := baseTurnContext()
	next := baseTurnContext()
	next.Model.Slug = "gpt-codex-2"
	next.Personality = "terse"

	updates := DiffTurnContext(&prev, next)
	for _, u := range updates {
		tag, _, _ := DetectFragment(u)
		require.NotEqual(t, FragmentPersonalityUpdate, tag)
	}
}

func TestDiffTurnContext_PersonalityEmittedWhenModelUnchanged(t *testing.T) {
	prev := baseTurnContext()
	next := baseTurnContext()
	next.Personality = "terse"

	updates := DiffTurnContext(&prev, next)
	require.Len(t, updates, 1)
	tag, _, ok := DetectFragment(updates[0])
	require.True(t, ok)
	require.Equal(t, FragmentPersonalityUpdate, tag)
}

func TestDiffTurnContext_CustomModeSuppressesInstructions(t *testing.T) {
	prev := baseTurnContext()
	next := baseTurnContext()
	next.CollaborationMode = protocol.ModeCustom

	updates := DiffTurnContext(&prev, next)
	require.Empty(t, updates, "custom mode has no canned instructions, so the update must be suppressed")
}

func TestFragment_RoundTrip(t *testing.T) {
	item := WrapFragment(FragmentSkill, "do the thing")
	tag, body, ok := DetectFragment(item)
	require.True(t, ok)
	require.Equal(t, FragmentSkill, tag)
	require.Equal(t, "do the thing", body)
}

func TestFragment_PlainMessageIsNotDetected(t *testing.T) {
	item := protocol.TextOnlyMessage(protocol.RoleUser, "just chatting")
	require.False(t, IsContextualFragment(item))
}
