package contextmgr

import (
	"fmt"

	"github.com/codex-engine/codex/internal/protocol"
)

// DiffTurnContext compares prev against next and returns up to five
// synthetic developer items, in the fixed order required by §4.C: cwd,
// permissions, collaboration mode, model instructions, personality. prev
// may be nil (first turn of a fresh thread); resuming passes the resumed
// thread's last-known TurnContext as prev so the "model didn't also
// change" rule for personality still holds across a resume.
func DiffTurnContext(prev *protocol.TurnContext, next protocol.TurnContext) []protocol.ResponseItem {
	var items []protocol.ResponseItem

	if prev == nil {
		return items
	}

	if prev.Cwd != next.Cwd {
		items = append(items, WrapFragment(FragmentEnvironmentContext, fmt.Sprintf("cwd changed: %s -> %s", prev.Cwd, next.Cwd)))
	}

	if sandboxOrApprovalChanged(*prev, next) {
		items = append(items, WrapFragment(FragmentPermissionsUpdate, renderPermissions(next)))
	}

	if prev.CollaborationMode != next.CollaborationMode {
		instructions := collaborationModeInstructions(next.CollaborationMode)
		if instructions != "" {
			items = append(items, WrapFragment(FragmentCollaborationModeUpdate, instructions))
		}
	}

	modelChanged := prev.Model.Slug != next.Model.Slug
	if modelChanged {
		items = append(items, WrapFragment(FragmentModelInstructionsUpdate, fmt.Sprintf("model changed: %s -> %s", prev.Model.Slug, next.Model.Slug)))
	}

	if !modelChanged && prev.Personality != next.Personality {
		items = append(items, WrapFragment(FragmentPersonalityUpdate, fmt.Sprintf("personality changed: %s -> %s", prev.Personality, next.Personality)))
	}

	return items
}

func sandboxOrApprovalChanged(prev, next protocol.TurnContext) bool {
	if prev.ApprovalPolicy != next.ApprovalPolicy {
		return true
	}
	if prev.SandboxPolicy.Kind != next.SandboxPolicy.Kind {
		return true
	}
	if prev.SandboxPolicy.NetworkAccess != next.SandboxPolicy.NetworkAccess {
		return true
	}
	return !sameRoots(prev.SandboxPolicy.WritableRoots, next.SandboxPolicy.WritableRoots)
}

func sameRoots(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func renderPermissions(tc protocol.TurnContext) string {
	return fmt.Sprintf("sandbox=%s approval=%s network_access=%t writable_roots=%v",
		tc.SandboxPolicy.Kind, tc.ApprovalPolicy, tc.SandboxPolicy.NetworkAccess, tc.SandboxPolicy.WritableRoots)
}

// collaborationModeInstructions renders the developer-facing instructions
// for a mode switch. An empty return suppresses emission per §4.C.
func collaborationModeInstructions(mode protocol.CollaborationMode) string {
	switch mode {
	case protocol.ModePlan:
		return "Collaboration mode is now Plan: propose a plan and wait for approval before making changes."
	case protocol.ModePairProgramming:
		return "Collaboration mode is now Pair Programming: narrate changes as you make them."
	case protocol.ModeExecute:
		return "Collaboration mode is now Execute: proceed without pausing for plan review."
	default:
		return ""
	}
}
