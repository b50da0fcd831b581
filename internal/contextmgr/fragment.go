// Package contextmgr holds a thread's ordered response-item history, its
// cumulative token accounting, and the synthetic "settings changed" items
// injected when a turn's configuration differs from the previous one.
package contextmgr

import (
	"fmt"
	"strings"

	"github.com/codex-engine/codex/internal/protocol"
)

// FragmentTag identifies one of the fixed contextual-fragment kinds (§3
// ContextManager invariant): an input_text message whose body is wrapped in
// a matching open/close marker pair so it can be detected again on resume.
type FragmentTag string

const (
	FragmentEnvironmentContext   FragmentTag = "environment_context"
	FragmentAgentsInstructions   FragmentTag = "agents_instructions"
	FragmentSkill                FragmentTag = "skill"
	FragmentUserShellCommand     FragmentTag = "user_shell_command"
	FragmentTurnAborted          FragmentTag = "turn_aborted"
	FragmentSubagentNotification FragmentTag = "subagent_notification"

	// Settings-update fragments, injected by DiffTurnContext (§4.C).
	FragmentPermissionsUpdate       FragmentTag = "permissions_update"
	FragmentCollaborationModeUpdate FragmentTag = "collaboration_mode_update"
	FragmentModelInstructionsUpdate FragmentTag = "model_instructions_update"
	FragmentPersonalityUpdate       FragmentTag = "personality_update"
)

func openMarker(tag FragmentTag) string  { return fmt.Sprintf("<%s>", tag) }
func closeMarker(tag FragmentTag) string { return fmt.Sprintf("</%s>", tag) }

// WrapFragment builds a developer-role Message item whose text is body
// surrounded by tag's open/close markers.
func WrapFragment(tag FragmentTag, body string) protocol.ResponseItem {
	text := openMarker(tag) + "\n" + body + "\n" + closeMarker(tag)
	return protocol.TextOnlyMessage(protocol.RoleDeveloper, text)
}

// DetectFragment reports whether item's text is wrapped in one of the known
// fragment tags, returning the tag and the unwrapped body.
func DetectFragment(item protocol.ResponseItem) (FragmentTag, string, bool) {
	if item.Kind != protocol.ItemMessage {
		return "", "", false
	}
	text := strings.TrimSpace(item.Text())
	for _, tag := range allFragmentTags {
		open, close := openMarker(tag), closeMarker(tag)
		if strings.HasPrefix(text, open) && strings.HasSuffix(text, close) {
			body := strings.TrimSuffix(strings.TrimPrefix(text, open), close)
			return tag, strings.TrimSpace(body), true
		}
	}
	return "", "", false
}

var allFragmentTags = []FragmentTag{
	FragmentEnvironmentContext,
	FragmentAgentsInstructions,
	FragmentSkill,
	FragmentUserShellCommand,
	FragmentTurnAborted,
	FragmentSubagentNotification,
	FragmentPermissionsUpdate,
	FragmentCollaborationModeUpdate,
	FragmentModelInstructionsUpdate,
	FragmentPersonalityUpdate,
}

// IsContextualFragment reports whether item is any of the fixed contextual
// fragment kinds.
func IsContextualFragment(item protocol.ResponseItem) bool {
	_, _, ok := DetectFragment(item)
	return ok
}
