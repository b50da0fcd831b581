package protocol

import "encoding/json"

// ItemKind discriminates the ResponseItem union.
type ItemKind string

const (
	ItemMessage            ItemKind = "message"
	ItemReasoning          ItemKind = "reasoning"
	ItemFunctionCall       ItemKind = "function_call"
	ItemFunctionCallOutput ItemKind = "function_call_output"
	ItemLocalShellCall     ItemKind = "local_shell_call"
	ItemCustomToolCall     ItemKind = "custom_tool_call"
	ItemWebSearchCall      ItemKind = "web_search_call"
	ItemGhostSnapshot      ItemKind = "ghost_snapshot"
	ItemCompaction         ItemKind = "compaction"
	ItemOther              ItemKind = "other" // never persisted, see ShouldPersist
)

// MessageRole is the author of a Message item.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
	RoleDeveloper MessageRole = "developer"
)

// ContentBlock is one piece of a Message's content array.
type ContentBlock struct {
	Type string `json:"type"` // "input_text", "output_text", "input_image", ...
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// ResponseItem is a polymorphic item in a thread's ordered history. Exactly
// one of the typed payload fields is populated, selected by Kind.
type ResponseItem struct {
	Kind ItemKind `json:"kind"`

	// Message
	Role    MessageRole    `json:"role,omitempty"`
	Content []ContentBlock `json:"content,omitempty"`

	// Reasoning
	ReasoningID      string   `json:"reasoning_id,omitempty"`
	ReasoningSummary []string `json:"reasoning_summary,omitempty"`
	ReasoningContent string   `json:"reasoning_content,omitempty"`

	// FunctionCall / CustomToolCall / LocalShellCall
	CallID    string          `json:"call_id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`

	// FunctionCallOutput
	OutputBody string `json:"output_body,omitempty"`

	// WebSearchCall
	Query string `json:"query,omitempty"`

	// GhostSnapshot / Compaction
	SnapshotRef string `json:"snapshot_ref,omitempty"`
	Summary     string `json:"summary,omitempty"`
}

// TextOnlyMessage builds a single input_text/output_text Message item.
func TextOnlyMessage(role MessageRole, text string) ResponseItem {
	blockType := "input_text"
	if role == RoleAssistant {
		blockType = "output_text"
	}
	return ResponseItem{
		Kind:    ItemMessage,
		Role:    role,
		Content: []ContentBlock{{Type: blockType, Text: text}},
	}
}

// FunctionCall builds a FunctionCall item.
func FunctionCall(callID, name string, arguments json.RawMessage) ResponseItem {
	return ResponseItem{Kind: ItemFunctionCall, CallID: callID, Name: name, Arguments: arguments}
}

// FunctionCallOutput builds a FunctionCallOutput item.
func FunctionCallOutput(callID, body string) ResponseItem {
	return ResponseItem{Kind: ItemFunctionCallOutput, CallID: callID, OutputBody: body}
}

// AbortedOutput is the synthesized FunctionCallOutput body used when a call
// is interrupted mid-flight (§7, invariant 1 of §8).
const AbortedOutput = "aborted"

// Text concatenates all text content blocks of a Message item.
func (r ResponseItem) Text() string {
	var out string
	for _, block := range r.Content {
		out += block.Text
	}
	return out
}

// ShouldPersistItem implements the §4.B persistence policy for ResponseItem
// variants: everything except Other is persisted.
func ShouldPersistItem(kind ItemKind) bool {
	return kind != ItemOther
}
