package appserver

import (
	"encoding/json"
	"fmt"

	"github.com/codex-engine/codex/internal/protocol"
)

// EventNotificationParams carries one thread's event to a subscribed
// collaborator, per a prior AddConversationListener call.
type EventNotificationParams struct {
	ThreadID protocol.ThreadID  `json:"threadId"`
	Event    protocol.EventMsg `json:"event"`
}

// NewEventNotification builds the `codex/event/<type>` server notification
// for one EventMsg (§6). The method name embeds the event's own type so a
// collaborator can dispatch on method name alone without decoding Params
// first.
func NewEventNotification(threadID protocol.ThreadID, event protocol.EventMsg) (JSONRPCNotification, error) {
	params, err := json.Marshal(EventNotificationParams{ThreadID: threadID, Event: event})
	if err != nil {
		return JSONRPCNotification{}, fmt.Errorf("appserver: marshal event notification: %w", err)
	}
	return JSONRPCNotification{
		JSONRPC: "2.0",
		Method:  "codex/event/" + string(event.Type),
		Params:  params,
	}, nil
}
