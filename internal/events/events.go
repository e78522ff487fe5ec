// Package events defines the typed envelopes carried by the broadcast bus
// and written to websocket sessions.
package events

// Conversation-group events.
const (
	EventNewMessage       = "new_message"
	EventMessageEdited    = "message_edited"
	EventMessageDeleted   = "message_deleted"
	EventMessagesRead     = "messages_read"
	EventMessageStatus    = "message_status"
	EventPresence         = "presence"
	EventTyping           = "typing"
	EventMessageReactions = "message_reactions"
	EventMessagePinned    = "message_pinned"
)

// Overview (per-user) events.
const (
	EventConversationActivity = "conversation_activity"
	EventPresenceUpdate       = "presence_update"
	EventSnapshot             = "snapshot"
)

// Envelope is the wire shape of every outbound event.
type Envelope struct {
	Type           string `json:"type"`
	Event          string `json:"event"`
	ConversationID string `json:"conversation_id,omitempty"`
	Payload        any    `json:"payload,omitempty"`
}

func New(event, conversationID string, payload any) Envelope {
	return Envelope{
		Type:           "event",
		Event:          event,
		ConversationID: conversationID,
		Payload:        payload,
	}
}
