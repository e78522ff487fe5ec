// Package ws carries the live client sessions: one websocket per user,
// joined to one conversation at a time plus the user's overview group.
package ws

import (
	"context"
	"encoding/json"
	"time"

	"commhub/internal/bus"
	"commhub/internal/events"
	"commhub/internal/logger"
	"commhub/internal/presence"
	chatservice "commhub/internal/services/chat"
	"commhub/pkg/apperrors"
)

// Session states. A session is created Connecting, moves to Joined once
// the overview group subscription is up, Active while inside a
// conversation, and Closed terminally.
type SessionState int

const (
	StateConnecting SessionState = iota
	StateJoined
	StateActive
	StateClosed
)

// Inbound action names.
const (
	ActionJoin          = "join"
	ActionLeave         = "leave"
	ActionSendMessage   = "send_message"
	ActionEditMessage   = "edit_message"
	ActionDeleteMessage = "delete_message"
	ActionMarkRead      = "mark_read"
	ActionTyping        = "typing"
	ActionReaction      = "reaction"
	ActionPin           = "pin"
	ActionPing          = "ping"
)

// Action is one inbound client frame.
type Action struct {
	Action         string          `json:"action"`
	ConversationID string          `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

type sendMessagePayload struct {
	Content        string  `json:"content"`
	AttachmentURL  *string `json:"attachment_url,omitempty"`
	AttachmentName *string `json:"attachment_name,omitempty"`
	ReplyToID      *string `json:"reply_to_id,omitempty"`
}

type editMessagePayload struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type deleteMessagePayload struct {
	MessageID string `json:"message_id"`
}

type typingPayload struct {
	Typing bool `json:"typing"`
}

type reactionPayload struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type pinPayload struct {
	MessageID string `json:"message_id"`
}

// sink is where the session writes outbound frames; the Client's send
// queue in production, a buffer in tests.
type sink interface {
	bus.Subscriber
}

// Session is the transport-independent half of a connection: identity,
// state, the subscriptions held, and the action dispatch. The Client owns
// the socket I/O around it.
type Session struct {
	UserID   string
	TenantID string

	state          SessionState
	conversationID string

	chat      *chatservice.ChatService
	reactions *chatservice.ReactionService
	pins      *chatservice.PinService
	bus       bus.Bus
	presence  presence.Store
	windows   chatservice.PresenceWindows
	out       sink

	// requestClose asks the transport to drop the connection; set by the
	// client that owns the socket.
	requestClose func()
}

func NewSession(
	userID, tenantID string,
	chat *chatservice.ChatService,
	reactions *chatservice.ReactionService,
	pins *chatservice.PinService,
	eventBus bus.Bus,
	presenceStore presence.Store,
	windows chatservice.PresenceWindows,
	out sink,
) *Session {
	return &Session{
		UserID:    userID,
		TenantID:  tenantID,
		state:     StateConnecting,
		chat:      chat,
		reactions: reactions,
		pins:      pins,
		bus:       eventBus,
		presence:  presenceStore,
		windows:   windows,
		out:       out,
	}
}

func (s *Session) State() SessionState { return s.state }

func (s *Session) ConversationID() string { return s.conversationID }

// Open subscribes the session to its overview group and marks global
// presence. Called once after the upgrade succeeds.
func (s *Session) Open(ctx context.Context) {
	s.bus.Join(bus.UserGroup(s.UserID), s.out)
	if err := s.presence.Mark(ctx, presence.GlobalScope, s.UserID); err != nil {
		logger.Warn("presence mark failed", "user_id", s.UserID, "error", err.Error())
	}
	s.state = StateJoined
}

// Close tears down every subscription and presence entry. Idempotent.
func (s *Session) Close(ctx context.Context) {
	if s.state == StateClosed {
		return
	}
	if s.conversationID != "" {
		s.leaveConversation(ctx)
	}
	s.bus.Leave(bus.UserGroup(s.UserID), s.out)
	if err := s.presence.Remove(ctx, presence.GlobalScope, s.UserID); err != nil {
		logger.Warn("presence remove failed", "user_id", s.UserID, "error", err.Error())
	}
	s.state = StateClosed
}

// Handle dispatches one inbound frame. Rejected actions answer with an
// error frame; the session survives everything except acting while
// closed.
func (s *Session) Handle(ctx context.Context, raw []byte) {
	if s.state == StateClosed || s.state == StateConnecting {
		return
	}

	var action Action
	if err := json.Unmarshal(raw, &action); err != nil {
		s.sendError("", apperrors.ValidationError("chat", "malformed frame"))
		return
	}

	switch action.Action {
	case ActionPing:
		s.touchPresence(ctx)
		s.out.Deliver(map[string]any{"type": "pong"})
	case ActionJoin:
		s.handleJoin(ctx, action.ConversationID)
	case ActionLeave:
		s.handleLeave(ctx)
	case ActionSendMessage:
		s.handleSendMessage(ctx, action)
	case ActionEditMessage:
		s.handleEdit(action)
	case ActionDeleteMessage:
		s.handleDelete(action)
	case ActionMarkRead:
		s.handleMarkRead(action)
	case ActionTyping:
		s.handleTyping(action)
	case ActionReaction:
		s.handleReaction(action)
	case ActionPin:
		s.handlePin(action)
	default:
		s.sendError(action.Action, apperrors.ValidationError("chat", "unknown action"))
	}
}

// handleJoin moves the session into a conversation: membership gate,
// group subscription, presence mark, presence broadcast and a snapshot
// of who is online.
func (s *Session) handleJoin(ctx context.Context, conversationID string) {
	if conversationID == "" {
		s.sendError(ActionJoin, apperrors.ValidationError("chat", "conversation_id is required"))
		return
	}
	if s.conversationID == conversationID {
		return
	}
	if s.conversationID != "" {
		s.leaveConversation(ctx)
		s.state = StateJoined
	}

	if err := s.chat.CheckMembership(s.UserID, conversationID); err != nil {
		// A refused join is an authorization failure; sendError tears the
		// session down.
		s.sendError(ActionJoin, err)
		return
	}

	s.conversationID = conversationID
	s.bus.Join(bus.ConversationGroup(conversationID), s.out)
	scope := presence.ConversationScope(conversationID)
	if err := s.presence.Mark(ctx, scope, s.UserID); err != nil {
		logger.Warn("presence mark failed", "user_id", s.UserID, "error", err.Error())
	}
	s.state = StateActive

	s.broadcastPresence(conversationID, true)

	online, err := s.presence.Online(ctx, scope, s.windows.Conversation)
	if err == nil {
		s.out.Deliver(events.New(events.EventSnapshot, conversationID, map[string]any{
			"online": online,
		}))
	}
}

func (s *Session) handleLeave(ctx context.Context) {
	if s.conversationID == "" {
		return
	}
	s.leaveConversation(ctx)
	s.state = StateJoined
}

func (s *Session) leaveConversation(ctx context.Context) {
	conversationID := s.conversationID
	s.conversationID = ""
	s.bus.Leave(bus.ConversationGroup(conversationID), s.out)
	if err := s.presence.Remove(ctx, presence.ConversationScope(conversationID), s.UserID); err != nil {
		logger.Warn("presence remove failed", "user_id", s.UserID, "error", err.Error())
	}
	s.broadcastPresence(conversationID, false)
}

// broadcastPresence announces the change to the conversation group and, as
// a presence_update, to every other participant's overview channel, so a
// user watching only their overview still sees who comes and goes.
func (s *Session) broadcastPresence(conversationID string, online bool) {
	payload := map[string]any{
		"user_id": s.UserID,
		"online":  online,
	}
	s.bus.Publish(bus.ConversationGroup(conversationID),
		events.New(events.EventPresence, conversationID, payload))

	ids, err := s.chat.ActiveParticipantIDs(conversationID)
	if err != nil {
		logger.Warn("presence fanout failed",
			"conversation_id", conversationID, "error", err.Error())
		return
	}
	for _, id := range ids {
		if id == s.UserID {
			continue
		}
		s.bus.Publish(bus.UserGroup(id),
			events.New(events.EventPresenceUpdate, conversationID, payload))
	}
}

func (s *Session) handleSendMessage(ctx context.Context, action Action) {
	if !s.requireActive(ActionSendMessage) {
		return
	}
	var p sendMessagePayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		s.sendError(ActionSendMessage, apperrors.ValidationError("chat", "malformed payload"))
		return
	}
	s.touchPresence(ctx)
	_, err := s.chat.SendMessage(ctx, s.TenantID, s.UserID, chatservice.SendMessageInput{
		ConversationID: s.conversationID,
		Content:        p.Content,
		AttachmentURL:  p.AttachmentURL,
		AttachmentName: p.AttachmentName,
		ReplyToID:      p.ReplyToID,
	})
	if err != nil {
		s.sendError(ActionSendMessage, err)
	}
}

func (s *Session) handleEdit(action Action) {
	if !s.requireActive(ActionEditMessage) {
		return
	}
	var p editMessagePayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		s.sendError(ActionEditMessage, apperrors.ValidationError("chat", "malformed payload"))
		return
	}
	if _, err := s.chat.EditMessage(s.TenantID, s.UserID, p.MessageID, p.Content); err != nil {
		s.sendError(ActionEditMessage, err)
	}
}

func (s *Session) handleDelete(action Action) {
	if !s.requireActive(ActionDeleteMessage) {
		return
	}
	var p deleteMessagePayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		s.sendError(ActionDeleteMessage, apperrors.ValidationError("chat", "malformed payload"))
		return
	}
	if err := s.chat.DeleteMessage(s.TenantID, s.UserID, p.MessageID); err != nil {
		s.sendError(ActionDeleteMessage, err)
	}
}

func (s *Session) handleMarkRead(action Action) {
	if !s.requireActive(ActionMarkRead) {
		return
	}
	if _, err := s.chat.MarkRead(s.TenantID, s.UserID, s.conversationID); err != nil {
		s.sendError(ActionMarkRead, err)
	}
}

func (s *Session) handleTyping(action Action) {
	if !s.requireActive(ActionTyping) {
		return
	}
	var p typingPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		s.sendError(ActionTyping, apperrors.ValidationError("chat", "malformed payload"))
		return
	}
	if err := s.chat.Typing(s.UserID, s.conversationID, p.Typing); err != nil {
		s.sendError(ActionTyping, err)
	}
}

func (s *Session) handleReaction(action Action) {
	if !s.requireActive(ActionReaction) {
		return
	}
	var p reactionPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		s.sendError(ActionReaction, apperrors.ValidationError("chat", "malformed payload"))
		return
	}
	if _, err := s.reactions.Toggle(s.UserID, p.MessageID, p.Emoji); err != nil {
		s.sendError(ActionReaction, err)
	}
}

func (s *Session) handlePin(action Action) {
	if !s.requireActive(ActionPin) {
		return
	}
	var p pinPayload
	if err := json.Unmarshal(action.Payload, &p); err != nil {
		s.sendError(ActionPin, apperrors.ValidationError("chat", "malformed payload"))
		return
	}
	if _, err := s.pins.Toggle(s.UserID, p.MessageID); err != nil {
		s.sendError(ActionPin, err)
	}
}

func (s *Session) requireActive(action string) bool {
	if s.state != StateActive {
		s.sendError(action, apperrors.Conflict("chat", "Join a conversation first"))
		return false
	}
	return true
}

// touchPresence refreshes the session's presence entries; pings and sends
// both count as liveness.
func (s *Session) touchPresence(ctx context.Context) {
	if err := s.presence.Mark(ctx, presence.GlobalScope, s.UserID); err != nil {
		logger.Warn("presence mark failed", "user_id", s.UserID, "error", err.Error())
	}
	if s.conversationID != "" {
		if err := s.presence.Mark(ctx, presence.ConversationScope(s.conversationID), s.UserID); err != nil {
			logger.Warn("presence mark failed", "user_id", s.UserID, "error", err.Error())
		}
	}
}

// errorFrame is what a rejected action looks like on the wire.
type errorFrame struct {
	Type    string `json:"type"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

func (s *Session) sendError(action string, err error) {
	frame := errorFrame{
		Type:    "error",
		Action:  action,
		Code:    string(apperrors.CodeInternalError),
		Message: "Internal error",
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	forbidden := false
	if appErr, ok := apperrors.AsAppError(err); ok {
		frame.Code = string(appErr.Code)
		frame.Message = appErr.Message
		forbidden = appErr.Code == apperrors.CodeForbidden
	}
	s.out.Deliver(frame)

	// Authorization failures end the session; everything else is answered
	// and the connection lives on.
	if forbidden {
		s.Close(context.Background())
		if s.requestClose != nil {
			s.requestClose()
		}
	}
}
