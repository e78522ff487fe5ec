// Package chat implements the real-time messaging semantics: send, edit,
// delete, read receipts, typing, reactions and pins. Live fanout goes
// through the bus; durable state through the repositories.
package chat

import (
	"context"
	"time"

	"commhub/internal/bus"
	"commhub/internal/events"
	"commhub/internal/logger"
	chatmodels "commhub/internal/models/chat"
	"commhub/internal/presence"
	chatrepo "commhub/internal/repositories/chat"
	"commhub/pkg/apperrors"
)

const maxMessageLength = 4000

// Notifier is how chat reaches the notification module without importing
// it. The notification service implements this.
type Notifier interface {
	NotifyChatMessage(tenantID, recipientID, senderID, conversationID, preview string) error
	SyncChatRead(tenantID, userID, conversationID string) error
}

// PresenceWindows carries the two query horizons the service consults.
type PresenceWindows struct {
	Conversation time.Duration
	Global       time.Duration
}

type ChatService struct {
	conversations *chatrepo.ConversationRepository
	messages      *chatrepo.MessageRepository
	bus           bus.Bus
	presence      presence.Store
	windows       PresenceWindows
	notifier      Notifier
	clock         func() time.Time
}

func NewChatService(
	conversations *chatrepo.ConversationRepository,
	messages *chatrepo.MessageRepository,
	eventBus bus.Bus,
	presenceStore presence.Store,
	windows PresenceWindows,
	notifier Notifier,
) *ChatService {
	return &ChatService{
		conversations: conversations,
		messages:      messages,
		bus:           eventBus,
		presence:      presenceStore,
		windows:       windows,
		notifier:      notifier,
		clock:         time.Now,
	}
}

// SendMessageInput is everything a send carries besides the sender
// identity.
type SendMessageInput struct {
	ConversationID string
	Content        string
	AttachmentURL  *string
	AttachmentName *string
	ReplyToID      *string
}

// SendMessage persists the message, fans it out to the conversation
// group, and pushes an overview event plus an in-app notification to
// every other participant.
func (s *ChatService) SendMessage(ctx context.Context, tenantID, senderID string, in SendMessageInput) (*chatmodels.Message, error) {
	if err := s.requireMembership(senderID, in.ConversationID); err != nil {
		return nil, err
	}

	msg := &chatmodels.Message{
		ConversationID: in.ConversationID,
		TenantID:       tenantID,
		SenderID:       senderID,
		Content:        in.Content,
		AttachmentURL:  in.AttachmentURL,
		AttachmentName: in.AttachmentName,
		Status:         chatmodels.MessageStatusSent,
	}
	if !msg.HasContent() {
		return nil, apperrors.ValidationError("chat", "message needs text or an attachment")
	}
	if len(msg.Content) > maxMessageLength {
		return nil, apperrors.ValidationError("chat", "message too long")
	}

	// Replies stay one level deep: replying to a reply re-points at the
	// original.
	if in.ReplyToID != nil && *in.ReplyToID != "" {
		parent, err := s.messages.FindByID(*in.ReplyToID)
		if err != nil {
			return nil, apperrors.NotFound("chat", "Reply target not found")
		}
		if parent.ConversationID != in.ConversationID {
			return nil, apperrors.ValidationError("chat", "reply target is in another conversation")
		}
		target := parent.ID
		if parent.ReplyToID != nil {
			target = *parent.ReplyToID
		}
		msg.ReplyToID = &target
	}

	if err := s.messages.Create(msg); err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	if err := s.conversations.TouchActivity(in.ConversationID, s.clock()); err != nil {
		logger.Warn("conversation activity bump failed",
			"conversation_id", in.ConversationID, "error", err.Error())
	}

	// Delivered is a heuristic: someone besides the sender is live in the
	// conversation right now.
	if s.someoneElseOnline(ctx, in.ConversationID, senderID) {
		msg.Status = chatmodels.MessageStatusDelivered
		if err := s.messages.SetStatus([]string{msg.ID}, msg.Status); err != nil {
			logger.Warn("message status update failed", "message_id", msg.ID, "error", err.Error())
		}
		s.bus.Publish(bus.ConversationGroup(in.ConversationID),
			events.New(events.EventMessageStatus, in.ConversationID, map[string]any{
				"message_id": msg.ID,
				"status":     msg.Status,
			}))
	}

	s.bus.Publish(bus.ConversationGroup(in.ConversationID),
		events.New(events.EventNewMessage, in.ConversationID, msg))

	s.fanOutToParticipants(tenantID, senderID, in.ConversationID, msg)

	logger.Audit("chat.message_sent", senderID, tenantID,
		"conversation_id", in.ConversationID, "message_id", msg.ID)
	return msg, nil
}

// fanOutToParticipants pushes the overview event to every other active
// participant and produces a notification for the ones with notify on.
func (s *ChatService) fanOutToParticipants(tenantID, senderID, conversationID string, msg *chatmodels.Message) {
	participants, err := s.conversations.ActiveParticipants(conversationID)
	if err != nil {
		logger.Error("participant fanout failed",
			"conversation_id", conversationID, "error", err.Error())
		return
	}

	for i := range participants {
		p := &participants[i]
		if p.UserID == senderID {
			continue
		}

		s.bus.Publish(bus.UserGroup(p.UserID),
			events.New(events.EventConversationActivity, conversationID, map[string]any{
				"message_id": msg.ID,
				"sender_id":  senderID,
				"preview":    preview(msg),
			}))

		if !p.NotifyEnabled || s.notifier == nil {
			continue
		}
		if err := s.notifier.NotifyChatMessage(tenantID, p.UserID, senderID, conversationID, preview(msg)); err != nil {
			logger.Warn("chat notification failed",
				"conversation_id", conversationID, "recipient_id", p.UserID, "error", err.Error())
		}
	}
}

// EditMessage replaces the content; sender-only, deleted messages are
// immutable.
func (s *ChatService) EditMessage(tenantID, userID, messageID, content string) (*chatmodels.Message, error) {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return nil, apperrors.NotFound("chat", "Message not found")
	}
	if msg.SenderID != userID {
		return nil, apperrors.Forbidden("chat", "Only the sender can edit a message")
	}
	if msg.DeletedAt != nil {
		return nil, apperrors.Conflict("chat", "Message is deleted")
	}
	if content == "" {
		return nil, apperrors.ValidationError("chat", "edited content cannot be empty")
	}
	if len(content) > maxMessageLength {
		return nil, apperrors.ValidationError("chat", "message too long")
	}

	now := s.clock()
	msg.Content = content
	msg.Status = chatmodels.MessageStatusEdited
	msg.EditedAt = &now
	if err := s.messages.Save(msg); err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}

	s.bus.Publish(bus.ConversationGroup(msg.ConversationID),
		events.New(events.EventMessageEdited, msg.ConversationID, msg))
	logger.Audit("chat.message_edited", userID, tenantID, "message_id", msg.ID)
	return msg, nil
}

// DeleteMessage soft-deletes and blanks the content so history keeps the
// slot without the text.
func (s *ChatService) DeleteMessage(tenantID, userID, messageID string) error {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return apperrors.NotFound("chat", "Message not found")
	}
	if msg.SenderID != userID {
		return apperrors.Forbidden("chat", "Only the sender can delete a message")
	}
	if msg.DeletedAt != nil {
		return nil // already deleted, idempotent
	}

	now := s.clock()
	msg.Content = ""
	msg.AttachmentURL = nil
	msg.AttachmentName = nil
	msg.Status = chatmodels.MessageStatusDeleted
	msg.DeletedAt = &now
	if err := s.messages.Save(msg); err != nil {
		return apperrors.DatabaseError("chat", err)
	}

	s.bus.Publish(bus.ConversationGroup(msg.ConversationID),
		events.New(events.EventMessageDeleted, msg.ConversationID, map[string]any{
			"message_id": msg.ID,
		}))
	logger.Audit("chat.message_deleted", userID, tenantID, "message_id", msg.ID)
	return nil
}

// MarkRead receipts every unread message in the conversation for the
// user, flips their status, broadcasts, and syncs the user's chat
// notifications for this conversation to read.
func (s *ChatService) MarkRead(tenantID, userID, conversationID string) (int, error) {
	if err := s.requireMembership(userID, conversationID); err != nil {
		return 0, err
	}

	unread, err := s.messages.UnreadBy(conversationID, userID)
	if err != nil {
		return 0, apperrors.DatabaseError("chat", err)
	}
	if len(unread) == 0 {
		return 0, nil
	}

	now := s.clock()
	receipts := make([]chatmodels.MessageReadReceipt, 0, len(unread))
	ids := make([]string, 0, len(unread))
	for i := range unread {
		receipts = append(receipts, chatmodels.MessageReadReceipt{
			MessageID: unread[i].ID,
			UserID:    userID,
			ReadAt:    now,
		})
		ids = append(ids, unread[i].ID)
	}
	if err := s.messages.CreateReceipts(receipts); err != nil {
		return 0, apperrors.DatabaseError("chat", err)
	}
	if err := s.messages.SetStatus(ids, chatmodels.MessageStatusRead); err != nil {
		return 0, apperrors.DatabaseError("chat", err)
	}

	s.bus.Publish(bus.ConversationGroup(conversationID),
		events.New(events.EventMessagesRead, conversationID, map[string]any{
			"user_id":     userID,
			"message_ids": ids,
		}))

	// Overview channels hear about the read state change so unread badges
	// update without a conversation subscription.
	if participants, err := s.conversations.ActiveParticipants(conversationID); err == nil {
		for i := range participants {
			if participants[i].UserID == userID {
				continue
			}
			s.bus.Publish(bus.UserGroup(participants[i].UserID),
				events.New(events.EventConversationActivity, conversationID, map[string]any{
					"read_by":    userID,
					"read_count": len(ids),
				}))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.SyncChatRead(tenantID, userID, conversationID); err != nil {
			logger.Warn("chat read sync failed",
				"conversation_id", conversationID, "user_id", userID, "error", err.Error())
		}
	}
	return len(ids), nil
}

// Typing is broadcast-only, nothing persists.
func (s *ChatService) Typing(userID, conversationID string, typing bool) error {
	if err := s.requireMembership(userID, conversationID); err != nil {
		return err
	}
	s.bus.Publish(bus.ConversationGroup(conversationID),
		events.New(events.EventTyping, conversationID, map[string]any{
			"user_id": userID,
			"typing":  typing,
		}))
	return nil
}

// UnreadCount reports how many messages the user has not receipted in the
// conversation.
func (s *ChatService) UnreadCount(userID, conversationID string) (int, error) {
	if err := s.requireMembership(userID, conversationID); err != nil {
		return 0, err
	}
	unread, err := s.messages.UnreadBy(conversationID, userID)
	if err != nil {
		return 0, apperrors.DatabaseError("chat", err)
	}
	return len(unread), nil
}

// History returns the conversation's messages for a member.
func (s *ChatService) History(userID, conversationID string, limit int) ([]chatmodels.Message, error) {
	if err := s.requireMembership(userID, conversationID); err != nil {
		return nil, err
	}
	messages, err := s.messages.GetByConversation(conversationID, limit)
	if err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	return messages, nil
}

// OnlineInConversation returns the members currently live in the
// conversation scope.
func (s *ChatService) OnlineInConversation(ctx context.Context, conversationID string) ([]string, error) {
	return s.presence.Online(ctx, presence.ConversationScope(conversationID), s.windows.Conversation)
}

// ActiveParticipantIDs lists the users currently party to the conversation.
func (s *ChatService) ActiveParticipantIDs(conversationID string) ([]string, error) {
	participants, err := s.conversations.ActiveParticipants(conversationID)
	if err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	ids := make([]string, 0, len(participants))
	for i := range participants {
		ids = append(ids, participants[i].UserID)
	}
	return ids, nil
}

// CheckMembership is the join gate used by the session layer.
func (s *ChatService) CheckMembership(userID, conversationID string) error {
	return s.requireMembership(userID, conversationID)
}

func (s *ChatService) requireMembership(userID, conversationID string) error {
	member, err := s.conversations.IsParticipant(userID, conversationID)
	if err != nil {
		return apperrors.DatabaseError("chat", err)
	}
	if !member {
		return apperrors.Forbidden("chat", "Not a participant of this conversation")
	}
	return nil
}

func (s *ChatService) someoneElseOnline(ctx context.Context, conversationID, senderID string) bool {
	online, err := s.presence.Online(ctx, presence.ConversationScope(conversationID), s.windows.Conversation)
	if err != nil {
		logger.Warn("presence lookup failed", "conversation_id", conversationID, "error", err.Error())
		return false
	}
	for _, userID := range online {
		if userID != senderID {
			return true
		}
	}
	return false
}

const previewLength = 120

func preview(msg *chatmodels.Message) string {
	if msg.Content != "" {
		runes := []rune(msg.Content)
		if len(runes) > previewLength {
			return string(runes[:previewLength])
		}
		return msg.Content
	}
	if msg.AttachmentName != nil && *msg.AttachmentName != "" {
		return *msg.AttachmentName
	}
	return "Attachment"
}
