package chat

import (
	"commhub/internal/bus"
	"commhub/internal/events"
	chatmodels "commhub/internal/models/chat"
	chatrepo "commhub/internal/repositories/chat"
	"commhub/pkg/apperrors"
)

// PinService toggles message pins; any participant can pin or unpin.
type PinService struct {
	pins          *chatrepo.PinRepository
	messages      *chatrepo.MessageRepository
	conversations *chatrepo.ConversationRepository
	bus           bus.Bus
}

func NewPinService(
	pins *chatrepo.PinRepository,
	messages *chatrepo.MessageRepository,
	conversations *chatrepo.ConversationRepository,
	eventBus bus.Bus,
) *PinService {
	return &PinService{
		pins:          pins,
		messages:      messages,
		conversations: conversations,
		bus:           eventBus,
	}
}

// Toggle pins the message if unpinned, unpins if pinned. Returns whether
// the message is pinned after the call.
func (s *PinService) Toggle(userID, messageID string) (bool, error) {
	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return false, apperrors.NotFound("chat", "Message not found")
	}
	member, err := s.conversations.IsParticipant(userID, msg.ConversationID)
	if err != nil {
		return false, apperrors.DatabaseError("chat", err)
	}
	if !member {
		return false, apperrors.Forbidden("chat", "Not a participant of this conversation")
	}

	existing, err := s.pins.Find(msg.ConversationID, messageID)
	if err != nil {
		return false, apperrors.DatabaseError("chat", err)
	}

	pinned := existing == nil
	if existing != nil {
		if err := s.pins.Delete(existing.ID); err != nil {
			return false, apperrors.DatabaseError("chat", err)
		}
	} else {
		if err := s.pins.Create(&chatmodels.MessagePin{
			ConversationID: msg.ConversationID,
			MessageID:      messageID,
			PinnedBy:       userID,
		}); err != nil {
			return false, apperrors.DatabaseError("chat", err)
		}
	}

	s.bus.Publish(bus.ConversationGroup(msg.ConversationID),
		events.New(events.EventMessagePinned, msg.ConversationID, map[string]any{
			"message_id": messageID,
			"pinned":     pinned,
			"user_id":    userID,
		}))
	return pinned, nil
}

// Pinned lists the conversation's pins for a participant.
func (s *PinService) Pinned(userID, conversationID string) ([]chatmodels.MessagePin, error) {
	member, err := s.conversations.IsParticipant(userID, conversationID)
	if err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	if !member {
		return nil, apperrors.Forbidden("chat", "Not a participant of this conversation")
	}
	pins, err := s.pins.ListByConversation(conversationID)
	if err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	return pins, nil
}
