package chat

import (
	"commhub/internal/bus"
	"commhub/internal/events"
	chatmodels "commhub/internal/models/chat"
	chatrepo "commhub/internal/repositories/chat"
	"commhub/pkg/apperrors"
)

// ReactionService toggles emoji reactions. Toggling is an involution:
// the same (user, message, emoji) twice lands back where it started.
type ReactionService struct {
	reactions     *chatrepo.ReactionRepository
	messages      *chatrepo.MessageRepository
	conversations *chatrepo.ConversationRepository
	bus           bus.Bus
}

func NewReactionService(
	reactions *chatrepo.ReactionRepository,
	messages *chatrepo.MessageRepository,
	conversations *chatrepo.ConversationRepository,
	eventBus bus.Bus,
) *ReactionService {
	return &ReactionService{
		reactions:     reactions,
		messages:      messages,
		conversations: conversations,
		bus:           eventBus,
	}
}

// Toggle adds the reaction if absent, removes it if present, then
// broadcasts the message's full reaction list so clients replace rather
// than patch.
func (s *ReactionService) Toggle(userID, messageID, emoji string) ([]chatmodels.MessageReaction, error) {
	if emoji == "" {
		return nil, apperrors.ValidationError("chat", "emoji is required")
	}

	msg, err := s.messages.FindByID(messageID)
	if err != nil {
		return nil, apperrors.NotFound("chat", "Message not found")
	}
	member, err := s.conversations.IsParticipant(userID, msg.ConversationID)
	if err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	if !member {
		return nil, apperrors.Forbidden("chat", "Not a participant of this conversation")
	}

	existing, err := s.reactions.Find(messageID, userID, emoji)
	if err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	if existing != nil {
		if err := s.reactions.Delete(existing.ID); err != nil {
			return nil, apperrors.DatabaseError("chat", err)
		}
	} else {
		if err := s.reactions.Create(&chatmodels.MessageReaction{
			MessageID: messageID,
			UserID:    userID,
			Emoji:     emoji,
		}); err != nil {
			return nil, apperrors.DatabaseError("chat", err)
		}
	}

	list, err := s.reactions.ListByMessage(messageID)
	if err != nil {
		return nil, apperrors.DatabaseError("chat", err)
	}
	s.bus.Publish(bus.ConversationGroup(msg.ConversationID),
		events.New(events.EventMessageReactions, msg.ConversationID, map[string]any{
			"message_id": messageID,
			"reactions":  list,
		}))
	return list, nil
}
