package chat

import (
	"context"
	"testing"

	"commhub/internal/bus"
	"commhub/internal/events"
	chatmodels "commhub/internal/models/chat"
	chatrepo "commhub/internal/repositories/chat"
	"commhub/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReactionFixture(t *testing.T) (*fixture, *ReactionService, *PinService) {
	t.Helper()
	f := newFixture(t)
	reactions := chatrepo.NewReactionRepository(f.db)
	pins := chatrepo.NewPinRepository(f.db)
	return f,
		NewReactionService(reactions, f.msgs, f.convs, f.bus),
		NewPinService(pins, f.msgs, f.convs, f.bus)
}

func sendTestMessage(t *testing.T, f *fixture, conversationID, sender, content string) *chatmodels.Message {
	t.Helper()
	msg, err := f.svc.SendMessage(context.Background(), "t1", sender, SendMessageInput{
		ConversationID: conversationID,
		Content:        content,
	})
	require.NoError(t, err)
	return msg
}

func TestReactionToggleIsInvolution(t *testing.T) {
	f, reactions, _ := newReactionFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := sendTestMessage(t, f, conv.ID, "alice", "hello")

	list, err := reactions.Toggle("bob", msg.ID, "👍")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].UserID)

	list, err = reactions.Toggle("bob", msg.ID, "👍")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestReactionsAreIndependentPerUserAndEmoji(t *testing.T) {
	f, reactions, _ := newReactionFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := sendTestMessage(t, f, conv.ID, "alice", "hello")

	_, err := reactions.Toggle("alice", msg.ID, "👍")
	require.NoError(t, err)
	_, err = reactions.Toggle("bob", msg.ID, "👍")
	require.NoError(t, err)
	list, err := reactions.Toggle("bob", msg.ID, "🎉")
	require.NoError(t, err)
	assert.Len(t, list, 3)

	// Removing bob's thumbs-up leaves the other two untouched.
	list, err = reactions.Toggle("bob", msg.ID, "👍")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestReactionRequiresMembership(t *testing.T) {
	f, reactions, _ := newReactionFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := sendTestMessage(t, f, conv.ID, "alice", "hello")

	_, err := reactions.Toggle("mallory", msg.ID, "👍")
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}

func TestReactionBroadcastsFullList(t *testing.T) {
	f, reactions, _ := newReactionFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := sendTestMessage(t, f, conv.ID, "alice", "hello")

	_, err := reactions.Toggle("bob", msg.ID, "👍")
	require.NoError(t, err)

	var found bool
	for _, env := range f.bus.eventsFor(bus.ConversationGroup(conv.ID)) {
		if env.Event == events.EventMessageReactions {
			found = true
		}
	}
	assert.True(t, found)
}

func TestPinToggle(t *testing.T) {
	f, _, pins := newReactionFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := sendTestMessage(t, f, conv.ID, "alice", "hello")

	pinned, err := pins.Toggle("bob", msg.ID)
	require.NoError(t, err)
	assert.True(t, pinned)

	list, err := pins.Pinned("alice", conv.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "bob", list[0].PinnedBy)

	pinned, err = pins.Toggle("alice", msg.ID)
	require.NoError(t, err)
	assert.False(t, pinned)

	list, err = pins.Pinned("alice", conv.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPinRequiresMembership(t *testing.T) {
	f, _, pins := newReactionFixture(t)
	conv := f.conversation(t, "alice", "bob")
	msg := sendTestMessage(t, f, conv.ID, "alice", "hello")

	_, err := pins.Toggle("mallory", msg.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))

	_, err = pins.Pinned("mallory", conv.ID)
	assert.True(t, apperrors.Is(err, apperrors.CodeForbidden))
}
