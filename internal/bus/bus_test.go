package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingSubscriber struct {
	events []any
	accept bool
}

func (s *recordingSubscriber) Deliver(event any) bool {
	if !s.accept {
		return false
	}
	s.events = append(s.events, event)
	return true
}

func TestPublishReachesGroupMembers(t *testing.T) {
	b := NewGroupBus()
	alice := &recordingSubscriber{accept: true}
	bob := &recordingSubscriber{accept: true}

	b.Join(ConversationGroup("c1"), alice)
	b.Join(ConversationGroup("c1"), bob)
	b.Publish(ConversationGroup("c1"), "hello")

	assert.Equal(t, []any{"hello"}, alice.events)
	assert.Equal(t, []any{"hello"}, bob.events)
}

func TestPublishDoesNotCrossGroups(t *testing.T) {
	b := NewGroupBus()
	alice := &recordingSubscriber{accept: true}

	b.Join(ConversationGroup("c1"), alice)
	b.Publish(ConversationGroup("c2"), "hello")
	b.Publish(UserGroup("alice"), "hello")

	assert.Empty(t, alice.events)
}

func TestLeaveStopsDelivery(t *testing.T) {
	b := NewGroupBus()
	alice := &recordingSubscriber{accept: true}

	b.Join(ConversationGroup("c1"), alice)
	b.Leave(ConversationGroup("c1"), alice)
	b.Publish(ConversationGroup("c1"), "hello")

	assert.Empty(t, alice.events)
}

func TestFailedDeliverEvicts(t *testing.T) {
	b := NewGroupBus()
	slow := &recordingSubscriber{accept: false}
	fine := &recordingSubscriber{accept: true}

	b.Join(ConversationGroup("c1"), slow)
	b.Join(ConversationGroup("c1"), fine)

	b.Publish(ConversationGroup("c1"), "one")
	// slow was evicted on the first publish; flip it back to accepting and
	// verify it still hears nothing.
	slow.accept = true
	b.Publish(ConversationGroup("c1"), "two")

	assert.Empty(t, slow.events)
	assert.Equal(t, []any{"one", "two"}, fine.events)
}

func TestGroupNames(t *testing.T) {
	assert.Equal(t, "conversation:c1", ConversationGroup("c1"))
	assert.Equal(t, "user:u1", UserGroup("u1"))
}
