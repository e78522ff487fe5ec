// Package bus is the group-based fanout between anything that mutates chat
// or notification state and the live sessions that want to hear about it.
// It is process-local and synchronous to call; cross-instance delivery is a
// deployment concern layered on top, not this package's.
package bus

import "sync"

// Group names: one per conversation, one per user for overview events.
func ConversationGroup(conversationID string) string {
	return "conversation:" + conversationID
}

func UserGroup(userID string) string {
	return "user:" + userID
}

// Subscriber receives published events. Deliver must not block; returning
// false means the subscriber could not accept the event and will be evicted
// from the group.
type Subscriber interface {
	Deliver(event any) bool
}

// Bus delivers at-most-once to every subscriber joined at publish time.
// No ordering across groups; within one group, events from a single
// publisher arrive in publish order.
type Bus interface {
	Join(group string, sub Subscriber)
	Leave(group string, sub Subscriber)
	Publish(group string, event any)
}

type GroupBus struct {
	mu     sync.RWMutex
	groups map[string]map[Subscriber]struct{}
}

func NewGroupBus() *GroupBus {
	return &GroupBus{groups: make(map[string]map[Subscriber]struct{})}
}

func (b *GroupBus) Join(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.groups[group] == nil {
		b.groups[group] = make(map[Subscriber]struct{})
	}
	b.groups[group][sub] = struct{}{}
}

func (b *GroupBus) Leave(group string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if subs := b.groups[group]; subs != nil {
		delete(subs, sub)
		if len(subs) == 0 {
			delete(b.groups, group)
		}
	}
}

// Publish is fire-and-forget: no acknowledgement, no retry. A subscriber
// that cannot keep up is dropped from the group rather than stalling the
// publisher.
func (b *GroupBus) Publish(group string, event any) {
	b.mu.RLock()
	subs := b.groups[group]
	snapshot := make([]Subscriber, 0, len(subs))
	for sub := range subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	for _, sub := range snapshot {
		if !sub.Deliver(event) {
			b.Leave(group, sub)
		}
	}
}
