// Package presence tracks advisory user->last_seen state per scope.
// Entries are lossy across restarts; only UI indication and "delivered"
// heuristics depend on them.
package presence

import (
	"context"
	"time"
)

// GlobalScope covers the whole deployment; conversation scopes are derived
// with ConversationScope.
const GlobalScope = "global"

func ConversationScope(conversationID string) string {
	return "conversation:" + conversationID
}

// Store is injected wherever presence is consulted; never reach for a
// package-level map. Two backends: in-process for a single instance,
// Redis for multi-instance deployments.
type Store interface {
	// Mark upserts user's last-seen to now.
	Mark(ctx context.Context, scope, userID string) error
	// Remove drops the entry immediately (disconnect).
	Remove(ctx context.Context, scope, userID string) error
	// Online prunes entries older than maxAge and returns the survivors.
	Online(ctx context.Context, scope string, maxAge time.Duration) ([]string, error)
}

// Windows pairs the two liveness horizons: TTL is the prune horizon,
// QueryWindow (>= TTL) is the observer's "who is online" horizon.
type Windows struct {
	TTL         time.Duration
	QueryWindow time.Duration
}
