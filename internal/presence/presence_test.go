package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore()
	store.now = func() time.Time { return now }
	return store, &now
}

func TestMemoryStoreMarkAndOnline(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	scope := ConversationScope("conv-1")
	require.NoError(t, store.Mark(ctx, scope, "alice"))
	require.NoError(t, store.Mark(ctx, scope, "bob"))

	online, err := store.Online(ctx, scope, time.Minute)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, online)
}

func TestMemoryStoreOnlinePrunesStale(t *testing.T) {
	ctx := context.Background()
	store, now := newTestStore(t)

	scope := ConversationScope("conv-1")
	require.NoError(t, store.Mark(ctx, scope, "alice"))

	*now = now.Add(30 * time.Second)
	require.NoError(t, store.Mark(ctx, scope, "bob"))

	// 61 seconds after alice's mark: she is past the window, bob is not.
	*now = now.Add(31 * time.Second)
	online, err := store.Online(ctx, scope, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, online)

	// The prune is physical, not just filtered out of the answer.
	*now = now.Add(-31 * time.Second)
	online, err = store.Online(ctx, scope, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, online)
}

func TestMemoryStoreRemove(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.Mark(ctx, GlobalScope, "alice"))
	require.NoError(t, store.Remove(ctx, GlobalScope, "alice"))

	online, err := store.Online(ctx, GlobalScope, time.Minute)
	require.NoError(t, err)
	assert.Empty(t, online)
}

func TestMemoryStoreRemoveUnknownIsNoop(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	assert.NoError(t, store.Remove(ctx, GlobalScope, "ghost"))
}

func TestMemoryStorePruneUsesPerScopeTTL(t *testing.T) {
	ctx := context.Background()
	store, now := newTestStore(t)

	require.NoError(t, store.Mark(ctx, GlobalScope, "alice"))
	require.NoError(t, store.Mark(ctx, ConversationScope("conv-1"), "alice"))

	// 90s later: past the 60s conversation TTL, inside the 120s global one.
	*now = now.Add(90 * time.Second)
	store.Prune(60*time.Second, 120*time.Second)

	convOnline, err := store.Online(ctx, ConversationScope("conv-1"), 10*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, convOnline)

	globalOnline, err := store.Online(ctx, GlobalScope, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, globalOnline)
}

func TestScopeNames(t *testing.T) {
	assert.Equal(t, "conversation:abc", ConversationScope("abc"))
	assert.Equal(t, "global", GlobalScope)
}
