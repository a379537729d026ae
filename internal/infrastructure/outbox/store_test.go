package outbox

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "outbox.db"), "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_FIFO(t *testing.T) {
	store := openStore(t)
	base := time.Now().Add(-time.Minute)

	require.NoError(t, store.Enqueue(Item{InvitationID: "second", To: "b@example.com", Timestamp: base.Add(time.Second)}))
	require.NoError(t, store.Enqueue(Item{InvitationID: "first", To: "a@example.com", Timestamp: base}))

	items, err := store.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "first", items[0].InvitationID)
	assert.Equal(t, "second", items[1].InvitationID)

	size, err := store.Size()
	require.NoError(t, err)
	assert.Equal(t, 2, size)
}

func TestStore_RequeueMovesToBack(t *testing.T) {
	store := openStore(t)
	base := time.Now().Add(-time.Minute)

	require.NoError(t, store.Enqueue(Item{InvitationID: "a", Timestamp: base}))
	require.NoError(t, store.Enqueue(Item{InvitationID: "b", Timestamp: base.Add(time.Second)}))

	items, err := store.Peek(1)
	require.NoError(t, err)
	require.Len(t, items, 1)

	head := items[0]
	head.Retries++
	require.NoError(t, store.Requeue(head))

	items, err = store.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].InvitationID)
	assert.Equal(t, "a", items[1].InvitationID)
	assert.Equal(t, 1, items[1].Retries)
}

func TestStore_RemoveAndCleanup(t *testing.T) {
	store := openStore(t)
	now := time.Now()

	require.NoError(t, store.Enqueue(Item{InvitationID: "old", Timestamp: now.Add(-2 * time.Hour)}))
	require.NoError(t, store.Enqueue(Item{InvitationID: "fresh", Timestamp: now}))
	require.NoError(t, store.Enqueue(Item{InvitationID: "gone", Timestamp: now.Add(time.Second)}))

	items, err := store.Peek(10)
	require.NoError(t, err)
	require.NoError(t, store.Remove(items[2]))

	removed, err := store.Cleanup(now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	items, err = store.Peek(10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].InvitationID)
}

func TestStore_ClosedStore(t *testing.T) {
	var store *Store
	assert.Error(t, store.Enqueue(Item{}))
	_, err := store.Size()
	assert.Error(t, err)
	assert.NoError(t, store.Close())
}
