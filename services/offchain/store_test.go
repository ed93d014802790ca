package offchain

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "offchain.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestTryLockExcludesOtherHolders(t *testing.T) {
	store := openTestStore(t)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	ok, err := store.TryLock("oracle", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = store.TryLock("oracle", "b", time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	// The holder may renew.
	ok, err = store.TryLock("oracle", "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.ErrorIs(t, store.Unlock("oracle", "b"), ErrNotHeld)
	require.NoError(t, store.Unlock("oracle", "a"))
	ok, err = store.TryLock("oracle", "b", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTryLockExpires(t *testing.T) {
	store := openTestStore(t)
	now := time.Unix(1_700_000_000, 0)
	store.now = func() time.Time { return now }

	ok, err := store.TryLock("starport", "a", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	ok, err = store.TryLock("starport", "b", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestCursorRoundTrip(t *testing.T) {
	store := openTestStore(t)
	_, found, err := store.Cursor("eth")
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, store.SetCursor("eth", 1234))
	value, found, err := store.Cursor("eth")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, uint64(1234), value)
}
