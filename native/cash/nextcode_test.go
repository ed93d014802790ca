package cash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core/events"
	"cashchain/core/types"
	"cashchain/native/notices"
)

func TestSetNextCodeViaHash(t *testing.T) {
	engine, manager, rec := newTestEngine(t)
	code := []byte("runtime v2")
	var installed []byte
	engine.SetCodeHandler(func(c []byte) error {
		installed = c
		return nil
	})

	require.ErrorIs(t, engine.SetNextCodeViaHash(code), types.ErrInvalidCodeHash)

	hash := notices.HashBytes(types.ChainGate, code).Hash
	require.NoError(t, engine.AllowNextCodeWithHash(hash))
	require.ErrorIs(t, engine.SetNextCodeViaHash([]byte("runtime v3")), types.ErrInvalidCodeHash)
	rec.Drain()

	require.NoError(t, engine.SetNextCodeViaHash(code))
	require.Equal(t, code, installed)
	_, ok, err := manager.AllowedNextCodeHash()
	require.NoError(t, err)
	require.False(t, ok)

	evs := rec.Events()
	require.Len(t, evs, 1)
	attempt, ok := evs[0].(events.CodeHash)
	require.True(t, ok)
	require.Equal(t, events.TypeAttemptedSetCodeByHash, attempt.EventType())
	require.Equal(t, "Ok", attempt.Result)

	// The authorisation is single use.
	require.ErrorIs(t, engine.SetNextCodeViaHash(code), types.ErrInvalidCodeHash)
}

func TestSetNextCodeReportsInstallerFailure(t *testing.T) {
	engine, manager, rec := newTestEngine(t)
	code := []byte("broken runtime")
	engine.SetCodeHandler(func([]byte) error { return types.ErrNotImplemented })
	require.NoError(t, engine.AllowNextCodeWithHash(notices.HashBytes(types.ChainGate, code).Hash))
	rec.Drain()

	require.NoError(t, engine.SetNextCodeViaHash(code))
	_, ok, err := manager.AllowedNextCodeHash()
	require.NoError(t, err)
	require.False(t, ok)
	attempt := rec.Events()[0].(events.CodeHash)
	require.Equal(t, types.ReasonOf(types.ErrNotImplemented), attempt.Result)
}
