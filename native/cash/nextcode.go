package cash

import (
	"cashchain/core/events"
	"cashchain/core/types"
	"cashchain/native/notices"
)

// CodeHandler installs an authorised code blob. A nil handler accepts the
// code without installing it.
type CodeHandler func(code []byte) error

// SetCodeHandler wires the installer used by SetNextCodeViaHash.
func (e *Engine) SetCodeHandler(h CodeHandler) {
	if e == nil {
		return
	}
	e.code = h
}

// AllowNextCodeWithHash authorises the code whose blake3 hash is hash.
func (e *Engine) AllowNextCodeWithHash(hash [32]byte) error {
	return e.mutate(func(l *ledger) error {
		if err := l.st.SetAllowedNextCodeHash(hash); err != nil {
			return err
		}
		l.emit(events.CodeHash{Type: events.TypeAllowedNextCodeHash, Hash: hash})
		return nil
	})
}

// SetNextCodeViaHash installs code previously authorised by hash. The
// authorisation is consumed even when the installer fails; its outcome is
// reported in the emitted event.
func (e *Engine) SetNextCodeViaHash(code []byte) error {
	return e.mutate(func(l *ledger) error {
		allowed, ok, err := l.st.AllowedNextCodeHash()
		if err != nil {
			return err
		}
		hash := notices.HashBytes(types.ChainGate, code).Hash
		if !ok || allowed != hash {
			return types.ErrInvalidCodeHash
		}
		if err := l.st.ClearAllowedNextCodeHash(); err != nil {
			return err
		}
		result := "Ok"
		if e.code != nil {
			if err := e.code(code); err != nil {
				result = types.ReasonOf(err)
			}
		}
		l.emit(events.CodeHash{Type: events.TypeAttemptedSetCodeByHash, Hash: hash, Result: result})
		return nil
	})
}
