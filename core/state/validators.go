package state

import (
	"cashchain/core/types"
)

func (m *Manager) validatorSet(prefix []byte) ([]types.ValidatorKeys, error) {
	var out []types.ValidatorKeys
	err := m.KVIterate(prefix, func(_, value []byte) error {
		var v types.ValidatorKeys
		if err := decodeRLP(value, &v); err != nil {
			return err
		}
		out = append(out, v)
		return nil
	})
	return out, err
}

func (m *Manager) replaceSet(prefix []byte, set []types.ValidatorKeys) error {
	var stale [][]byte
	if err := m.KVIterate(prefix, func(suffix, _ []byte) error {
		stale = append(stale, join(prefix, suffix))
		return nil
	}); err != nil {
		return err
	}
	for _, key := range stale {
		if err := m.KVDelete(key); err != nil {
			return err
		}
	}
	for _, v := range set {
		if err := m.KVPut(join(prefix, v.SubstrateID[:]), v); err != nil {
			return err
		}
	}
	return nil
}

// Validators returns the active validator set in identity order.
func (m *Manager) Validators() ([]types.ValidatorKeys, error) {
	return m.validatorSet(validatorsPrefix)
}

// SetValidators replaces the active set.
func (m *Manager) SetValidators(set []types.ValidatorKeys) error {
	return m.replaceSet(validatorsPrefix, set)
}

// NextValidators returns the set queued for the next session.
func (m *Manager) NextValidators() ([]types.ValidatorKeys, error) {
	return m.validatorSet(nextValidatorsPrefix)
}

// SetNextValidators clears and replaces the queued set.
func (m *Manager) SetNextValidators(set []types.ValidatorKeys) error {
	return m.replaceSet(nextValidatorsPrefix, set)
}

// ValidatorByEthAddress finds an active validator by signing address.
func (m *Manager) ValidatorByEthAddress(addr [20]byte) (types.ValidatorKeys, bool, error) {
	set, err := m.Validators()
	if err != nil {
		return types.ValidatorKeys{}, false, err
	}
	for _, v := range set {
		if v.EthAddress == addr {
			return v, true, nil
		}
	}
	return types.ValidatorKeys{}, false, nil
}

// SetSessionKeys registers the session keys of an identity.
func (m *Manager) SetSessionKeys(id [32]byte, keys types.ValidatorKeys) error {
	return m.KVPut(join(sessionKeysPrefix, id[:]), keys)
}

// SessionKeys returns the registered session keys of an identity.
func (m *Manager) SessionKeys(id [32]byte) (types.ValidatorKeys, bool, error) {
	var keys types.ValidatorKeys
	ok, err := m.KVGet(join(sessionKeysPrefix, id[:]), &keys)
	return keys, ok, err
}

// IsPaused reports whether governance paused module.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.KVGet(join(pausePrefix, []byte(module)), &paused)
	return err == nil && ok && paused
}

// SetPaused toggles the pause flag of module.
func (m *Manager) SetPaused(module string, paused bool) error {
	if !paused {
		return m.KVDelete(join(pausePrefix, []byte(module)))
	}
	return m.KVPut(join(pausePrefix, []byte(module)), true)
}

// ChainEventState returns the ingestion state of a log.
func (m *Manager) ChainEventState(id types.ChainLogID) (types.ChainEventState, bool, error) {
	var s types.ChainEventState
	ok, err := m.KVGet(join(chainEventsPrefix, logIDBytes(id)), &s)
	return s, ok, err
}

// SetChainEventState stores the ingestion state of a log.
func (m *Manager) SetChainEventState(id types.ChainLogID, s types.ChainEventState) error {
	return m.KVPut(join(chainEventsPrefix, logIDBytes(id)), s)
}
