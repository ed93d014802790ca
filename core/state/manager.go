package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"cashchain/storage"
)

// Manager provides typed access to the ledger's persisted maps. Every value
// is RLP encoded under a table prefix followed by its fixed width key
// components, so tables can be scanned in key order.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

var errNoManager = errors.New("state: manager unavailable")

// Atomic runs fn against a buffered view of the state. Changes reach the
// underlying database only when fn returns nil.
func (m *Manager) Atomic(fn func(*Manager) error) error {
	if m == nil || m.db == nil {
		return errNoManager
	}
	overlay := storage.NewOverlay(m.db)
	if err := fn(&Manager{db: overlay}); err != nil {
		return err
	}
	return overlay.Commit()
}

// KVPut stores an arbitrary RLP encodable value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if m == nil || m.db == nil {
		return errNoManager
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %x: %w", key, err)
	}
	return m.db.Put(key, encoded)
}

// KVGet decodes the value under key into out, reporting whether it existed.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if m == nil || m.db == nil {
		return false, errNoManager
	}
	data, err := m.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("state: decode %x: %w", key, err)
	}
	return true, nil
}

// KVDelete removes key.
func (m *Manager) KVDelete(key []byte) error {
	if m == nil || m.db == nil {
		return errNoManager
	}
	return m.db.Delete(key)
}

// KVIterate visits every entry under prefix. The callback receives the key
// with the prefix stripped.
func (m *Manager) KVIterate(prefix []byte, fn func(suffix, value []byte) error) error {
	if m == nil || m.db == nil {
		return errNoManager
	}
	var inner error
	err := m.db.Iterate(prefix, func(key, value []byte) bool {
		inner = fn(key[len(prefix):], value)
		return inner == nil
	})
	if err != nil {
		return err
	}
	return inner
}

// signedValue is the RLP form of a signed integer.
type signedValue struct {
	Neg bool
	Abs *big.Int
}

func toSigned(v *big.Int) signedValue {
	if v == nil {
		return signedValue{Abs: new(big.Int)}
	}
	return signedValue{Neg: v.Sign() < 0, Abs: new(big.Int).Abs(v)}
}

func (s signedValue) Int() *big.Int {
	out := new(big.Int)
	if s.Abs != nil {
		out.Set(s.Abs)
	}
	if s.Neg {
		out.Neg(out)
	}
	return out
}

func (m *Manager) putSigned(key []byte, v *big.Int) error {
	if v == nil || v.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, toSigned(v))
}

func (m *Manager) getSigned(key []byte) (*big.Int, error) {
	var s signedValue
	ok, err := m.KVGet(key, &s)
	if err != nil || !ok {
		return new(big.Int), err
	}
	return s.Int(), nil
}

func (m *Manager) putBig(key []byte, v *big.Int) error {
	if v == nil || v.Sign() == 0 {
		return m.KVDelete(key)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("state: negative value for %x", key)
	}
	return m.KVPut(key, v)
}

func (m *Manager) getBig(key []byte) (*big.Int, error) {
	out := new(big.Int)
	if _, err := m.KVGet(key, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *Manager) getUint64(key []byte) (uint64, bool, error) {
	var v uint64
	ok, err := m.KVGet(key, &v)
	return v, ok, err
}

func decodeRLP(data []byte, out interface{}) error {
	return rlp.DecodeBytes(data, out)
}
