package crypto

import (
	"sync"

	"cashchain/core/types"
)

// KeyID names a signing key held by a keyring.
type KeyID string

// DevKeyID is the key id used by development nodes.
const DevKeyID KeyID = "dev"

// DevKeyHex is the well known development secret.
const DevKeyHex = "50f05592dc31bfc65a77c4cc80f2764ba8f9a7cce29c94a51fe2d70cb5599374"

// SignResult is the outcome of signing one message of a batch.
type SignResult struct {
	Signature [types.SignatureLength]byte
	Err       error
}

// Keyring signs with keys it holds. Sign fails as a whole only when the key
// is unavailable; per message failures are reported in the result slice,
// which preserves input order.
type Keyring interface {
	Sign(messages [][]byte, id KeyID) ([]SignResult, error)
	SignOne(message []byte, id KeyID) ([types.SignatureLength]byte, error)
	EthAddress(id KeyID) ([20]byte, error)
}

// SignBatch signs messages with the Ethereum preamble.
func SignBatch(ring Keyring, id KeyID, messages [][]byte) ([]SignResult, error) {
	if ring == nil {
		return nil, types.CryptoError{Kind: KindKeyNotFound}
	}
	return ring.Sign(messages, id)
}

// InMemoryKeyring keeps secp256k1 keys in process memory.
type InMemoryKeyring struct {
	mu   sync.RWMutex
	keys map[KeyID]*PrivateKey
}

// NewInMemoryKeyring returns an empty keyring.
func NewInMemoryKeyring() *InMemoryKeyring {
	return &InMemoryKeyring{keys: make(map[KeyID]*PrivateKey)}
}

// NewDevKeyring returns a keyring holding the development key.
func NewDevKeyring() *InMemoryKeyring {
	ring := NewInMemoryKeyring()
	key, err := PrivateKeyFromHex(DevKeyHex)
	if err != nil {
		panic(err)
	}
	ring.Add(DevKeyID, key)
	return ring
}

// Add registers key under id, replacing any previous key.
func (r *InMemoryKeyring) Add(id KeyID, key *PrivateKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[id] = key
}

func (r *InMemoryKeyring) key(id KeyID) (*PrivateKey, error) {
	if id == "" {
		return nil, types.CryptoError{Kind: KindInvalidKeyID}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.keys[id]
	if !ok {
		return nil, types.CryptoError{Kind: KindKeyNotFound}
	}
	return key, nil
}

// Sign implements Keyring.
func (r *InMemoryKeyring) Sign(messages [][]byte, id KeyID) ([]SignResult, error) {
	key, err := r.key(id)
	if err != nil {
		return nil, err
	}
	out := make([]SignResult, len(messages))
	for i, msg := range messages {
		out[i].Signature, out[i].Err = EthSign(msg, key, true)
	}
	return out, nil
}

// SignOne implements Keyring.
func (r *InMemoryKeyring) SignOne(message []byte, id KeyID) ([types.SignatureLength]byte, error) {
	key, err := r.key(id)
	if err != nil {
		return [types.SignatureLength]byte{}, err
	}
	return EthSign(message, key, true)
}

// EthAddress implements Keyring.
func (r *InMemoryKeyring) EthAddress(id KeyID) ([20]byte, error) {
	key, err := r.key(id)
	if err != nil {
		return [20]byte{}, err
	}
	return key.PubKey().EthAddress(), nil
}
