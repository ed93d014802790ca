package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
)

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// EthAddress derives the 20 byte Ethereum address of the key.
func (k *PublicKey) EthAddress() [20]byte {
	return EthAddress(TaggedPubToRaw(crypto.FromECDSAPub(k.PublicKey)))
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// PrivateKeyFromHex parses a 32 byte hex secret with or without 0x.
func PrivateKeyFromHex(s string) (*PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("crypto: parse private key: %w", err)
	}
	return &PrivateKey{key}, nil
}

// TaggedPubToRaw strips the 0x04 tag of an uncompressed public key.
func TaggedPubToRaw(tagged []byte) []byte {
	if len(tagged) == 65 && tagged[0] == 0x04 {
		return tagged[1:]
	}
	return tagged
}

// EthAddress is the last 20 bytes of keccak(raw 64 byte public key).
func EthAddress(raw []byte) [20]byte {
	var out [20]byte
	digest := Keccak256(raw)
	copy(out[:], digest[12:])
	return out
}

var errNilKey = errors.New("crypto: nil private key")
