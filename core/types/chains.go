package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/bech32"
)

// ChainID names an external chain or the gateway chain itself.
type ChainID uint8

const (
	ChainGate ChainID = iota + 1
	ChainEth
)

// GateHRP is the bech32 prefix of gateway account text forms.
const GateHRP = "gate"

// Address widths per chain.
const (
	GateAccountLength = 32
	EthAddressLength  = 20
	HashLength        = 32
	SignatureLength   = 65
)

// ParseChainID accepts "ETH", "Eth", "eth", "GATE" and the like.
func ParseChainID(s string) (ChainID, error) {
	switch normalizeChainLabel(s) {
	case "GATE":
		return ChainGate, nil
	case "ETH":
		return ChainEth, nil
	}
	return 0, ErrBadChainID
}

func (c ChainID) String() string {
	switch c {
	case ChainGate:
		return "GATE"
	case ChainEth:
		return "ETH"
	}
	return fmt.Sprintf("CHAIN(%d)", uint8(c))
}

// Valid reports whether c is a known chain.
func (c ChainID) Valid() bool { return c == ChainGate || c == ChainEth }

// AddressLength is the account width on c.
func (c ChainID) AddressLength() int {
	if c == ChainGate {
		return GateAccountLength
	}
	return EthAddressLength
}

// ExternalChains lists the chains that receive notices.
func ExternalChains() []ChainID { return []ChainID{ChainEth} }

// ChainAccount is an account on some chain. Eth accounts use the first 20
// bytes of Address.
type ChainAccount struct {
	Chain   ChainID
	Address [32]byte
}

// NewChainAccount copies raw into an account on chain.
func NewChainAccount(chain ChainID, raw []byte) (ChainAccount, error) {
	if !chain.Valid() {
		return ChainAccount{}, ErrBadChainID
	}
	if len(raw) != chain.AddressLength() {
		return ChainAccount{}, ErrBadAccount
	}
	acc := ChainAccount{Chain: chain}
	copy(acc.Address[:], raw)
	return acc, nil
}

// EthAccount builds an Eth account from a 20 byte address.
func EthAccount(addr [20]byte) ChainAccount {
	acc := ChainAccount{Chain: ChainEth}
	copy(acc.Address[:], addr[:])
	return acc
}

// Bytes returns the chain-width address bytes.
func (a ChainAccount) Bytes() []byte {
	out := make([]byte, a.Chain.AddressLength())
	copy(out, a.Address[:])
	return out
}

// EthAddress returns the 20 byte form of an Eth account.
func (a ChainAccount) EthAddress() ([20]byte, error) {
	var out [20]byte
	if a.Chain != ChainEth {
		return out, ErrChainMismatch
	}
	copy(out[:], a.Address[:20])
	return out, nil
}

// IsZero reports whether the account is unset.
func (a ChainAccount) IsZero() bool { return a == ChainAccount{} }

func (a ChainAccount) String() string {
	return a.Chain.String() + ":0x" + hex.EncodeToString(a.Bytes())
}

// ParseChainAccount parses "ETH:0x..", "GATE:0x.." or a bech32 "gate1..".
func ParseChainAccount(s string) (ChainAccount, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(strings.ToLower(s), GateHRP+"1") {
		return decodeGateBech32(s)
	}
	label, addr, ok := strings.Cut(s, ":")
	if !ok {
		return ChainAccount{}, ErrBadAccount
	}
	chain, err := ParseChainID(label)
	if err != nil {
		return ChainAccount{}, err
	}
	raw, err := decodeHexField(addr)
	if err != nil {
		return ChainAccount{}, ErrBadAccount
	}
	return NewChainAccount(chain, raw)
}

// GateBech32 renders a gateway account as gate1...
func (a ChainAccount) GateBech32() (string, error) {
	if a.Chain != ChainGate {
		return "", ErrChainMismatch
	}
	conv, err := bech32.ConvertBits(a.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(GateHRP, conv)
}

func decodeGateBech32(s string) (ChainAccount, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil || hrp != GateHRP {
		return ChainAccount{}, ErrBadAccount
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return ChainAccount{}, ErrBadAccount
	}
	return NewChainAccount(ChainGate, raw)
}

// MarshalText implements encoding.TextMarshaler.
func (a ChainAccount) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ChainAccount) UnmarshalText(b []byte) error {
	parsed, err := ParseChainAccount(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ChainAsset identifies a token on an external chain. Only Eth assets exist.
type ChainAsset struct {
	Chain   ChainID
	Address [20]byte
}

// EthAsset builds an Eth asset.
func EthAsset(addr [20]byte) ChainAsset { return ChainAsset{Chain: ChainEth, Address: addr} }

// NewChainAsset validates chain and width.
func NewChainAsset(chain ChainID, raw []byte) (ChainAsset, error) {
	if chain != ChainEth {
		return ChainAsset{}, ErrBadAsset
	}
	if len(raw) != EthAddressLength {
		return ChainAsset{}, ErrBadAsset
	}
	var asset ChainAsset
	asset.Chain = chain
	copy(asset.Address[:], raw)
	return asset, nil
}

// ParseChainAsset parses "ETH:0x..".
func ParseChainAsset(s string) (ChainAsset, error) {
	label, addr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return ChainAsset{}, ErrBadAsset
	}
	chain, err := ParseChainID(label)
	if err != nil {
		return ChainAsset{}, err
	}
	raw, err := decodeHexField(addr)
	if err != nil {
		return ChainAsset{}, ErrBadAsset
	}
	return NewChainAsset(chain, raw)
}

func (a ChainAsset) String() string {
	return a.Chain.String() + ":0x" + hex.EncodeToString(a.Address[:])
}

// IsZero reports whether the asset is unset.
func (a ChainAsset) IsZero() bool { return a == ChainAsset{} }

// MarshalText implements encoding.TextMarshaler.
func (a ChainAsset) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *ChainAsset) UnmarshalText(b []byte) error {
	parsed, err := ParseChainAsset(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ChainHash is a 32 byte hash tagged with the chain whose hash function
// produced it (blake3 for the gateway, keccak for Eth).
type ChainHash struct {
	Chain ChainID
	Hash  [32]byte
}

// IsZero reports whether the hash bytes are all zero.
func (h ChainHash) IsZero() bool { return h.Hash == [32]byte{} }

func (h ChainHash) String() string {
	return h.Chain.String() + ":0x" + hex.EncodeToString(h.Hash[:])
}

// ZeroHash is the parent of the first notice on a chain.
func ZeroHash(chain ChainID) ChainHash { return ChainHash{Chain: chain} }

// ChainSignature is a chain native signature. Eth signatures are 65 bytes
// r||s||v.
type ChainSignature struct {
	Chain ChainID
	Sig   [SignatureLength]byte
}

// NewChainSignature copies raw into a signature for chain.
func NewChainSignature(chain ChainID, raw []byte) (ChainSignature, error) {
	if chain != ChainEth || len(raw) != SignatureLength {
		return ChainSignature{}, ErrBadSignature
	}
	sig := ChainSignature{Chain: chain}
	copy(sig.Sig[:], raw)
	return sig, nil
}

func (s ChainSignature) String() string {
	return s.Chain.String() + ":0x" + hex.EncodeToString(s.Sig[:])
}

// ChainSignatureList accumulates validator signatures for a notice.
type ChainSignatureList struct {
	Chain   ChainID
	Signers [][20]byte
	Sigs    [][SignatureLength]byte
}

// Has reports whether signer already contributed.
func (l ChainSignatureList) Has(signer [20]byte) bool {
	for _, s := range l.Signers {
		if s == signer {
			return true
		}
	}
	return false
}

// Len returns the number of signatures collected.
func (l ChainSignatureList) Len() int { return len(l.Sigs) }

// NoticeID orders notices on one chain.
type NoticeID struct {
	Era   uint32
	Index uint32
}

// Seq returns the next id within the same era.
func (n NoticeID) Seq() NoticeID { return NoticeID{Era: n.Era, Index: n.Index + 1} }

// SeqEra opens a new era.
func (n NoticeID) SeqEra() NoticeID { return NoticeID{Era: n.Era + 1, Index: 0} }

// Less orders ids by era then index.
func (n NoticeID) Less(o NoticeID) bool {
	if n.Era != o.Era {
		return n.Era < o.Era
	}
	return n.Index < o.Index
}

func (n NoticeID) String() string { return fmt.Sprintf("%d.%d", n.Era, n.Index) }

// ParseNoticeID parses "era.index".
func ParseNoticeID(s string) (NoticeID, error) {
	var id NoticeID
	if _, err := fmt.Sscanf(s, "%d.%d", &id.Era, &id.Index); err != nil {
		return NoticeID{}, fmt.Errorf("notice id %q: %w", s, err)
	}
	return id, nil
}

func decodeHexField(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, ErrBadAddress
	}
	return hex.DecodeString(s[2:])
}
