package notices

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"lukechampine.com/blake3"

	"cashchain/core/types"
	"cashchain/crypto"
)

var (
	errUnknownKind  = errors.New("notices: unknown notice kind")
	errUnsupported  = errors.New("notices: chain does not accept notices")
	errU128Overflow = errors.New("notices: value exceeds uint128")
)

// EthMagic opens every Ethereum notice.
var EthMagic = [4]byte{'E', 'T', 'H', 0}

// Starport function signatures, hashed into the header selector.
const (
	sigUnlock            = "unlock(address,address,uint128)"
	sigUnlockCash        = "unlockCash(address,uint128,uint128)"
	sigSetSupplyCap      = "setSupplyCap(address,uint128)"
	sigSetFutureYield    = "setFutureYield(uint128,uint128,uint64)"
	sigChangeAuthorities = "changeAuthorities(address[])"
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	addressT   = mustType("address")
	addressesT = mustType("address[]")
	uint128T   = mustType("uint128")
	uint64T    = mustType("uint64")

	extractionArgs      = abi.Arguments{{Type: addressT}, {Type: addressT}, {Type: uint128T}}
	cashExtractionArgs  = abi.Arguments{{Type: addressT}, {Type: uint128T}, {Type: uint128T}}
	setSupplyCapArgs    = abi.Arguments{{Type: addressT}, {Type: uint128T}}
	futureYieldArgs     = abi.Arguments{{Type: uint128T}, {Type: uint128T}, {Type: uint64T}}
	changeAuthorityArgs = abi.Arguments{{Type: addressesT}}
)

// Selector returns the four byte starport selector of kind.
func Selector(kind types.NoticeKind) ([4]byte, error) {
	var sig string
	switch kind {
	case types.NoticeExtraction:
		sig = sigUnlock
	case types.NoticeCashExtraction:
		sig = sigUnlockCash
	case types.NoticeSetSupplyCap:
		sig = sigSetSupplyCap
	case types.NoticeFutureYield:
		sig = sigSetFutureYield
	case types.NoticeChangeAuthority:
		sig = sigChangeAuthorities
	default:
		return [4]byte{}, errUnknownKind
	}
	h := crypto.Keccak256([]byte(sig))
	var out [4]byte
	copy(out[:], h[:4])
	return out, nil
}

func u128(v *big.Int) (*big.Int, error) {
	if v == nil {
		return new(big.Int), nil
	}
	u, overflow := uint256.FromBig(v)
	if v.Sign() < 0 || overflow || u.BitLen() > 128 {
		return nil, errU128Overflow
	}
	return u.ToBig(), nil
}

func packArgs(n types.Notice) ([]byte, error) {
	switch n.Kind {
	case types.NoticeExtraction:
		amount, err := u128(n.Amount)
		if err != nil {
			return nil, err
		}
		return extractionArgs.Pack(common.Address(n.Asset), common.Address(n.Recipient), amount)
	case types.NoticeCashExtraction:
		principal, err := u128(n.Principal)
		if err != nil {
			return nil, err
		}
		index, err := u128(n.CashIndex)
		if err != nil {
			return nil, err
		}
		return cashExtractionArgs.Pack(common.Address(n.Recipient), principal, index)
	case types.NoticeSetSupplyCap:
		limit, err := u128(n.Cap)
		if err != nil {
			return nil, err
		}
		return setSupplyCapArgs.Pack(common.Address(n.Asset), limit)
	case types.NoticeFutureYield:
		index, err := u128(n.NextCashIndex)
		if err != nil {
			return nil, err
		}
		return futureYieldArgs.Pack(new(big.Int).SetUint64(n.NextYield), index, n.NextStart)
	case types.NoticeChangeAuthority:
		addrs := make([]common.Address, len(n.Authorities))
		for i, a := range n.Authorities {
			addrs[i] = common.Address(a)
		}
		return changeAuthorityArgs.Pack(addrs)
	}
	return nil, errUnknownKind
}

// Encode renders the bytes a starport verifies: magic, era and index as big
// endian u32, parent hash, selector, then the ABI encoded arguments.
func Encode(n types.Notice) ([]byte, error) {
	if n.Chain != types.ChainEth {
		return nil, errUnsupported
	}
	selector, err := Selector(n.Kind)
	if err != nil {
		return nil, err
	}
	args, err := packArgs(n)
	if err != nil {
		return nil, fmt.Errorf("notices: encode %s: %w", n.Kind, err)
	}
	out := make([]byte, 0, 48+len(args))
	out = append(out, EthMagic[:]...)
	out = binary.BigEndian.AppendUint32(out, n.ID.Era)
	out = binary.BigEndian.AppendUint32(out, n.ID.Index)
	out = append(out, n.Parent[:]...)
	out = append(out, selector[:]...)
	return append(out, args...), nil
}

// HashBytes hashes data the way chain does: keccak256 for Ethereum, blake3
// for the gateway chain.
func HashBytes(chain types.ChainID, data []byte) types.ChainHash {
	h := types.ChainHash{Chain: chain}
	if chain == types.ChainGate {
		h.Hash = blake3.Sum256(data)
		return h
	}
	h.Hash = crypto.Keccak256(data)
	return h
}

// Hash encodes n and hashes the encoding.
func Hash(n types.Notice) (types.ChainHash, []byte, error) {
	encoded, err := Encode(n)
	if err != nil {
		return types.ChainHash{}, nil, err
	}
	return HashBytes(n.Chain, encoded), encoded, nil
}

// Sign produces a validator signature over the encoded notice.
func Sign(n types.Notice, ring crypto.Keyring, id crypto.KeyID) (types.ChainSignature, error) {
	encoded, err := Encode(n)
	if err != nil {
		return types.ChainSignature{}, err
	}
	sig, err := ring.SignOne(encoded, id)
	if err != nil {
		return types.ChainSignature{}, err
	}
	return types.ChainSignature{Chain: n.Chain, Sig: sig}, nil
}

// RecoverSigner returns the Ethereum address that signed the notice.
func RecoverSigner(n types.Notice, sig types.ChainSignature) ([20]byte, error) {
	if sig.Chain != n.Chain {
		return [20]byte{}, types.ErrSignatureMismatch
	}
	encoded, err := Encode(n)
	if err != nil {
		return [20]byte{}, err
	}
	return crypto.EthRecover(encoded, sig.Sig[:], true)
}
