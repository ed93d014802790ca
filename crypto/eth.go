package crypto

import (
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"cashchain/core/types"
)

// Crypto error kinds surfaced through types.CryptoError.
const (
	KindUnknown         = "Unknown"
	KindKeyNotFound     = "KeyNotFound"
	KindKeyringLock     = "KeyringLock"
	KindInvalidKeyID    = "InvalidKeyId"
	KindParseError      = "ParseError"
	KindRecoverError    = "RecoverError"
	KindHSMError        = "HSMError"
	KindHexDecodeFailed = "HexDecodeFailed"
)

// EthPreamble prefixes personal-sign messages.
const EthPreamble = "\x19Ethereum Signed Message:\n"

var (
	secp256k1N     = new(big.Int).Set(crypto.S256().Params().N)
	secp256k1HalfN = new(big.Int).Rsh(secp256k1N, 1)
)

// Keccak256 hashes data.
func Keccak256(data ...[]byte) [32]byte {
	var out [32]byte
	copy(out[:], crypto.Keccak256(data...))
	return out
}

// EthKeccakForSignature hashes msg, optionally behind the personal-sign
// preamble and the decimal message length.
func EthKeccakForSignature(msg []byte, preamble bool) [32]byte {
	if !preamble {
		return Keccak256(msg)
	}
	prefix := EthPreamble + strconv.Itoa(len(msg))
	return Keccak256([]byte(prefix), msg)
}

// EthSign signs msg and returns r||s||v with v in {27, 28}.
func EthSign(msg []byte, key *PrivateKey, preamble bool) ([types.SignatureLength]byte, error) {
	var out [types.SignatureLength]byte
	if key == nil || key.PrivateKey == nil {
		return out, errNilKey
	}
	digest := EthKeccakForSignature(msg, preamble)
	sig, err := crypto.Sign(digest[:], key.PrivateKey)
	if err != nil {
		return out, types.CryptoError{Kind: KindUnknown}
	}
	copy(out[:], sig)
	out[64] += 27
	return out, nil
}

// EthRecover returns the address that signed msg. The recovery byte may be
// raw (0, 1), legacy (27, 28) or chain-embedded (35 and above). High-s
// signatures are normalised before recovery.
func EthRecover(msg []byte, sig []byte, preamble bool) ([20]byte, error) {
	var out [20]byte
	if len(sig) != types.SignatureLength {
		return out, types.CryptoError{Kind: KindParseError}
	}
	recID, ok := recoveryID(sig[64])
	if !ok {
		return out, types.CryptoError{Kind: KindRecoverError}
	}
	normalized := make([]byte, types.SignatureLength)
	copy(normalized, sig)
	s := new(big.Int).SetBytes(normalized[32:64])
	if s.Sign() == 0 || s.Cmp(secp256k1N) >= 0 {
		return out, types.CryptoError{Kind: KindRecoverError}
	}
	if s.Cmp(secp256k1HalfN) > 0 {
		s.Sub(secp256k1N, s)
		s.FillBytes(normalized[32:64])
		recID ^= 1
	}
	normalized[64] = recID
	digest := EthKeccakForSignature(msg, preamble)
	pub, err := crypto.SigToPub(digest[:], normalized)
	if err != nil {
		return out, types.CryptoError{Kind: KindRecoverError}
	}
	return EthAddress(TaggedPubToRaw(crypto.FromECDSAPub(pub))), nil
}

func recoveryID(v byte) (byte, bool) {
	switch {
	case v == 0 || v == 1:
		return v, true
	case v == 27 || v == 28:
		return v - 27, true
	case v >= 35:
		return 1 - v%2, true
	}
	return 0, false
}

// EthSignatureFromBytes accepts r||s||v (65 bytes) or r||s followed by v
// padded to a 32 byte word (96 bytes).
func EthSignatureFromBytes(b []byte) ([types.SignatureLength]byte, error) {
	var out [types.SignatureLength]byte
	if len(b) != types.SignatureLength && len(b) != 96 {
		return out, types.CryptoError{Kind: KindParseError}
	}
	copy(out[:64], b[:64])
	out[64] = b[len(b)-1]
	return out, nil
}

// HexEncode renders b as lower case hex without a prefix.
func HexEncode(b []byte) string { return hex.EncodeToString(b) }

// EthEncodeHex renders b as 0x-prefixed lower case hex.
func EthEncodeHex(b []byte) string { return "0x" + hex.EncodeToString(b) }

// EthDecodeHex decodes 0x-prefixed hex. "0x" decodes to an empty slice;
// missing prefixes, odd lengths and non hex digits fail.
func EthDecodeHex(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, types.CryptoError{Kind: KindHexDecodeFailed}
	}
	out, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, types.CryptoError{Kind: KindHexDecodeFailed}
	}
	return out, nil
}
