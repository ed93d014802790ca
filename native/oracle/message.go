package oracle

import (
	"math"

	"github.com/ethereum/go-ethereum/accounts/abi"

	"cashchain/core/types"
)

// Open price feed error kinds surfaced through types.OracleError.
const (
	KindBadTicker        = "BadTicker"
	KindCryptoError      = "CryptoError"
	KindEthAbiParseError = "EthAbiParseError"
	KindHexParseError    = "HexParseError"
	KindHttpError        = "HttpError"
	KindInvalidKind      = "InvalidKind"
	KindInvalidReporter  = "InvalidReporter"
	KindInvalidTicker    = "InvalidTicker"
	KindInvalidTimestamp = "InvalidTimestamp"
	KindJsonParseError   = "JsonParseError"
	KindNoPriceFeedURL   = "NoPriceFeedURL"
	KindNotAReporter     = "NotAReporter"
	KindStalePrice       = "StalePrice"
	KindSubmitError      = "SubmitError"
)

// MessageKind is the only accepted open price feed message kind.
const MessageKind = "prices"

// Message is a decoded open price feed payload. Timestamp is in
// milliseconds.
type Message struct {
	Kind      string
	Timestamp types.Timestamp
	Key       string
	Value     uint64
}

var messageArgs = func() abi.Arguments {
	str, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	u64, err := abi.NewType("uint64", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: str}, {Type: u64}, {Type: str}, {Type: u64}}
}()

// ParseMessage decodes the ABI tuple (string kind, uint64 timestamp,
// string key, uint64 value). It does not check reporter or freshness.
func ParseMessage(payload []byte) (Message, error) {
	values, err := messageArgs.Unpack(payload)
	if err != nil || len(values) != 4 {
		return Message{}, types.OracleError{Kind: KindEthAbiParseError}
	}
	kind, ok1 := values[0].(string)
	seconds, ok2 := values[1].(uint64)
	key, ok3 := values[2].(string)
	value, ok4 := values[3].(uint64)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return Message{}, types.OracleError{Kind: KindEthAbiParseError}
	}
	if kind != MessageKind {
		return Message{}, types.OracleError{Kind: KindInvalidKind}
	}
	if seconds > math.MaxUint64/1000 {
		return Message{}, types.OracleError{Kind: KindInvalidTimestamp}
	}
	return Message{Kind: kind, Timestamp: seconds * 1000, Key: key, Value: value}, nil
}

// EncodeMessage builds a payload with a timestamp in seconds.
func EncodeMessage(seconds uint64, key string, value uint64) ([]byte, error) {
	return messageArgs.Pack(MessageKind, seconds, key, value)
}
