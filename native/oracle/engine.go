package oracle

import (
	"errors"
	"log/slog"
	"math/big"

	"cashchain/core/events"
	"cashchain/core/types"
	"cashchain/crypto"
	nativecommon "cashchain/native/common"
)

const moduleName = "oracle"

var errNilState = errors.New("oracle engine: state not configured")

type engineState interface {
	PriceReporters() ([][20]byte, error)
	Price(t types.Ticker) (*big.Int, bool, error)
	SetPrice(t types.Ticker, v *big.Int) error
	PriceTime(t types.Ticker) (types.Timestamp, error)
	SetPriceTime(t types.Ticker, ts types.Timestamp) error
}

// SignedMessage pairs an open price feed payload with its reporter
// signature.
type SignedMessage struct {
	Payload   []byte
	Signature []byte
}

// Engine verifies and stores reporter prices.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
}

// NewEngine constructs an oracle engine.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}, logger: slog.Default()}
}

// SetState wires the engine to the external persistence layer.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event sink.
func (e *Engine) SetEmitter(em events.Emitter) {
	if e == nil {
		return
	}
	if em == nil {
		em = events.NoopEmitter{}
	}
	e.emitter = em
}

// SetPauses wires the module pause view.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// SetLogger overrides the logger.
func (e *Engine) SetLogger(l *slog.Logger) {
	if e == nil || l == nil {
		return
	}
	e.logger = l
}

// RecoverReporter returns the address that signed payload. Reporters sign
// keccak(payload) under the Ethereum preamble.
func RecoverReporter(payload, signature []byte) ([20]byte, error) {
	sig, err := crypto.EthSignatureFromBytes(signature)
	if err != nil {
		return [20]byte{}, err
	}
	hashed := crypto.Keccak256(payload)
	return crypto.EthRecover(hashed[:], sig[:], true)
}

// SignMessage produces a reporter signature over payload.
func SignMessage(payload []byte, key *crypto.PrivateKey) ([]byte, error) {
	hashed := crypto.Keccak256(payload)
	sig, err := crypto.EthSign(hashed[:], key, true)
	if err != nil {
		return nil, err
	}
	return sig[:], nil
}

// PostPrice verifies a signed payload and records its price. Nothing is
// written unless every check passes.
func (e *Engine) PostPrice(payload, signature []byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	reporter, err := RecoverReporter(payload, signature)
	if err != nil {
		return err
	}
	reporters, err := e.state.PriceReporters()
	if err != nil {
		return err
	}
	if !containsReporter(reporters, reporter) {
		return types.OracleError{Kind: KindNotAReporter}
	}
	msg, err := ParseMessage(payload)
	if err != nil {
		return err
	}
	ticker, err := types.NewTicker(msg.Key)
	if err != nil {
		return types.OracleError{Kind: KindBadTicker}
	}
	last, err := e.state.PriceTime(ticker)
	if err != nil {
		return err
	}
	if msg.Timestamp <= last {
		return types.OracleError{Kind: KindStalePrice}
	}

	if err := e.state.SetPrice(ticker, new(big.Int).SetUint64(msg.Value)); err != nil {
		return err
	}
	if err := e.state.SetPriceTime(ticker, msg.Timestamp); err != nil {
		return err
	}
	e.logger.Debug("oracle price accepted",
		slog.String("ticker", msg.Key),
		slog.Uint64("value", msg.Value),
		slog.Uint64("timestamp", msg.Timestamp))
	e.emitter.Emit(events.PriceUpdated{Ticker: ticker, Price: msg.Value, Timestamp: msg.Timestamp, Reporter: reporter})
	return nil
}

// PostPrices applies messages in order and stops at the first failure.
func (e *Engine) PostPrices(messages []SignedMessage) error {
	for _, m := range messages {
		if err := e.PostPrice(m.Payload, m.Signature); err != nil {
			return err
		}
	}
	return nil
}

// GetPrice returns the price of ticker. USD and CASH are always one.
func (e *Engine) GetPrice(t types.Ticker) (types.Price, error) {
	if t.IsReserved() {
		return types.OnePrice(t), nil
	}
	if e == nil || e.state == nil {
		return types.Price{}, errNilState
	}
	v, ok, err := e.state.Price(t)
	if err != nil {
		return types.Price{}, err
	}
	if !ok {
		return types.Price{}, types.ErrNoPrice
	}
	return types.NewPrice(t, v), nil
}

// PriceOrZero returns the price of ticker or a zero price when none is
// known.
func (e *Engine) PriceOrZero(t types.Ticker) (types.Price, error) {
	p, err := e.GetPrice(t)
	if errors.Is(err, types.ErrNoPrice) {
		return types.NewPrice(t, new(big.Int)), nil
	}
	return p, err
}

func containsReporter(set [][20]byte, addr [20]byte) bool {
	for _, r := range set {
		if r == addr {
			return true
		}
	}
	return false
}
