// Package cash implements the lending ledger: asset and CASH positions,
// interest accrual, solvency gating, liquidations and the inbound and
// outbound flows that connect the ledger to starport chains.
package cash

import (
	"errors"
	"log/slog"
	"math/big"

	"cashchain/core/events"
	"cashchain/core/state"
	"cashchain/core/types"
	nativecommon "cashchain/native/common"
	"cashchain/native/notices"
	"cashchain/native/oracle"
)

const moduleName = "cash"

var (
	errNilState      = errors.New("cash engine: state not configured")
	errInvalidAmount = errors.New("cash engine: amount must be positive")
)

// ledgerState is the storage surface a single staged call reads and writes.
type ledgerState interface {
	notices.DispatchState
	notices.ExecutionState

	Atomic(fn func(*state.Manager) error) error
	Params() (state.Params, error)
	Asset(asset types.ChainAsset) (types.AssetInfo, error)
	Assets() ([]types.AssetInfo, error)
	SetAsset(info types.AssetInfo) error
	AssetBalance(asset types.ChainAsset, account types.ChainAccount) (*big.Int, error)
	SetAssetBalance(asset types.ChainAsset, account types.ChainAccount, v *big.Int) error
	LastIndex(asset types.ChainAsset, account types.ChainAccount) (types.AssetIndex, error)
	SetLastIndex(asset types.ChainAsset, account types.ChainAccount, idx types.AssetIndex) error
	TotalSupply(asset types.ChainAsset) (*big.Int, error)
	SetTotalSupply(asset types.ChainAsset, v *big.Int) error
	TotalBorrow(asset types.ChainAsset) (*big.Int, error)
	SetTotalBorrow(asset types.ChainAsset, v *big.Int) error
	SupplyIndex(asset types.ChainAsset) (types.AssetIndex, error)
	SetSupplyIndex(asset types.ChainAsset, idx types.AssetIndex) error
	BorrowIndex(asset types.ChainAsset) (types.AssetIndex, error)
	SetBorrowIndex(asset types.ChainAsset, idx types.AssetIndex) error

	CashPrincipal(account types.ChainAccount) (types.CashPrincipal, error)
	SetCashPrincipal(account types.ChainAccount, p types.CashPrincipal) error
	CashPrincipals() (map[types.ChainAccount]types.CashPrincipal, error)
	ChainCashPrincipal(chain types.ChainID) (types.CashPrincipalAmount, error)
	SetChainCashPrincipal(chain types.ChainID, p types.CashPrincipalAmount) error
	TotalCashPrincipal() (types.CashPrincipalAmount, error)
	SetTotalCashPrincipal(p types.CashPrincipalAmount) error
	CashIndex() (types.CashIndex, error)
	SetCashIndex(idx types.CashIndex) error
	CashYield() (types.APR, error)
	SetCashYield(r types.APR) error
	CashYieldNext() (state.YieldNext, bool, error)
	SetCashYieldNext(next state.YieldNext) error
	ClearCashYieldNext() error
	SetLastYieldTimestamp(ts types.Timestamp) error
	LastBlockTimestamp() (types.Timestamp, error)
	SetLastBlockTimestamp(ts types.Timestamp) error

	Nonce(account types.ChainAccount) (uint32, error)
	SetNonce(account types.ChainAccount, nonce uint32) error
	Miner() (types.ChainAccount, bool, error)
	SetMiner(acc types.ChainAccount) error
	LastMinerSharePrincipal() (types.CashPrincipalAmount, error)
	SetLastMinerSharePrincipal(p types.CashPrincipalAmount) error
	MinerCumulative(acc types.ChainAccount) (types.CashPrincipalAmount, error)
	SetMinerCumulative(acc types.ChainAccount, p types.CashPrincipalAmount) error
	AllowedNextCodeHash() ([32]byte, bool, error)
	SetAllowedNextCodeHash(h [32]byte) error
	ClearAllowedNextCodeHash() error
	Accounts() ([]types.ChainAccount, error)

	PriceReporters() ([][20]byte, error)
	Price(t types.Ticker) (*big.Int, bool, error)
	SetPrice(t types.Ticker, v *big.Int) error
	PriceTime(t types.Ticker) (types.Timestamp, error)
	SetPriceTime(t types.Ticker, ts types.Timestamp) error

	Validators() ([]types.ValidatorKeys, error)
	ChainEventState(id types.ChainLogID) (types.ChainEventState, bool, error)
	SetChainEventState(id types.ChainLogID, s types.ChainEventState) error
}

type engineState interface {
	Atomic(fn func(*state.Manager) error) error
}

// Engine runs ledger calls. Every call is staged over a buffered view of the
// state and committed only when it succeeds; its events are emitted after
// the commit.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
	code    CodeHandler
}

// NewEngine constructs a ledger engine.
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

// ledger is the view of one staged call.
type ledger struct {
	st     ledgerState
	prices *oracle.Engine
	params state.Params
	events *events.Recorder
	logger *slog.Logger
}

func (e *Engine) newLedger(st ledgerState) (*ledger, error) {
	params, err := st.Params()
	if err != nil {
		return nil, err
	}
	return newLedger(st, params, e.logger), nil
}

func newLedger(st ledgerState, params state.Params, logger *slog.Logger) *ledger {
	prices := oracle.NewEngine()
	prices.SetState(st)
	return &ledger{st: st, prices: prices, params: params, events: &events.Recorder{}, logger: logger}
}

// try runs fn on a nested buffer of the call's state. Its writes and events
// are kept only when it succeeds.
func (l *ledger) try(fn func(inner *ledger) error) error {
	var staged []events.Event
	err := l.st.Atomic(func(m *state.Manager) error {
		inner := newLedger(m, l.params, l.logger)
		if err := fn(inner); err != nil {
			return err
		}
		staged = inner.events.Drain()
		return nil
	})
	if err != nil {
		return err
	}
	for _, ev := range staged {
		l.emit(ev)
	}
	return nil
}

// mutate stages fn and commits it, then flushes the staged events.
func (e *Engine) mutate(fn func(l *ledger) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	var staged []events.Event
	err := e.state.Atomic(func(m *state.Manager) error {
		l, err := e.newLedger(m)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		staged = l.events.Drain()
		return nil
	})
	if err != nil {
		return err
	}
	for _, ev := range staged {
		e.emitter.Emit(ev)
	}
	return nil
}

// view runs a read-only fn. Nothing it stages is kept.
func (e *Engine) view(fn func(l *ledger) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	errDiscard := errors.New("discard")
	err := e.state.Atomic(func(m *state.Manager) error {
		l, err := e.newLedger(m)
		if err != nil {
			return err
		}
		if err := fn(l); err != nil {
			return err
		}
		return errDiscard
	})
	if errors.Is(err, errDiscard) {
		return nil
	}
	return err
}

func (l *ledger) emit(ev events.Event) { l.events.Emit(ev) }

// dispatch appends a notice, staging its event with the call's events.
func (l *ledger) dispatch(body types.Notice, recipient *types.ChainAccount) (types.Notice, error) {
	return notices.Dispatch(l.st, l.events, body, recipient)
}

// price returns the oracle price of t; USD and CASH are always one.
func (l *ledger) price(t types.Ticker) (types.Price, error) { return l.prices.GetPrice(t) }

func (l *ledger) priceOrZero(t types.Ticker) (types.Price, error) { return l.prices.PriceOrZero(t) }

// value converts q into USD at the oracle price.
func (l *ledger) value(q types.Quantity) (types.Quantity, error) {
	p, err := l.price(q.Units.Ticker)
	if err != nil {
		return types.Quantity{}, err
	}
	return q.MulPrice(p)
}

func (l *ledger) requireMinTxValue(q types.Quantity) error {
	v, err := l.value(q)
	if err != nil {
		return err
	}
	if l.params.MinTxValue != nil && v.Int().Cmp(l.params.MinTxValue) < 0 {
		return types.ErrMinTxValueNotMet
	}
	return nil
}

// someMiner is the current miner, or the zero Eth account before any miner
// was recorded so payouts always have a destination.
func (l *ledger) someMiner() (types.ChainAccount, error) {
	miner, ok, err := l.st.Miner()
	if err != nil {
		return types.ChainAccount{}, err
	}
	if !ok {
		return types.EthAccount([20]byte{}), nil
	}
	return miner, nil
}

func (l *ledger) transferFee() *big.Int {
	if l.params.TransferFee == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(l.params.TransferFee)
}

// feePrincipal is the transfer fee expressed as principal at index.
func (l *ledger) feePrincipal(index types.CashIndex) (types.CashPrincipalAmount, error) {
	fee, err := types.NewQuantity(types.CASH, l.transferFee())
	if err != nil {
		return types.CashPrincipalAmount{}, err
	}
	return index.CashPrincipalAmount(fee)
}
