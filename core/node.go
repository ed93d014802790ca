package core

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"cashchain/core/events"
	"cashchain/core/genesis"
	"cashchain/core/state"
	"cashchain/core/types"
	"cashchain/native/cash"
	nativecommon "cashchain/native/common"
	"cashchain/native/notices"
	"cashchain/native/oracle"
	"cashchain/native/validators"
	"cashchain/observability"
	telemetry "cashchain/observability/otel"
	"cashchain/storage"
)

// ErrGenesisApplied is returned when the database already holds a ledger.
var ErrGenesisApplied = errors.New("core: genesis already applied")

// Node is the host-facing ledger. It serialises every call, so each one
// observes the state left by the previous one, and reports rejected calls
// as Failure events.
type Node struct {
	mu sync.RWMutex

	db         storage.Database
	state      *state.Manager
	cash       *cash.Engine
	validators *validators.Engine
	emitter    events.Emitter
	logger     *slog.Logger
}

// Option configures a Node.
type Option func(*Node)

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Node) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithEmitter sends committed events to em.
func WithEmitter(em events.Emitter) Option {
	return func(n *Node) {
		if em != nil {
			n.emitter = em
		}
	}
}

// WithCodeHandler installs authorised code blobs.
func WithCodeHandler(h cash.CodeHandler) Option {
	return func(n *Node) { n.cash.SetCodeHandler(h) }
}

// WithRotationRequester wires the host session hook.
func WithRotationRequester(r validators.RotationRequester) Option {
	return func(n *Node) { n.validators.SetRotationRequester(r) }
}

// NewNode opens the ledger stored in db.
func NewNode(db storage.Database, opts ...Option) (*Node, error) {
	if db == nil {
		return nil, errors.New("core: database required")
	}
	n := &Node{
		db:         db,
		state:      state.NewManager(db),
		cash:       cash.NewEngine(),
		validators: validators.NewEngine(),
		emitter:    events.NoopEmitter{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if err := n.state.EnsureStateVersion(false); err != nil {
		return nil, err
	}
	counted := events.Multi{n.emitter, eventCounter{}}
	n.cash.SetState(n.state)
	n.cash.SetEmitter(counted)
	n.cash.SetPauses(n.state)
	n.cash.SetLogger(n.logger.With(slog.String("component", "cash")))
	n.validators.SetState(n.state)
	n.validators.SetEmitter(counted)
	n.validators.SetPauses(n.state)
	n.validators.SetLogger(n.logger.With(slog.String("component", "validators")))
	n.emitter = counted
	return n, nil
}

type eventCounter struct{}

func (eventCounter) Emit(e events.Event) { observability.Events().RecordEvent(e.EventType()) }

// State exposes the underlying state for read-only callers such as
// offchain workers.
func (n *Node) State() *state.Manager { return n.state }

// Close releases the database.
func (n *Node) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.db.Close()
}

// call runs one serialised ledger call and records its outcome.
func (n *Node) call(name string, fn func() error) error {
	_, span := telemetry.Tracer("core").Start(context.Background(), "ledger."+name)
	defer span.End()
	n.mu.Lock()
	start := time.Now()
	err := fn()
	n.mu.Unlock()

	reason := types.ReasonOf(err)
	observability.Ledger().ObserveCall(name, reason, time.Since(start))
	if err != nil {
		span.SetAttributes(attribute.String("reason", reason))
		n.logger.Debug("ledger call rejected", slog.String("call", name), slog.String("reason", reason), slog.Any("error", err))
		n.emitter.Emit(events.Failure{Call: name, Reason: reason})
	}
	return err
}

func (n *Node) read(fn func() error) error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return fn()
}

// ApplyGenesis writes the initial ledger state. It fails on a database that
// already holds a ledger.
func (n *Node) ApplyGenesis(spec *genesis.GenesisSpec) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok, err := n.state.StateVersion(); err != nil {
		return err
	} else if ok {
		return ErrGenesisApplied
	}
	if err := n.state.Atomic(func(m *state.Manager) error { return genesis.Apply(m, spec) }); err != nil {
		return err
	}
	n.logger.Info("genesis applied",
		slog.Time("genesis_time", spec.GenesisTimestamp()),
		slog.Int("validators", len(spec.Validators)),
		slog.Int("assets", len(spec.Assets)))
	return nil
}

// BeginBlock accrues interest up to now and records the block's miner.
func (n *Node) BeginBlock(now types.Timestamp, miner *types.ChainAccount) error {
	return n.call("initialize_block", func() error {
		if err := n.cash.InitializeBlock(now); err != nil {
			return err
		}
		if miner == nil {
			return nil
		}
		return n.cash.SetMiner(*miner)
	})
}

// ExecTrxRequest runs a signed transaction request.
func (n *Node) ExecTrxRequest(request string, nonce uint32, sig types.ChainSignature) error {
	return n.call("exec_trx_request", func() error { return n.cash.ExecTrxRequest(request, nonce, sig) })
}

// PostPrice records a signed open price feed message.
func (n *Node) PostPrice(payload, signature []byte) error {
	return n.PostPrices([]oracle.SignedMessage{{Payload: payload, Signature: signature}})
}

// PostPrices records signed price messages. They are applied together or
// not at all.
func (n *Node) PostPrices(messages []oracle.SignedMessage) error {
	err := n.call("post_price", func() error {
		return n.staged(func(m *state.Manager, em events.Emitter) error {
			engine := oracle.NewEngine()
			engine.SetState(m)
			engine.SetEmitter(em)
			engine.SetPauses(m)
			engine.SetLogger(n.logger.With(slog.String("component", "oracle")))
			return engine.PostPrices(messages)
		})
	})
	if err != nil {
		observability.Oracle().RecordPrice(types.ReasonOf(err))
		return err
	}
	for range messages {
		observability.Oracle().RecordPrice("")
	}
	return nil
}

// PublishSignature adds a validator signature to a pending notice.
func (n *Node) PublishSignature(chain types.ChainID, id types.NoticeID, sig types.ChainSignature) error {
	return n.call("publish_signature", func() error {
		return n.staged(func(m *state.Manager, em events.Emitter) error {
			params, err := m.Params()
			if err != nil {
				return err
			}
			_, err = notices.PublishSignature(m, em, chain, id, sig, params.NoticeThreshold)
			return err
		})
	})
}

// staged runs fn over a buffered state and flushes its events after the
// commit.
func (n *Node) staged(fn func(m *state.Manager, em events.Emitter) error) error {
	rec := &events.Recorder{}
	if err := n.state.Atomic(func(m *state.Manager) error { return fn(m, rec) }); err != nil {
		return err
	}
	for _, ev := range rec.Drain() {
		n.emitter.Emit(ev)
	}
	return nil
}

// ReceiveEvent records a validator attestation of a starport event.
func (n *Node) ReceiveEvent(ev types.ChainEvent, sig []byte) error {
	return n.call("receive_event", func() error { return n.cash.ReceiveEvent(ev, sig) })
}

// RevertEvent undoes an event whose log was dropped by a reorganisation.
func (n *Node) RevertEvent(id types.ChainLogID) error {
	return n.call("revert_event", func() error { return n.cash.RevertEvent(id) })
}

// SupportAsset adds or replaces an asset definition.
func (n *Node) SupportAsset(info types.AssetInfo) error {
	return n.call("support_asset", func() error { return n.cash.SupportAsset(info) })
}

// SetRateModel replaces an asset's interest rate model.
func (n *Node) SetRateModel(asset types.ChainAsset, model types.InterestRateModel) error {
	return n.call("set_rate_model", func() error { return n.cash.SetRateModel(asset, model) })
}

// SetSupplyCap bounds an asset's total supply.
func (n *Node) SetSupplyCap(asset types.ChainAsset, limit *big.Int) error {
	return n.call("set_supply_cap", func() error { return n.cash.SetSupplyCap(asset, limit) })
}

// SetYieldNext schedules a CASH yield change.
func (n *Node) SetYieldNext(next types.APR, start types.Timestamp) error {
	return n.call("set_yield_next", func() error { return n.cash.SetYieldNext(next, start) })
}

// SetReporters replaces the trusted price reporters.
func (n *Node) SetReporters(reporters [][20]byte) error {
	return n.call("set_reporters", func() error {
		return n.state.Atomic(func(m *state.Manager) error { return m.SetPriceReporters(reporters) })
	})
}

// SetPaused toggles a module's pause switch.
func (n *Node) SetPaused(module string, paused bool) error {
	return n.call("set_paused", func() error {
		return n.state.Atomic(func(m *state.Manager) error { return m.SetPaused(module, paused) })
	})
}

// AllowNextCodeWithHash authorises a code upgrade by hash.
func (n *Node) AllowNextCodeWithHash(hash [32]byte) error {
	return n.call("allow_next_code_with_hash", func() error { return n.cash.AllowNextCodeWithHash(hash) })
}

// SetNextCodeViaHash installs previously authorised code.
func (n *Node) SetNextCodeViaHash(code []byte) error {
	return n.call("set_next_code_via_hash", func() error { return n.cash.SetNextCodeViaHash(code) })
}

// RegisterSessionKeys records an identity's session keys.
func (n *Node) RegisterSessionKeys(keys types.ValidatorKeys) error {
	return n.call("register_session_keys", func() error { return n.validators.RegisterSessionKeys(keys) })
}

// ChangeValidators queues a new authority set.
func (n *Node) ChangeValidators(set []types.ValidatorKeys) error {
	return n.call("change_validators", func() error { return n.validators.ChangeValidators(set) })
}

// NewSession promotes a queued authority set.
func (n *Node) NewSession() ([]types.ValidatorKeys, error) {
	var out []types.ValidatorKeys
	err := n.call("new_session", func() error {
		var err error
		out, err = n.validators.NewSession()
		return err
	})
	return out, err
}

// IsPaused reports whether module is paused.
func (n *Node) IsPaused(module string) bool {
	var paused bool
	_ = n.read(func() error {
		paused = nativecommon.Guard(n.state, module) != nil
		return nil
	})
	return paused
}
