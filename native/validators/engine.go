// Package validators manages the authority set: queued validator changes,
// their announcement to every starport and session rotation.
package validators

import (
	"errors"
	"log/slog"

	"cashchain/core/events"
	"cashchain/core/state"
	"cashchain/core/types"
	nativecommon "cashchain/native/common"
	"cashchain/native/notices"
)

const moduleName = "validators"

var errNilState = errors.New("validators engine: state not configured")

type validatorState interface {
	notices.DispatchState

	NoticeHold(chain types.ChainID) (types.NoticeID, bool, error)
	Validators() ([]types.ValidatorKeys, error)
	SetValidators(set []types.ValidatorKeys) error
	NextValidators() ([]types.ValidatorKeys, error)
	SetNextValidators(set []types.ValidatorKeys) error
	SessionKeys(id [32]byte) (types.ValidatorKeys, bool, error)
	SetSessionKeys(id [32]byte, keys types.ValidatorKeys) error
}

type engineState interface {
	Atomic(fn func(*state.Manager) error) error
}

// RotationRequester asks the host to start a new session at its next
// opportunity.
type RotationRequester interface {
	RequestRotation()
}

// Engine applies authority changes.
type Engine struct {
	state   engineState
	emitter events.Emitter
	pauses  nativecommon.PauseView
	logger  *slog.Logger
	rotator RotationRequester
}

// NewEngine constructs a validator engine.
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

// SetRotationRequester wires the host session hook.
func (e *Engine) SetRotationRequester(r RotationRequester) {
	if e == nil {
		return
	}
	e.rotator = r
}

func (e *Engine) mutate(fn func(st validatorState, rec *events.Recorder) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	return e.run(fn)
}

// run stages fn without consulting the pause switch. Session rotation and
// queries use it.
func (e *Engine) run(fn func(st validatorState, rec *events.Recorder) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	rec := &events.Recorder{}
	if err := e.state.Atomic(func(m *state.Manager) error { return fn(m, rec) }); err != nil {
		return err
	}
	for _, ev := range rec.Drain() {
		e.emitter.Emit(ev)
	}
	return nil
}

// RegisterSessionKeys records the keys an identity will sign with once it
// joins the authority set.
func (e *Engine) RegisterSessionKeys(keys types.ValidatorKeys) error {
	return e.mutate(func(st validatorState, _ *events.Recorder) error {
		return st.SetSessionKeys(keys.SubstrateID, keys)
	})
}

// ChangeValidators queues set for the next session and announces the new
// authorities to every starport. It is refused while a previous
// announcement has not been executed on some chain.
func (e *Engine) ChangeValidators(set []types.ValidatorKeys) error {
	err := e.mutate(func(st validatorState, rec *events.Recorder) error {
		if err := checkSet(st, set); err != nil {
			return err
		}
		for _, chain := range types.ExternalChains() {
			if _, held, err := st.NoticeHold(chain); err != nil {
				return err
			} else if held {
				return types.ErrNoticeHolds
			}
		}
		if err := st.SetNextValidators(nil); err != nil {
			return err
		}
		if err := st.SetNextValidators(set); err != nil {
			return err
		}
		rec.Emit(events.ChangeValidators{Validators: set})
		for _, chain := range types.ExternalChains() {
			if _, err := notices.Dispatch(st, rec, notices.ChangeAuthority(chain, set), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.logger.Info("validator set change queued", slog.Int("validators", len(set)))
	if e.rotator != nil {
		e.rotator.RequestRotation()
	}
	return nil
}

func checkSet(st validatorState, set []types.ValidatorKeys) error {
	if len(set) == 0 {
		return types.ErrChangeValidatorsError
	}
	seen := make(map[[32]byte]struct{}, len(set))
	for _, v := range set {
		if _, dup := seen[v.SubstrateID]; dup {
			return types.ErrChangeValidatorsError
		}
		seen[v.SubstrateID] = struct{}{}
		if _, ok, err := st.SessionKeys(v.SubstrateID); err != nil {
			return err
		} else if !ok {
			return types.ErrChangeValidatorsError
		}
	}
	return nil
}

// NewSession promotes the queued set, if any, and returns the authorities
// of the session that starts.
func (e *Engine) NewSession() ([]types.ValidatorKeys, error) {
	var active []types.ValidatorKeys
	err := e.run(func(st validatorState, _ *events.Recorder) error {
		next, err := st.NextValidators()
		if err != nil {
			return err
		}
		if len(next) > 0 {
			if err := st.SetValidators(next); err != nil {
				return err
			}
			if err := st.SetNextValidators(nil); err != nil {
				return err
			}
		}
		active, err = st.Validators()
		return err
	})
	return active, err
}

// Validators returns the active authority set.
func (e *Engine) Validators() ([]types.ValidatorKeys, error) {
	var out []types.ValidatorKeys
	err := e.run(func(st validatorState, _ *events.Recorder) error {
		var err error
		out, err = st.Validators()
		return err
	})
	return out, err
}
