package cash

import (
	"log/slog"

	"cashchain/core/events"
	"cashchain/core/state"
	"cashchain/core/types"
	"cashchain/native/notices"
)

// rotateYield applies a scheduled yield whose start has been reached.
func (l *ledger) rotateYield(now types.Timestamp) error {
	next, ok, err := l.st.CashYieldNext()
	if err != nil || !ok || next.Start > now {
		return err
	}
	if err := l.st.SetCashYield(next.Yield); err != nil {
		return err
	}
	if err := l.st.ClearCashYieldNext(); err != nil {
		return err
	}
	if err := l.st.SetLastYieldTimestamp(next.Start); err != nil {
		return err
	}
	l.logger.Info("cash yield rotated", slog.String("yield", next.Yield.String()), slog.Uint64("start", next.Start))
	l.emit(events.YieldRotated{Yield: next.Yield, At: next.Start})
	return nil
}

// setYieldNext validates and schedules a CASH yield change, announcing the
// projected cash index to every starport.
func (l *ledger) setYieldNext(next types.APR, start types.Timestamp) error {
	if next > types.MaxAPR {
		return types.ErrInvalidAPR
	}
	now, err := l.st.LastBlockTimestamp()
	if err != nil {
		return err
	}
	if start < now {
		return types.ErrTimeTravelNotAllowed
	}
	minSync := l.params.MinNextSyncTime
	pending, ok, err := l.st.CashYieldNext()
	if err != nil {
		return err
	}
	if ok && pending.Start < now+minSync {
		return types.ErrNotEnoughTimeToSyncNext
	}
	if start < now+minSync {
		return types.ErrNotEnoughTimeToSyncBefore
	}
	index, err := l.st.CashIndex()
	if err != nil {
		return err
	}
	current, err := l.st.CashYield()
	if err != nil {
		return err
	}
	projected := index.Increment(current.Compound(start - now))
	if err := l.st.SetCashYieldNext(state.YieldNext{Yield: next, Start: start}); err != nil {
		return err
	}
	for _, chain := range types.ExternalChains() {
		if _, err := l.dispatch(notices.FutureYield(chain, next, projected, start), nil); err != nil {
			return err
		}
	}
	l.emit(events.SetYieldNext{Yield: next, Start: start})
	return nil
}

// SetYieldNext schedules the CASH yield to change to next at start.
func (e *Engine) SetYieldNext(next types.APR, start types.Timestamp) error {
	return e.mutate(func(l *ledger) error { return l.setYieldNext(next, start) })
}
