package cash

import (
	"bytes"
	"log/slog"

	"github.com/ethereum/go-ethereum/rlp"

	"cashchain/core/events"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/notices"
)

// EncodeChainEvent is the byte string validators sign to attest an event.
func EncodeChainEvent(ev types.ChainEvent) ([]byte, error) {
	return rlp.EncodeToBytes(ev)
}

// SignChainEvent attests ev with a validator key.
func SignChainEvent(ev types.ChainEvent, key *crypto.PrivateKey) ([types.SignatureLength]byte, error) {
	encoded, err := EncodeChainEvent(ev)
	if err != nil {
		return [types.SignatureLength]byte{}, err
	}
	return crypto.EthSign(encoded, key, false)
}

// RecoverChainEventSigner returns the address that attested ev.
func RecoverChainEventSigner(ev types.ChainEvent, sig []byte) ([20]byte, error) {
	encoded, err := EncodeChainEvent(ev)
	if err != nil {
		return [20]byte{}, err
	}
	return crypto.EthRecover(encoded, sig, false)
}

// ReceiveEvent records a validator attestation of a starport event. Once
// enough validators agree the event is applied; a failing event is
// recorded as failed without undoing the attestation.
func (e *Engine) ReceiveEvent(ev types.ChainEvent, sig []byte) error {
	return e.mutate(func(l *ledger) error { return l.receiveEvent(ev, sig) })
}

// RevertEvent undoes an applied event whose log was dropped by a
// reorganisation of its chain.
func (e *Engine) RevertEvent(id types.ChainLogID) error {
	return e.mutate(func(l *ledger) error { return l.revertEvent(id) })
}

// EventStatus reports the progress of an event.
func (e *Engine) EventStatus(id types.ChainLogID) (types.ChainEventState, bool, error) {
	var (
		out types.ChainEventState
		ok  bool
	)
	err := e.view(func(l *ledger) error {
		var err error
		out, ok, err = l.st.ChainEventState(id)
		return err
	})
	return out, ok, err
}

func (l *ledger) isValidator(addr [20]byte) (int, bool, error) {
	validators, err := l.st.Validators()
	if err != nil {
		return 0, false, err
	}
	for _, v := range validators {
		if v.EthAddress == addr {
			return len(validators), true, nil
		}
	}
	return len(validators), false, nil
}

// eventQuorum reports whether signers attestations apply an event.
func (l *ledger) eventQuorum(signers, validators int) bool {
	if l.params.EventThreshold > 0 {
		return signers >= int(l.params.EventThreshold)
	}
	return signers*3 > validators*2
}

func (l *ledger) receiveEvent(ev types.ChainEvent, sig []byte) error {
	signer, err := RecoverChainEventSigner(ev, sig)
	if err != nil {
		return err
	}
	validators, known, err := l.isValidator(signer)
	if err != nil {
		return err
	}
	if !known {
		return types.ErrUnknownValidator
	}
	current, ok, err := l.st.ChainEventState(ev.Log)
	if err != nil {
		return err
	}
	if !ok {
		current = types.ChainEventState{Status: types.ChainEventPending, Event: ev}
	}
	if current.Status != types.ChainEventPending {
		return nil
	}
	if ok {
		if err := sameEvent(current.Event, ev); err != nil {
			return err
		}
	}
	for _, s := range current.Signers {
		if s == signer {
			return nil
		}
	}
	current.Signers = append(current.Signers, signer)
	if !l.eventQuorum(len(current.Signers), validators) {
		return l.st.SetChainEventState(ev.Log, current)
	}

	applyErr := l.try(func(inner *ledger) error { return inner.applyEvent(current.Event) })
	reason := types.ReasonOf(applyErr)
	if applyErr != nil {
		current.Status = types.ChainEventFailed
		current.Reason = reason
		l.logger.Warn("chain event failed",
			slog.String("log", ev.Log.String()),
			slog.String("kind", ev.Kind.String()),
			slog.String("reason", reason))
	} else {
		current.Status = types.ChainEventDone
	}
	if err := l.st.SetChainEventState(ev.Log, current); err != nil {
		return err
	}
	l.emit(events.ChainEventOutcome{Log: ev.Log, Kind: ev.Kind, Reason: reason})
	return nil
}

func sameEvent(a, b types.ChainEvent) error {
	x, err := EncodeChainEvent(a)
	if err != nil {
		return err
	}
	y, err := EncodeChainEvent(b)
	if err != nil {
		return err
	}
	if !bytes.Equal(x, y) {
		return types.ErrSignatureMismatch
	}
	return nil
}

// eventSender is the starport-side account that emitted a lock.
func eventSender(ev types.ChainEvent) (types.ChainAccount, error) {
	if ev.Log.Chain != types.ChainEth {
		return types.ChainAccount{}, types.ErrChainMismatch
	}
	return types.EthAccount(ev.Sender), nil
}

func (l *ledger) applyEvent(ev types.ChainEvent) error {
	switch ev.Kind {
	case types.EventLock:
		sender, err := eventSender(ev)
		if err != nil {
			return err
		}
		asset := types.ChainAsset{Chain: ev.Log.Chain, Address: ev.Asset}
		return l.lock(asset, sender, ev.Recipient, ev.Amount)
	case types.EventLockCash:
		sender, err := eventSender(ev)
		if err != nil {
			return err
		}
		principal, err := types.NewCashPrincipalAmount(ev.Principal)
		if err != nil {
			return err
		}
		return l.lockCash(sender, ev.Recipient, principal)
	case types.EventExecTrxRequest:
		return l.execTrxRequest(ev.Request, ev.Account)
	case types.EventNoticeInvoked:
		hash := types.ChainHash{Chain: ev.Log.Chain, Hash: ev.NoticeHash}
		return notices.HandleNoticeInvoked(l.st, l.events, ev.Log.Chain, ev.NoticeID, hash, ev.Result)
	}
	return types.ErrUnknownEvent
}

func (l *ledger) revertEvent(id types.ChainLogID) error {
	current, ok, err := l.st.ChainEventState(id)
	if err != nil {
		return err
	}
	if !ok {
		return types.ErrUnknownEvent
	}
	switch current.Status {
	case types.ChainEventReverted:
		return types.ErrEventAlreadyHandled
	case types.ChainEventDone:
		if err := l.undoEvent(current.Event); err != nil {
			return err
		}
	}
	current.Status = types.ChainEventReverted
	return l.st.SetChainEventState(id, current)
}

// undoEvent reverses the ledger effect of an applied lock. The reversal is
// forced: it is not gated on the recipient's liquidity.
func (l *ledger) undoEvent(ev types.ChainEvent) error {
	switch ev.Kind {
	case types.EventLock:
		asset := types.ChainAsset{Chain: ev.Log.Chain, Address: ev.Asset}
		info, err := l.st.Asset(asset)
		if err != nil {
			return err
		}
		if err := l.pipeline().reduceAsset(info, ev.Recipient, ev.Amount); err != nil {
			return err
		}
		l.emit(events.ReorgRevert{Type: events.TypeReorgRevertLocked, Asset: asset, Recipient: ev.Recipient, Amount: ev.Amount})
		return nil
	case types.EventLockCash:
		principal, err := types.NewCashPrincipalAmount(ev.Principal)
		if err != nil {
			return err
		}
		chain := ev.Log.Chain
		if err := l.pipeline().reduceCash(ev.Recipient, principal, &chain); err != nil {
			return err
		}
		l.emit(events.ReorgRevert{Type: events.TypeReorgRevertLockedCash, Recipient: ev.Recipient, Amount: principal.Int()})
		return nil
	}
	return types.ErrNotImplemented
}
