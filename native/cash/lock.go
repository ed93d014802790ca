package cash

import (
	"math/big"

	"cashchain/core/events"
	"cashchain/core/types"
)

// Lock credits amount of asset, locked on its starport by sender, to
// recipient.
func (e *Engine) Lock(asset types.ChainAsset, sender, recipient types.ChainAccount, amount *big.Int) error {
	return e.mutate(func(l *ledger) error { return l.lock(asset, sender, recipient, amount) })
}

// LockCash credits principal, locked on sender's chain starport, to
// recipient.
func (e *Engine) LockCash(sender, recipient types.ChainAccount, principal types.CashPrincipalAmount) error {
	return e.mutate(func(l *ledger) error { return l.lockCash(sender, recipient, principal) })
}

func (l *ledger) lock(asset types.ChainAsset, sender, recipient types.ChainAccount, amount *big.Int) error {
	info, err := l.st.Asset(asset)
	if err != nil {
		return err
	}
	q, err := info.Quantity(amount)
	if err != nil {
		return err
	}
	if err := l.pipeline().augmentAsset(info, recipient, q.Value); err != nil {
		return err
	}
	l.emit(events.Locked{Asset: asset, Sender: sender, Recipient: recipient, Amount: q.Int()})
	return nil
}

func (l *ledger) lockCash(sender, recipient types.ChainAccount, principal types.CashPrincipalAmount) error {
	chain := sender.Chain
	if chain == types.ChainGate {
		return types.ErrChainMismatch
	}
	if err := l.pipeline().augmentCash(recipient, principal, &chain); err != nil {
		return err
	}
	index, err := l.st.CashIndex()
	if err != nil {
		return err
	}
	amount, err := index.CashAmount(principal)
	if err != nil {
		return err
	}
	l.emit(events.LockedCash{Sender: sender, Recipient: recipient, Amount: amount.Int(), Principal: principal.Int()})
	return nil
}
