package cash

import (
	"math/big"

	"cashchain/core/events"
	"cashchain/core/types"
	"cashchain/native/notices"
)

// Extract withdraws amount of asset from sender to recipient on the asset's
// chain and dispatches the extraction notice.
func (e *Engine) Extract(asset types.ChainAsset, sender, recipient types.ChainAccount, amount *big.Int) error {
	return e.mutate(func(l *ledger) error { return l.extract(asset, sender, recipient, amount) })
}

// ExtractCash withdraws principal from sender to recipient's chain and
// dispatches the CASH extraction notice.
func (e *Engine) ExtractCash(sender, recipient types.ChainAccount, principal types.CashPrincipalAmount) error {
	return e.mutate(func(l *ledger) error { return l.extractCash(sender, recipient, principal) })
}

func (l *ledger) extract(asset types.ChainAsset, sender, recipient types.ChainAccount, amount *big.Int) error {
	info, err := l.st.Asset(asset)
	if err != nil {
		return err
	}
	q, err := info.Quantity(amount)
	if err != nil {
		return err
	}
	body, err := notices.Extraction(asset, recipient, q.Int())
	if err != nil {
		return err
	}
	if err := l.requireMinTxValue(q); err != nil {
		return err
	}
	p := l.pipeline()
	if err := p.reduceAsset(info, sender, q.Value); err != nil {
		return err
	}
	if err := p.checkCollateralized(sender); err != nil {
		return err
	}
	if err := p.checkSufficientTotalFunds(asset); err != nil {
		return err
	}
	if _, err := l.dispatch(body, &recipient); err != nil {
		return err
	}
	l.emit(events.Extracted{Asset: asset, Sender: sender, Recipient: recipient, Amount: q.Int()})
	return nil
}

func (l *ledger) extractCash(sender, recipient types.ChainAccount, principal types.CashPrincipalAmount) error {
	if recipient.Chain == types.ChainGate {
		return types.ErrChainMismatch
	}
	index, err := l.st.CashIndex()
	if err != nil {
		return err
	}
	amount, err := index.CashAmount(principal)
	if err != nil {
		return err
	}
	if err := l.requireMinTxValue(amount); err != nil {
		return err
	}
	chain := recipient.Chain
	p := l.pipeline()
	if err := p.reduceCash(sender, principal, &chain); err != nil {
		return err
	}
	if err := p.checkCollateralized(sender); err != nil {
		return err
	}
	body, err := notices.CashExtraction(recipient, principal, index)
	if err != nil {
		return err
	}
	if _, err := l.dispatch(body, &recipient); err != nil {
		return err
	}
	l.emit(events.ExtractedCash{Sender: sender, Recipient: recipient, Principal: principal.Int(), CashIndex: index.Int()})
	return nil
}
