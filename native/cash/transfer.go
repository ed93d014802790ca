package cash

import (
	"math/big"

	"cashchain/core/events"
	"cashchain/core/types"
)

// Transfer moves amount of asset between ledger accounts. The sender pays
// the CASH transfer fee to the miner and must stay collateralized.
func (e *Engine) Transfer(asset types.ChainAsset, sender, recipient types.ChainAccount, amount *big.Int) error {
	return e.mutate(func(l *ledger) error { return l.transfer(asset, sender, recipient, amount) })
}

// TransferCash moves principal between ledger accounts, charging the
// transfer fee on top.
func (e *Engine) TransferCash(sender, recipient types.ChainAccount, principal types.CashPrincipalAmount) error {
	return e.mutate(func(l *ledger) error { return l.transferCash(sender, recipient, principal) })
}

// payFee moves the transfer fee from sender to the miner. A miner paying
// itself is a no-op.
func (l *ledger) payFee(p *pipeline, sender types.ChainAccount, fee types.CashPrincipalAmount) error {
	if fee.IsZero() {
		return nil
	}
	miner, err := l.someMiner()
	if err != nil {
		return err
	}
	if miner == sender {
		return nil
	}
	return p.transferCash(sender, miner, fee)
}

func (l *ledger) transfer(asset types.ChainAsset, sender, recipient types.ChainAccount, amount *big.Int) error {
	info, err := l.st.Asset(asset)
	if err != nil {
		return err
	}
	q, err := info.Quantity(amount)
	if err != nil {
		return err
	}
	index, err := l.st.CashIndex()
	if err != nil {
		return err
	}
	fee, err := l.feePrincipal(index)
	if err != nil {
		return err
	}
	if err := l.requireMinTxValue(q); err != nil {
		return err
	}
	p := l.pipeline()
	if err := p.transferAsset(info, sender, recipient, q.Value); err != nil {
		return err
	}
	if err := l.payFee(p, sender, fee); err != nil {
		return err
	}
	if err := p.checkCollateralized(sender); err != nil {
		return err
	}
	l.emit(events.Transferred{Asset: asset, From: sender, To: recipient, Amount: q.Int()})
	return nil
}

func (l *ledger) transferCash(sender, recipient types.ChainAccount, principal types.CashPrincipalAmount) error {
	index, err := l.st.CashIndex()
	if err != nil {
		return err
	}
	fee, err := l.feePrincipal(index)
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
	p := l.pipeline()
	if err := p.transferCash(sender, recipient, principal); err != nil {
		return err
	}
	if err := l.payFee(p, sender, fee); err != nil {
		return err
	}
	if err := p.checkCollateralized(sender); err != nil {
		return err
	}
	l.emit(events.TransferredCash{From: sender, To: recipient, Principal: principal.Int(), CashIndex: index.Int()})
	return nil
}
