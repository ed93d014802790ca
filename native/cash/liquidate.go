package cash

import (
	"math/big"

	"cashchain/core/events"
	"cashchain/core/types"
)

// Liquidate repays amount of the borrower's asset debt from the liquidator
// and seizes collateral worth the repaid value times the liquidation
// incentive.
func (e *Engine) Liquidate(asset, collateral types.ChainAsset, liquidator, borrower types.ChainAccount, amount *big.Int) error {
	return e.mutate(func(l *ledger) error { return l.liquidate(asset, collateral, liquidator, borrower, amount) })
}

// LiquidateCashPrincipal repays CASH debt and seizes collateral.
func (e *Engine) LiquidateCashPrincipal(collateral types.ChainAsset, liquidator, borrower types.ChainAccount, principal types.CashPrincipalAmount) error {
	return e.mutate(func(l *ledger) error {
		return l.liquidateCashPrincipal(collateral, liquidator, borrower, principal)
	})
}

// LiquidateCashCollateral repays asset debt and seizes CASH.
func (e *Engine) LiquidateCashCollateral(asset types.ChainAsset, liquidator, borrower types.ChainAccount, amount *big.Int) error {
	return e.mutate(func(l *ledger) error {
		return l.liquidateCashCollateral(asset, liquidator, borrower, amount)
	})
}

// seizeAmount converts repaid into units at the incentive.
func (l *ledger) seizeAmount(repaid types.Quantity, units types.Units) (types.Quantity, error) {
	boosted, err := repaid.MulFactor(l.params.LiquidationIncentive)
	if err != nil {
		return types.Quantity{}, err
	}
	worth, err := l.value(boosted)
	if err != nil {
		return types.Quantity{}, err
	}
	price, err := l.price(units.Ticker)
	if err != nil {
		return types.Quantity{}, err
	}
	return worth.DivPrice(price, units)
}

// underwater returns the borrower's liquidity, failing when it is solvent.
func (l *ledger) underwater(borrower types.ChainAccount) (types.Balance, error) {
	before, err := l.liquidity(borrower)
	if err != nil {
		return types.Balance{}, err
	}
	if before.Sign() >= 0 {
		return types.Balance{}, types.ErrSufficientLiquidity
	}
	return before, nil
}

// settleLiquidation checks the staged outcome: the liquidator must remain
// collateralized and the borrower must end solvent or better off.
func (l *ledger) settleLiquidation(p *pipeline, liquidator, borrower types.ChainAccount, before types.Balance) error {
	if err := p.checkCollateralized(liquidator); err != nil {
		return err
	}
	after, err := l.liquidity(borrower)
	if err != nil {
		return err
	}
	if after.Sign() < 0 && after.Int().Cmp(before.Int()) <= 0 {
		return types.ErrInvalidLiquidation
	}
	return nil
}

func (l *ledger) liquidate(asset, collateral types.ChainAsset, liquidator, borrower types.ChainAccount, amount *big.Int) error {
	if borrower == liquidator {
		return types.ErrSelfTransfer
	}
	if asset == collateral {
		return types.ErrInKindLiquidation
	}
	info, err := l.st.Asset(asset)
	if err != nil {
		return err
	}
	collateralInfo, err := l.st.Asset(collateral)
	if err != nil {
		return err
	}
	q, err := info.Quantity(amount)
	if err != nil {
		return err
	}
	if err := l.requireMinTxValue(q); err != nil {
		return err
	}
	seize, err := l.seizeAmount(q, collateralInfo.Units())
	if err != nil {
		return err
	}
	before, err := l.underwater(borrower)
	if err != nil {
		return err
	}

	p := l.pipeline()
	if err := p.transferAsset(info, liquidator, borrower, q.Value); err != nil {
		return err
	}
	if err := p.transferAsset(collateralInfo, borrower, liquidator, seize.Value); err != nil {
		return err
	}
	if err := l.settleLiquidation(p, liquidator, borrower, before); err != nil {
		return err
	}
	l.emit(events.Liquidated{
		Kind:       events.TypeLiquidated,
		Asset:      asset,
		Collateral: collateral,
		Liquidator: liquidator,
		Borrower:   borrower,
		Amount:     q.Int(),
		Seized:     seize.Int(),
	})
	return nil
}

func (l *ledger) liquidateCashPrincipal(collateral types.ChainAsset, liquidator, borrower types.ChainAccount, principal types.CashPrincipalAmount) error {
	if borrower == liquidator {
		return types.ErrSelfTransfer
	}
	collateralInfo, err := l.st.Asset(collateral)
	if err != nil {
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
	if err := l.requireMinTxValue(amount); err != nil {
		return err
	}
	seize, err := l.seizeAmount(amount, collateralInfo.Units())
	if err != nil {
		return err
	}
	before, err := l.underwater(borrower)
	if err != nil {
		return err
	}

	p := l.pipeline()
	if err := p.transferCash(liquidator, borrower, principal); err != nil {
		return err
	}
	if err := p.transferAsset(collateralInfo, borrower, liquidator, seize.Value); err != nil {
		return err
	}
	if err := l.settleLiquidation(p, liquidator, borrower, before); err != nil {
		return err
	}
	l.emit(events.Liquidated{
		Kind:       events.TypeLiquidatedCash,
		Collateral: collateral,
		Liquidator: liquidator,
		Borrower:   borrower,
		Amount:     principal.Int(),
		Seized:     seize.Int(),
	})
	return nil
}

func (l *ledger) liquidateCashCollateral(asset types.ChainAsset, liquidator, borrower types.ChainAccount, amount *big.Int) error {
	if borrower == liquidator {
		return types.ErrSelfTransfer
	}
	info, err := l.st.Asset(asset)
	if err != nil {
		return err
	}
	q, err := info.Quantity(amount)
	if err != nil {
		return err
	}
	if err := l.requireMinTxValue(q); err != nil {
		return err
	}
	seize, err := l.seizeAmount(q, types.CASH)
	if err != nil {
		return err
	}
	index, err := l.st.CashIndex()
	if err != nil {
		return err
	}
	seizePrincipal, err := index.CashPrincipalAmount(seize)
	if err != nil {
		return err
	}
	before, err := l.underwater(borrower)
	if err != nil {
		return err
	}

	p := l.pipeline()
	if err := p.transferAsset(info, liquidator, borrower, q.Value); err != nil {
		return err
	}
	if err := p.transferCash(borrower, liquidator, seizePrincipal); err != nil {
		return err
	}
	if err := l.settleLiquidation(p, liquidator, borrower, before); err != nil {
		return err
	}
	l.emit(events.Liquidated{
		Kind:       events.TypeLiquidatedCollateral,
		Asset:      asset,
		Liquidator: liquidator,
		Borrower:   borrower,
		Amount:     q.Int(),
		Seized:     seizePrincipal.Int(),
	})
	return nil
}
