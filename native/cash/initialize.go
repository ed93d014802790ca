package cash

import (
	"math/big"

	"cashchain/core/events"
	"cashchain/core/numerics"
	"cashchain/core/types"
)

// SetMiner records the author of the current block. Transfer fees and the
// next block's miner share are paid to it.
func (e *Engine) SetMiner(miner types.ChainAccount) error {
	return e.mutate(func(l *ledger) error { return l.st.SetMiner(miner) })
}

// InitializeBlock accrues interest for the time elapsed since the previous
// block: asset indices grow by their rates, the cash index by the CASH
// yield, the previous miner share is paid out and a due yield change takes
// effect.
func (e *Engine) InitializeBlock(now types.Timestamp) error {
	return e.mutate(func(l *ledger) error { return l.initializeBlock(now) })
}

// assetPrincipal converts an amount of info's asset into CASH principal at
// the oracle price, zero when unpriced.
func (l *ledger) assetPrincipal(info types.AssetInfo, amount *big.Int, index types.CashIndex) (*big.Int, error) {
	if amount.Sign() == 0 {
		return new(big.Int), nil
	}
	price, err := l.priceOrZero(info.Ticker)
	if err != nil {
		return nil, err
	}
	usd := numerics.Mul(amount, info.Decimals, price.Int(), types.PriceDecimals, types.CashDecimals)
	return numerics.MulDiv(usd, numerics.Pow10(types.FactorDecimals), index.Int())
}

func (l *ledger) initializeBlock(now types.Timestamp) error {
	last, err := l.st.LastBlockTimestamp()
	if err != nil {
		return err
	}
	if last == 0 {
		return l.st.SetLastBlockTimestamp(now)
	}
	if now < last {
		return types.ErrTimeTravelNotAllowed
	}
	dt := now - last

	index, err := l.st.CashIndex()
	if err != nil {
		return err
	}
	assets, err := l.st.Assets()
	if err != nil {
		return err
	}
	interest := new(big.Int)
	minerShare := new(big.Int)
	for _, info := range assets {
		borrowRate, supplyRate, err := l.rates(info)
		if err != nil {
			return err
		}
		supplyIndex, err := l.st.SupplyIndex(info.Asset)
		if err != nil {
			return err
		}
		borrowIndex, err := l.st.BorrowIndex(info.Asset)
		if err != nil {
			return err
		}
		if err := l.st.SetSupplyIndex(info.Asset, supplyIndex.Increment(supplyRate.Compound(dt))); err != nil {
			return err
		}
		if err := l.st.SetBorrowIndex(info.Asset, borrowIndex.Increment(borrowRate.Compound(dt))); err != nil {
			return err
		}

		totalBorrow, err := l.st.TotalBorrow(info.Asset)
		if err != nil {
			return err
		}
		accrued := borrowRate.Compound(dt).MulInt(totalBorrow)
		principal, err := l.assetPrincipal(info, accrued, index)
		if err != nil {
			return err
		}
		interest.Add(interest, principal)
		minerShare.Add(minerShare, info.MinerShares.MulInt(principal))
	}

	total, err := l.st.TotalCashPrincipal()
	if err != nil {
		return err
	}
	totalNew, err := types.NewCashPrincipalAmount(new(big.Int).Add(total.Int(), interest))
	if err != nil {
		return err
	}
	if err := l.st.SetTotalCashPrincipal(totalNew); err != nil {
		return err
	}
	if err := l.payMiner(); err != nil {
		return err
	}
	share, err := types.NewCashPrincipalAmount(minerShare)
	if err != nil {
		return err
	}
	if err := l.st.SetLastMinerSharePrincipal(share); err != nil {
		return err
	}

	yield, err := l.st.CashYield()
	if err != nil {
		return err
	}
	if err := l.st.SetCashIndex(index.Increment(yield.Compound(dt))); err != nil {
		return err
	}
	if err := l.rotateYield(now); err != nil {
		return err
	}
	return l.st.SetLastBlockTimestamp(now)
}

// payMiner credits the share accrued over the previous block to the miner.
func (l *ledger) payMiner() error {
	share, err := l.st.LastMinerSharePrincipal()
	if err != nil {
		return err
	}
	if share.IsZero() {
		return nil
	}
	miner, err := l.someMiner()
	if err != nil {
		return err
	}
	principal, err := l.st.CashPrincipal(miner)
	if err != nil {
		return err
	}
	updated, err := principal.AddAmount(share)
	if err != nil {
		return err
	}
	if err := l.st.SetCashPrincipal(miner, updated); err != nil {
		return err
	}
	cumulative, err := l.st.MinerCumulative(miner)
	if err != nil {
		return err
	}
	cumulative, err = cumulative.Add(share)
	if err != nil {
		return err
	}
	if err := l.st.SetMinerCumulative(miner, cumulative); err != nil {
		return err
	}
	l.emit(events.MinerPaid{Miner: miner, Principal: share.Int()})
	return nil
}
