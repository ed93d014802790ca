package cash

import (
	"math/big"

	"cashchain/core/types"
)

// Position is an account's signed balance in one asset.
type Position struct {
	Asset   types.AssetInfo
	Balance types.Balance
}

// Portfolio is an account's CASH and asset positions with unsettled asset
// interest folded into the CASH balance.
type Portfolio struct {
	Account   types.ChainAccount
	Principal types.CashPrincipal
	Cash      types.Balance
	Positions []Position
}

func (l *ledger) portfolio(account types.ChainAccount) (Portfolio, error) {
	principal, err := l.st.CashPrincipal(account)
	if err != nil {
		return Portfolio{}, err
	}
	assets, err := l.st.Assets()
	if err != nil {
		return Portfolio{}, err
	}
	settled := principal.Int()
	var positions []Position
	for _, info := range assets {
		bal, err := l.st.AssetBalance(info.Asset, account)
		if err != nil {
			return Portfolio{}, err
		}
		if bal.Sign() == 0 {
			continue
		}
		accrued, err := l.accruedInterest(info, account, bal)
		if err != nil {
			return Portfolio{}, err
		}
		settled.Add(settled, accrued)
		positions = append(positions, Position{Asset: info, Balance: types.Balance{Units: info.Units(), Value: bal}})
	}
	total, err := types.NewCashPrincipal(settled)
	if err != nil {
		return Portfolio{}, err
	}
	index, err := l.st.CashIndex()
	if err != nil {
		return Portfolio{}, err
	}
	cash, err := index.CashBalance(total)
	if err != nil {
		return Portfolio{}, err
	}
	return Portfolio{Account: account, Principal: total, Cash: cash, Positions: positions}, nil
}

// withAsset returns a copy of p with delta added to the asset position.
func (p Portfolio) withAsset(info types.AssetInfo, delta *big.Int) Portfolio {
	out := p
	out.Positions = make([]Position, 0, len(p.Positions)+1)
	found := false
	for _, pos := range p.Positions {
		if pos.Asset.Asset == info.Asset {
			found = true
			pos = Position{Asset: pos.Asset, Balance: types.Balance{Units: pos.Balance.Units, Value: new(big.Int).Add(pos.Balance.Int(), delta)}}
		}
		out.Positions = append(out.Positions, pos)
	}
	if !found {
		out.Positions = append(out.Positions, Position{Asset: info, Balance: types.Balance{Units: info.Units(), Value: new(big.Int).Set(delta)}})
	}
	return out
}

// withCash returns a copy of p with delta CASH added.
func (p Portfolio) withCash(delta *big.Int) Portfolio {
	out := p
	out.Cash = types.Balance{Units: types.CASH, Value: new(big.Int).Add(p.Cash.Int(), delta)}
	return out
}

// liquidityOf values p in USD: CASH at face value, supplied assets scaled
// down by their liquidity factor and borrowed assets scaled up by it.
func (l *ledger) liquidityOf(p Portfolio) (types.Balance, error) {
	cashPrice, err := l.price(types.CASH.Ticker)
	if err != nil {
		return types.Balance{}, err
	}
	total, err := p.Cash.MulPrice(cashPrice)
	if err != nil {
		return types.Balance{}, err
	}
	for _, pos := range p.Positions {
		if pos.Balance.Sign() == 0 {
			continue
		}
		price, err := l.price(pos.Asset.Ticker)
		if err != nil {
			return types.Balance{}, err
		}
		worth, err := pos.Balance.MulPrice(price)
		if err != nil {
			return types.Balance{}, err
		}
		var adjusted types.Balance
		if worth.Sign() >= 0 {
			adjusted, err = worth.MulFactor(pos.Asset.LiquidityFactor)
		} else {
			if pos.Asset.LiquidityFactor.IsZero() {
				return types.Balance{}, types.ErrInsufficientLiquidity
			}
			adjusted, err = worth.DivFactor(pos.Asset.LiquidityFactor)
		}
		if err != nil {
			return types.Balance{}, err
		}
		if total, err = total.Add(adjusted); err != nil {
			return types.Balance{}, err
		}
	}
	return total, nil
}

func (l *ledger) liquidity(account types.ChainAccount) (types.Balance, error) {
	p, err := l.portfolio(account)
	if err != nil {
		return types.Balance{}, err
	}
	return l.liquidityOf(p)
}
