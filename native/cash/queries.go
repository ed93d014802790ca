package cash

import (
	"math/big"

	"cashchain/core/types"
)

// Rates is the current borrow and supply APR of an asset.
type Rates struct {
	Borrow types.APR
	Supply types.APR
}

// GetLiquidity returns the account's USD liquidity.
func (e *Engine) GetLiquidity(account types.ChainAccount) (types.Balance, error) {
	var out types.Balance
	err := e.view(func(l *ledger) error {
		var err error
		out, err = l.liquidity(account)
		return err
	})
	return out, err
}

// GetPortfolio returns the account's positions with interest settled as of
// the last block.
func (e *Engine) GetPortfolio(account types.ChainAccount) (Portfolio, error) {
	var out Portfolio
	err := e.view(func(l *ledger) error {
		var err error
		out, err = l.portfolio(account)
		return err
	})
	return out, err
}

// GetRates returns the rates an asset accrues at its current utilisation.
func (e *Engine) GetRates(asset types.ChainAsset) (Rates, error) {
	var out Rates
	err := e.view(func(l *ledger) error {
		info, err := l.st.Asset(asset)
		if err != nil {
			return err
		}
		out.Borrow, out.Supply, err = l.rates(info)
		return err
	})
	return out, err
}

// GetAssets lists the supported assets.
func (e *Engine) GetAssets() ([]types.AssetInfo, error) {
	var out []types.AssetInfo
	err := e.view(func(l *ledger) error {
		var err error
		out, err = l.st.Assets()
		return err
	})
	return out, err
}

// GetAccounts lists every account holding CASH or an asset.
func (e *Engine) GetAccounts() ([]types.ChainAccount, error) {
	var out []types.ChainAccount
	err := e.view(func(l *ledger) error {
		var err error
		out, err = l.st.Accounts()
		return err
	})
	return out, err
}

// GetNonce returns the next request nonce of account.
func (e *Engine) GetNonce(account types.ChainAccount) (uint32, error) {
	var out uint32
	err := e.view(func(l *ledger) error {
		var err error
		out, err = l.st.Nonce(account)
		return err
	})
	return out, err
}

// HasLiquidityToReduceAsset reports whether account would remain
// collateralized after losing amount of asset.
func (e *Engine) HasLiquidityToReduceAsset(account types.ChainAccount, asset types.ChainAsset, amount *big.Int) (bool, error) {
	var ok bool
	err := e.view(func(l *ledger) error {
		info, err := l.st.Asset(asset)
		if err != nil {
			return err
		}
		p, err := l.portfolio(account)
		if err != nil {
			return err
		}
		liquidity, err := l.liquidityOf(p.withAsset(info, new(big.Int).Neg(amount)))
		if err != nil {
			return err
		}
		ok = liquidity.Sign() >= 0
		return nil
	})
	return ok, err
}

// HasLiquidityToReduceCash reports whether account would remain
// collateralized after losing principal.
func (e *Engine) HasLiquidityToReduceCash(account types.ChainAccount, principal types.CashPrincipalAmount) (bool, error) {
	var ok bool
	err := e.view(func(l *ledger) error {
		index, err := l.st.CashIndex()
		if err != nil {
			return err
		}
		amount, err := index.CashAmount(principal)
		if err != nil {
			return err
		}
		p, err := l.portfolio(account)
		if err != nil {
			return err
		}
		liquidity, err := l.liquidityOf(p.withCash(new(big.Int).Neg(amount.Int())))
		if err != nil {
			return err
		}
		ok = liquidity.Sign() >= 0
		return nil
	})
	return ok, err
}
