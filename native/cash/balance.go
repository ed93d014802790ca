package cash

import (
	"math/big"

	"cashchain/core/numerics"
)

// repayAndSupply splits an amount added to balance into the part that
// cancels an existing debt and the part that extends the supply.
func repayAndSupply(balance, amount *big.Int) (repay, supply *big.Int) {
	if balance.Sign() >= 0 {
		return new(big.Int), numerics.Clone(amount)
	}
	debt := new(big.Int).Neg(balance)
	if amount.Cmp(debt) <= 0 {
		return numerics.Clone(amount), new(big.Int)
	}
	return debt, new(big.Int).Sub(amount, debt)
}

// withdrawAndBorrow splits an amount removed from balance into the part that
// draws down an existing supply and the part that opens or extends a debt.
func withdrawAndBorrow(balance, amount *big.Int) (withdraw, borrow *big.Int) {
	if balance.Sign() <= 0 {
		return new(big.Int), numerics.Clone(amount)
	}
	if amount.Cmp(balance) <= 0 {
		return numerics.Clone(amount), new(big.Int)
	}
	return numerics.Clone(balance), new(big.Int).Sub(amount, balance)
}

// subNonNegative returns a-b or fail when the result would be negative.
func subNonNegative(a, b *big.Int, fail error) (*big.Int, error) {
	out := new(big.Int).Sub(a, b)
	if out.Sign() < 0 {
		return nil, fail
	}
	return out, nil
}
