package cash

import (
	"math/big"

	"cashchain/core/numerics"
	"cashchain/core/types"
)

// Utilisation computes U = totalBorrow / totalSupply. When nothing is
// supplied the utilisation is defined as zero.
func Utilisation(totalBorrow, totalSupply *big.Int) *big.Rat {
	if totalBorrow == nil || totalBorrow.Sign() == 0 {
		return new(big.Rat)
	}
	if totalSupply == nil || totalSupply.Sign() == 0 {
		return new(big.Rat)
	}
	return new(big.Rat).SetFrac(totalBorrow, totalSupply)
}

func factorRat(f types.Factor) *big.Rat {
	return new(big.Rat).SetFrac(f.Int(), numerics.Pow10(types.FactorDecimals))
}

func aprRat(r types.APR) *big.Rat { return new(big.Rat).SetInt64(int64(r)) }

// BorrowRate evaluates the kinked curve at utilisation u. The result is in
// APR units (four decimals) and may carry a fraction.
func BorrowRate(m types.InterestRateModel, u *big.Rat) *big.Rat {
	zero := aprRat(m.ZeroRate)
	kinkRate := aprRat(m.KinkRate)
	full := aprRat(m.FullRate)
	kink := factorRat(m.KinkUtil)
	if u.Sign() == 0 {
		return zero
	}
	if kink.Sign() == 0 {
		return kinkRate
	}
	if u.Cmp(kink) <= 0 {
		// Linear region before the kink.
		slope := new(big.Rat).Sub(kinkRate, zero)
		slope.Mul(slope, u)
		slope.Quo(slope, kink)
		return zero.Add(zero, slope)
	}

	headroom := new(big.Rat).Sub(big.NewRat(1, 1), kink)
	if headroom.Sign() <= 0 {
		return full
	}
	excess := new(big.Rat).Sub(u, kink)
	slope := new(big.Rat).Sub(full, kinkRate)
	slope.Mul(slope, excess)
	slope.Quo(slope, headroom)
	return kinkRate.Add(kinkRate, slope)
}

// SupplyRate is the borrow rate scaled by utilisation with the miner share
// withheld.
func SupplyRate(borrow *big.Rat, u *big.Rat, minerShares types.Factor) *big.Rat {
	if borrow.Sign() == 0 || u.Sign() == 0 {
		return new(big.Rat)
	}
	keep := new(big.Rat).Sub(big.NewRat(1, 1), factorRat(minerShares))
	if keep.Sign() < 0 {
		keep.SetInt64(0)
	}
	out := new(big.Rat).Mul(borrow, u)
	return out.Mul(out, keep)
}

func truncAPR(r *big.Rat) types.APR {
	if r.Sign() <= 0 {
		return 0
	}
	q := new(big.Int).Quo(r.Num(), r.Denom())
	if !q.IsUint64() {
		return types.MaxAPR
	}
	return types.APR(q.Uint64())
}

// AssetRates returns the borrow and supply APR of an asset given its totals.
func AssetRates(info types.AssetInfo, totalBorrow, totalSupply *big.Int) (borrow, supply types.APR) {
	u := Utilisation(totalBorrow, totalSupply)
	b := BorrowRate(info.RateModel, u)
	return truncAPR(b), truncAPR(SupplyRate(b, u, info.MinerShares))
}

func (l *ledger) rates(info types.AssetInfo) (types.APR, types.APR, error) {
	supply, err := l.st.TotalSupply(info.Asset)
	if err != nil {
		return 0, 0, err
	}
	borrow, err := l.st.TotalBorrow(info.Asset)
	if err != nil {
		return 0, 0, err
	}
	b, s := AssetRates(info, borrow, supply)
	return b, s, nil
}
