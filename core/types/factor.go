package types

import (
	"math/big"

	"cashchain/core/numerics"
)

// Timestamp is milliseconds since the unix epoch.
type Timestamp = uint64

// MillisecondsPerYear is the year length used for rate compounding.
const MillisecondsPerYear uint64 = 365 * 24 * 60 * 60 * 1000

// Factor is an unsigned 18-decimal fraction used for collateral factors,
// miner shares and utilisation.
type Factor struct {
	Value *big.Int
}

// NewFactor wraps a raw 18-decimal integer.
func NewFactor(v *big.Int) Factor { return Factor{Value: numerics.Clone(v)} }

// FactorOne is the unit factor.
func FactorOne() Factor { return Factor{Value: new(big.Int).Set(numerics.Pow10(FactorDecimals))} }

// FactorZero is the zero factor.
func FactorZero() Factor { return Factor{Value: new(big.Int)} }

// FactorFromNominal parses a decimal string such as "0.8".
func FactorFromNominal(s string) (Factor, error) {
	v, err := numerics.ParseNominal(s, FactorDecimals)
	if err != nil {
		return Factor{}, err
	}
	if v.Sign() < 0 {
		return Factor{}, ErrBadFactor
	}
	return Factor{Value: v}, nil
}

// MustFactor panics when s is not a valid factor.
func MustFactor(s string) Factor {
	f, err := FactorFromNominal(s)
	if err != nil {
		panic(err)
	}
	return f
}

// FactorFromFraction computes num/den as an 18-decimal factor. The product
// num*10^18 is formed before dividing so no precision is lost.
func FactorFromFraction(num, den *big.Int) (Factor, error) {
	if den == nil || den.Sign() == 0 {
		return Factor{}, numerics.ErrDivisionByZero
	}
	v, err := numerics.MulDiv(num, numerics.Pow10(FactorDecimals), den)
	if err != nil {
		return Factor{}, err
	}
	if v.Sign() < 0 {
		return Factor{}, numerics.ErrSignMismatch
	}
	return Factor{Value: v}, nil
}

// Int returns a copy of the raw value.
func (f Factor) Int() *big.Int { return numerics.Clone(f.Value) }

// IsZero reports whether the factor is zero.
func (f Factor) IsZero() bool { return f.Value == nil || f.Value.Sign() == 0 }

// Cmp compares two factors.
func (f Factor) Cmp(o Factor) int { return f.Int().Cmp(o.Int()) }

// Add returns f+o.
func (f Factor) Add(o Factor) Factor {
	return Factor{Value: new(big.Int).Add(f.Int(), o.Int())}
}

// Sub returns f-o and fails when the result would be negative.
func (f Factor) Sub(o Factor) (Factor, error) {
	out := new(big.Int).Sub(f.Int(), o.Int())
	if out.Sign() < 0 {
		return Factor{}, numerics.ErrUnderflow
	}
	return Factor{Value: out}, nil
}

// Mul returns f*o truncated to 18 decimals.
func (f Factor) Mul(o Factor) Factor {
	return Factor{Value: numerics.Mul(f.Int(), FactorDecimals, o.Int(), FactorDecimals, FactorDecimals)}
}

// Div returns f/o at 18 decimals.
func (f Factor) Div(o Factor) (Factor, error) {
	v, err := numerics.Div(f.Int(), FactorDecimals, o.Int(), FactorDecimals, FactorDecimals)
	if err != nil {
		return Factor{}, err
	}
	return Factor{Value: v}, nil
}

// MulInt scales an integer by the factor, truncating toward zero.
func (f Factor) MulInt(v *big.Int) *big.Int {
	return numerics.Mul(v, 0, f.Int(), FactorDecimals, 0)
}

func (f Factor) String() string { return numerics.FormatNominal(f.Int(), FactorDecimals) }

// APR is an annualised simple rate with four decimals (10000 = 100%).
type APR uint64

// MaxAPR bounds every configured rate (35%).
const MaxAPR APR = 3500

// APRFromNominal parses a decimal rate such as "0.05".
func APRFromNominal(s string) (APR, error) {
	v, err := numerics.ParseNominal(s, APRDecimals)
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || !v.IsUint64() {
		return 0, ErrInvalidAPR
	}
	return APR(v.Uint64()), nil
}

// Compound returns the linear growth factor apr*dt/year accrued over dt
// milliseconds.
func (r APR) Compound(dt Timestamp) Factor {
	num := new(big.Int).Mul(new(big.Int).SetUint64(uint64(r)), new(big.Int).SetUint64(dt))
	num.Mul(num, numerics.Pow10(FactorDecimals))
	den := new(big.Int).Mul(new(big.Int).SetUint64(MillisecondsPerYear), numerics.Pow10(APRDecimals))
	return Factor{Value: num.Quo(num, den)}
}

// MulFactor scales the rate by f, truncating toward zero.
func (r APR) MulFactor(f Factor) APR {
	v := f.MulInt(new(big.Int).SetUint64(uint64(r)))
	if !v.IsUint64() {
		return 0
	}
	return APR(v.Uint64())
}

func (r APR) String() string {
	return numerics.FormatNominal(new(big.Int).SetUint64(uint64(r)), APRDecimals)
}

// AssetIndex is a multiplicative 18-decimal interest index for one asset,
// starting at one.
type AssetIndex struct {
	Value *big.Int
}

// AssetIndexOne is the initial asset index.
func AssetIndexOne() AssetIndex { return AssetIndex{Value: FactorOne().Value} }

// Int returns a copy of the raw value.
func (i AssetIndex) Int() *big.Int {
	if i.Value == nil || i.Value.Sign() == 0 {
		return FactorOne().Value
	}
	return new(big.Int).Set(i.Value)
}

// Increment returns index*(1+delta).
func (i AssetIndex) Increment(delta Factor) AssetIndex {
	return AssetIndex{Value: FactorOne().Add(delta).Mul(Factor{Value: i.Int()}).Value}
}

// GrowthSince returns index/since - 1, the interest factor accrued between two
// observations of the index.
func (i AssetIndex) GrowthSince(since AssetIndex) (Factor, error) {
	ratio, err := Factor{Value: i.Int()}.Div(Factor{Value: since.Int()})
	if err != nil {
		return Factor{}, err
	}
	if ratio.Cmp(FactorOne()) <= 0 {
		return FactorZero(), nil
	}
	return ratio.Sub(FactorOne())
}

// Cmp compares two indices.
func (i AssetIndex) Cmp(o AssetIndex) int { return i.Int().Cmp(o.Int()) }

func (i AssetIndex) String() string { return numerics.FormatNominal(i.Int(), FactorDecimals) }
