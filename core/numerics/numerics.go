package numerics

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	ErrOverflow       = errors.New("math: overflow")
	ErrUnderflow      = errors.New("math: underflow")
	ErrDivisionByZero = errors.New("math: division by zero")
	ErrUnitMismatch   = errors.New("math: unit mismatch")
	ErrPriceNotUSD    = errors.New("math: price not denominated in USD")
	ErrSignMismatch   = errors.New("math: sign mismatch")
	ErrBadNominal     = errors.New("math: invalid nominal value")
)

// MaxDecimals bounds every decimal scale handled by the ledger.
const MaxDecimals = 36

var (
	one        = big.NewInt(1)
	maxUint128 = new(big.Int).Sub(new(big.Int).Lsh(one, 128), one)
	maxInt128  = new(big.Int).Sub(new(big.Int).Lsh(one, 127), one)
	minInt128  = new(big.Int).Neg(new(big.Int).Lsh(one, 127))

	powMu    sync.RWMutex
	powCache = map[uint8]*big.Int{}
)

// MaxUint128 returns a copy of 2^128-1.
func MaxUint128() *big.Int { return new(big.Int).Set(maxUint128) }

// Pow10 returns 10^n. The returned value must not be mutated.
func Pow10(n uint8) *big.Int {
	powMu.RLock()
	v, ok := powCache[n]
	powMu.RUnlock()
	if ok {
		return v
	}
	v = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	powMu.Lock()
	powCache[n] = v
	powMu.Unlock()
	return v
}

// Clone returns a copy of v, treating nil as zero.
func Clone(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(v)
}

// CheckUint128 fails when v is negative or does not fit in 128 bits.
func CheckUint128(v *big.Int) (*big.Int, error) {
	if v == nil {
		return new(big.Int), nil
	}
	if v.Sign() < 0 {
		return nil, ErrUnderflow
	}
	if v.Cmp(maxUint128) > 0 {
		return nil, ErrOverflow
	}
	return v, nil
}

// CheckInt128 fails when v is outside the signed 128 bit range.
func CheckInt128(v *big.Int) (*big.Int, error) {
	if v == nil {
		return new(big.Int), nil
	}
	if v.Cmp(maxInt128) > 0 {
		return nil, ErrOverflow
	}
	if v.Cmp(minInt128) < 0 {
		return nil, ErrUnderflow
	}
	return v, nil
}

// Rescale converts v from one decimal scale to another, truncating toward zero.
func Rescale(v *big.Int, from, to uint8) *big.Int {
	out := Clone(v)
	switch {
	case to > from:
		out.Mul(out, Pow10(to-from))
	case from > to:
		out.Quo(out, Pow10(from-to))
	}
	return out
}

// Mul multiplies a (aDec decimals) by b (bDec decimals) and returns the
// product at outDec decimals, truncated toward zero.
func Mul(a *big.Int, aDec uint8, b *big.Int, bDec uint8, outDec uint8) *big.Int {
	product := new(big.Int).Mul(Clone(a), Clone(b))
	return rescaleWide(product, int(aDec)+int(bDec), int(outDec))
}

// Div divides a (aDec decimals) by b (bDec decimals) and returns the quotient
// at outDec decimals, truncated toward zero.
func Div(a *big.Int, aDec uint8, b *big.Int, bDec uint8, outDec uint8) (*big.Int, error) {
	if b == nil || b.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	num := Clone(a)
	den := new(big.Int).Set(b)
	shift := int(outDec) + int(bDec) - int(aDec)
	if shift >= 0 {
		num.Mul(num, pow10Int(shift))
	} else {
		den.Mul(den, pow10Int(-shift))
	}
	return num.Quo(num, den), nil
}

// MulDiv computes a*b/c truncated toward zero.
func MulDiv(a, b, c *big.Int) (*big.Int, error) {
	if c == nil || c.Sign() == 0 {
		return nil, ErrDivisionByZero
	}
	out := new(big.Int).Mul(Clone(a), Clone(b))
	return out.Quo(out, c), nil
}

func rescaleWide(v *big.Int, from, to int) *big.Int {
	switch {
	case to > from:
		return v.Mul(v, pow10Int(to-from))
	case from > to:
		return v.Quo(v, pow10Int(from-to))
	}
	return v
}

func pow10Int(n int) *big.Int {
	if n <= 255 {
		return Pow10(uint8(n))
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// ParseNominal converts a human decimal string such as "5.5" into an integer
// scaled by decimals. Digits beyond the scale are truncated.
func ParseNominal(s string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrBadNominal, s)
	}
	return d.Shift(int32(decimals)).Truncate(0).BigInt(), nil
}

// MustParseNominal is ParseNominal for constants and tests.
func MustParseNominal(s string, decimals uint8) *big.Int {
	v, err := ParseNominal(s, decimals)
	if err != nil {
		panic(err)
	}
	return v
}

// FormatNominal renders v scaled by decimals as a human decimal string.
func FormatNominal(v *big.Int, decimals uint8) string {
	return decimal.NewFromBigInt(Clone(v), -int32(decimals)).String()
}
