package types

import (
	"fmt"
	"math/big"

	"cashchain/core/numerics"
)

// Price is the USD value of one nominal unit of a ticker, at six decimals.
type Price struct {
	Ticker Ticker
	Value  *big.Int
}

// NewPrice wraps a raw six decimal price.
func NewPrice(t Ticker, v *big.Int) Price { return Price{Ticker: t, Value: numerics.Clone(v)} }

// PriceFromNominal parses a nominal USD price such as "1500".
func PriceFromNominal(t Ticker, s string) (Price, error) {
	v, err := numerics.ParseNominal(s, PriceDecimals)
	if err != nil {
		return Price{}, err
	}
	return Price{Ticker: t, Value: v}, nil
}

// Int returns a copy of the raw value.
func (p Price) Int() *big.Int { return numerics.Clone(p.Value) }

// OnePrice is the fixed price of USD and CASH.
func OnePrice(t Ticker) Price {
	return Price{Ticker: t, Value: new(big.Int).Set(numerics.Pow10(PriceDecimals))}
}

// Quantity is an unsigned amount of some units in minor units.
type Quantity struct {
	Units Units
	Value *big.Int
}

// NewQuantity builds a quantity, enforcing the 128 bit bound.
func NewQuantity(u Units, v *big.Int) (Quantity, error) {
	checked, err := numerics.CheckUint128(numerics.Clone(v))
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Units: u, Value: checked}, nil
}

// QuantityFromNominal parses a nominal amount such as "5.5".
func QuantityFromNominal(u Units, s string) (Quantity, error) {
	v, err := numerics.ParseNominal(s, u.Decimals)
	if err != nil {
		return Quantity{}, err
	}
	return NewQuantity(u, v)
}

// MustQuantity panics when s is not a valid nominal quantity.
func MustQuantity(u Units, s string) Quantity {
	q, err := QuantityFromNominal(u, s)
	if err != nil {
		panic(err)
	}
	return q
}

// Int returns a copy of the raw value.
func (q Quantity) Int() *big.Int { return numerics.Clone(q.Value) }

// IsZero reports whether the quantity is zero.
func (q Quantity) IsZero() bool { return q.Value == nil || q.Value.Sign() == 0 }

// Cmp compares quantities of the same units.
func (q Quantity) Cmp(o Quantity) int { return q.Int().Cmp(o.Int()) }

// Add returns q+o.
func (q Quantity) Add(o Quantity) (Quantity, error) {
	if q.Units != o.Units {
		return Quantity{}, numerics.ErrUnitMismatch
	}
	return NewQuantity(q.Units, new(big.Int).Add(q.Int(), o.Int()))
}

// Sub returns q-o and fails on underflow.
func (q Quantity) Sub(o Quantity) (Quantity, error) {
	if q.Units != o.Units {
		return Quantity{}, numerics.ErrUnitMismatch
	}
	return NewQuantity(q.Units, new(big.Int).Sub(q.Int(), o.Int()))
}

// MulPrice converts q into a USD quantity at price p.
func (q Quantity) MulPrice(p Price) (Quantity, error) {
	if q.Units.Ticker != p.Ticker {
		return Quantity{}, numerics.ErrUnitMismatch
	}
	return NewQuantity(USD, numerics.Mul(q.Int(), q.Units.Decimals, p.Int(), PriceDecimals, USDDecimals))
}

// DivPrice converts a USD quantity into units at price p.
func (q Quantity) DivPrice(p Price, u Units) (Quantity, error) {
	if q.Units != USD {
		return Quantity{}, numerics.ErrPriceNotUSD
	}
	if p.Ticker != u.Ticker {
		return Quantity{}, numerics.ErrUnitMismatch
	}
	v, err := numerics.Div(q.Int(), USDDecimals, p.Int(), PriceDecimals, u.Decimals)
	if err != nil {
		return Quantity{}, err
	}
	return NewQuantity(u, v)
}

// MulFactor scales q by f.
func (q Quantity) MulFactor(f Factor) (Quantity, error) {
	return NewQuantity(q.Units, f.MulInt(q.Int()))
}

// AsIncrease returns q as a positive balance delta.
func (q Quantity) AsIncrease() Balance { return Balance{Units: q.Units, Value: q.Int()} }

// AsDecrease returns q as a negative balance delta.
func (q Quantity) AsDecrease() Balance {
	return Balance{Units: q.Units, Value: new(big.Int).Neg(q.Int())}
}

func (q Quantity) String() string {
	return fmt.Sprintf("%s %s", numerics.FormatNominal(q.Int(), q.Units.Decimals), q.Units)
}

// Balance is a signed amount of some units. Negative balances are debts.
type Balance struct {
	Units Units
	Value *big.Int
}

// NewBalance builds a balance, enforcing the signed 128 bit bound.
func NewBalance(u Units, v *big.Int) (Balance, error) {
	checked, err := numerics.CheckInt128(numerics.Clone(v))
	if err != nil {
		return Balance{}, err
	}
	return Balance{Units: u, Value: checked}, nil
}

// Int returns a copy of the raw value.
func (b Balance) Int() *big.Int { return numerics.Clone(b.Value) }

// Sign returns -1, 0 or 1.
func (b Balance) Sign() int {
	if b.Value == nil {
		return 0
	}
	return b.Value.Sign()
}

// Add returns b+o.
func (b Balance) Add(o Balance) (Balance, error) {
	if b.Units != o.Units {
		return Balance{}, numerics.ErrUnitMismatch
	}
	return NewBalance(b.Units, new(big.Int).Add(b.Int(), o.Int()))
}

// Sub returns b-o.
func (b Balance) Sub(o Balance) (Balance, error) {
	if b.Units != o.Units {
		return Balance{}, numerics.ErrUnitMismatch
	}
	return NewBalance(b.Units, new(big.Int).Sub(b.Int(), o.Int()))
}

// MulPrice values the balance in USD at price p.
func (b Balance) MulPrice(p Price) (Balance, error) {
	if b.Units.Ticker != p.Ticker {
		return Balance{}, numerics.ErrUnitMismatch
	}
	return NewBalance(USD, numerics.Mul(b.Int(), b.Units.Decimals, p.Int(), PriceDecimals, USDDecimals))
}

// MulFactor scales the balance by f.
func (b Balance) MulFactor(f Factor) (Balance, error) {
	return NewBalance(b.Units, f.MulInt(b.Int()))
}

// DivFactor divides the balance by f.
func (b Balance) DivFactor(f Factor) (Balance, error) {
	v, err := numerics.Div(b.Int(), 0, f.Int(), FactorDecimals, 0)
	if err != nil {
		return Balance{}, err
	}
	return NewBalance(b.Units, v)
}

func (b Balance) String() string {
	return fmt.Sprintf("%s %s", numerics.FormatNominal(b.Int(), b.Units.Decimals), b.Units)
}

// CashIndex maps CASH principal to present value CASH. It is an 18-decimal
// multiplier starting at one.
type CashIndex struct {
	Value *big.Int
}

// CashIndexOne is the initial cash index.
func CashIndexOne() CashIndex { return CashIndex{Value: FactorOne().Value} }

// CashIndexFromNominal parses an index such as "1.123".
func CashIndexFromNominal(s string) (CashIndex, error) {
	v, err := numerics.ParseNominal(s, FactorDecimals)
	if err != nil {
		return CashIndex{}, err
	}
	if v.Sign() <= 0 {
		return CashIndex{}, ErrBadFactor
	}
	return CashIndex{Value: v}, nil
}

// Int returns a copy of the raw value, treating an unset index as one.
func (i CashIndex) Int() *big.Int {
	if i.Value == nil || i.Value.Sign() == 0 {
		return FactorOne().Value
	}
	return new(big.Int).Set(i.Value)
}

// Cmp compares two indices.
func (i CashIndex) Cmp(o CashIndex) int { return i.Int().Cmp(o.Int()) }

// Increment returns index*(1+delta).
func (i CashIndex) Increment(delta Factor) CashIndex {
	return CashIndex{Value: FactorOne().Add(delta).Mul(Factor{Value: i.Int()}).Value}
}

// CashPrincipalAmount converts a CASH quantity into principal: q*10^18/index,
// truncated toward zero.
func (i CashIndex) CashPrincipalAmount(q Quantity) (CashPrincipalAmount, error) {
	if q.Units != CASH {
		return CashPrincipalAmount{}, numerics.ErrUnitMismatch
	}
	v, err := numerics.MulDiv(q.Int(), numerics.Pow10(FactorDecimals), i.Int())
	if err != nil {
		return CashPrincipalAmount{}, err
	}
	return NewCashPrincipalAmount(v)
}

// CashPrincipal converts a signed CASH balance into signed principal.
func (i CashIndex) CashPrincipal(b Balance) (CashPrincipal, error) {
	if b.Units != CASH {
		return CashPrincipal{}, numerics.ErrUnitMismatch
	}
	v, err := numerics.MulDiv(b.Int(), numerics.Pow10(FactorDecimals), i.Int())
	if err != nil {
		return CashPrincipal{}, err
	}
	return NewCashPrincipal(v)
}

// CashAmount converts principal back into a CASH quantity.
func (i CashIndex) CashAmount(p CashPrincipalAmount) (Quantity, error) {
	v, err := numerics.MulDiv(p.Int(), i.Int(), numerics.Pow10(FactorDecimals))
	if err != nil {
		return Quantity{}, err
	}
	return NewQuantity(CASH, v)
}

// CashBalance converts signed principal into a signed CASH balance.
func (i CashIndex) CashBalance(p CashPrincipal) (Balance, error) {
	v, err := numerics.MulDiv(p.Int(), i.Int(), numerics.Pow10(FactorDecimals))
	if err != nil {
		return Balance{}, err
	}
	return NewBalance(CASH, v)
}

func (i CashIndex) String() string { return numerics.FormatNominal(i.Int(), FactorDecimals) }

// CashPrincipal is a signed, index scaled CASH balance. Negative is a debt.
type CashPrincipal struct {
	Value *big.Int
}

// NewCashPrincipal enforces the signed 128 bit bound.
func NewCashPrincipal(v *big.Int) (CashPrincipal, error) {
	checked, err := numerics.CheckInt128(numerics.Clone(v))
	if err != nil {
		return CashPrincipal{}, err
	}
	return CashPrincipal{Value: checked}, nil
}

// CashPrincipalFromNominal parses a nominal principal such as "-0.01".
func CashPrincipalFromNominal(s string) (CashPrincipal, error) {
	v, err := numerics.ParseNominal(s, CashDecimals)
	if err != nil {
		return CashPrincipal{}, err
	}
	return NewCashPrincipal(v)
}

// Int returns a copy of the raw value.
func (p CashPrincipal) Int() *big.Int { return numerics.Clone(p.Value) }

// Sign returns -1, 0 or 1.
func (p CashPrincipal) Sign() int {
	if p.Value == nil {
		return 0
	}
	return p.Value.Sign()
}

// Cmp compares two principals.
func (p CashPrincipal) Cmp(o CashPrincipal) int { return p.Int().Cmp(o.Int()) }

// Add returns p+o.
func (p CashPrincipal) Add(o CashPrincipal) (CashPrincipal, error) {
	return NewCashPrincipal(new(big.Int).Add(p.Int(), o.Int()))
}

// AddAmount returns p+amount.
func (p CashPrincipal) AddAmount(a CashPrincipalAmount) (CashPrincipal, error) {
	return NewCashPrincipal(new(big.Int).Add(p.Int(), a.Int()))
}

// SubAmount returns p-amount.
func (p CashPrincipal) SubAmount(a CashPrincipalAmount) (CashPrincipal, error) {
	return NewCashPrincipal(new(big.Int).Sub(p.Int(), a.Int()))
}

// AmountWithdrawable is the positive part of the principal.
func (p CashPrincipal) AmountWithdrawable() CashPrincipalAmount {
	if p.Sign() <= 0 {
		return CashPrincipalAmount{Value: new(big.Int)}
	}
	return CashPrincipalAmount{Value: p.Int()}
}

func (p CashPrincipal) String() string { return numerics.FormatNominal(p.Int(), CashDecimals) }

// CashPrincipalAmount is an unsigned CASH principal.
type CashPrincipalAmount struct {
	Value *big.Int
}

// NewCashPrincipalAmount enforces the unsigned 128 bit bound.
func NewCashPrincipalAmount(v *big.Int) (CashPrincipalAmount, error) {
	checked, err := numerics.CheckUint128(numerics.Clone(v))
	if err != nil {
		return CashPrincipalAmount{}, err
	}
	return CashPrincipalAmount{Value: checked}, nil
}

// CashPrincipalAmountFromNominal parses a nominal principal amount.
func CashPrincipalAmountFromNominal(s string) (CashPrincipalAmount, error) {
	v, err := numerics.ParseNominal(s, CashDecimals)
	if err != nil {
		return CashPrincipalAmount{}, err
	}
	return NewCashPrincipalAmount(v)
}

// Int returns a copy of the raw value.
func (a CashPrincipalAmount) Int() *big.Int { return numerics.Clone(a.Value) }

// IsZero reports whether the amount is zero.
func (a CashPrincipalAmount) IsZero() bool { return a.Value == nil || a.Value.Sign() == 0 }

// Cmp compares two amounts.
func (a CashPrincipalAmount) Cmp(o CashPrincipalAmount) int { return a.Int().Cmp(o.Int()) }

// Add returns a+o.
func (a CashPrincipalAmount) Add(o CashPrincipalAmount) (CashPrincipalAmount, error) {
	return NewCashPrincipalAmount(new(big.Int).Add(a.Int(), o.Int()))
}

// Sub returns a-o and fails on underflow.
func (a CashPrincipalAmount) Sub(o CashPrincipalAmount) (CashPrincipalAmount, error) {
	return NewCashPrincipalAmount(new(big.Int).Sub(a.Int(), o.Int()))
}

func (a CashPrincipalAmount) String() string { return numerics.FormatNominal(a.Int(), CashDecimals) }
