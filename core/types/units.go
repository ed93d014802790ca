package types

import (
	"bytes"
	"strings"
)

// TickerLength is the fixed width of a ticker label.
const TickerLength = 12

// Ticker is a fixed-width, zero padded ASCII label keying oracle prices.
type Ticker [TickerLength]byte

// NewTicker validates and pads s into a Ticker. Tickers are case-sensitive.
func NewTicker(s string) (Ticker, error) {
	var t Ticker
	if s == "" || len(s) > TickerLength {
		return t, ErrBadTicker
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c <= ' ' || c > '~' {
			return t, ErrBadTicker
		}
	}
	copy(t[:], s)
	return t, nil
}

// MustTicker panics when s is not a valid ticker.
func MustTicker(s string) Ticker {
	t, err := NewTicker(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t Ticker) String() string {
	return string(bytes.TrimRight(t[:], "\x00"))
}

// IsZero reports whether the ticker is unset.
func (t Ticker) IsZero() bool { return t == Ticker{} }

// Units binds a ticker to the decimal scale of its integer amounts.
type Units struct {
	Ticker   Ticker
	Decimals uint8
}

// NewUnits builds units for the given ticker label.
func NewUnits(ticker string, decimals uint8) (Units, error) {
	t, err := NewTicker(ticker)
	if err != nil {
		return Units{}, err
	}
	return Units{Ticker: t, Decimals: decimals}, nil
}

func mustUnits(ticker string, decimals uint8) Units {
	u, err := NewUnits(ticker, decimals)
	if err != nil {
		panic(err)
	}
	return u
}

func (u Units) String() string {
	return u.Ticker.String()
}

const (
	// PriceDecimals is the scale of every oracle price.
	PriceDecimals uint8 = 6
	// CashDecimals is the scale of CASH quantities and principals.
	CashDecimals uint8 = 6
	// USDDecimals is the scale of USD values.
	USDDecimals uint8 = 6
	// FactorDecimals is the scale of factors and indices.
	FactorDecimals uint8 = 18
	// APRDecimals is the scale of annualised rates.
	APRDecimals uint8 = 4
)

var (
	// USD is the unit of account for prices.
	USD = mustUnits("USD", USDDecimals)
	// CASH is the synthetic unit of account token.
	CASH = mustUnits("CASH", CashDecimals)
)

// IsReserved reports whether the ticker names USD or CASH, both priced at one.
func (t Ticker) IsReserved() bool {
	return t == USD.Ticker || t == CASH.Ticker
}

// normalizeChainLabel maps user supplied chain names to their canonical form.
func normalizeChainLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
