package types

import (
	"math/big"
	"unicode/utf8"
)

// SymbolLength bounds display symbols.
const SymbolLength = 12

// InterestRateModel is the kinked utilisation curve. Rates are APRs and the
// kink utilisation is a factor.
type InterestRateModel struct {
	ZeroRate APR
	KinkRate APR
	KinkUtil Factor
	FullRate APR
}

// DefaultInterestRateModel is 0% at zero utilisation, 5% at 80% and 20% at
// full utilisation.
func DefaultInterestRateModel() InterestRateModel {
	return InterestRateModel{
		ZeroRate: 0,
		KinkRate: 500,
		KinkUtil: MustFactor("0.8"),
		FullRate: 2000,
	}
}

// CheckParameters validates the curve shape.
func (m InterestRateModel) CheckParameters() error {
	if m.ZeroRate > MaxAPR || m.KinkRate > MaxAPR || m.FullRate > MaxAPR {
		return ErrModelRateOutOfBounds
	}
	if m.ZeroRate > m.KinkRate {
		return ErrZeroAboveKink
	}
	if m.KinkRate > m.FullRate {
		return ErrKinkAboveFull
	}
	if m.KinkUtil.IsZero() || m.KinkUtil.Cmp(FactorOne()) >= 0 {
		return ErrKinkUtilizationTooHigh
	}
	return nil
}

// AssetInfo describes a supported asset.
type AssetInfo struct {
	Asset           ChainAsset
	Decimals        uint8
	Ticker          Ticker
	Symbol          string
	LiquidityFactor Factor
	RateModel       InterestRateModel
	MinerShares     Factor
	// SupplyCap bounds total supply. Nil means uncapped.
	SupplyCap *big.Int `rlp:"optional"`
}

// Units returns the asset's quantity units.
func (a AssetInfo) Units() Units { return Units{Ticker: a.Ticker, Decimals: a.Decimals} }

// Quantity wraps a raw amount in the asset's units.
func (a AssetInfo) Quantity(v *big.Int) (Quantity, error) { return NewQuantity(a.Units(), v) }

// Validate checks the static constraints of an asset definition.
func (a AssetInfo) Validate() error {
	if a.Asset.Chain != ChainEth {
		return ErrBadAsset
	}
	if a.Ticker.IsZero() || a.Ticker.IsReserved() {
		return ErrBadTicker
	}
	if a.Symbol == "" || len(a.Symbol) > SymbolLength || !utf8.ValidString(a.Symbol) {
		return ErrBadSymbol
	}
	if a.Decimals > 36 {
		return ErrBadUnits
	}
	if a.LiquidityFactor.Cmp(FactorOne()) > 0 || a.MinerShares.Cmp(FactorOne()) > 0 {
		return ErrBadFactor
	}
	if a.SupplyCap != nil && a.SupplyCap.Sign() < 0 {
		return ErrBadAsset
	}
	return a.RateModel.CheckParameters()
}

// ValidatorKeys binds a validator's gateway identity to its Eth signing key.
type ValidatorKeys struct {
	SubstrateID [32]byte
	EthAddress  [20]byte
}
