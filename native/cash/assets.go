package cash

import (
	"math/big"

	"cashchain/core/events"
	"cashchain/core/numerics"
	"cashchain/core/types"
	"cashchain/native/notices"
)

// SupportAsset adds or replaces an asset definition.
func (e *Engine) SupportAsset(info types.AssetInfo) error {
	return e.mutate(func(l *ledger) error {
		if err := info.Validate(); err != nil {
			return err
		}
		if err := info.RateModel.CheckParameters(); err != nil {
			return err
		}
		if err := l.st.SetAsset(info); err != nil {
			return err
		}
		l.emit(events.AssetChanged{Type: events.TypeSupportAsset, Asset: info.Asset, Value: info.Ticker.String()})
		return nil
	})
}

// SetRateModel replaces the interest rate curve of a supported asset.
func (e *Engine) SetRateModel(asset types.ChainAsset, model types.InterestRateModel) error {
	return e.mutate(func(l *ledger) error {
		if err := model.CheckParameters(); err != nil {
			return err
		}
		info, err := l.st.Asset(asset)
		if err != nil {
			return err
		}
		info.RateModel = model
		if err := l.st.SetAsset(info); err != nil {
			return err
		}
		l.emit(events.AssetChanged{Type: events.TypeSetRateModel, Asset: asset})
		return nil
	})
}

// SetSupplyCap updates the ledger supply cap of an asset and instructs its
// starport to enforce the same limit on locks.
func (e *Engine) SetSupplyCap(asset types.ChainAsset, limit *big.Int) error {
	return e.mutate(func(l *ledger) error {
		if limit == nil || limit.Sign() < 0 {
			return errInvalidAmount
		}
		if _, err := numerics.CheckUint128(limit); err != nil {
			return err
		}
		info, err := l.st.Asset(asset)
		if err != nil {
			return err
		}
		info.SupplyCap = new(big.Int).Set(limit)
		if err := l.st.SetAsset(info); err != nil {
			return err
		}
		if _, err := l.dispatch(notices.SetSupplyCap(asset, limit), nil); err != nil {
			return err
		}
		l.emit(events.AssetChanged{Type: events.TypeSetSupplyCap, Asset: asset, Value: limit.String()})
		return nil
	})
}
