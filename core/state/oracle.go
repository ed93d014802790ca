package state

import (
	"math/big"

	"cashchain/core/types"
)

// PriceReporters returns the authorised oracle reporter addresses.
func (m *Manager) PriceReporters() ([][20]byte, error) {
	var out [][20]byte
	if _, err := m.KVGet(priceReportersKey, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPriceReporters replaces the reporter set.
func (m *Manager) SetPriceReporters(reporters [][20]byte) error {
	return m.KVPut(priceReportersKey, reporters)
}

// Price returns the stored raw price of ticker.
func (m *Manager) Price(t types.Ticker) (*big.Int, bool, error) {
	v := new(big.Int)
	ok, err := m.KVGet(join(pricesPrefix, t[:]), v)
	return v, ok, err
}

// SetPrice stores a raw six decimal price.
func (m *Manager) SetPrice(t types.Ticker, v *big.Int) error {
	return m.KVPut(join(pricesPrefix, t[:]), v)
}

// PriceTime returns the millisecond timestamp of ticker's last price.
func (m *Manager) PriceTime(t types.Ticker) (types.Timestamp, error) {
	v, _, err := m.getUint64(join(priceTimesPrefix, t[:]))
	return v, err
}

// SetPriceTime stores the timestamp of ticker's last price.
func (m *Manager) SetPriceTime(t types.Ticker, ts types.Timestamp) error {
	return m.KVPut(join(priceTimesPrefix, t[:]), ts)
}

// Prices lists every stored price.
func (m *Manager) Prices() (map[types.Ticker]*big.Int, error) {
	out := make(map[types.Ticker]*big.Int)
	err := m.KVIterate(pricesPrefix, func(suffix, value []byte) error {
		if len(suffix) != types.TickerLength {
			return nil
		}
		var t types.Ticker
		copy(t[:], suffix)
		v := new(big.Int)
		if err := decodeRLP(value, v); err != nil {
			return err
		}
		out[t] = v
		return nil
	})
	return out, err
}
