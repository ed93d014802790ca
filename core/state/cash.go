package state

import (
	"math/big"

	"cashchain/core/numerics"
	"cashchain/core/types"
)

// Params are the governance tunables of the ledger.
type Params struct {
	// TransferFee is charged in CASH minor units on every transfer.
	TransferFee *big.Int
	// MinTxValue is the minimum USD value (6 decimals) of extractions and
	// transfers.
	MinTxValue *big.Int
	// LiquidationIncentive multiplies the collateral seized by liquidators.
	LiquidationIncentive types.Factor
	// NoticeThreshold is the number of validator signatures that completes a
	// notice.
	NoticeThreshold uint32
	// EventThreshold is the number of validator attestations needed to apply
	// a chain event. Zero means more than two thirds of the validators.
	EventThreshold uint32
	// MinNextSyncTime is the minimum delay in milliseconds between
	// scheduling a future yield and its start.
	MinNextSyncTime uint64
}

// DefaultParams mirrors the values used on development networks.
func DefaultParams() Params {
	return Params{
		TransferFee:          numerics.MustParseNominal("0.01", types.CashDecimals),
		MinTxValue:           numerics.MustParseNominal("1", types.USDDecimals),
		LiquidationIncentive: types.MustFactor("1.08"),
		NoticeThreshold:      2,
		MinNextSyncTime:      24 * 60 * 60 * 1000,
	}
}

// SetParams stores the ledger parameters.
func (m *Manager) SetParams(p Params) error { return m.KVPut(paramsKey, p) }

// Params returns the stored parameters or the defaults.
func (m *Manager) Params() (Params, error) {
	var p Params
	ok, err := m.KVGet(paramsKey, &p)
	if err != nil {
		return Params{}, err
	}
	if !ok {
		return DefaultParams(), nil
	}
	return p, nil
}

// SetAsset stores or replaces an asset definition.
func (m *Manager) SetAsset(info types.AssetInfo) error {
	return m.KVPut(join(supportedAssetsPrefix, assetBytes(info.Asset)), info)
}

// Asset returns the asset definition or ErrAssetNotSupported.
func (m *Manager) Asset(asset types.ChainAsset) (types.AssetInfo, error) {
	var info types.AssetInfo
	ok, err := m.KVGet(join(supportedAssetsPrefix, assetBytes(asset)), &info)
	if err != nil {
		return types.AssetInfo{}, err
	}
	if !ok {
		return types.AssetInfo{}, types.ErrAssetNotSupported
	}
	return info, nil
}

// AssetByTicker finds a supported asset by its ticker.
func (m *Manager) AssetByTicker(t types.Ticker) (types.AssetInfo, error) {
	assets, err := m.Assets()
	if err != nil {
		return types.AssetInfo{}, err
	}
	for _, a := range assets {
		if a.Ticker == t {
			return a, nil
		}
	}
	return types.AssetInfo{}, types.ErrAssetNotSupported
}

// Assets lists supported assets in key order.
func (m *Manager) Assets() ([]types.AssetInfo, error) {
	var out []types.AssetInfo
	err := m.KVIterate(supportedAssetsPrefix, func(_, value []byte) error {
		var info types.AssetInfo
		if err := decodeRLP(value, &info); err != nil {
			return err
		}
		out = append(out, info)
		return nil
	})
	return out, err
}

// AssetBalance returns the signed balance of account in asset.
func (m *Manager) AssetBalance(asset types.ChainAsset, account types.ChainAccount) (*big.Int, error) {
	return m.getSigned(join(assetBalancesPrefix, assetBytes(asset), accountBytes(account)))
}

// SetAssetBalance stores a signed balance; zero removes the entry.
func (m *Manager) SetAssetBalance(asset types.ChainAsset, account types.ChainAccount, v *big.Int) error {
	return m.putSigned(join(assetBalancesPrefix, assetBytes(asset), accountBytes(account)), v)
}

// AssetBalances lists every non-zero balance of asset.
func (m *Manager) AssetBalances(asset types.ChainAsset) (map[types.ChainAccount]*big.Int, error) {
	prefix := join(assetBalancesPrefix, assetBytes(asset))
	out := make(map[types.ChainAccount]*big.Int)
	err := m.KVIterate(prefix, func(suffix, value []byte) error {
		account, _, ok := decodeAccount(suffix)
		if !ok {
			return nil
		}
		var s signedValue
		if err := decodeRLP(value, &s); err != nil {
			return err
		}
		out[account] = s.Int()
		return nil
	})
	return out, err
}

// AccountAssets lists the non-zero asset balances of one account.
func (m *Manager) AccountAssets(account types.ChainAccount) (map[types.ChainAsset]*big.Int, error) {
	assets, err := m.Assets()
	if err != nil {
		return nil, err
	}
	out := make(map[types.ChainAsset]*big.Int)
	for _, info := range assets {
		bal, err := m.AssetBalance(info.Asset, account)
		if err != nil {
			return nil, err
		}
		if bal.Sign() != 0 {
			out[info.Asset] = bal
		}
	}
	return out, nil
}

// LastIndex is the index at which account's interest in asset was last
// settled.
func (m *Manager) LastIndex(asset types.ChainAsset, account types.ChainAccount) (types.AssetIndex, error) {
	v, err := m.getBig(join(lastIndicesPrefix, assetBytes(asset), accountBytes(account)))
	if err != nil {
		return types.AssetIndex{}, err
	}
	return types.AssetIndex{Value: v}, nil
}

// SetLastIndex records the settlement index.
func (m *Manager) SetLastIndex(asset types.ChainAsset, account types.ChainAccount, idx types.AssetIndex) error {
	return m.putBig(join(lastIndicesPrefix, assetBytes(asset), accountBytes(account)), idx.Value)
}

// TotalSupply returns the total supplied amount of asset.
func (m *Manager) TotalSupply(asset types.ChainAsset) (*big.Int, error) {
	return m.getBig(join(totalSupplyPrefix, assetBytes(asset)))
}

// SetTotalSupply stores the total supplied amount.
func (m *Manager) SetTotalSupply(asset types.ChainAsset, v *big.Int) error {
	return m.putBig(join(totalSupplyPrefix, assetBytes(asset)), v)
}

// TotalBorrow returns the total borrowed amount of asset.
func (m *Manager) TotalBorrow(asset types.ChainAsset) (*big.Int, error) {
	return m.getBig(join(totalBorrowPrefix, assetBytes(asset)))
}

// SetTotalBorrow stores the total borrowed amount.
func (m *Manager) SetTotalBorrow(asset types.ChainAsset, v *big.Int) error {
	return m.putBig(join(totalBorrowPrefix, assetBytes(asset)), v)
}

// SupplyIndex returns the asset's supply interest index.
func (m *Manager) SupplyIndex(asset types.ChainAsset) (types.AssetIndex, error) {
	v, err := m.getBig(join(supplyIndexPrefix, assetBytes(asset)))
	return types.AssetIndex{Value: v}, err
}

// SetSupplyIndex stores the supply index.
func (m *Manager) SetSupplyIndex(asset types.ChainAsset, idx types.AssetIndex) error {
	return m.putBig(join(supplyIndexPrefix, assetBytes(asset)), idx.Value)
}

// BorrowIndex returns the asset's borrow interest index.
func (m *Manager) BorrowIndex(asset types.ChainAsset) (types.AssetIndex, error) {
	v, err := m.getBig(join(borrowIndexPrefix, assetBytes(asset)))
	return types.AssetIndex{Value: v}, err
}

// SetBorrowIndex stores the borrow index.
func (m *Manager) SetBorrowIndex(asset types.ChainAsset, idx types.AssetIndex) error {
	return m.putBig(join(borrowIndexPrefix, assetBytes(asset)), idx.Value)
}

// CashPrincipal returns the account's signed CASH principal.
func (m *Manager) CashPrincipal(account types.ChainAccount) (types.CashPrincipal, error) {
	v, err := m.getSigned(join(cashPrincipalsPrefix, accountBytes(account)))
	return types.CashPrincipal{Value: v}, err
}

// SetCashPrincipal stores the account's CASH principal.
func (m *Manager) SetCashPrincipal(account types.ChainAccount, p types.CashPrincipal) error {
	return m.putSigned(join(cashPrincipalsPrefix, accountBytes(account)), p.Value)
}

// CashPrincipals lists every non-zero CASH principal.
func (m *Manager) CashPrincipals() (map[types.ChainAccount]types.CashPrincipal, error) {
	out := make(map[types.ChainAccount]types.CashPrincipal)
	err := m.KVIterate(cashPrincipalsPrefix, func(suffix, value []byte) error {
		account, _, ok := decodeAccount(suffix)
		if !ok {
			return nil
		}
		var s signedValue
		if err := decodeRLP(value, &s); err != nil {
			return err
		}
		out[account] = types.CashPrincipal{Value: s.Int()}
		return nil
	})
	return out, err
}

// ChainCashPrincipal is the CASH principal held on chain.
func (m *Manager) ChainCashPrincipal(chain types.ChainID) (types.CashPrincipalAmount, error) {
	v, err := m.getBig(join(chainCashPrefix, []byte{byte(chain)}))
	return types.CashPrincipalAmount{Value: v}, err
}

// SetChainCashPrincipal stores the chain's CASH principal.
func (m *Manager) SetChainCashPrincipal(chain types.ChainID, p types.CashPrincipalAmount) error {
	return m.putBig(join(chainCashPrefix, []byte{byte(chain)}), p.Value)
}

// TotalCashPrincipal is the gross CASH principal issued on the ledger.
func (m *Manager) TotalCashPrincipal() (types.CashPrincipalAmount, error) {
	v, err := m.getBig(totalCashPrincipalKey)
	return types.CashPrincipalAmount{Value: v}, err
}

// SetTotalCashPrincipal stores the gross CASH principal.
func (m *Manager) SetTotalCashPrincipal(p types.CashPrincipalAmount) error {
	return m.putBig(totalCashPrincipalKey, p.Value)
}

// CashIndex returns the global cash index, one when unset.
func (m *Manager) CashIndex() (types.CashIndex, error) {
	v, err := m.getBig(globalCashIndexKey)
	if err != nil {
		return types.CashIndex{}, err
	}
	if v.Sign() == 0 {
		return types.CashIndexOne(), nil
	}
	return types.CashIndex{Value: v}, nil
}

// SetCashIndex stores the global cash index.
func (m *Manager) SetCashIndex(idx types.CashIndex) error {
	return m.putBig(globalCashIndexKey, idx.Int())
}

// CashYield is the current CASH APR.
func (m *Manager) CashYield() (types.APR, error) {
	v, _, err := m.getUint64(cashYieldKey)
	return types.APR(v), err
}

// SetCashYield stores the current CASH APR.
func (m *Manager) SetCashYield(r types.APR) error { return m.KVPut(cashYieldKey, uint64(r)) }

// YieldNext is a scheduled CASH yield change.
type YieldNext struct {
	Yield types.APR
	Start types.Timestamp
}

// CashYieldNext returns the scheduled yield change, if any.
func (m *Manager) CashYieldNext() (YieldNext, bool, error) {
	var next YieldNext
	ok, err := m.KVGet(cashYieldNextKey, &next)
	return next, ok, err
}

// SetCashYieldNext schedules a yield change.
func (m *Manager) SetCashYieldNext(next YieldNext) error { return m.KVPut(cashYieldNextKey, next) }

// ClearCashYieldNext drops the scheduled change.
func (m *Manager) ClearCashYieldNext() error { return m.KVDelete(cashYieldNextKey) }

// LastYieldTimestamp is the time interest was last accrued.
func (m *Manager) LastYieldTimestamp() (types.Timestamp, error) {
	v, _, err := m.getUint64(lastYieldTimestampKey)
	return v, err
}

// SetLastYieldTimestamp records the accrual time.
func (m *Manager) SetLastYieldTimestamp(ts types.Timestamp) error {
	return m.KVPut(lastYieldTimestampKey, ts)
}

// LastBlockTimestamp is the timestamp of the last initialised block.
func (m *Manager) LastBlockTimestamp() (types.Timestamp, error) {
	v, _, err := m.getUint64(lastBlockTimestampKey)
	return v, err
}

// SetLastBlockTimestamp records the block timestamp.
func (m *Manager) SetLastBlockTimestamp(ts types.Timestamp) error {
	return m.KVPut(lastBlockTimestampKey, ts)
}

// Nonce returns the next expected request nonce of account.
func (m *Manager) Nonce(account types.ChainAccount) (uint32, error) {
	var v uint32
	_, err := m.KVGet(join(noncesPrefix, accountBytes(account)), &v)
	return v, err
}

// SetNonce stores the next expected nonce.
func (m *Manager) SetNonce(account types.ChainAccount, nonce uint32) error {
	return m.KVPut(join(noncesPrefix, accountBytes(account)), nonce)
}

// Miner returns the current block's miner.
func (m *Manager) Miner() (types.ChainAccount, bool, error) {
	var acc types.ChainAccount
	ok, err := m.KVGet(minerKey, &acc)
	return acc, ok, err
}

// SetMiner records the current block's miner.
func (m *Manager) SetMiner(acc types.ChainAccount) error { return m.KVPut(minerKey, acc) }

// LastMiner returns the previous block's miner.
func (m *Manager) LastMiner() (types.ChainAccount, bool, error) {
	var acc types.ChainAccount
	ok, err := m.KVGet(lastMinerKey, &acc)
	return acc, ok, err
}

// SetLastMiner records the previous block's miner.
func (m *Manager) SetLastMiner(acc types.ChainAccount) error { return m.KVPut(lastMinerKey, acc) }

// LastMinerSharePrincipal is the miner share owed to the last miner.
func (m *Manager) LastMinerSharePrincipal() (types.CashPrincipalAmount, error) {
	v, err := m.getBig(lastMinerSharePrincipal)
	return types.CashPrincipalAmount{Value: v}, err
}

// SetLastMinerSharePrincipal stores the owed miner share.
func (m *Manager) SetLastMinerSharePrincipal(p types.CashPrincipalAmount) error {
	return m.putBig(lastMinerSharePrincipal, p.Value)
}

// MinerCumulative is the total principal ever paid to a miner.
func (m *Manager) MinerCumulative(acc types.ChainAccount) (types.CashPrincipalAmount, error) {
	v, err := m.getBig(join(minerCumulativePrefix, accountBytes(acc)))
	return types.CashPrincipalAmount{Value: v}, err
}

// SetMinerCumulative stores the miner's cumulative payout.
func (m *Manager) SetMinerCumulative(acc types.ChainAccount, p types.CashPrincipalAmount) error {
	return m.putBig(join(minerCumulativePrefix, accountBytes(acc)), p.Value)
}

// AllowedNextCodeHash is the hash governance approved for the next code.
func (m *Manager) AllowedNextCodeHash() ([32]byte, bool, error) {
	var h [32]byte
	ok, err := m.KVGet(allowedNextCodeHashKey, &h)
	return h, ok, err
}

// SetAllowedNextCodeHash records an approved code hash.
func (m *Manager) SetAllowedNextCodeHash(h [32]byte) error {
	return m.KVPut(allowedNextCodeHashKey, h)
}

// ClearAllowedNextCodeHash removes the approved code hash.
func (m *Manager) ClearAllowedNextCodeHash() error { return m.KVDelete(allowedNextCodeHashKey) }

// Accounts lists every account with a CASH principal or asset balance.
func (m *Manager) Accounts() ([]types.ChainAccount, error) {
	seen := make(map[types.ChainAccount]struct{})
	var out []types.ChainAccount
	add := func(acc types.ChainAccount) {
		if _, ok := seen[acc]; ok {
			return
		}
		seen[acc] = struct{}{}
		out = append(out, acc)
	}
	if err := m.KVIterate(cashPrincipalsPrefix, func(suffix, _ []byte) error {
		if acc, _, ok := decodeAccount(suffix); ok {
			add(acc)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	err := m.KVIterate(assetBalancesPrefix, func(suffix, _ []byte) error {
		_, rest, ok := decodeAsset(suffix)
		if !ok {
			return nil
		}
		if acc, _, ok := decodeAccount(rest); ok {
			add(acc)
		}
		return nil
	})
	return out, err
}
