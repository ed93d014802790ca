// core/genesis/loader.go
package genesis

import (
	"fmt"
	"math/big"
	"sort"

	"cashchain/core/state"
	"cashchain/core/types"
)

// Apply writes the initial ledger state described by spec into manager.
// Callers run it inside an atomic batch.
func Apply(manager *state.Manager, spec *GenesisSpec) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if manager == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	ts := spec.GenesisTimestamp()
	if ts.IsZero() {
		parsed, err := parseGenesisTime(spec.GenesisTime)
		if err != nil {
			return err
		}
		ts = parsed
	}
	now := types.Timestamp(ts.UnixMilli())

	if err := manager.SetParams(spec.params); err != nil {
		return fmt.Errorf("params: %w", err)
	}

	// 1) Authorities
	if err := manager.SetValidators(spec.validators); err != nil {
		return fmt.Errorf("validators: %w", err)
	}
	for _, keys := range spec.validators {
		if err := manager.SetSessionKeys(keys.SubstrateID, keys); err != nil {
			return fmt.Errorf("session keys: %w", err)
		}
	}
	if err := manager.SetPriceReporters(spec.reporters); err != nil {
		return fmt.Errorf("reporters: %w", err)
	}

	// 2) Assets (sorted by ticker)
	assets := append([]types.AssetInfo(nil), spec.assets...)
	sort.Slice(assets, func(i, j int) bool { return assets[i].Ticker.String() < assets[j].Ticker.String() })
	for _, info := range assets {
		if err := manager.SetAsset(info); err != nil {
			return fmt.Errorf("asset %s: %w", info.Ticker, err)
		}
		if err := manager.SetSupplyIndex(info.Asset, types.AssetIndexOne()); err != nil {
			return err
		}
		if err := manager.SetBorrowIndex(info.Asset, types.AssetIndexOne()); err != nil {
			return err
		}
	}

	// 3) CASH
	if err := manager.SetCashYield(spec.yield); err != nil {
		return err
	}
	if err := manager.SetCashIndex(spec.cashIndex); err != nil {
		return err
	}
	chains := make([]types.ChainID, 0, len(spec.chainCash))
	for chain := range spec.chainCash {
		chains = append(chains, chain)
	}
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	total := new(big.Int)
	for _, chain := range chains {
		principal := spec.chainCash[chain]
		if err := manager.SetChainCashPrincipal(chain, principal); err != nil {
			return fmt.Errorf("chain cash %s: %w", chain, err)
		}
		total.Add(total, principal.Int())
	}
	totalPrincipal, err := types.NewCashPrincipalAmount(total)
	if err != nil {
		return fmt.Errorf("total cash: %w", err)
	}
	if err := manager.SetTotalCashPrincipal(totalPrincipal); err != nil {
		return err
	}

	// 4) Clocks
	if err := manager.SetLastBlockTimestamp(now); err != nil {
		return err
	}
	if err := manager.SetLastYieldTimestamp(now); err != nil {
		return err
	}
	return manager.SetStateVersion(state.StateVersion)
}
