package state

import (
	"errors"
	"math/big"
	"testing"

	"cashchain/core/types"
	"cashchain/storage"
)

func testAccount(b byte) types.ChainAccount {
	var addr [20]byte
	addr[19] = b
	return types.EthAccount(addr)
}

func testAsset(b byte) types.ChainAsset {
	var addr [20]byte
	addr[0] = b
	return types.EthAsset(addr)
}

func TestSignedBalancesRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	asset := testAsset(1)
	alice, bob := testAccount(1), testAccount(2)

	if err := m.SetAssetBalance(asset, alice, big.NewInt(-42)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := m.SetAssetBalance(asset, bob, big.NewInt(7)); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := m.AssetBalance(asset, alice)
	if err != nil || got.Int64() != -42 {
		t.Fatalf("unexpected balance %v %v", got, err)
	}
	all, err := m.AssetBalances(asset)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[bob].Int64() != 7 {
		t.Fatalf("unexpected balances %v", all)
	}

	if err := m.SetAssetBalance(asset, alice, new(big.Int)); err != nil {
		t.Fatalf("zero: %v", err)
	}
	all, _ = m.AssetBalances(asset)
	if _, ok := all[alice]; ok {
		t.Fatalf("zero balances should be removed")
	}
}

func TestAtomicRollsBackOnError(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	acc := testAccount(9)
	boom := errors.New("boom")

	err := m.Atomic(func(tx *Manager) error {
		if err := tx.SetNonce(acc, 5); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if nonce, _ := m.Nonce(acc); nonce != 0 {
		t.Fatalf("nonce leaked from failed scope: %d", nonce)
	}

	if err := m.Atomic(func(tx *Manager) error { return tx.SetNonce(acc, 1) }); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if nonce, _ := m.Nonce(acc); nonce != 1 {
		t.Fatalf("nonce not committed: %d", nonce)
	}
}

func TestAssetRegistry(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if _, err := m.Asset(testAsset(1)); !errors.Is(err, types.ErrAssetNotSupported) {
		t.Fatalf("expected unsupported, got %v", err)
	}
	info := types.AssetInfo{
		Asset:           testAsset(1),
		Decimals:        18,
		Ticker:          types.MustTicker("ETH"),
		Symbol:          "ETH",
		LiquidityFactor: types.MustFactor("0.8"),
		RateModel:       types.DefaultInterestRateModel(),
		MinerShares:     types.MustFactor("0.1"),
		SupplyCap:       big.NewInt(1000),
	}
	if err := m.SetAsset(info); err != nil {
		t.Fatalf("set asset: %v", err)
	}
	got, err := m.AssetByTicker(types.MustTicker("ETH"))
	if err != nil {
		t.Fatalf("by ticker: %v", err)
	}
	if got.Asset != info.Asset || got.LiquidityFactor.Cmp(info.LiquidityFactor) != 0 || got.SupplyCap.Int64() != 1000 {
		t.Fatalf("asset did not round trip: %+v", got)
	}
	if got.RateModel.KinkRate != 500 {
		t.Fatalf("rate model lost: %+v", got.RateModel)
	}
}

func TestAssetSupplyCapKeepsUnsetApartFromZero(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	info := types.AssetInfo{
		Asset:           testAsset(2),
		Decimals:        18,
		Ticker:          types.MustTicker("UNI"),
		Symbol:          "UNI",
		LiquidityFactor: types.MustFactor("0.7"),
		RateModel:       types.DefaultInterestRateModel(),
	}
	if err := m.SetAsset(info); err != nil {
		t.Fatalf("set asset: %v", err)
	}
	got, err := m.Asset(info.Asset)
	if err != nil {
		t.Fatalf("asset: %v", err)
	}
	if got.SupplyCap != nil {
		t.Fatalf("unset cap read back as %v", got.SupplyCap)
	}

	info.SupplyCap = new(big.Int)
	if err := m.SetAsset(info); err != nil {
		t.Fatalf("set asset: %v", err)
	}
	got, err = m.Asset(info.Asset)
	if err != nil {
		t.Fatalf("asset: %v", err)
	}
	if got.SupplyCap == nil || got.SupplyCap.Sign() != 0 {
		t.Fatalf("zero cap read back as %v", got.SupplyCap)
	}
}

func TestCashIndexDefaultsToOne(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	idx, err := m.CashIndex()
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if idx.String() != "1" {
		t.Fatalf("unexpected default index %s", idx)
	}
	params, err := m.Params()
	if err != nil || params.NoticeThreshold != 2 {
		t.Fatalf("unexpected default params %+v %v", params, err)
	}
}

func TestNoticeTables(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	notice := types.Notice{
		Kind:      types.NoticeExtraction,
		Chain:     types.ChainEth,
		ID:        types.NoticeID{Era: 0, Index: 1},
		Amount:    big.NewInt(5),
		Recipient: [20]byte{1},
	}
	if err := m.SetNotice(notice); err != nil {
		t.Fatalf("set notice: %v", err)
	}
	if err := m.SetNoticeState(notice.Chain, notice.ID, types.NoticeState{Status: types.NoticePending}); err != nil {
		t.Fatalf("set state: %v", err)
	}
	pending, err := m.PendingNotices()
	if err != nil || len(pending) != 1 || pending[0].ID != notice.ID {
		t.Fatalf("unexpected pending %v %v", pending, err)
	}
	stored, ok, err := m.Notice(notice.Chain, notice.ID)
	if err != nil || !ok || stored.Amount.Int64() != 5 {
		t.Fatalf("notice did not round trip: %+v %v", stored, err)
	}
	state, err := m.NoticeState(types.ChainEth, types.NoticeID{Era: 9})
	if err != nil || state.Status != types.NoticeMissing {
		t.Fatalf("expected missing, got %v %v", state.Status, err)
	}
}

func TestValidatorSetReplace(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	first := []types.ValidatorKeys{{SubstrateID: [32]byte{1}, EthAddress: [20]byte{1}}, {SubstrateID: [32]byte{2}, EthAddress: [20]byte{2}}}
	if err := m.SetNextValidators(first); err != nil {
		t.Fatalf("set: %v", err)
	}
	second := []types.ValidatorKeys{{SubstrateID: [32]byte{3}, EthAddress: [20]byte{3}}}
	if err := m.SetNextValidators(second); err != nil {
		t.Fatalf("replace: %v", err)
	}
	got, err := m.NextValidators()
	if err != nil || len(got) != 1 || got[0].SubstrateID != second[0].SubstrateID {
		t.Fatalf("unexpected next validators %v %v", got, err)
	}
}

func TestStateVersion(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	if err := m.EnsureStateVersion(false); err != nil {
		t.Fatalf("fresh db: %v", err)
	}
	if err := m.SetStateVersion(StateVersion + 1); err != nil {
		t.Fatalf("set version: %v", err)
	}
	if err := m.EnsureStateVersion(false); !errors.Is(err, ErrStateVersionMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if err := m.EnsureStateVersion(true); err != nil {
		t.Fatalf("migration allowed: %v", err)
	}
}
