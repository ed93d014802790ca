package cash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core/events"
	"cashchain/core/state"
	"cashchain/core/types"
)

// underwaterUNIBorrower leaves alice with 1 ETH of collateral against 1100
// UNI of debt after ETH falls to 1500 USD. carol holds 1000 UNI.
func underwaterUNIBorrower(t *testing.T) (*Engine, *state.Manager, *events.Recorder) {
	t.Helper()
	engine, manager, rec := newTestEngine(t)
	require.NoError(t, engine.Lock(ethAsset, alice, alice, amount("1")))
	require.NoError(t, engine.Lock(uniAsset, bob, bob, amount("5000")))
	require.NoError(t, engine.Lock(uniAsset, carol, carol, amount("1000")))
	require.NoError(t, engine.Extract(uniAsset, alice, alice, amount("1100")))
	return engine, manager, rec
}

func TestLiquidateRejectsSolventBorrower(t *testing.T) {
	engine, _, _ := underwaterUNIBorrower(t)
	err := engine.Liquidate(uniAsset, ethAsset, carol, alice, amount("300"))
	require.ErrorIs(t, err, types.ErrSufficientLiquidity)
}

func TestLiquidateSeizesCollateralWithIncentive(t *testing.T) {
	engine, manager, rec := underwaterUNIBorrower(t)
	setPrice(t, manager, "ETH", "1500")
	before, err := engine.GetLiquidity(alice)
	require.NoError(t, err)
	require.Negative(t, before.Sign())
	rec.Drain()

	require.NoError(t, engine.Liquidate(uniAsset, ethAsset, carol, alice, amount("300")))

	// 300 UNI * 1.08 * 0.99 / 1500 = 0.21384 ETH.
	require.Equal(t, amount("-800").String(), assetBalance(t, manager, uniAsset, alice))
	require.Equal(t, amount("700").String(), assetBalance(t, manager, uniAsset, carol))
	require.Equal(t, amount("0.78616").String(), assetBalance(t, manager, ethAsset, alice))
	require.Equal(t, amount("0.21384").String(), assetBalance(t, manager, ethAsset, carol))
	requireTotalsConsistent(t, manager)

	after, err := engine.GetLiquidity(alice)
	require.NoError(t, err)
	require.Equal(t, 1, after.Int().Cmp(before.Int()))

	evs := rec.Events()
	require.Len(t, evs, 1)
	liquidated, ok := evs[0].(events.Liquidated)
	require.True(t, ok)
	require.Equal(t, events.TypeLiquidated, liquidated.EventType())
	require.Equal(t, amount("0.21384").String(), liquidated.Seized.String())
}

func TestLiquidateRejectsInvalidRequests(t *testing.T) {
	engine, manager, _ := underwaterUNIBorrower(t)
	setPrice(t, manager, "ETH", "1500")

	require.ErrorIs(t, engine.Liquidate(uniAsset, ethAsset, alice, alice, amount("300")), types.ErrSelfTransfer)
	require.ErrorIs(t, engine.Liquidate(uniAsset, uniAsset, carol, alice, amount("300")), types.ErrInKindLiquidation)
	require.ErrorIs(t, engine.Liquidate(uniAsset, ethAsset, carol, alice, amount("0.1")), types.ErrMinTxValueNotMet)

	// A liquidator without funds would end up borrowing the repayment.
	dave := types.EthAccount([20]byte{0x04})
	require.ErrorIs(t, engine.Liquidate(uniAsset, ethAsset, dave, alice, amount("300")), types.ErrInsufficientLiquidity)
	require.Equal(t, amount("-1100").String(), assetBalance(t, manager, uniAsset, alice))
}

func TestLiquidateMustImproveBorrower(t *testing.T) {
	engine, manager, _ := underwaterUNIBorrower(t)
	setPrice(t, manager, "ETH", "1500")
	params := state.DefaultParams()
	params.LiquidationIncentive = types.MustFactor("3")
	require.NoError(t, manager.SetParams(params))

	err := engine.Liquidate(uniAsset, ethAsset, carol, alice, amount("300"))
	require.ErrorIs(t, err, types.ErrInvalidLiquidation)
	require.Equal(t, amount("1").String(), assetBalance(t, manager, ethAsset, alice))
}

func TestLiquidateCashPrincipal(t *testing.T) {
	engine, manager, rec := newTestEngine(t)
	require.NoError(t, manager.SetChainCashPrincipal(types.ChainEth, principal("1000")))
	require.NoError(t, manager.SetTotalCashPrincipal(principal("1000")))
	require.NoError(t, engine.Lock(ethAsset, alice, alice, amount("1")))
	require.NoError(t, engine.ExtractCash(alice, alice, principal("1500")))
	require.NoError(t, engine.LockCash(carol, carol, principal("500")))
	setPrice(t, manager, "ETH", "1500")
	rec.Drain()

	require.NoError(t, engine.LiquidateCashPrincipal(ethAsset, carol, alice, principal("200")))

	// 200 CASH * 1.08 / 1500 = 0.144 ETH.
	require.Equal(t, principal("-1300").Int().String(), cashPrincipal(t, manager, alice))
	require.Equal(t, principal("300").Int().String(), cashPrincipal(t, manager, carol))
	require.Equal(t, amount("0.144").String(), assetBalance(t, manager, ethAsset, carol))
	require.Equal(t, []string{events.TypeLiquidatedCash}, rec.Types())
}

func TestLiquidateCashCollateral(t *testing.T) {
	engine, manager, rec := newTestEngine(t)
	require.NoError(t, manager.SetChainCashPrincipal(types.ChainEth, principal("1000")))
	require.NoError(t, manager.SetTotalCashPrincipal(principal("1000")))
	require.NoError(t, engine.LockCash(alice, alice, principal("1000")))
	require.NoError(t, engine.Lock(uniAsset, bob, bob, amount("5000")))
	require.NoError(t, engine.Lock(uniAsset, carol, carol, amount("1000")))
	require.NoError(t, engine.Extract(uniAsset, alice, alice, amount("600")))
	setPrice(t, manager, "UNI", "1.5")
	rec.Drain()

	require.NoError(t, engine.LiquidateCashCollateral(uniAsset, carol, alice, amount("100")))

	// 100 UNI * 1.08 * 1.5 = 162 CASH.
	require.Equal(t, amount("-500").String(), assetBalance(t, manager, uniAsset, alice))
	require.Equal(t, principal("838").Int().String(), cashPrincipal(t, manager, alice))
	require.Equal(t, principal("162").Int().String(), cashPrincipal(t, manager, carol))
	require.Equal(t, []string{events.TypeLiquidatedCollateral}, rec.Types())
	requireTotalsConsistent(t, manager)
}

func TestExecLiquidateVariants(t *testing.T) {
	engine, manager, _ := underwaterUNIBorrower(t)
	setPrice(t, manager, "ETH", "1500")
	borrower := "Eth:0x" + "0100000000000000000000000000000000000000"
	uni := "Eth:0x" + "aa00000000000000000000000000000000000000"
	eth := "Eth:0x" + "ee00000000000000000000000000000000000000"

	require.ErrorIs(t, engine.ExecAuthenticated("(Liquidate max "+uni+" "+eth+" "+borrower+")", carol), types.ErrNotImplemented)
	require.ErrorIs(t, engine.ExecAuthenticated("(Liquidate 5 Cash Cash "+borrower+")", carol), types.ErrInKindLiquidation)
	require.NoError(t, engine.ExecAuthenticated("(Liquidate 300000000000000000000 "+uni+" "+eth+" "+borrower+")", carol))
	require.Equal(t, amount("-800").String(), assetBalance(t, manager, uniAsset, alice))
}
