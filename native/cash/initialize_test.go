package cash

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core/events"
	"cashchain/core/numerics"
	"cashchain/core/state"
	"cashchain/core/types"
)

const genesisTime types.Timestamp = 1_600_000_000_000

// borrowingMarket has bob supplying 5000 UNI and alice borrowing 1000 UNI
// against 1 ETH, a utilisation of 20%.
func borrowingMarket(t *testing.T, minerShares string) (*Engine, *state.Manager, *events.Recorder) {
	t.Helper()
	engine, manager, rec := newTestEngine(t)
	info := uniInfo()
	info.MinerShares = types.MustFactor(minerShares)
	require.NoError(t, manager.SetAsset(info))
	require.NoError(t, engine.InitializeBlock(genesisTime))
	require.NoError(t, engine.Lock(ethAsset, alice, alice, amount("1")))
	require.NoError(t, engine.Lock(uniAsset, bob, bob, amount("5000")))
	require.NoError(t, engine.Extract(uniAsset, alice, alice, amount("1000")))
	return engine, manager, rec
}

func TestInitializeBlockRecordsFirstTimestamp(t *testing.T) {
	engine, manager, _ := newTestEngine(t)
	require.NoError(t, engine.InitializeBlock(genesisTime))
	last, err := manager.LastBlockTimestamp()
	require.NoError(t, err)
	require.Equal(t, genesisTime, last)

	require.ErrorIs(t, engine.InitializeBlock(genesisTime-1), types.ErrTimeTravelNotAllowed)
}

func TestRatesFollowUtilisation(t *testing.T) {
	engine, _, _ := borrowingMarket(t, "0")
	rates, err := engine.GetRates(uniAsset)
	require.NoError(t, err)
	// 20% of the way to the 80% kink at 5%.
	require.Equal(t, types.APR(125), rates.Borrow)
	require.Equal(t, types.APR(25), rates.Supply)
}

func TestInitializeBlockAccruesAssetInterest(t *testing.T) {
	engine, manager, _ := borrowingMarket(t, "0")
	totalBefore, err := manager.TotalCashPrincipal()
	require.NoError(t, err)

	require.NoError(t, engine.InitializeBlock(genesisTime+types.MillisecondsPerYear))

	borrowIndex, err := manager.BorrowIndex(uniAsset)
	require.NoError(t, err)
	require.Equal(t, numerics.MustParseNominal("1.0125", types.FactorDecimals).String(), borrowIndex.Int().String())
	supplyIndex, err := manager.SupplyIndex(uniAsset)
	require.NoError(t, err)
	require.Equal(t, numerics.MustParseNominal("1.0025", types.FactorDecimals).String(), supplyIndex.Int().String())

	// 12.5 UNI of interest at 0.99 USD.
	totalAfter, err := manager.TotalCashPrincipal()
	require.NoError(t, err)
	require.Equal(t, "12375000", numerics.Clone(totalAfter.Int()).Sub(totalAfter.Int(), totalBefore.Int()).String())

	portfolio, err := engine.GetPortfolio(alice)
	require.NoError(t, err)
	require.Equal(t, "-12375000", portfolio.Principal.Int().String())
	portfolio, err = engine.GetPortfolio(bob)
	require.NoError(t, err)
	require.Equal(t, "12375000", portfolio.Principal.Int().String())

	// Touching the position settles the interest into CASH principal.
	require.NoError(t, engine.Lock(uniAsset, alice, alice, amount("2")))
	require.Equal(t, "-12375000", cashPrincipal(t, manager, alice))
	last, err := manager.LastIndex(uniAsset, alice)
	require.NoError(t, err)
	require.Equal(t, borrowIndex.Int().String(), last.Int().String())

	portfolio, err = engine.GetPortfolio(alice)
	require.NoError(t, err)
	require.Equal(t, "-12375000", portfolio.Principal.Int().String())
}

func TestInitializeBlockPaysMinerShare(t *testing.T) {
	engine, manager, rec := borrowingMarket(t, "0.1")
	require.NoError(t, engine.SetMiner(carol))

	next := genesisTime + types.MillisecondsPerYear
	require.NoError(t, engine.InitializeBlock(next))
	share, err := manager.LastMinerSharePrincipal()
	require.NoError(t, err)
	require.Equal(t, "1237500", share.Int().String())
	require.Equal(t, "0", cashPrincipal(t, manager, carol))
	rec.Drain()

	require.NoError(t, engine.InitializeBlock(next))
	require.Equal(t, "1237500", cashPrincipal(t, manager, carol))
	cumulative, err := manager.MinerCumulative(carol)
	require.NoError(t, err)
	require.Equal(t, "1237500", cumulative.Int().String())
	require.Equal(t, []string{events.TypeMinerPaid}, rec.Types())

	share, err = manager.LastMinerSharePrincipal()
	require.NoError(t, err)
	require.True(t, share.IsZero())
}

func TestInitializeBlockGrowsCashIndex(t *testing.T) {
	engine, manager, _ := newTestEngine(t)
	require.NoError(t, manager.SetCashYield(1000))
	require.NoError(t, engine.InitializeBlock(genesisTime))
	require.NoError(t, engine.InitializeBlock(genesisTime+types.MillisecondsPerYear))

	index, err := manager.CashIndex()
	require.NoError(t, err)
	require.Equal(t, numerics.MustParseNominal("1.1", types.FactorDecimals).String(), index.Int().String())

	// Principal is worth more CASH once the index grows.
	require.NoError(t, manager.SetChainCashPrincipal(types.ChainEth, principal("100")))
	require.NoError(t, manager.SetTotalCashPrincipal(principal("100")))
	require.NoError(t, engine.LockCash(alice, alice, principal("10")))
	portfolio, err := engine.GetPortfolio(alice)
	require.NoError(t, err)
	require.Equal(t, principal("11").Int().String(), portfolio.Cash.Int().String())
}

func TestSetYieldNextBoundaries(t *testing.T) {
	engine, manager, rec := newTestEngine(t)
	require.NoError(t, manager.SetCashYield(1000))
	require.NoError(t, engine.InitializeBlock(genesisTime))
	day := state.DefaultParams().MinNextSyncTime

	err := engine.SetYieldNext(500, genesisTime+day-1)
	require.ErrorIs(t, err, types.ErrNotEnoughTimeToSyncBefore)
	require.Equal(t, "NotEnoughTimeToSyncBeforeNext", types.ReasonOf(err))
	require.ErrorIs(t, engine.SetYieldNext(types.MaxAPR+1, genesisTime+day), types.ErrInvalidAPR)
	require.ErrorIs(t, engine.SetYieldNext(500, genesisTime-1), types.ErrTimeTravelNotAllowed)

	require.NoError(t, engine.SetYieldNext(500, genesisTime+day))
	next, ok, err := manager.CashYieldNext()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, state.YieldNext{Yield: 500, Start: genesisTime + day}, next)

	latest, ok, err := manager.LatestNotice(types.ChainEth)
	require.NoError(t, err)
	require.True(t, ok)
	notice, _, err := manager.Notice(types.ChainEth, latest.ID)
	require.NoError(t, err)
	require.Equal(t, types.NoticeFutureYield, notice.Kind)
	require.Equal(t, uint64(500), notice.NextYield)
	require.Equal(t, genesisTime+day, notice.NextStart)
	projected := types.CashIndexOne().Increment(types.APR(1000).Compound(day))
	require.Equal(t, projected.Int().String(), notice.NextCashIndex.String())
	require.Equal(t, []string{events.TypeNotice, events.TypeSetYieldNext}, rec.Types())

	// The pending change is now inside the sync window.
	require.NoError(t, engine.InitializeBlock(genesisTime+1))
	require.ErrorIs(t, engine.SetYieldNext(700, genesisTime+2*day), types.ErrNotEnoughTimeToSyncNext)
}

func TestYieldRotatesAtStart(t *testing.T) {
	engine, manager, rec := newTestEngine(t)
	require.NoError(t, manager.SetCashYield(1000))
	require.NoError(t, engine.InitializeBlock(genesisTime))
	day := state.DefaultParams().MinNextSyncTime
	require.NoError(t, engine.SetYieldNext(500, genesisTime+day))
	rec.Drain()

	require.NoError(t, engine.InitializeBlock(genesisTime+day-1))
	yield, err := manager.CashYield()
	require.NoError(t, err)
	require.Equal(t, types.APR(1000), yield)

	require.NoError(t, engine.InitializeBlock(genesisTime+day))
	yield, err = manager.CashYield()
	require.NoError(t, err)
	require.Equal(t, types.APR(500), yield)
	_, ok, err := manager.CashYieldNext()
	require.NoError(t, err)
	require.False(t, ok)
	lastYield, err := manager.LastYieldTimestamp()
	require.NoError(t, err)
	require.Equal(t, genesisTime+day, lastYield)
	require.Equal(t, []string{events.TypeYieldRotated}, rec.Types())
}
