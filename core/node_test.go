package core

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core/events"
	"cashchain/core/genesis"
	"cashchain/core/numerics"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/cash"
	"cashchain/storage"
)

var nodeEthAsset = types.EthAsset([20]byte{0xee})

// syncRecorder collects events emitted from concurrent calls.
type syncRecorder struct {
	mu  sync.Mutex
	rec events.Recorder
}

func (s *syncRecorder) Emit(e events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec.Emit(e)
}

func (s *syncRecorder) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Types()
}

func (s *syncRecorder) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Events()
}

func testGenesis(t *testing.T, validator *crypto.PrivateKey) *genesis.GenesisSpec {
	t.Helper()
	addr := validator.PubKey().EthAddress()
	doc := map[string]any{
		"genesisTime": "2024-01-01T00:00:00Z",
		"validators": []map[string]string{{
			"substrateId": "0x" + "07" + "00000000000000000000000000000000000000000000000000000000000000",
			"ethAddress":  crypto.EthEncodeHex(addr[:]),
		}},
		"reporters":    []string{},
		"initialYield": "0",
		"assets": []map[string]any{{
			"asset":           "ETH:" + crypto.EthEncodeHex(nodeEthAsset.Address[:]),
			"decimals":        18,
			"ticker":          "ETH",
			"symbol":          "ETH",
			"liquidityFactor": "0.8",
		}},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	spec, err := genesis.ParseGenesisSpec(raw)
	require.NoError(t, err)
	return spec
}

func newTestNode(t *testing.T) (*Node, *syncRecorder, *crypto.PrivateKey) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	rec := &syncRecorder{}
	node, err := NewNode(storage.NewMemDB(), WithEmitter(rec))
	require.NoError(t, err)
	require.NoError(t, node.ApplyGenesis(testGenesis(t, key)))
	return node, rec, key
}

func TestApplyGenesisOnce(t *testing.T) {
	node, _, key := newTestNode(t)
	require.ErrorIs(t, node.ApplyGenesis(testGenesis(t, key)), ErrGenesisApplied)

	assets, err := node.Assets()
	require.NoError(t, err)
	require.Len(t, assets, 1)
	validators, err := node.Validators()
	require.NoError(t, err)
	require.Len(t, validators, 1)
	require.Equal(t, key.PubKey().EthAddress(), validators[0].EthAddress)
}

func TestRejectedCallEmitsFailure(t *testing.T) {
	node, rec, _ := newTestNode(t)
	genesisMillis := types.Timestamp(1_704_067_200_000)

	err := node.BeginBlock(genesisMillis-1, nil)
	require.ErrorIs(t, err, types.ErrTimeTravelNotAllowed)

	evs := rec.Events()
	require.Len(t, evs, 1)
	failure, ok := evs[0].(events.Failure)
	require.True(t, ok)
	require.Equal(t, "initialize_block", failure.Call)
	require.Equal(t, "TimeTravelNotAllowed", failure.Reason)

	require.NoError(t, node.BeginBlock(genesisMillis, nil))
	require.Len(t, rec.Events(), 1)
}

func TestReceiveEventCreditsAccount(t *testing.T) {
	node, rec, key := newTestNode(t)
	require.NoError(t, node.State().SetPrice(types.MustTicker("ETH"), numerics.MustParseNominal("2000", types.PriceDecimals)))
	alice := types.EthAccount([20]byte{0xa1})
	ev := types.ChainEvent{
		Kind:      types.EventLock,
		Log:       types.ChainLogID{Chain: types.ChainEth, Block: 1},
		Asset:     nodeEthAsset.Address,
		Sender:    [20]byte{0xa1},
		Recipient: alice,
		Amount:    numerics.MustParseNominal("2", 18),
	}
	sig, err := cash.SignChainEvent(ev, key)
	require.NoError(t, err)
	require.NoError(t, node.ReceiveEvent(ev, sig[:]))
	require.Equal(t, []string{events.TypeLocked, events.TypeChainEventApplied}, rec.Types())

	status, ok, err := node.EventStatus(ev.Log)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, types.ChainEventDone, status.Status)

	portfolio, err := node.Portfolio(alice)
	require.NoError(t, err)
	require.Len(t, portfolio.Positions, 1)
	require.Equal(t, ev.Amount.String(), portfolio.Positions[0].Balance.Int().String())
}

func TestPausedModuleRejectsTransactions(t *testing.T) {
	node, rec, _ := newTestNode(t)
	require.False(t, node.IsPaused("cash"))
	require.NoError(t, node.SetPaused("cash", true))
	require.True(t, node.IsPaused("cash"))

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	request := "(Extract 1 Cash Eth:" + crypto.EthEncodeHex(nodeEthAsset.Address[:]) + ")"
	sig, err := cash.SignTrxRequest(request, 0, key)
	require.NoError(t, err)
	err = node.ExecTrxRequest(request, 0, sig)
	require.ErrorIs(t, err, types.ErrModulePaused)
	require.Equal(t, "ModulePaused", types.ReasonOf(err))
	require.Equal(t, []string{events.TypeFailure}, rec.Types())

	nonce, err := node.Nonce(types.EthAccount(key.PubKey().EthAddress()))
	require.NoError(t, err)
	require.Zero(t, nonce)
}

func TestCallsAreSerialised(t *testing.T) {
	node, _, _ := newTestNode(t)
	genesisMillis := types.Timestamp(1_704_067_200_000)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = node.BeginBlock(genesisMillis+types.Timestamp(i), nil)
			_, _ = node.Cash()
		}(i)
	}
	wg.Wait()

	view, err := node.Cash()
	require.NoError(t, err)
	require.LessOrEqual(t, uint64(genesisMillis), uint64(view.LastBlock))
}
