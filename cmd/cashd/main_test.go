package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cashchain/core"
	"cashchain/core/genesis"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/notices"
	"cashchain/storage"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testNode(t *testing.T) *core.Node {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	addr := key.PubKey().EthAddress()
	raw, err := json.Marshal(map[string]any{
		"genesisTime": "2024-01-01T00:00:00Z",
		"validators": []map[string]string{{
			"substrateId": "0x" + strings.Repeat("01", 32),
			"ethAddress":  crypto.EthEncodeHex(addr[:]),
		}},
		"reporters":    []string{},
		"initialYield": "0",
		"assets":       []map[string]any{},
	})
	require.NoError(t, err)
	spec, err := genesis.ParseGenesisSpec(raw)
	require.NoError(t, err)
	node, err := core.NewNode(storage.NewMemDB())
	require.NoError(t, err)
	require.NoError(t, node.ApplyGenesis(spec))
	require.ErrorIs(t, node.ApplyGenesis(spec), core.ErrGenesisApplied)
	return node
}

func TestProduceBlocksAdvancesClock(t *testing.T) {
	node := testNode(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		produceBlocks(ctx, node, nil, 5*time.Millisecond, quietLogger())
		close(done)
	}()

	require.Eventually(t, func() bool {
		view, err := node.Cash()
		return err == nil && view.LastBlock > 0
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("block producer did not stop")
	}
}

func TestCodeInstallerStagesByHash(t *testing.T) {
	dir := t.TempDir()
	code := []byte("runtime-v2")
	require.NoError(t, codeInstaller(dir, quietLogger())(code))

	hash := notices.HashBytes(types.ChainGate, code).Hash
	staged, err := os.ReadFile(filepath.Join(dir, "next-code", crypto.HexEncode(hash[:])+".bin"))
	require.NoError(t, err)
	require.Equal(t, code, staged)
}
