// Package starport follows the Ethereum starport contract and attests its
// events to the ledger once they are buried under enough confirmations.
package starport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/google/uuid"

	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/cash"
	"cashchain/observability"
	"cashchain/services/offchain"
)

const (
	workerName = "starport"
	lockName   = "starport.scan"
	cursorName = "starport.last_block"

	defaultMaxRange = 2_000
)

// Client is the subset of the Ethereum RPC the watcher uses.
type Client interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]gethtypes.Log, error)
}

// Ledger receives attested events.
type Ledger interface {
	ReceiveEvent(ev types.ChainEvent, sig []byte) error
	RevertEvent(id types.ChainLogID) error
}

// Dial connects to an Ethereum RPC endpoint.
func Dial(endpoint string) (*ethclient.Client, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		return nil, fmt.Errorf("starport rpc endpoint required")
	}
	return ethclient.Dial(trimmed)
}

// Config describes the contract being watched.
type Config struct {
	Address       common.Address
	StartBlock    uint64
	Confirmations uint64
	PollInterval  time.Duration
	MaxRange      uint64
}

// Watcher scans finalized starport logs.
type Watcher struct {
	cfg    Config
	client Client
	ledger Ledger
	key    *crypto.PrivateKey
	store  *offchain.Store
	holder string
	logger *slog.Logger
}

// NewWatcher builds a watcher attesting with key.
func NewWatcher(cfg Config, client Client, ledger Ledger, key *crypto.PrivateKey, store *offchain.Store, logger *slog.Logger) *Watcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 12 * time.Second
	}
	if cfg.MaxRange == 0 {
		cfg.MaxRange = defaultMaxRange
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{cfg: cfg, client: client, ledger: ledger, key: key, store: store, holder: uuid.NewString(), logger: logger}
}

// Run scans until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		if _, err := w.Scan(ctx); err != nil {
			w.logger.Warn("starport scan failed", slog.String("worker", workerName), slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Scan processes the next range of finalized blocks and returns the number
// of logs handed to the ledger.
func (w *Watcher) Scan(ctx context.Context) (handled int, err error) {
	defer func() { observability.Workers().RecordCycle(workerName, err) }()

	held, err := w.store.TryLock(lockName, w.holder, w.cfg.PollInterval)
	if err != nil || !held {
		return 0, err
	}
	defer func() {
		if unlockErr := w.store.Unlock(lockName, w.holder); unlockErr != nil && !errors.Is(unlockErr, offchain.ErrNotHeld) {
			w.logger.Warn("release scan lock", slog.Any("error", unlockErr))
		}
	}()

	head, err := w.client.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch head: %w", err)
	}
	if head < w.cfg.Confirmations {
		return 0, nil
	}
	safe := head - w.cfg.Confirmations

	from := w.cfg.StartBlock
	last, ok, err := w.store.Cursor(cursorName)
	if err != nil {
		return 0, err
	}
	if ok {
		from = last + 1
	}
	if from > safe {
		return 0, nil
	}
	to := safe
	if to-from+1 > w.cfg.MaxRange {
		to = from + w.cfg.MaxRange - 1
	}

	logs, err := w.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{w.cfg.Address},
		Topics:    [][]common.Hash{Topics()},
	})
	if err != nil {
		return 0, fmt.Errorf("filter logs %d-%d: %w", from, to, err)
	}
	for _, lg := range logs {
		if err := w.handle(lg); err != nil {
			return handled, err
		}
		handled++
	}
	if err := w.store.SetCursor(cursorName, to); err != nil {
		return handled, err
	}
	w.logger.Debug("starport range scanned",
		slog.String("worker", workerName),
		slog.Uint64("from", from),
		slog.Uint64("to", to),
		slog.Int("logs", handled))
	return handled, nil
}

// handle attests one log. Ledger rejections are logged; only signing
// failures stop the scan.
func (w *Watcher) handle(lg gethtypes.Log) error {
	if lg.Removed {
		id := types.ChainLogID{Chain: types.ChainEth, Block: lg.BlockNumber, LogIndex: uint64(lg.Index)}
		if err := w.ledger.RevertEvent(id); err != nil && !errors.Is(err, types.ErrUnknownEvent) {
			w.logger.Warn("revert starport event", slog.String("log", id.String()), slog.String("reason", types.ReasonOf(err)))
		}
		return nil
	}
	ev, err := DecodeLog(types.ChainEth, lg)
	if err != nil {
		w.logger.Warn("skip undecodable starport log",
			slog.Uint64("block", lg.BlockNumber),
			slog.Uint64("index", uint64(lg.Index)),
			slog.Any("error", err))
		return nil
	}
	sig, err := cash.SignChainEvent(ev, w.key)
	if err != nil {
		return err
	}
	if err := w.ledger.ReceiveEvent(ev, sig[:]); err != nil {
		w.logger.Warn("submit starport event",
			slog.String("log", ev.Log.String()),
			slog.String("kind", ev.Kind.String()),
			slog.String("reason", types.ReasonOf(err)))
	}
	return nil
}
