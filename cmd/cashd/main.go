// Command cashd runs a CASH ledger node: the ledger itself, its block clock,
// the offchain workers and the RPC surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"cashchain/cmd/internal/passphrase"
	"cashchain/config"
	"cashchain/core"
	"cashchain/core/events"
	"cashchain/core/genesis"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/notices"
	"cashchain/observability/logging"
	telemetry "cashchain/observability/otel"
	"cashchain/rpc"
	"cashchain/services/archive"
	"cashchain/services/notaryd"
	"cashchain/services/offchain"
	"cashchain/services/oracled"
	"cashchain/services/starport"
	"cashchain/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to the genesis JSON file (overrides config GenesisFile)")
	flag.Parse()

	if err := run(*configFile, *genesisFlag); err != nil {
		slog.Error("cashd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, genesisOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := logging.Setup("cashd", cfg.Environment,
		logging.WithLevel(cfg.LogLevel),
		logging.WithRotatingFile(cfg.LogFile))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelCfg := telemetry.FromEnv("cashd", cfg.Environment)
	if cfg.Telemetry.Endpoint != "" {
		otelCfg.Endpoint = cfg.Telemetry.Endpoint
		otelCfg.Insecure = cfg.Telemetry.Insecure
		otelCfg.Metrics, otelCfg.Traces = true, true
	}
	otelCfg.NodeID = cfg.Telemetry.NodeID
	shutdownTelemetry, err := telemetry.Init(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", slog.Any("error", err))
		}
	}()

	pass := cfg.KeystorePassphrase()
	if pass == "" {
		src := passphrase.NewSource(cfg.KeystorePassphraseEnv, passphrase.WithLabel("validator keystore"))
		if pass, err = src.Get(); err != nil {
			return err
		}
	}
	keyID := crypto.KeyID(cfg.KeyID)
	ring, err := crypto.LoadKeystoreKeyring(cfg.KeystorePath, pass, keyID)
	if err != nil {
		return fmt.Errorf("load validator key: %w", err)
	}
	validatorKey, err := crypto.LoadFromKeystore(cfg.KeystorePath, pass)
	if err != nil {
		return fmt.Errorf("load validator key: %w", err)
	}
	validatorAddr := validatorKey.PubKey().EthAddress()
	logger.Info("validator key loaded", slog.String("eth_address", crypto.EthEncodeHex(validatorAddr[:])))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("prepare data dir: %w", err)
	}
	db, err := storage.NewLevelDB(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("open ledger database: %w", err)
	}

	hub := rpc.NewHub()
	emitters := events.Multi{hub}

	var history *archive.Archive
	if cfg.Archive.Driver != "" {
		history, err = archive.Open(cfg.Archive.Driver, cfg.Archive.DSN, logger.With(slog.String("component", "archive")))
		if err != nil {
			db.Close()
			return fmt.Errorf("open archive: %w", err)
		}
		defer history.Close()
		emitters = append(emitters, history)
	}

	node, err := core.NewNode(db,
		core.WithLogger(logger.With(slog.String("component", "ledger"))),
		core.WithEmitter(emitters),
		core.WithCodeHandler(codeInstaller(cfg.DataDir, logger)),
		core.WithRotationRequester(rotationLogger{logger: logger}),
	)
	if err != nil {
		db.Close()
		return fmt.Errorf("open ledger: %w", err)
	}
	defer node.Close()

	genesisPath := strings.TrimSpace(genesisOverride)
	if genesisPath == "" {
		genesisPath = cfg.GenesisFile
	}
	spec, err := genesis.LoadGenesisSpec(genesisPath)
	if err != nil {
		return fmt.Errorf("load genesis: %w", err)
	}
	if err := node.ApplyGenesis(spec); err != nil && !errors.Is(err, core.ErrGenesisApplied) {
		return fmt.Errorf("apply genesis: %w", err)
	}

	store, err := offchain.Open(cfg.WorkerStorePath(), nil)
	if err != nil {
		return fmt.Errorf("open worker store: %w", err)
	}
	defer store.Close()

	var watcher *starport.Watcher
	if cfg.Starport.RPCURL != "" {
		if watcher, err = newStarportWatcher(cfg, spec, node, validatorKey, store, logger); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	start := func(name string, fn func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("worker started", slog.String("worker", name))
			fn(ctx)
			logger.Info("worker stopped", slog.String("worker", name))
		}()
	}

	miner := types.EthAccount(validatorAddr)
	start("block", func(ctx context.Context) { produceBlocks(ctx, node, &miner, cfg.BlockInterval.Duration, logger) })

	if cfg.Oracle.PriceFeedURL != "" {
		poller := oracled.NewPoller(cfg.Oracle.PriceFeedURL, store, node,
			oracled.WithInterval(cfg.Oracle.PollInterval.Duration),
			oracled.WithTimeout(cfg.Oracle.HTTPTimeout.Duration),
			oracled.WithLogger(logger.With(slog.String("component", "oracle"))),
		)
		start("oracle", poller.Run)
	}

	if !cfg.Notary.Disabled {
		notary := notaryd.New(node, ring, keyID, store,
			notaryd.WithInterval(cfg.Notary.PollInterval.Duration),
			notaryd.WithLogger(logger.With(slog.String("component", "notary"))),
		)
		start("notary", notary.Run)
	}

	if watcher != nil {
		start("starport", watcher.Run)
	}

	if history != nil {
		start("archive", func(ctx context.Context) { history.Run(ctx, time.Second) })
	}

	secret, err := cfg.JWTSecret()
	if err != nil {
		logger.Warn("governance methods disabled", slog.Any("error", err))
	} else {
		logger.Info("governance auth enabled", logging.Secret("jwt_secret", string(secret)), slog.String("issuer", cfg.Auth.Issuer))
	}
	readHeader, read, write, idle := cfg.RPCTimeouts()
	opts := []rpc.Option{rpc.WithHub(hub), rpc.WithLogger(logger.With(slog.String("component", "rpc")))}
	if history != nil {
		opts = append(opts, rpc.WithHistory(history))
	}
	server := rpc.NewServer(node, rpc.ServerConfig{
		Auth: rpc.AuthConfig{
			Secret:   string(secret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
		},
		TrxPerSecond:      cfg.RateLimit.TrxPerSecond,
		TrxBurst:          cfg.RateLimit.Burst,
		ReadHeaderTimeout: readHeader,
		ReadTimeout:       read,
		WriteTimeout:      write,
		IdleTimeout:       idle,
	}, opts...)

	serveErr := server.Serve(ctx, cfg.RPCAddress)
	stop()
	wg.Wait()
	return serveErr
}

// produceBlocks advances the ledger clock once per interval.
func produceBlocks(ctx context.Context, node *core.Node, miner *types.ChainAccount, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if err := node.BeginBlock(types.Timestamp(now.UnixMilli()), miner); err != nil {
				logger.Warn("begin block rejected", slog.String("reason", types.ReasonOf(err)))
			}
		}
	}
}

func newStarportWatcher(cfg *config.Config, spec *genesis.GenesisSpec, node *core.Node, key *crypto.PrivateKey, store *offchain.Store, logger *slog.Logger) (*starport.Watcher, error) {
	var address common.Address
	if raw := strings.TrimSpace(cfg.Starport.Address); raw != "" {
		address = common.HexToAddress(raw)
	} else if addr, ok := spec.Starport(types.ChainEth); ok {
		address = common.Address(addr)
	} else {
		return nil, errors.New("starport: no address in config or genesis")
	}
	client, err := starport.Dial(cfg.Starport.RPCURL)
	if err != nil {
		return nil, err
	}
	logger.Info("starport watcher configured",
		logging.MaskField("rpc_url", cfg.Starport.RPCURL),
		slog.String("chain", types.ChainEth.String()),
		slog.String("starport", address.Hex()),
		slog.Uint64("confirmations", cfg.Starport.Confirmations))
	return starport.NewWatcher(starport.Config{
		Address:       address,
		StartBlock:    cfg.Starport.StartBlock,
		Confirmations: cfg.Starport.Confirmations,
		PollInterval:  cfg.Starport.PollInterval.Duration,
	}, client, node, key, store, logger.With(slog.String("component", "starport"))), nil
}

// codeInstaller stages authorised runtime code next to the ledger for the
// operator to deploy.
func codeInstaller(dataDir string, logger *slog.Logger) func([]byte) error {
	return func(code []byte) error {
		hash := notices.HashBytes(types.ChainGate, code).Hash
		path := filepath.Join(dataDir, "next-code", crypto.HexEncode(hash[:])+".bin")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(path, code, 0o644); err != nil {
			return err
		}
		logger.Info("next code staged", slog.String("path", path), slog.Int("bytes", len(code)))
		return nil
	}
}

type rotationLogger struct {
	logger *slog.Logger
}

func (r rotationLogger) RequestRotation() {
	r.logger.Info("validator set changed; session rotation requested")
}
