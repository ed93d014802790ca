// Command cash-archive exports archived ledger events to Parquet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"cashchain/observability/logging"
	"cashchain/services/archive"
)

func main() {
	driver := flag.String("driver", "sqlite", "Archive driver: sqlite or postgres")
	dsn := flag.String("dsn", "", "Archive data source name")
	eventType := flag.String("type", "", "Only export events of this type, e.g. cash.failure")
	after := flag.Uint64("after", 0, "Only export events with a larger id")
	out := flag.String("out", "events.parquet", "Output file")
	flag.Parse()

	logger := logging.Setup("cash-archive", os.Getenv("CASH_ENV"))
	n, err := export(*driver, *dsn, *out, archive.Filter{Type: *eventType, AfterID: *after}, logger)
	if err != nil {
		logger.Error("export failed", slog.Any("error", err), slog.Int("rows", n))
		os.Exit(1)
	}
	fmt.Printf("wrote %d events to %s\n", n, *out)
}

func export(driver, dsn, out string, f archive.Filter, logger *slog.Logger) (int, error) {
	if dsn == "" {
		return 0, errors.New("-dsn required")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := archive.Open(driver, dsn, logger)
	if err != nil {
		return 0, err
	}
	defer store.Close()
	return store.ExportParquet(ctx, out, f)
}
