// Package archive persists ledger events to a SQL database for indexers
// and the RPC event history.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"cashchain/core/events"
	"cashchain/observability"
)

// Record is one archived event.
type Record struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Type       string    `gorm:"size:64;index" json:"type"`
	Attributes string    `gorm:"type:text" json:"-"`
	RecordedAt time.Time `gorm:"index" json:"recordedAt"`
}

// Attrs decodes the stored attributes.
func (r Record) Attrs() map[string]string {
	out := map[string]string{}
	_ = json.Unmarshal([]byte(r.Attributes), &out)
	return out
}

// Filter narrows a history query.
type Filter struct {
	Type    string
	AfterID uint64
	Limit   int
}

const maxLimit = 500

// Archive buffers emitted events and writes them in batches.
type Archive struct {
	db     *gorm.DB
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	pending []Record
}

// Open connects to driver ("sqlite" or "postgres") and migrates the schema.
func Open(driver, dsn string, log *slog.Logger) (*Archive, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("archive: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("archive: open: %w", err)
	}
	return New(db, log)
}

// New wraps an existing connection.
func New(db *gorm.DB, log *slog.Logger) (*Archive, error) {
	if db == nil {
		return nil, errors.New("archive: database required")
	}
	if err := db.AutoMigrate(&Record{}); err != nil {
		return nil, fmt.Errorf("archive: migrate: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Archive{db: db, logger: log, now: time.Now}, nil
}

// Emit implements events.Emitter. Events are held until the next Flush.
func (a *Archive) Emit(e events.Event) {
	if e == nil {
		return
	}
	ev := e.Event()
	if ev == nil {
		return
	}
	attrs, err := json.Marshal(ev.Attributes)
	if err != nil {
		a.logger.Warn("archive: encode attributes", slog.String("type", ev.Type), slog.Any("error", err))
		return
	}
	observability.Events().RecordEvent(ev.Type)
	a.mu.Lock()
	a.pending = append(a.pending, Record{Type: ev.Type, Attributes: string(attrs), RecordedAt: a.now().UTC()})
	a.mu.Unlock()
}

// Flush writes buffered events. On failure the batch is kept for the next
// attempt.
func (a *Archive) Flush(ctx context.Context) error {
	a.mu.Lock()
	batch := a.pending
	a.pending = nil
	a.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}
	if err := a.db.WithContext(ctx).CreateInBatches(batch, 100).Error; err != nil {
		a.mu.Lock()
		a.pending = append(batch, a.pending...)
		a.mu.Unlock()
		return fmt.Errorf("archive: write: %w", err)
	}
	return nil
}

// Run flushes every interval until ctx is cancelled, then flushes once more.
func (a *Archive) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := a.Flush(flushCtx); err != nil {
				a.logger.Warn("archive: final flush", slog.Any("error", err))
			}
			cancel()
			return
		case <-ticker.C:
			err := a.Flush(ctx)
			observability.Workers().RecordCycle("archive", err)
			if err != nil {
				a.logger.Warn("archive: flush", slog.Any("error", err))
			}
		}
	}
}

// Query returns archived events in id order.
func (a *Archive) Query(ctx context.Context, f Filter) ([]Record, error) {
	limit := f.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}
	q := a.db.WithContext(ctx).Model(&Record{}).Where("id > ?", f.AfterID)
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	var out []Record
	if err := q.Order("id asc").Limit(limit).Find(&out).Error; err != nil {
		return nil, fmt.Errorf("archive: query: %w", err)
	}
	return out, nil
}

// Close releases the connection.
func (a *Archive) Close() error {
	sqlDB, err := a.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
