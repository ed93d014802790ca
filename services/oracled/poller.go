package oracled

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"cashchain/core/types"
	"cashchain/native/oracle"
	"cashchain/observability"
	"cashchain/services/offchain"
)

const (
	workerName   = "oracle"
	lockName     = "oracle.poll"
	lastPollKey  = "oracle.last_poll"
	feedStampKey = "oracle.feed_timestamp"
)

// Submitter forwards signed prices to the ledger.
type Submitter interface {
	PostPrices(messages []oracle.SignedMessage) error
}

// Poller periodically pulls the open price feed and submits any newer batch.
type Poller struct {
	url       string
	client    *http.Client
	timeout   time.Duration
	interval  time.Duration
	store     *offchain.Store
	submitter Submitter
	holder    string
	logger    *slog.Logger
	now       func() time.Time
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) PollerOption {
	return func(p *Poller) {
		if c != nil {
			p.client = c
		}
	}
}

// WithTimeout bounds each feed request.
func WithTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithInterval sets the minimum spacing of feed requests.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) PollerOption {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock overrides the clock.
func WithClock(now func() time.Time) PollerOption {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPoller builds a poller for url. store coordinates concurrent pollers
// and remembers the last accepted feed timestamp.
func NewPoller(url string, store *offchain.Store, submitter Submitter, opts ...PollerOption) *Poller {
	p := &Poller{
		url:       url,
		client:    http.DefaultClient,
		timeout:   2 * time.Second,
		interval:  time.Minute,
		store:     store,
		submitter: submitter,
		holder:    uuid.NewString(),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run polls until ctx is cancelled. Failures are logged and the loop
// continues.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		_ = p.Poll(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Poll runs one cycle. It returns nil without doing anything when another
// poller holds the lock, when the interval has not elapsed, or when no URL is
// configured.
func (p *Poller) Poll(ctx context.Context) (err error) {
	cycle := uuid.NewString()
	start := p.now()
	outcome := "skipped"
	defer func() {
		if err != nil {
			outcome = types.ReasonOf(err)
			p.logger.Warn("price feed poll failed",
				slog.String("worker", workerName),
				slog.String("cycle", cycle),
				slog.Any("error", err))
		}
		observability.Oracle().ObservePoll(outcome, p.now().Sub(start))
		observability.Workers().RecordCycle(workerName, err)
	}()

	if p.url == "" {
		return nil
	}
	held, err := p.store.TryLock(lockName, p.holder, p.interval)
	if err != nil || !held {
		return err
	}
	defer func() {
		if unlockErr := p.store.Unlock(lockName, p.holder); unlockErr != nil && !errors.Is(unlockErr, offchain.ErrNotHeld) {
			p.logger.Warn("release poll lock", slog.Any("error", unlockErr))
		}
	}()

	last, ok, err := p.store.Cursor(lastPollKey)
	if err != nil {
		return err
	}
	nowMillis := uint64(start.UnixMilli())
	// Ticks arrive slightly early at times.
	if ok && nowMillis-last < uint64((p.interval*9/10).Milliseconds()) {
		return nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := Fetch(reqCtx, p.client, p.url)
	if err != nil {
		return err
	}
	messages, stamp, err := resp.SignedMessages()
	if err != nil {
		return err
	}
	if err := p.store.SetCursor(lastPollKey, nowMillis); err != nil {
		return err
	}

	previous, seen, err := p.store.Cursor(feedStampKey)
	if err != nil {
		return err
	}
	if seen && stamp <= previous {
		outcome = "stale"
		return nil
	}
	if err := p.submitter.PostPrices(messages); err != nil {
		return err
	}
	outcome = "submitted"
	p.logger.Info("price feed submitted",
		slog.String("worker", workerName),
		slog.String("cycle", cycle),
		slog.Int("messages", len(messages)),
		slog.Uint64("feed_timestamp", stamp))
	return p.store.SetCursor(feedStampKey, stamp)
}
