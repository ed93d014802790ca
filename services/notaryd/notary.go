// Package notaryd signs pending notices with the local validator key and
// publishes the signatures back to the ledger.
package notaryd

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cashchain/core"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/notices"
	"cashchain/observability"
	"cashchain/services/offchain"
)

const (
	workerName = "notary"
	lockName   = "notary.sign"
)

// Ledger is the subset of the node the notary needs.
type Ledger interface {
	PendingNotices() ([]core.NoticeView, error)
	PublishSignature(chain types.ChainID, id types.NoticeID, sig types.ChainSignature) error
}

// Notary scans pending notices each cycle.
type Notary struct {
	ledger   Ledger
	ring     crypto.Keyring
	keyID    crypto.KeyID
	store    *offchain.Store
	interval time.Duration
	holder   string
	logger   *slog.Logger
}

// Option configures a Notary.
type Option func(*Notary)

// WithInterval sets the scan interval.
func WithInterval(d time.Duration) Option {
	return func(n *Notary) {
		if d > 0 {
			n.interval = d
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notary) {
		if l != nil {
			n.logger = l
		}
	}
}

// New builds a notary signing with key id from ring.
func New(ledger Ledger, ring crypto.Keyring, id crypto.KeyID, store *offchain.Store, opts ...Option) *Notary {
	n := &Notary{
		ledger:   ledger,
		ring:     ring,
		keyID:    id,
		store:    store,
		interval: 6 * time.Second,
		holder:   uuid.NewString(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Run scans until ctx is cancelled.
func (n *Notary) Run(ctx context.Context) {
	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()
	for {
		if _, err := n.SignPending(); err != nil {
			n.logger.Warn("notice signing cycle failed", slog.String("worker", workerName), slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SignPending signs every pending notice this validator has not signed yet
// and returns how many signatures were published. Individual rejections are
// logged and skipped.
func (n *Notary) SignPending() (published int, err error) {
	defer func() { observability.Workers().RecordCycle(workerName, err) }()

	if n.store != nil {
		held, err := n.store.TryLock(lockName, n.holder, n.interval)
		if err != nil || !held {
			return 0, err
		}
		defer func() { _ = n.store.Unlock(lockName, n.holder) }()
	}

	self, err := n.ring.EthAddress(n.keyID)
	if err != nil {
		return 0, err
	}
	pending, err := n.ledger.PendingNotices()
	if err != nil {
		return 0, err
	}
	for _, view := range pending {
		if view.State.Status != types.NoticePending || signedBy(view.State.Signatures, self) {
			continue
		}
		sig, err := notices.Sign(view.Notice, n.ring, n.keyID)
		if err != nil {
			return published, err
		}
		chain := view.Notice.Chain
		if err := n.ledger.PublishSignature(chain, view.Notice.ID, sig); err != nil {
			if errors.Is(err, types.ErrNoticeAlreadySigned) {
				continue
			}
			n.logger.Warn("publish notice signature",
				slog.String("worker", workerName),
				slog.String("chain", chain.String()),
				slog.String("notice", view.Notice.ID.String()),
				slog.String("reason", types.ReasonOf(err)))
			continue
		}
		observability.Notices().Record(chain.String(), "signed")
		published++
	}
	return published, nil
}

func signedBy(list types.ChainSignatureList, addr [20]byte) bool {
	for _, signer := range list.Signers {
		if signer == addr {
			return true
		}
	}
	return false
}
