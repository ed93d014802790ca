package types

import (
	"fmt"
	"math/big"
)

// ChainEventKind enumerates the starport events the ledger ingests.
type ChainEventKind uint8

const (
	EventLock ChainEventKind = iota + 1
	EventLockCash
	EventExecTrxRequest
	EventNoticeInvoked
)

func (k ChainEventKind) String() string {
	switch k {
	case EventLock:
		return "Lock"
	case EventLockCash:
		return "LockCash"
	case EventExecTrxRequest:
		return "ExecTrxRequest"
	case EventNoticeInvoked:
		return "NoticeInvoked"
	}
	return "Unknown"
}

// ChainLogID locates a log on its chain.
type ChainLogID struct {
	Chain    ChainID
	Block    uint64
	LogIndex uint64
}

func (id ChainLogID) String() string {
	return fmt.Sprintf("%s:%d:%d", id.Chain, id.Block, id.LogIndex)
}

// ChainEvent is a decoded starport log. Only the fields of its kind are
// populated.
type ChainEvent struct {
	Kind ChainEventKind
	Log  ChainLogID

	// Lock, LockCash
	Asset     [20]byte
	Sender    [20]byte
	Recipient ChainAccount
	Amount    *big.Int
	Principal *big.Int

	// ExecTrxRequest
	Account ChainAccount
	Request string

	// NoticeInvoked
	NoticeID   NoticeID
	NoticeHash [32]byte
	Result     []byte
}

// ChainEventStatus tracks an event through signature collection.
type ChainEventStatus uint8

const (
	ChainEventPending ChainEventStatus = iota + 1
	ChainEventDone
	ChainEventFailed
	ChainEventReverted
)

func (s ChainEventStatus) String() string {
	switch s {
	case ChainEventPending:
		return "Pending"
	case ChainEventDone:
		return "Done"
	case ChainEventFailed:
		return "Failed"
	case ChainEventReverted:
		return "Reverted"
	}
	return "Unknown"
}

// ChainEventState is the persisted progress of one event.
type ChainEventState struct {
	Status  ChainEventStatus
	Signers [][20]byte
	Reason  string
	Event   ChainEvent
}
