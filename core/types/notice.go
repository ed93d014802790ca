package types

import "math/big"

// NoticeKind selects the action a notice instructs the starport to take.
type NoticeKind uint8

const (
	NoticeExtraction NoticeKind = iota + 1
	NoticeCashExtraction
	NoticeSetSupplyCap
	NoticeFutureYield
	NoticeChangeAuthority
)

func (k NoticeKind) String() string {
	switch k {
	case NoticeExtraction:
		return "Extraction"
	case NoticeCashExtraction:
		return "CashExtraction"
	case NoticeSetSupplyCap:
		return "SetSupplyCap"
	case NoticeFutureYield:
		return "FutureYield"
	case NoticeChangeAuthority:
		return "ChangeAuthority"
	}
	return "Unknown"
}

// OpensEra reports whether dispatching this kind starts a new era.
func (k NoticeKind) OpensEra() bool {
	return k == NoticeSetSupplyCap || k == NoticeFutureYield || k == NoticeChangeAuthority
}

// Notice is an outbound instruction to a starport. Only the fields of its
// kind are populated.
type Notice struct {
	Kind   NoticeKind
	Chain  ChainID
	ID     NoticeID
	Parent [32]byte

	// Extraction, SetSupplyCap
	Asset [20]byte
	// Extraction, CashExtraction
	Recipient [20]byte
	// Extraction
	Amount *big.Int
	// CashExtraction
	Principal *big.Int
	CashIndex *big.Int
	// SetSupplyCap
	Cap *big.Int
	// FutureYield
	NextYield     uint64
	NextCashIndex *big.Int
	NextStart     uint64
	// ChangeAuthority
	Authorities [][20]byte
}

// NoticeStatus is the lifecycle position of a notice.
type NoticeStatus uint8

const (
	NoticeMissing NoticeStatus = iota
	NoticePending
	NoticeExecuted
)

func (s NoticeStatus) String() string {
	switch s {
	case NoticePending:
		return "Pending"
	case NoticeExecuted:
		return "Executed"
	}
	return "Missing"
}

// NoticeState tracks signatures collected for a notice.
type NoticeState struct {
	Status     NoticeStatus
	Signatures ChainSignatureList
}
