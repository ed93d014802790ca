package events

import (
	"math/big"

	"cashchain/core/types"
)

const (
	TypeLocked                 = "cash.locked"
	TypeLockedCash             = "cash.locked_cash"
	TypeExtracted              = "cash.extracted"
	TypeExtractedCash          = "cash.extracted_cash"
	TypeTransferred            = "cash.transferred"
	TypeTransferredCash        = "cash.transferred_cash"
	TypeLiquidated             = "cash.liquidated"
	TypeLiquidatedCash         = "cash.liquidated_cash"
	TypeLiquidatedCollateral   = "cash.liquidated_cash_collateral"
	TypeSetYieldNext           = "cash.set_yield_next"
	TypeYieldRotated           = "cash.yield_rotated"
	TypeMinerPaid              = "cash.miner_paid"
	TypeSupportAsset           = "cash.support_asset"
	TypeSetRateModel           = "cash.set_rate_model"
	TypeSetSupplyCap           = "cash.set_supply_cap"
	TypeAllowedNextCodeHash    = "cash.allowed_next_code_hash"
	TypeAttemptedSetCodeByHash = "cash.attempted_set_code_by_hash"
	TypeReorgRevertLocked      = "cash.reorg_revert_locked"
	TypeReorgRevertLockedCash  = "cash.reorg_revert_locked_cash"
	TypeChainEventApplied      = "cash.chain_event_applied"
	TypeChainEventFailed       = "cash.chain_event_failed"
	TypeFailure                = "cash.failure"
)

// Locked records an inbound asset lock.
type Locked struct {
	Asset     types.ChainAsset
	Sender    types.ChainAccount
	Recipient types.ChainAccount
	Amount    *big.Int
}

func (Locked) EventType() string { return TypeLocked }

func (e Locked) Event() *types.Event {
	return &types.Event{Type: TypeLocked, Attributes: map[string]string{
		"asset":     e.Asset.String(),
		"sender":    e.Sender.String(),
		"recipient": e.Recipient.String(),
		"amount":    formatAmount(e.Amount),
	}}
}

// LockedCash records an inbound CASH lock.
type LockedCash struct {
	Sender    types.ChainAccount
	Recipient types.ChainAccount
	Amount    *big.Int
	Principal *big.Int
}

func (LockedCash) EventType() string { return TypeLockedCash }

func (e LockedCash) Event() *types.Event {
	return &types.Event{Type: TypeLockedCash, Attributes: map[string]string{
		"sender":    e.Sender.String(),
		"recipient": e.Recipient.String(),
		"amount":    formatAmount(e.Amount),
		"principal": formatAmount(e.Principal),
	}}
}

// Extracted records an outbound asset extraction.
type Extracted struct {
	Asset     types.ChainAsset
	Sender    types.ChainAccount
	Recipient types.ChainAccount
	Amount    *big.Int
}

func (Extracted) EventType() string { return TypeExtracted }

func (e Extracted) Event() *types.Event {
	return &types.Event{Type: TypeExtracted, Attributes: map[string]string{
		"asset":     e.Asset.String(),
		"sender":    e.Sender.String(),
		"recipient": e.Recipient.String(),
		"amount":    formatAmount(e.Amount),
	}}
}

// ExtractedCash records an outbound CASH extraction.
type ExtractedCash struct {
	Sender    types.ChainAccount
	Recipient types.ChainAccount
	Principal *big.Int
	CashIndex *big.Int
}

func (ExtractedCash) EventType() string { return TypeExtractedCash }

func (e ExtractedCash) Event() *types.Event {
	return &types.Event{Type: TypeExtractedCash, Attributes: map[string]string{
		"sender":    e.Sender.String(),
		"recipient": e.Recipient.String(),
		"principal": formatAmount(e.Principal),
		"cashIndex": formatAmount(e.CashIndex),
	}}
}

// Transferred records an internal asset transfer.
type Transferred struct {
	Asset  types.ChainAsset
	From   types.ChainAccount
	To     types.ChainAccount
	Amount *big.Int
}

func (Transferred) EventType() string { return TypeTransferred }

func (e Transferred) Event() *types.Event {
	return &types.Event{Type: TypeTransferred, Attributes: map[string]string{
		"asset":  e.Asset.String(),
		"from":   e.From.String(),
		"to":     e.To.String(),
		"amount": formatAmount(e.Amount),
	}}
}

// TransferredCash records an internal CASH transfer.
type TransferredCash struct {
	From      types.ChainAccount
	To        types.ChainAccount
	Principal *big.Int
	CashIndex *big.Int
}

func (TransferredCash) EventType() string { return TypeTransferredCash }

func (e TransferredCash) Event() *types.Event {
	return &types.Event{Type: TypeTransferredCash, Attributes: map[string]string{
		"from":      e.From.String(),
		"to":        e.To.String(),
		"principal": formatAmount(e.Principal),
		"cashIndex": formatAmount(e.CashIndex),
	}}
}

// Liquidated records a liquidation. Asset or Collateral is zero when the
// CASH side was used.
type Liquidated struct {
	Kind       string
	Asset      types.ChainAsset
	Collateral types.ChainAsset
	Liquidator types.ChainAccount
	Borrower   types.ChainAccount
	Amount     *big.Int
	Seized     *big.Int
}

func (e Liquidated) EventType() string {
	switch e.Kind {
	case TypeLiquidatedCash, TypeLiquidatedCollateral:
		return e.Kind
	}
	return TypeLiquidated
}

func (e Liquidated) Event() *types.Event {
	attrs := map[string]string{
		"liquidator": e.Liquidator.String(),
		"borrower":   e.Borrower.String(),
		"amount":     formatAmount(e.Amount),
		"seized":     formatAmount(e.Seized),
	}
	if !e.Asset.IsZero() {
		attrs["asset"] = e.Asset.String()
	}
	if !e.Collateral.IsZero() {
		attrs["collateral"] = e.Collateral.String()
	}
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}

// SetYieldNext records a scheduled CASH yield change.
type SetYieldNext struct {
	Yield types.APR
	Start types.Timestamp
}

func (SetYieldNext) EventType() string { return TypeSetYieldNext }

func (e SetYieldNext) Event() *types.Event {
	return &types.Event{Type: TypeSetYieldNext, Attributes: map[string]string{
		"yield": formatUint(uint64(e.Yield)),
		"start": formatUint(e.Start),
	}}
}

// YieldRotated records a scheduled yield taking effect.
type YieldRotated struct {
	Yield types.APR
	At    types.Timestamp
}

func (YieldRotated) EventType() string { return TypeYieldRotated }

func (e YieldRotated) Event() *types.Event {
	return &types.Event{Type: TypeYieldRotated, Attributes: map[string]string{
		"yield": formatUint(uint64(e.Yield)),
		"at":    formatUint(e.At),
	}}
}

// MinerPaid records the miner share paid for a block.
type MinerPaid struct {
	Miner     types.ChainAccount
	Principal *big.Int
}

func (MinerPaid) EventType() string { return TypeMinerPaid }

func (e MinerPaid) Event() *types.Event {
	return &types.Event{Type: TypeMinerPaid, Attributes: map[string]string{
		"miner":     e.Miner.String(),
		"principal": formatAmount(e.Principal),
	}}
}

// AssetChanged records governance updates to the asset registry.
type AssetChanged struct {
	Type  string
	Asset types.ChainAsset
	Value string
}

func (e AssetChanged) EventType() string { return e.Type }

func (e AssetChanged) Event() *types.Event {
	attrs := map[string]string{"asset": e.Asset.String()}
	if e.Value != "" {
		attrs["value"] = e.Value
	}
	return &types.Event{Type: e.Type, Attributes: attrs}
}

// CodeHash records next code authorisation activity.
type CodeHash struct {
	Type   string
	Hash   [32]byte
	Result string
}

func (e CodeHash) EventType() string { return e.Type }

func (e CodeHash) Event() *types.Event {
	attrs := map[string]string{"hash": hexBytes(e.Hash[:])}
	if e.Result != "" {
		attrs["result"] = e.Result
	}
	return &types.Event{Type: e.Type, Attributes: attrs}
}

// ReorgRevert records a rolled back lock.
type ReorgRevert struct {
	Type      string
	Asset     types.ChainAsset
	Recipient types.ChainAccount
	Amount    *big.Int
}

func (e ReorgRevert) EventType() string { return e.Type }

func (e ReorgRevert) Event() *types.Event {
	attrs := map[string]string{
		"recipient": e.Recipient.String(),
		"amount":    formatAmount(e.Amount),
	}
	if !e.Asset.IsZero() {
		attrs["asset"] = e.Asset.String()
	}
	return &types.Event{Type: e.Type, Attributes: attrs}
}

// ChainEventOutcome records the application of a starport event.
type ChainEventOutcome struct {
	Log    types.ChainLogID
	Kind   types.ChainEventKind
	Reason string
}

func (e ChainEventOutcome) EventType() string {
	if e.Reason != "" {
		return TypeChainEventFailed
	}
	return TypeChainEventApplied
}

func (e ChainEventOutcome) Event() *types.Event {
	attrs := map[string]string{"log": e.Log.String(), "kind": e.Kind.String()}
	if e.Reason != "" {
		attrs["reason"] = e.Reason
	}
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}

// Failure records a rejected call and its reason.
type Failure struct {
	Call   string
	Reason string
}

func (Failure) EventType() string { return TypeFailure }

func (e Failure) Event() *types.Event {
	return &types.Event{Type: TypeFailure, Attributes: map[string]string{
		"call":   e.Call,
		"reason": e.Reason,
	}}
}
