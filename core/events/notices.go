package events

import (
	"strconv"

	"cashchain/core/types"
)

const (
	TypeNotice           = "notices.dispatched"
	TypeNoticeSigned     = "notices.signed"
	TypeNoticeExecuted   = "notices.executed"
	TypeChangeValidators = "validators.change"
	TypePriceUpdated     = "oracle.price_updated"
)

// Notice carries a dispatched notice and its wire encoding.
type Notice struct {
	Notice  types.Notice
	Encoded []byte
	Hash    [32]byte
}

func (Notice) EventType() string { return TypeNotice }

func (e Notice) Event() *types.Event {
	return &types.Event{Type: TypeNotice, Attributes: map[string]string{
		"chain":   e.Notice.Chain.String(),
		"id":      e.Notice.ID.String(),
		"kind":    e.Notice.Kind.String(),
		"hash":    hexBytes(e.Hash[:]),
		"encoded": hexBytes(e.Encoded),
	}}
}

// NoticeSigned records a validator signature on a notice.
type NoticeSigned struct {
	Chain      types.ChainID
	ID         types.NoticeID
	Signer     [20]byte
	Signatures int
	Ready      bool
}

func (NoticeSigned) EventType() string { return TypeNoticeSigned }

func (e NoticeSigned) Event() *types.Event {
	return &types.Event{Type: TypeNoticeSigned, Attributes: map[string]string{
		"chain":      e.Chain.String(),
		"id":         e.ID.String(),
		"signer":     hexBytes(e.Signer[:]),
		"signatures": formatUint(uint64(e.Signatures)),
		"ready":      strconv.FormatBool(e.Ready),
	}}
}

// NoticeExecuted records an acknowledged notice.
type NoticeExecuted struct {
	Chain  types.ChainID
	ID     types.NoticeID
	Hash   [32]byte
	Result []byte
}

func (NoticeExecuted) EventType() string { return TypeNoticeExecuted }

func (e NoticeExecuted) Event() *types.Event {
	attrs := map[string]string{
		"chain": e.Chain.String(),
		"id":    e.ID.String(),
		"hash":  hexBytes(e.Hash[:]),
	}
	if !zeroBytes(e.Result) {
		attrs["result"] = hexBytes(e.Result)
	}
	return &types.Event{Type: TypeNoticeExecuted, Attributes: attrs}
}

// ChangeValidators records a queued validator set.
type ChangeValidators struct {
	Validators []types.ValidatorKeys
}

func (ChangeValidators) EventType() string { return TypeChangeValidators }

func (e ChangeValidators) Event() *types.Event {
	attrs := map[string]string{"count": formatUint(uint64(len(e.Validators)))}
	for i, v := range e.Validators {
		attrs["validator."+formatUint(uint64(i))] = hexBytes(v.EthAddress[:])
	}
	return &types.Event{Type: TypeChangeValidators, Attributes: attrs}
}

// PriceUpdated records an accepted oracle price.
type PriceUpdated struct {
	Ticker    types.Ticker
	Price     uint64
	Timestamp types.Timestamp
	Reporter  [20]byte
}

func (PriceUpdated) EventType() string { return TypePriceUpdated }

func (e PriceUpdated) Event() *types.Event {
	return &types.Event{Type: TypePriceUpdated, Attributes: map[string]string{
		"ticker":    e.Ticker.String(),
		"price":     formatUint(e.Price),
		"timestamp": formatUint(e.Timestamp),
		"reporter":  hexBytes(e.Reporter[:]),
	}}
}
