// Package notices assembles outbound starport notices, collects validator
// signatures over them and records their execution.
package notices

import (
	"log/slog"
	"math/big"

	"cashchain/core/events"
	"cashchain/core/state"
	"cashchain/core/types"
)

// DispatchState is the storage a dispatch writes.
type DispatchState interface {
	LatestNotice(chain types.ChainID) (state.LatestNoticeRecord, bool, error)
	SetLatestNotice(chain types.ChainID, rec state.LatestNoticeRecord) error
	SetNotice(n types.Notice) error
	SetNoticeState(chain types.ChainID, id types.NoticeID, s types.NoticeState) error
	SetNoticeHash(hash types.ChainHash, ref state.NoticeRef) error
	AppendAccountNotice(account types.ChainAccount, id types.NoticeID) error
	SetNoticeHold(chain types.ChainID, id types.NoticeID) error
}

// Extraction builds an asset extraction notice body.
func Extraction(asset types.ChainAsset, recipient types.ChainAccount, amount *big.Int) (types.Notice, error) {
	to, err := recipient.EthAddress()
	if err != nil || asset.Chain != recipient.Chain {
		return types.Notice{}, types.ErrChainMismatch
	}
	return types.Notice{Kind: types.NoticeExtraction, Chain: asset.Chain, Asset: asset.Address, Recipient: to, Amount: amount}, nil
}

// CashExtraction builds a CASH extraction notice body.
func CashExtraction(recipient types.ChainAccount, principal types.CashPrincipalAmount, index types.CashIndex) (types.Notice, error) {
	to, err := recipient.EthAddress()
	if err != nil {
		return types.Notice{}, types.ErrChainMismatch
	}
	return types.Notice{
		Kind:      types.NoticeCashExtraction,
		Chain:     recipient.Chain,
		Recipient: to,
		Principal: principal.Int(),
		CashIndex: index.Int(),
	}, nil
}

// SetSupplyCap builds a supply cap notice body.
func SetSupplyCap(asset types.ChainAsset, limit *big.Int) types.Notice {
	return types.Notice{Kind: types.NoticeSetSupplyCap, Chain: asset.Chain, Asset: asset.Address, Cap: limit}
}

// FutureYield builds a future yield notice body for chain.
func FutureYield(chain types.ChainID, next types.APR, index types.CashIndex, start types.Timestamp) types.Notice {
	return types.Notice{
		Kind:          types.NoticeFutureYield,
		Chain:         chain,
		NextYield:     uint64(next),
		NextCashIndex: index.Int(),
		NextStart:     start,
	}
}

// ChangeAuthority builds an authority rotation notice body for chain.
func ChangeAuthority(chain types.ChainID, validators []types.ValidatorKeys) types.Notice {
	auth := make([][20]byte, len(validators))
	for i, v := range validators {
		auth[i] = v.EthAddress
	}
	return types.Notice{Kind: types.NoticeChangeAuthority, Chain: chain, Authorities: auth}
}

// Dispatch appends body to its chain: it assigns the next id (opening a new
// era for governance kinds), links the parent hash and writes every index.
// recipient may be nil.
func Dispatch(st DispatchState, em events.Emitter, body types.Notice, recipient *types.ChainAccount) (types.Notice, error) {
	latest, ok, err := st.LatestNotice(body.Chain)
	if err != nil {
		return types.Notice{}, err
	}
	if !ok {
		latest = state.LatestNoticeRecord{Hash: types.ZeroHash(body.Chain).Hash}
	}
	n := body
	if body.Kind.OpensEra() {
		n.ID = latest.ID.SeqEra()
	} else {
		n.ID = latest.ID.Seq()
	}
	n.Parent = latest.Hash

	hash, encoded, err := Hash(n)
	if err != nil {
		return types.Notice{}, err
	}
	if err := st.SetNotice(n); err != nil {
		return types.Notice{}, err
	}
	pending := types.NoticeState{Status: types.NoticePending, Signatures: types.ChainSignatureList{Chain: n.Chain}}
	if err := st.SetNoticeState(n.Chain, n.ID, pending); err != nil {
		return types.Notice{}, err
	}
	if err := st.SetLatestNotice(n.Chain, state.LatestNoticeRecord{ID: n.ID, Hash: hash.Hash}); err != nil {
		return types.Notice{}, err
	}
	if err := st.SetNoticeHash(hash, state.NoticeRef{Chain: n.Chain, ID: n.ID}); err != nil {
		return types.Notice{}, err
	}
	if recipient != nil {
		if err := st.AppendAccountNotice(*recipient, n.ID); err != nil {
			return types.Notice{}, err
		}
	}
	if n.Kind == types.NoticeChangeAuthority {
		if err := st.SetNoticeHold(n.Chain, n.ID); err != nil {
			return types.Notice{}, err
		}
	}
	if em != nil {
		em.Emit(events.Notice{Notice: n, Encoded: encoded, Hash: hash.Hash})
	}
	slog.Debug("notice dispatched",
		slog.String("chain", n.Chain.String()),
		slog.String("id", n.ID.String()),
		slog.String("kind", n.Kind.String()))
	return n, nil
}
