package notices

import (
	"cashchain/core/events"
	"cashchain/core/state"
	"cashchain/core/types"
)

// SignatureState is the storage signature collection reads and writes.
type SignatureState interface {
	Notice(chain types.ChainID, id types.NoticeID) (types.Notice, bool, error)
	NoticeState(chain types.ChainID, id types.NoticeID) (types.NoticeState, error)
	SetNoticeState(chain types.ChainID, id types.NoticeID, s types.NoticeState) error
	ValidatorByEthAddress(addr [20]byte) (types.ValidatorKeys, bool, error)
}

// ExecutionState is the storage notice acknowledgement touches.
type ExecutionState interface {
	NoticeHash(hash types.ChainHash) (state.NoticeRef, bool, error)
	DeleteNotice(chain types.ChainID, id types.NoticeID) error
	NoticeHold(chain types.ChainID) (types.NoticeID, bool, error)
	ClearNoticeHold(chain types.ChainID) error
	NoticeState(chain types.ChainID, id types.NoticeID) (types.NoticeState, error)
	SetNoticeState(chain types.ChainID, id types.NoticeID, s types.NoticeState) error
}

// PublishSignature adds a validator signature to a pending notice. The
// signature must recover to an active validator that has not yet signed.
// Signatures on executed notices are ignored. It returns the number of
// collected signatures.
func PublishSignature(st SignatureState, em events.Emitter, chain types.ChainID, id types.NoticeID, sig types.ChainSignature, threshold uint32) (int, error) {
	if sig.Chain != chain {
		return 0, types.ErrSignatureMismatch
	}
	ns, err := st.NoticeState(chain, id)
	if err != nil {
		return 0, err
	}
	switch ns.Status {
	case types.NoticeExecuted:
		return 0, nil
	case types.NoticeMissing:
		return 0, types.NoticeMissingError{Chain: chain, ID: id}
	}
	n, ok, err := st.Notice(chain, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, types.NoticeMissingError{Chain: chain, ID: id}
	}
	signer, err := RecoverSigner(n, sig)
	if err != nil {
		return 0, err
	}
	if _, known, err := st.ValidatorByEthAddress(signer); err != nil {
		return 0, err
	} else if !known {
		return 0, types.ErrUnknownValidator
	}
	if ns.Signatures.Chain != chain {
		return 0, types.ErrSignatureMismatch
	}
	if ns.Signatures.Has(signer) {
		return 0, types.ErrNoticeAlreadySigned
	}
	ns.Signatures.Signers = append(ns.Signatures.Signers, signer)
	ns.Signatures.Sigs = append(ns.Signatures.Sigs, sig.Sig)
	if err := st.SetNoticeState(chain, id, ns); err != nil {
		return 0, err
	}
	count := ns.Signatures.Len()
	if em != nil {
		em.Emit(events.NoticeSigned{
			Chain:      chain,
			ID:         id,
			Signer:     signer,
			Signatures: count,
			Ready:      threshold > 0 && count >= int(threshold),
		})
	}
	return count, nil
}

// HandleNoticeInvoked records that a starport executed a notice. The hash
// must index exactly the given id; the notice body is dropped and a matching
// authority hold released.
func HandleNoticeInvoked(st ExecutionState, em events.Emitter, chain types.ChainID, id types.NoticeID, hash types.ChainHash, result []byte) error {
	ref, ok, err := st.NoticeHash(hash)
	if err != nil {
		return err
	}
	if !ok || ref.Chain != chain || ref.ID != id {
		return types.ErrNoticeHashMismatch
	}
	if err := st.DeleteNotice(chain, id); err != nil {
		return err
	}
	hold, held, err := st.NoticeHold(chain)
	if err != nil {
		return err
	}
	if held && hold == id {
		if err := st.ClearNoticeHold(chain); err != nil {
			return err
		}
	}
	if err := st.SetNoticeState(chain, id, types.NoticeState{Status: types.NoticeExecuted}); err != nil {
		return err
	}
	if em != nil {
		em.Emit(events.NoticeExecuted{Chain: chain, ID: id, Hash: hash.Hash, Result: result})
	}
	return nil
}
