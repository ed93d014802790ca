package state

import (
	"cashchain/core/types"
)

// NoticeRef locates a notice by chain and id.
type NoticeRef struct {
	Chain types.ChainID
	ID    types.NoticeID
}

// LatestNoticeRecord is the tip of a chain's notice hash chain.
type LatestNoticeRecord struct {
	ID   types.NoticeID
	Hash [32]byte
}

// Notice returns the stored notice.
func (m *Manager) Notice(chain types.ChainID, id types.NoticeID) (types.Notice, bool, error) {
	var n types.Notice
	ok, err := m.KVGet(join(noticesPrefix, noticeIDBytes(chain, id)), &n)
	return n, ok, err
}

// SetNotice stores a notice.
func (m *Manager) SetNotice(n types.Notice) error {
	return m.KVPut(join(noticesPrefix, noticeIDBytes(n.Chain, n.ID)), n)
}

// DeleteNotice removes a notice body.
func (m *Manager) DeleteNotice(chain types.ChainID, id types.NoticeID) error {
	return m.KVDelete(join(noticesPrefix, noticeIDBytes(chain, id)))
}

// NoticeState returns the notice's lifecycle state, Missing when absent.
func (m *Manager) NoticeState(chain types.ChainID, id types.NoticeID) (types.NoticeState, error) {
	var s types.NoticeState
	ok, err := m.KVGet(join(noticeStatesPrefix, noticeIDBytes(chain, id)), &s)
	if err != nil || !ok {
		return types.NoticeState{Status: types.NoticeMissing}, err
	}
	return s, nil
}

// SetNoticeState stores the notice's lifecycle state.
func (m *Manager) SetNoticeState(chain types.ChainID, id types.NoticeID, s types.NoticeState) error {
	return m.KVPut(join(noticeStatesPrefix, noticeIDBytes(chain, id)), s)
}

// PendingNotices lists notices awaiting signatures or execution.
func (m *Manager) PendingNotices() ([]NoticeRef, error) {
	var out []NoticeRef
	err := m.KVIterate(noticeStatesPrefix, func(suffix, value []byte) error {
		chain, id, ok := decodeNoticeID(suffix)
		if !ok {
			return nil
		}
		var s types.NoticeState
		if err := decodeRLP(value, &s); err != nil {
			return err
		}
		if s.Status == types.NoticePending {
			out = append(out, NoticeRef{Chain: chain, ID: id})
		}
		return nil
	})
	return out, err
}

// NoticeHash returns the notice referenced by hash.
func (m *Manager) NoticeHash(hash types.ChainHash) (NoticeRef, bool, error) {
	var ref NoticeRef
	ok, err := m.KVGet(join(noticeHashesPrefix, []byte{byte(hash.Chain)}, hash.Hash[:]), &ref)
	return ref, ok, err
}

// SetNoticeHash indexes a notice by its hash.
func (m *Manager) SetNoticeHash(hash types.ChainHash, ref NoticeRef) error {
	return m.KVPut(join(noticeHashesPrefix, []byte{byte(hash.Chain)}, hash.Hash[:]), ref)
}

// NoticeHashes lists the hash index.
func (m *Manager) NoticeHashes() (map[types.ChainHash]NoticeRef, error) {
	out := make(map[types.ChainHash]NoticeRef)
	err := m.KVIterate(noticeHashesPrefix, func(suffix, value []byte) error {
		if len(suffix) != 33 {
			return nil
		}
		h := types.ChainHash{Chain: types.ChainID(suffix[0])}
		copy(h.Hash[:], suffix[1:])
		var ref NoticeRef
		if err := decodeRLP(value, &ref); err != nil {
			return err
		}
		out[h] = ref
		return nil
	})
	return out, err
}

// LatestNotice returns the chain tip, ((0,0), zero) when nothing was sent.
func (m *Manager) LatestNotice(chain types.ChainID) (LatestNoticeRecord, bool, error) {
	var rec LatestNoticeRecord
	ok, err := m.KVGet(join(latestNoticePrefix, []byte{byte(chain)}), &rec)
	return rec, ok, err
}

// SetLatestNotice advances the chain tip.
func (m *Manager) SetLatestNotice(chain types.ChainID, rec LatestNoticeRecord) error {
	return m.KVPut(join(latestNoticePrefix, []byte{byte(chain)}), rec)
}

// AccountNotices lists notice ids addressed to account.
func (m *Manager) AccountNotices(account types.ChainAccount) ([]types.NoticeID, error) {
	var out []types.NoticeID
	_, err := m.KVGet(join(accountNoticesPrefix, accountBytes(account)), &out)
	return out, err
}

// AppendAccountNotice records a notice addressed to account.
func (m *Manager) AppendAccountNotice(account types.ChainAccount, id types.NoticeID) error {
	ids, err := m.AccountNotices(account)
	if err != nil {
		return err
	}
	return m.KVPut(join(accountNoticesPrefix, accountBytes(account)), append(ids, id))
}

// NoticeHold returns the in-flight authority change on chain.
func (m *Manager) NoticeHold(chain types.ChainID) (types.NoticeID, bool, error) {
	var id types.NoticeID
	ok, err := m.KVGet(join(noticeHoldsPrefix, []byte{byte(chain)}), &id)
	return id, ok, err
}

// SetNoticeHold marks an authority change in flight.
func (m *Manager) SetNoticeHold(chain types.ChainID, id types.NoticeID) error {
	return m.KVPut(join(noticeHoldsPrefix, []byte{byte(chain)}), id)
}

// ClearNoticeHold releases the hold.
func (m *Manager) ClearNoticeHold(chain types.ChainID) error {
	return m.KVDelete(join(noticeHoldsPrefix, []byte{byte(chain)}))
}
