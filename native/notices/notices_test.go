package notices

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core/events"
	"cashchain/core/state"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/storage"
)

var (
	testAsset     = types.EthAsset([20]byte(bytes.Repeat([]byte{2}, 20)))
	testRecipient = types.EthAccount([20]byte(bytes.Repeat([]byte{1}, 20)))
)

type validatorKey struct {
	id  crypto.KeyID
	key *crypto.PrivateKey
}

func newValidators(t *testing.T, n int) (*crypto.InMemoryKeyring, []validatorKey, []types.ValidatorKeys) {
	t.Helper()
	ring := crypto.NewInMemoryKeyring()
	var keys []validatorKey
	var set []types.ValidatorKeys
	for i := 0; i < n; i++ {
		key, err := crypto.GeneratePrivateKey()
		require.NoError(t, err)
		id := crypto.KeyID(string(rune('a' + i)))
		ring.Add(id, key)
		keys = append(keys, validatorKey{id: id, key: key})
		var sub [32]byte
		sub[0] = byte(i + 1)
		set = append(set, types.ValidatorKeys{SubstrateID: sub, EthAddress: key.PubKey().EthAddress()})
	}
	return ring, keys, set
}

func TestEncodeExtractionLayout(t *testing.T) {
	n := types.Notice{
		Kind:      types.NoticeExtraction,
		Chain:     types.ChainEth,
		ID:        types.NoticeID{Era: 80, Index: 1},
		Parent:    [32]byte(bytes.Repeat([]byte{3}, 32)),
		Asset:     testAsset.Address,
		Recipient: [20]byte(bytes.Repeat([]byte{1}, 20)),
		Amount:    big.NewInt(50),
	}
	encoded, err := Encode(n)
	require.NoError(t, err)
	require.Len(t, encoded, 4+4+4+32+4+3*32)

	require.Equal(t, []byte("ETH\x00"), encoded[:4])
	require.Equal(t, uint32(80), binary.BigEndian.Uint32(encoded[4:8]))
	require.Equal(t, uint32(1), binary.BigEndian.Uint32(encoded[8:12]))
	require.Equal(t, n.Parent[:], encoded[12:44])

	selector, err := Selector(types.NoticeExtraction)
	require.NoError(t, err)
	want := crypto.Keccak256([]byte("unlock(address,address,uint128)"))
	require.Equal(t, want[:4], selector[:])
	require.Equal(t, selector[:], encoded[44:48])

	args := encoded[48:]
	require.Equal(t, make([]byte, 12), args[:12])
	require.Equal(t, n.Asset[:], args[12:32])
	require.Equal(t, n.Recipient[:], args[44:64])
	require.Equal(t, byte(50), args[95])
}

func TestEncodeChangeAuthorityIsDynamic(t *testing.T) {
	n := ChangeAuthority(types.ChainEth, []types.ValidatorKeys{{EthAddress: [20]byte{1}}, {EthAddress: [20]byte{2}}})
	encoded, err := Encode(n)
	require.NoError(t, err)
	args := encoded[48:]
	require.Len(t, args, 4*32)
	require.Equal(t, byte(0x20), args[31])
	require.Equal(t, byte(2), args[63])
}

func TestEncodeRejects(t *testing.T) {
	_, err := Encode(types.Notice{Kind: types.NoticeExtraction, Chain: types.ChainGate})
	require.Error(t, err)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err = Encode(types.Notice{Kind: types.NoticeExtraction, Chain: types.ChainEth, Amount: tooBig})
	require.ErrorIs(t, err, errU128Overflow)
}

func TestDispatchChainsNotices(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	rec := &events.Recorder{}

	body, err := Extraction(testAsset, testRecipient, big.NewInt(10))
	require.NoError(t, err)
	first, err := Dispatch(manager, rec, body, &testRecipient)
	require.NoError(t, err)
	require.Equal(t, types.NoticeID{Era: 0, Index: 1}, first.ID)
	require.Equal(t, [32]byte{}, first.Parent)

	second, err := Dispatch(manager, rec, body, &testRecipient)
	require.NoError(t, err)
	require.Equal(t, types.NoticeID{Era: 0, Index: 2}, second.ID)
	firstHash, _, err := Hash(first)
	require.NoError(t, err)
	require.Equal(t, firstHash.Hash, second.Parent)

	capped, err := Dispatch(manager, rec, SetSupplyCap(testAsset, big.NewInt(1000)), nil)
	require.NoError(t, err)
	require.Equal(t, types.NoticeID{Era: 1, Index: 0}, capped.ID)

	ids, err := manager.AccountNotices(testRecipient)
	require.NoError(t, err)
	require.Equal(t, []types.NoticeID{first.ID, second.ID}, ids)

	hashes, err := manager.NoticeHashes()
	require.NoError(t, err)
	require.Len(t, hashes, 3)
	seen := map[state.NoticeRef]bool{}
	for _, ref := range hashes {
		require.False(t, seen[ref])
		seen[ref] = true
	}

	latest, ok, err := manager.LatestNotice(types.ChainEth)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, capped.ID, latest.ID)

	ns, err := manager.NoticeState(types.ChainEth, first.ID)
	require.NoError(t, err)
	require.Equal(t, types.NoticePending, ns.Status)
	require.Equal(t, []string{events.TypeNotice, events.TypeNotice, events.TypeNotice}, rec.Types())
}

func TestNoticeExecutionScenario(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	ring, keys, set := newValidators(t, 3)
	require.NoError(t, manager.SetValidators(set))
	rec := &events.Recorder{}

	body, err := Extraction(testAsset, testRecipient, big.NewInt(10))
	require.NoError(t, err)
	n, err := Dispatch(manager, rec, body, &testRecipient)
	require.NoError(t, err)
	require.Equal(t, types.NoticeID{Era: 0, Index: 1}, n.ID)

	for i, k := range keys[:2] {
		sig, err := Sign(n, ring, k.id)
		require.NoError(t, err)
		count, err := PublishSignature(manager, rec, types.ChainEth, n.ID, sig, 2)
		require.NoError(t, err)
		require.Equal(t, i+1, count)
	}
	last := rec.Events()[len(rec.Events())-1].(events.NoticeSigned)
	require.True(t, last.Ready)

	dup, err := Sign(n, ring, keys[0].id)
	require.NoError(t, err)
	_, err = PublishSignature(manager, rec, types.ChainEth, n.ID, dup, 2)
	require.ErrorIs(t, err, types.ErrNoticeAlreadySigned)

	outsider, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	ring.Add("outsider", outsider)
	foreign, err := Sign(n, ring, "outsider")
	require.NoError(t, err)
	_, err = PublishSignature(manager, rec, types.ChainEth, n.ID, foreign, 2)
	require.ErrorIs(t, err, types.ErrUnknownValidator)

	hash, _, err := Hash(n)
	require.NoError(t, err)

	err = HandleNoticeInvoked(manager, rec, types.ChainEth, types.NoticeID{Era: 0, Index: 2}, hash, nil)
	require.ErrorIs(t, err, types.ErrNoticeHashMismatch)
	ns, err := manager.NoticeState(types.ChainEth, n.ID)
	require.NoError(t, err)
	require.Equal(t, types.NoticePending, ns.Status)
	require.Equal(t, 2, ns.Signatures.Len())

	require.NoError(t, HandleNoticeInvoked(manager, rec, types.ChainEth, n.ID, hash, []byte{1}))
	ns, err = manager.NoticeState(types.ChainEth, n.ID)
	require.NoError(t, err)
	require.Equal(t, types.NoticeExecuted, ns.Status)
	_, ok, err := manager.Notice(types.ChainEth, n.ID)
	require.NoError(t, err)
	require.False(t, ok)

	late, err := Sign(n, ring, keys[2].id)
	require.NoError(t, err)
	_, err = PublishSignature(manager, rec, types.ChainEth, n.ID, late, 2)
	require.NoError(t, err)
}

func TestPublishSignatureMissingNotice(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	id := types.NoticeID{Era: 3, Index: 4}
	_, err := PublishSignature(manager, nil, types.ChainEth, id, types.ChainSignature{Chain: types.ChainEth}, 2)
	require.Equal(t, types.NoticeMissingError{Chain: types.ChainEth, ID: id}, err)

	_, err = PublishSignature(manager, nil, types.ChainEth, id, types.ChainSignature{Chain: types.ChainGate}, 2)
	require.ErrorIs(t, err, types.ErrSignatureMismatch)
}

func TestChangeAuthorityHold(t *testing.T) {
	manager := state.NewManager(storage.NewMemDB())
	_, _, set := newValidators(t, 2)

	n, err := Dispatch(manager, nil, ChangeAuthority(types.ChainEth, set), nil)
	require.NoError(t, err)
	hold, ok, err := manager.NoticeHold(types.ChainEth)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, n.ID, hold)

	hash, _, err := Hash(n)
	require.NoError(t, err)
	require.NoError(t, HandleNoticeInvoked(manager, nil, types.ChainEth, n.ID, hash, nil))
	_, ok, err = manager.NoticeHold(types.ChainEth)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHashBytesPerChain(t *testing.T) {
	data := []byte("notice")
	eth := HashBytes(types.ChainEth, data)
	gate := HashBytes(types.ChainGate, data)
	require.Equal(t, crypto.Keccak256(data), eth.Hash)
	require.NotEqual(t, eth.Hash, gate.Hash)
	require.Equal(t, types.ChainGate, gate.Chain)
}
