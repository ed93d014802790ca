package notaryd

import (
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cashchain/core"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/notices"
	"cashchain/services/offchain"
)

type fakeLedger struct {
	views     []core.NoticeView
	published []types.ChainSignature
	err       error
}

func (f *fakeLedger) PendingNotices() ([]core.NoticeView, error) { return f.views, nil }

func (f *fakeLedger) PublishSignature(_ types.ChainID, _ types.NoticeID, sig types.ChainSignature) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, sig)
	return nil
}

func extraction(index uint32) types.Notice {
	return types.Notice{
		Kind:      types.NoticeExtraction,
		Chain:     types.ChainEth,
		ID:        types.NoticeID{Index: index},
		Asset:     [20]byte{0xee},
		Recipient: [20]byte{0x01},
		Amount:    big.NewInt(1_000),
	}
}

func newRing(t *testing.T) (*crypto.InMemoryKeyring, [20]byte) {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	ring := crypto.NewInMemoryKeyring()
	ring.Add(crypto.DevKeyID, key)
	addr, err := ring.EthAddress(crypto.DevKeyID)
	require.NoError(t, err)
	return ring, addr
}

func TestSignPendingPublishesRecoverableSignatures(t *testing.T) {
	ring, self := newRing(t)
	ledger := &fakeLedger{views: []core.NoticeView{
		{Notice: extraction(0), State: types.NoticeState{Status: types.NoticePending}},
		{Notice: extraction(1), State: types.NoticeState{Status: types.NoticeExecuted}},
	}}
	store, err := offchain.Open(filepath.Join(t.TempDir(), "offchain.db"), nil)
	require.NoError(t, err)
	defer store.Close()

	published, err := New(ledger, ring, crypto.DevKeyID, store).SignPending()
	require.NoError(t, err)
	require.Equal(t, 1, published)
	require.Len(t, ledger.published, 1)

	signer, err := notices.RecoverSigner(extraction(0), ledger.published[0])
	require.NoError(t, err)
	require.Equal(t, self, signer)
}

func TestSignPendingSkipsNoticesAlreadySigned(t *testing.T) {
	ring, self := newRing(t)
	ledger := &fakeLedger{views: []core.NoticeView{{
		Notice: extraction(0),
		State: types.NoticeState{
			Status:     types.NoticePending,
			Signatures: types.ChainSignatureList{Chain: types.ChainEth, Signers: [][20]byte{self}, Sigs: [][65]byte{{}}},
		},
	}}}
	published, err := New(ledger, ring, crypto.DevKeyID, nil).SignPending()
	require.NoError(t, err)
	require.Zero(t, published)
	require.Empty(t, ledger.published)
}

func TestSignPendingToleratesRejections(t *testing.T) {
	ring, _ := newRing(t)
	for _, reject := range []error{types.ErrNoticeAlreadySigned, errors.New("unknown validator")} {
		ledger := &fakeLedger{
			views: []core.NoticeView{{Notice: extraction(0), State: types.NoticeState{Status: types.NoticePending}}},
			err:   reject,
		}
		published, err := New(ledger, ring, crypto.DevKeyID, nil).SignPending()
		require.NoError(t, err)
		require.Zero(t, published)
	}
}

func TestSignPendingRequiresKey(t *testing.T) {
	_, err := New(&fakeLedger{}, crypto.NewInMemoryKeyring(), "missing", nil).SignPending()
	require.Error(t, err)
}
