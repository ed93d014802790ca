package oracled

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/oracle"
	"cashchain/services/offchain"
)

type recordingSubmitter struct {
	batches [][]oracle.SignedMessage
	err     error
}

func (r *recordingSubmitter) PostPrices(messages []oracle.SignedMessage) error {
	if r.err != nil {
		return r.err
	}
	r.batches = append(r.batches, messages)
	return nil
}

func feedServer(t *testing.T, stamp *atomic.Uint64, status int) *httptest.Server {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status != http.StatusOK {
			w.WriteHeader(status)
			return
		}
		ts := stamp.Load()
		payload, err := oracle.EncodeMessage(ts, "ETH", 2_000_000_000)
		require.NoError(t, err)
		sig, err := oracle.SignMessage(payload, key)
		require.NoError(t, err)
		_ = json.NewEncoder(w).Encode(FeedResponse{
			Messages:   []string{crypto.EthEncodeHex(payload)},
			Signatures: []string{crypto.EthEncodeHex(sig)},
			Timestamp:  strconv.FormatUint(ts, 10),
			Prices:     map[string]string{"ETH": "2000"},
		})
	}))
}

func newTestPoller(t *testing.T, url string, sub Submitter, now *time.Time) *Poller {
	t.Helper()
	store, err := offchain.Open(filepath.Join(t.TempDir(), "offchain.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewPoller(url, store, sub,
		WithInterval(time.Minute),
		WithClock(func() time.Time { return *now }))
}

func TestPollSubmitsNewerFeedsOnly(t *testing.T) {
	var stamp atomic.Uint64
	stamp.Store(1_700_000_000)
	srv := feedServer(t, &stamp, http.StatusOK)
	defer srv.Close()

	sub := &recordingSubmitter{}
	now := time.Unix(1_700_000_100, 0)
	poller := newTestPoller(t, srv.URL, sub, &now)

	require.NoError(t, poller.Poll(context.Background()))
	require.Len(t, sub.batches, 1)
	msg, err := oracle.ParseMessage(sub.batches[0][0].Payload)
	require.NoError(t, err)
	require.Equal(t, "ETH", msg.Key)

	// Inside the interval nothing is fetched.
	now = now.Add(10 * time.Second)
	require.NoError(t, poller.Poll(context.Background()))
	require.Len(t, sub.batches, 1)

	// Same feed timestamp after the interval is not resubmitted.
	now = now.Add(time.Minute)
	require.NoError(t, poller.Poll(context.Background()))
	require.Len(t, sub.batches, 1)

	stamp.Store(1_700_000_060)
	now = now.Add(time.Minute)
	require.NoError(t, poller.Poll(context.Background()))
	require.Len(t, sub.batches, 2)
}

func TestPollReportsHTTPFailures(t *testing.T) {
	var stamp atomic.Uint64
	srv := feedServer(t, &stamp, http.StatusBadGateway)
	defer srv.Close()

	now := time.Unix(1_700_000_000, 0)
	poller := newTestPoller(t, srv.URL, &recordingSubmitter{}, &now)
	err := poller.Poll(context.Background())
	require.Equal(t, types.OracleError{Kind: oracle.KindHttpError}, err)
}

func TestPollWithoutURLIsNoop(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	sub := &recordingSubmitter{}
	poller := newTestPoller(t, "", sub, &now)
	require.NoError(t, poller.Poll(context.Background()))
	require.Empty(t, sub.batches)
}

func TestFeedResponseRejectsBadHex(t *testing.T) {
	_, _, err := FeedResponse{Messages: []string{"zz"}, Signatures: []string{"0x00"}, Timestamp: "1"}.SignedMessages()
	require.Equal(t, types.OracleError{Kind: oracle.KindHexParseError}, err)
	_, _, err = FeedResponse{Timestamp: "soon"}.SignedMessages()
	require.Equal(t, types.OracleError{Kind: oracle.KindInvalidTimestamp}, err)
}

func TestHTTPSubmitterRoundTrip(t *testing.T) {
	var got PricePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/prices", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	messages := []oracle.SignedMessage{{Payload: []byte{0x01, 0x02}, Signature: []byte{0x03}}}
	require.NoError(t, NewHTTPSubmitter(srv.URL, srv.Client(), time.Second).PostPrices(messages))
	decoded, err := DecodePrices(got)
	require.NoError(t, err)
	require.Equal(t, messages, decoded)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oracled.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`feed_url: https://prices.example/coinbase
node_url: http://127.0.0.1:8080/
poll_interval: 30s
`), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, "http://127.0.0.1:8080", cfg.NodeURL)
	require.Equal(t, 30*time.Second, cfg.PollInterval.Duration)
	require.Equal(t, 2*time.Second, cfg.HTTPTimeout.Duration)

	require.NoError(t, os.WriteFile(path, []byte("feed_url: https://x\nnode_url: http://y\nbogus: 1\n"), 0o600))
	_, err = LoadConfig(path)
	require.Error(t, err)
}
