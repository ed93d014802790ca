package oracled

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/oracle"
)

// maxFeedBody bounds the response size accepted from a price feed.
const maxFeedBody = 1 << 20

// FeedResponse is the open price feed API document.
type FeedResponse struct {
	Messages   []string          `json:"messages"`
	Signatures []string          `json:"signatures"`
	Timestamp  string            `json:"timestamp"`
	Prices     map[string]string `json:"prices"`
}

// SignedMessages decodes the hex message/signature pairs and the feed
// timestamp in seconds.
func (r FeedResponse) SignedMessages() ([]oracle.SignedMessage, uint64, error) {
	n := len(r.Messages)
	if len(r.Signatures) < n {
		n = len(r.Signatures)
	}
	out := make([]oracle.SignedMessage, 0, n)
	for i := 0; i < n; i++ {
		payload, err := crypto.EthDecodeHex(strings.TrimSpace(r.Messages[i]))
		if err != nil {
			return nil, 0, types.OracleError{Kind: oracle.KindHexParseError}
		}
		sig, err := crypto.EthDecodeHex(strings.TrimSpace(r.Signatures[i]))
		if err != nil {
			return nil, 0, types.OracleError{Kind: oracle.KindHexParseError}
		}
		out = append(out, oracle.SignedMessage{Payload: payload, Signature: sig})
	}
	ts, err := strconv.ParseUint(strings.TrimSpace(r.Timestamp), 10, 64)
	if err != nil {
		return nil, 0, types.OracleError{Kind: oracle.KindInvalidTimestamp}
	}
	return out, ts, nil
}

// Fetch issues an unauthenticated GET against url. The caller's context
// carries the request deadline.
func Fetch(ctx context.Context, client *http.Client, url string) (FeedResponse, error) {
	if strings.TrimSpace(url) == "" {
		return FeedResponse{}, types.OracleError{Kind: oracle.KindNoPriceFeedURL}
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FeedResponse{}, types.OracleError{Kind: oracle.KindHttpError}
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return FeedResponse{}, types.OracleError{Kind: oracle.KindHttpError}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return FeedResponse{}, types.OracleError{Kind: oracle.KindHttpError}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
	if err != nil {
		return FeedResponse{}, types.OracleError{Kind: oracle.KindHttpError}
	}
	var parsed FeedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return FeedResponse{}, types.OracleError{Kind: oracle.KindJsonParseError}
	}
	return parsed, nil
}
