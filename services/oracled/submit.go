package oracled

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/oracle"
)

// PricePayload is the body accepted by the node's price endpoint.
type PricePayload struct {
	Messages []PriceMessage `json:"messages"`
}

// PriceMessage is one 0x-hex payload/signature pair.
type PriceMessage struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// HTTPSubmitter posts prices to a remote node.
type HTTPSubmitter struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
}

// NewHTTPSubmitter targets the node at baseURL.
func NewHTTPSubmitter(baseURL string, client *http.Client, timeout time.Duration) *HTTPSubmitter {
	if client == nil {
		client = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPSubmitter{endpoint: baseURL + "/v1/prices", client: client, timeout: timeout}
}

// EncodePrices converts signed messages to their wire form.
func EncodePrices(messages []oracle.SignedMessage) PricePayload {
	out := PricePayload{Messages: make([]PriceMessage, len(messages))}
	for i, m := range messages {
		out.Messages[i] = PriceMessage{
			Payload:   crypto.EthEncodeHex(m.Payload),
			Signature: crypto.EthEncodeHex(m.Signature),
		}
	}
	return out
}

// DecodePrices is the inverse of EncodePrices.
func DecodePrices(p PricePayload) ([]oracle.SignedMessage, error) {
	out := make([]oracle.SignedMessage, len(p.Messages))
	for i, m := range p.Messages {
		payload, err := crypto.EthDecodeHex(m.Payload)
		if err != nil {
			return nil, types.OracleError{Kind: oracle.KindHexParseError}
		}
		sig, err := crypto.EthDecodeHex(m.Signature)
		if err != nil {
			return nil, types.OracleError{Kind: oracle.KindHexParseError}
		}
		out[i] = oracle.SignedMessage{Payload: payload, Signature: sig}
	}
	return out, nil
}

// PostPrices implements Submitter.
func (s *HTTPSubmitter) PostPrices(messages []oracle.SignedMessage) error {
	body, err := json.Marshal(EncodePrices(messages))
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	if err != nil {
		return types.OracleError{Kind: oracle.KindSubmitError}
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", types.OracleError{Kind: oracle.KindSubmitError}, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}
