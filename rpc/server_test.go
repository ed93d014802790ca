package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"cashchain/core"
	"cashchain/core/events"
	"cashchain/core/genesis"
	"cashchain/core/types"
	"cashchain/crypto"
	"cashchain/native/cash"
	"cashchain/storage"
)

const (
	testSecret = "governance-secret"
	testIssuer = "cash-governance"
)

func testGenesis(t *testing.T, validator *crypto.PrivateKey) *genesis.GenesisSpec {
	t.Helper()
	addr := validator.PubKey().EthAddress()
	doc := map[string]any{
		"genesisTime": "2024-01-01T00:00:00Z",
		"validators": []map[string]string{{
			"substrateId": "0x" + strings.Repeat("07", 32),
			"ethAddress":  crypto.EthEncodeHex(addr[:]),
		}},
		"reporters":    []string{},
		"initialYield": "0",
		"assets": []map[string]any{{
			"asset":           "ETH:0x" + strings.Repeat("ee", 20),
			"decimals":        18,
			"ticker":          "ETH",
			"symbol":          "ETH",
			"liquidityFactor": "0.8",
		}},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	spec, err := genesis.ParseGenesisSpec(raw)
	require.NoError(t, err)
	return spec
}

type testEnv struct {
	node *core.Node
	srv  *Server
	http *httptest.Server
}

func newTestEnv(t *testing.T, cfg ServerConfig) *testEnv {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	hub := NewHub()
	node, err := core.NewNode(storage.NewMemDB(), core.WithEmitter(hub))
	require.NoError(t, err)
	require.NoError(t, node.ApplyGenesis(testGenesis(t, key)))

	if cfg.Auth.Secret == "" {
		cfg.Auth = AuthConfig{Secret: testSecret, Issuer: testIssuer}
	}
	srv := NewServer(node, cfg, WithHub(hub))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{node: node, srv: srv, http: ts}
}

func governanceToken(t *testing.T, scope string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":   testIssuer,
		"scope": scope,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (e *testEnv) call(t *testing.T, token, method string, params any) (int, RPCResponse) {
	t.Helper()
	req := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		req["params"] = []any{params}
	}
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq, err := http.NewRequest(http.MethodPost, e.http.URL+"/", bytes.NewReader(body))
	require.NoError(t, err)
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.http.Client().Do(httpReq)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out RPCResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestGetAssets(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	status, resp := env.call(t, "", "cash_getAssets", nil)
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	raw, err := json.Marshal(resp.Result)
	require.NoError(t, err)
	var assets []AssetResult
	require.NoError(t, json.Unmarshal(raw, &assets))
	require.Len(t, assets, 1)
	require.Equal(t, "ETH", assets[0].Ticker)
	require.Equal(t, uint8(18), assets[0].Decimals)
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	status, resp := env.call(t, "", "cash_nope", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestGovernanceRequiresToken(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	params := map[string]any{"module": "cash", "paused": true}

	status, resp := env.call(t, "", "gov_setPaused", params)
	require.Equal(t, http.StatusUnauthorized, status)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	status, _ = env.call(t, governanceToken(t, "read"), "gov_setPaused", params)
	require.Equal(t, http.StatusUnauthorized, status)

	require.False(t, env.node.IsPaused("cash"))
}

func TestGovernanceSetPaused(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	status, resp := env.call(t, governanceToken(t, "read governance"), "gov_setPaused", map[string]any{"module": "cash", "paused": true})
	require.Equal(t, http.StatusOK, status)
	require.Nil(t, resp.Error)

	require.True(t, env.node.IsPaused("cash"))
}

func TestExecTrxRequestRejected(t *testing.T) {
	env := newTestEnv(t, ServerConfig{TrxPerSecond: 100, TrxBurst: 10})
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	request := "(Frobnicate 1)"
	sig, err := cash.SignTrxRequest(request, 0, key)
	require.NoError(t, err)

	status, resp := env.call(t, "", "cash_execTrxRequest", map[string]any{
		"request":   request,
		"nonce":     0,
		"signature": crypto.EthEncodeHex(sig.Sig[:]),
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	require.Equal(t, codeLedgerRejected, resp.Error.Code)
	data, ok := resp.Error.Data.(map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, data["reason"])
}

func TestInvalidParams(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	status, resp := env.call(t, "", "cash_getLiquidity", map[string]any{"account": "not-an-account"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	status, resp = env.call(t, "", "cash_getLiquidity", map[string]any{"acct": "x"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}

func TestSubmissionRateLimited(t *testing.T) {
	env := newTestEnv(t, ServerConfig{TrxPerSecond: 0.001, TrxBurst: 1})
	params := map[string]any{"request": "(Frobnicate 1)", "nonce": 0, "signature": "0x00"}

	status, _ := env.call(t, "", "cash_execTrxRequest", params)
	require.NotEqual(t, http.StatusTooManyRequests, status)

	status, resp := env.call(t, "", "cash_execTrxRequest", params)
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, codeRateLimited, resp.Error.Code)

	// Queries are not limited.
	status, _ = env.call(t, "", "cash_getCash", nil)
	require.Equal(t, http.StatusOK, status)
}

func TestPricesEndpointRejectsMalformedPayload(t *testing.T) {
	env := newTestEnv(t, ServerConfig{TrxPerSecond: 100, TrxBurst: 10})
	resp, err := env.http.Client().Post(env.http.URL+"/v1/prices", "application/json", strings.NewReader(`{"messages":[{"payload":"zz","signature":"0x00"}]}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = env.http.Client().Post(env.http.URL+"/v1/prices", "application/json", strings.NewReader(`{"bogus":true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRequestIDEchoed(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	resp, err := env.http.Client().Get(env.http.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestEventStreamDeliversFailures(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(env.http.URL, "http") + "/ws/events?types=" + events.TypeFailure
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	// A block timestamp before genesis is rejected and reported.
	require.Error(t, env.node.BeginBlock(types.Timestamp(1), nil))

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var ev types.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	require.Equal(t, events.TypeFailure, ev.Type)
	require.Equal(t, "initialize_block", ev.Attributes["call"])
}

func TestHubDropsForSlowSubscribers(t *testing.T) {
	hub := NewHub()
	ch, cancel := hub.Subscribe()
	for i := 0; i < wsBuffer+10; i++ {
		hub.Emit(events.Failure{Call: "exec_trx_request", Reason: "InsufficientLiquidity"})
	}
	require.Len(t, ch, wsBuffer)
	cancel()
	cancel()

	hub.Close()
	late, _ := hub.Subscribe()
	_, ok := <-late
	require.False(t, ok)
}
