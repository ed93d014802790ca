// Package rpc exposes the ledger over HTTP: a JSON-RPC endpoint for
// submissions, queries and governance, the price intake used by the oracle
// poller, a websocket event stream and Prometheus metrics.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"cashchain/core"
	"cashchain/services/archive"
	"cashchain/services/oracled"
)

// History serves archived events.
type History interface {
	Query(ctx context.Context, f archive.Filter) ([]archive.Record, error)
}

// ServerConfig tunes the HTTP surface.
type ServerConfig struct {
	Auth              AuthConfig
	TrxPerSecond      float64
	TrxBurst          int
	AllowedOrigins    []string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// Server routes HTTP traffic to a node.
type Server struct {
	node    *core.Node
	cfg     ServerConfig
	auth    *Authenticator
	limiter *clientLimiter
	hub     *Hub
	history History
	logger  *slog.Logger
	methods map[string]method
}

// Option configures a Server.
type Option func(*Server)

// WithHistory enables the cash_eventHistory method.
func WithHistory(h History) Option {
	return func(s *Server) { s.history = h }
}

// WithHub shares an event hub the node already emits into.
func WithHub(h *Hub) Option {
	return func(s *Server) {
		if h != nil {
			s.hub = h
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer builds a server for node.
func NewServer(node *core.Node, cfg ServerConfig, opts ...Option) *Server {
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = 5 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 60 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		node:    node,
		cfg:     cfg,
		auth:    NewAuthenticator(cfg.Auth),
		limiter: newClientLimiter(cfg.TrxPerSecond, cfg.TrxBurst),
		hub:     NewHub(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.methods = s.routes()
	return s
}

// Hub returns the event hub. Register it as a node emitter to feed
// websocket subscribers.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) routes() map[string]method {
	open := func(fn handlerFunc) method { return method{fn: fn} }
	limited := func(fn handlerFunc) method { return method{fn: fn, limited: true} }
	gov := func(fn handlerFunc) method { return method{fn: fn, governance: true} }
	return map[string]method{
		"cash_execTrxRequest":            limited(s.handleExecTrxRequest),
		"cash_postPrice":                 limited(s.handlePostPrice),
		"cash_publishSignature":          limited(s.handlePublishSignature),
		"cash_setNextCodeViaHash":        limited(s.handleSetNextCodeViaHash),
		"cash_getLiquidity":              open(s.handleGetLiquidity),
		"cash_getPortfolio":              open(s.handleGetPortfolio),
		"cash_getNonce":                  open(s.handleGetNonce),
		"cash_getRates":                  open(s.handleGetRates),
		"cash_hasLiquidityToReduceAsset": open(s.handleHasLiquidityToReduceAsset),
		"cash_getAssets":                 open(s.handleGetAssets),
		"cash_getAccounts":               open(s.handleGetAccounts),
		"cash_getPrice":                  open(s.handleGetPrice),
		"cash_getPrices":                 open(s.handleGetPrices),
		"cash_getCash":                   open(s.handleGetCash),
		"cash_getNotice":                 open(s.handleGetNotice),
		"cash_pendingNotices":            open(s.handlePendingNotices),
		"cash_accountNotices":            open(s.handleAccountNotices),
		"cash_getEventStatus":            open(s.handleGetEventStatus),
		"cash_getValidators":             open(s.handleGetValidators),
		"cash_getParams":                 open(s.handleGetParams),
		"cash_eventHistory":              open(s.handleEventHistory),
		"gov_supportAsset":               gov(s.handleSupportAsset),
		"gov_setRateModel":               gov(s.handleSetRateModel),
		"gov_setSupplyCap":               gov(s.handleSetSupplyCap),
		"gov_setYieldNext":               gov(s.handleSetYieldNext),
		"gov_setReporters":               gov(s.handleSetReporters),
		"gov_setPaused":                  gov(s.handleSetPaused),
		"gov_allowNextCodeWithHash":      gov(s.handleAllowNextCodeWithHash),
		"gov_changeValidators":           gov(s.handleChangeValidators),
	}
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// withRequestID tags each request with an X-Request-ID, reusing the
// caller's when present.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(withRequestID)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	r.Post("/v1/prices", s.handlePrices)
	r.Get("/ws/events", s.handleEventsWS)
	return otelhttp.NewHandler(r, "cashd.rpc")
}

// handlePrices accepts a batch from the oracle poller.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientID(r)) {
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}
	var payload oracled.PricePayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, "invalid price payload", http.StatusBadRequest)
		return
	}
	messages, err := oracled.DecodePrices(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.node.PostPrices(messages); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(ledgerError(err))
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Serve listens on addr until ctx is cancelled, then drains connections.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.serveListener(ctx, ln)
}

func (s *Server) serveListener(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("rpc server listening", slog.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.hub.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
