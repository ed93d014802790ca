package observability

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type ledgerMetrics struct {
	calls   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

type oracleMetrics struct {
	prices      *prometheus.CounterVec
	pollLatency prometheus.Histogram
	polls       *prometheus.CounterVec
}

type noticeMetrics struct {
	notices *prometheus.CounterVec
}

type workerMetrics struct {
	cycles *prometheus.CounterVec
}

var (
	ledgerMetricsOnce sync.Once
	ledgerRegistry    *ledgerMetrics

	oracleMetricsOnce sync.Once
	oracleRegistry    *oracleMetrics

	noticeMetricsOnce sync.Once
	noticeRegistry    *noticeMetrics

	workerMetricsOnce sync.Once
	workerRegistry    *workerMetrics
)

func label(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}

// Ledger returns the lazily-initialised registry tracking ledger calls.
func Ledger() *ledgerMetrics {
	ledgerMetricsOnce.Do(func() {
		ledgerRegistry = &ledgerMetrics{
			calls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cash",
				Subsystem: "ledger",
				Name:      "calls_total",
				Help:      "Ledger calls segmented by call and outcome reason.",
			}, []string{"call", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cash",
				Subsystem: "ledger",
				Name:      "call_duration_seconds",
				Help:      "Latency distribution for ledger calls.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"call"}),
		}
		prometheus.MustRegister(ledgerRegistry.calls, ledgerRegistry.latency)
	})
	return ledgerRegistry
}

// ObserveCall records a ledger call. reason is empty for accepted calls.
func (m *ledgerMetrics) ObserveCall(call, reason string, duration time.Duration) {
	if m == nil {
		return
	}
	call = label(call, "unknown")
	m.calls.WithLabelValues(call, label(reason, "ok")).Inc()
	m.latency.WithLabelValues(call).Observe(duration.Seconds())
}

// Oracle returns the registry tracking price ingestion and feed polling.
func Oracle() *oracleMetrics {
	oracleMetricsOnce.Do(func() {
		oracleRegistry = &oracleMetrics{
			prices: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cash",
				Subsystem: "oracle",
				Name:      "prices_total",
				Help:      "Posted price messages segmented by outcome reason.",
			}, []string{"reason"}),
			pollLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "cash",
				Subsystem: "oracle",
				Name:      "poll_duration_seconds",
				Help:      "Latency of open price feed polls.",
				Buckets:   prometheus.DefBuckets,
			}),
			polls: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cash",
				Subsystem: "oracle",
				Name:      "polls_total",
				Help:      "Open price feed polls segmented by outcome.",
			}, []string{"outcome"}),
		}
		prometheus.MustRegister(oracleRegistry.prices, oracleRegistry.pollLatency, oracleRegistry.polls)
	})
	return oracleRegistry
}

// RecordPrice counts a posted price message.
func (m *oracleMetrics) RecordPrice(reason string) {
	if m == nil {
		return
	}
	m.prices.WithLabelValues(label(reason, "ok")).Inc()
}

// ObservePoll records one feed poll.
func (m *oracleMetrics) ObservePoll(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(label(outcome, "unknown")).Inc()
	m.pollLatency.Observe(duration.Seconds())
}

// Notices returns the registry tracking the notice lifecycle.
func Notices() *noticeMetrics {
	noticeMetricsOnce.Do(func() {
		noticeRegistry = &noticeMetrics{
			notices: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cash",
				Subsystem: "notices",
				Name:      "transitions_total",
				Help:      "Notice lifecycle transitions segmented by chain and stage.",
			}, []string{"chain", "stage"}),
		}
		prometheus.MustRegister(noticeRegistry.notices)
	})
	return noticeRegistry
}

// Record counts a notice reaching stage (dispatched, signed, executed).
func (m *noticeMetrics) Record(chain, stage string) {
	if m == nil {
		return
	}
	m.notices.WithLabelValues(label(chain, "unknown"), label(stage, "unknown")).Inc()
}

// Workers returns the registry tracking offchain worker cycles.
func Workers() *workerMetrics {
	workerMetricsOnce.Do(func() {
		workerRegistry = &workerMetrics{
			cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cash",
				Subsystem: "worker",
				Name:      "cycles_total",
				Help:      "Offchain worker cycles segmented by worker and outcome.",
			}, []string{"worker", "outcome"}),
		}
		prometheus.MustRegister(workerRegistry.cycles)
	})
	return workerRegistry
}

// RecordCycle counts a worker cycle. A nil err records success.
func (m *workerMetrics) RecordCycle(worker string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.cycles.WithLabelValues(label(worker, "unknown"), outcome).Inc()
}

type rpcMetrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var (
	rpcMetricsOnce sync.Once
	rpcRegistry    *rpcMetrics
)

// RPC returns the registry tracking API requests.
func RPC() *rpcMetrics {
	rpcMetricsOnce.Do(func() {
		rpcRegistry = &rpcMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "cash",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "API requests segmented by method and result code.",
			}, []string{"method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "cash",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "API request latency by method.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(rpcRegistry.requests, rpcRegistry.latency)
	})
	return rpcRegistry
}

// Observe records one API request.
func (m *rpcMetrics) Observe(method, code string, duration time.Duration) {
	if m == nil {
		return
	}
	method = label(method, "unknown")
	m.requests.WithLabelValues(method, label(code, "ok")).Inc()
	m.latency.WithLabelValues(method).Observe(duration.Seconds())
}
