// Package telemetry provides opt-in, low-overhead instrumentation of rate
// limiter admission decisions. It is designed to be safe to call from hot
// paths: when disabled, all public functions are no-ops.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/atomic"
)

// Config controls the telemetry module.
//
// Notes:
//   - MetricsAddr, when non-empty, starts a dedicated HTTP server that serves
//     /metrics. If you already expose Prometheus elsewhere, leave it empty and
//     register promhttp yourself.
//   - DecisionLogPath, when non-empty, appends one JSON line per decision to
//     the given file for audit/replay (see decisionlog.go).
type Config struct {
	Enabled         bool
	MetricsAddr     string // e.g. ":9090". Empty to disable standalone metrics endpoint
	DecisionLogPath string // e.g. "decisions.jsonl". Empty to disable the decision log
}

var (
	modEnabled atomic.Bool

	admittedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimitfs_admitted_total",
		Help: "Requests admitted by the limiter, per backend and operation class",
	}, []string{"backend", "op"})
	admittedUnits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimitfs_admitted_units_total",
		Help: "Cost units (bytes for read/write, calls otherwise) admitted, per backend and operation class",
	}, []string{"backend", "op"})
	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimitfs_rate_limited_total",
		Help: "Non-blocking requests rejected because admission would require waiting",
	}, []string{"backend", "op"})
	exceedsBurstTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ratelimitfs_exceeds_burst_total",
		Help: "Requests rejected because their cost exceeds the configured burst",
	}, []string{"backend", "op"})
	blockedSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ratelimitfs_blocked_seconds",
		Help:    "Distribution of time blocking-mode requests spent waiting for admission",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 12),
	})
)

func init() {
	// Register eagerly. If no Prometheus endpoint is exposed, the
	// registration is harmless.
	prometheus.MustRegister(admittedTotal, admittedUnits, rateLimitedTotal, exceedsBurstTotal, blockedSeconds)
}

// Enable configures the module. Safe to call multiple times; each call sets
// the enabled flag and opens any decision log or metrics endpoint it names.
// A decision log opened by an earlier call stays open when a later config
// leaves DecisionLogPath empty.
func Enable(cfg Config) error {
	modEnabled.Store(cfg.Enabled)
	if cfg.DecisionLogPath != "" {
		if err := openDecisionLog(cfg.DecisionLogPath); err != nil {
			return err
		}
	}
	if cfg.MetricsAddr != "" {
		startMetricsEndpoint(cfg.MetricsAddr)
	}
	return nil
}

// Enabled reports whether telemetry is active.
func Enabled() bool { return modEnabled.Load() }

// ObserveAdmitted records an admitted request of the given cost.
func ObserveAdmitted(backend, op string, cost uint64) {
	if !modEnabled.Load() {
		return
	}
	admittedTotal.WithLabelValues(backend, op).Inc()
	admittedUnits.WithLabelValues(backend, op).Add(float64(cost))
	logDecision(backend, op, "admitted", cost, 0)
}

// ObserveRateLimited records a fail-fast rejection and the wait that would
// have been required.
func ObserveRateLimited(backend, op string, cost uint64, wait time.Duration) {
	if !modEnabled.Load() {
		return
	}
	rateLimitedTotal.WithLabelValues(backend, op).Inc()
	logDecision(backend, op, "rate_limited", cost, wait)
}

// ObserveExceedsBurst records a request too large to ever admit.
func ObserveExceedsBurst(backend, op string, cost uint64) {
	if !modEnabled.Load() {
		return
	}
	exceedsBurstTotal.WithLabelValues(backend, op).Inc()
	logDecision(backend, op, "exceeds_burst", cost, 0)
}

// ObserveBlocked records how long a blocking-mode request waited before it
// was admitted.
func ObserveBlocked(backend, op string, cost uint64, waited time.Duration) {
	if !modEnabled.Load() {
		return
	}
	blockedSeconds.Observe(waited.Seconds())
	admittedTotal.WithLabelValues(backend, op).Inc()
	admittedUnits.WithLabelValues(backend, op).Add(float64(cost))
	logDecision(backend, op, "blocked", cost, waited)
}

// startMetricsEndpoint exposes /metrics on the given addr in a background
// goroutine. Safe to call multiple times; only one server per unique addr
// will be started (best-effort).
func startMetricsEndpoint(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
