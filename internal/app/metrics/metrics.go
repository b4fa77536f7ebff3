package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "data_ledger",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_ledger",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "data_ledger",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_ledger",
			Subsystem: "registry",
			Name:      "submissions_total",
			Help:      "Total number of accepted data submissions.",
		},
		[]string{"category"},
	)

	verifications = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "data_ledger",
			Subsystem: "registry",
			Name:      "verifications_total",
			Help:      "Total number of verified datapoints.",
		},
	)

	claims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "data_ledger",
			Subsystem: "treasury",
			Name:      "claims_total",
			Help:      "Total number of claim attempts.",
		},
		[]string{"status"},
	)

	claimedAmount = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "data_ledger",
			Subsystem: "treasury",
			Name:      "claimed_amount_total",
			Help:      "Total reward amount paid out across claims.",
		},
	)

	treasuryBalance = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "data_ledger",
			Subsystem: "treasury",
			Name:      "balance",
			Help:      "Current treasury balance.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		submissions,
		verifications,
		claims,
		claimedAmount,
		treasuryBalance,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordSubmission records an accepted submission.
func RecordSubmission(category string) {
	submissions.WithLabelValues(category).Inc()
}

// RecordVerification records a successful verification.
func RecordVerification() {
	verifications.Inc()
}

// RecordClaim records a claim attempt and, when settled, its amount.
func RecordClaim(status string, amount int64) {
	claims.WithLabelValues(status).Inc()
	if status == "settled" {
		claimedAmount.Add(float64(amount))
	}
}

// SetTreasuryBalance updates the treasury balance gauge.
func SetTreasuryBalance(balance int64) {
	treasuryBalance.Set(float64(balance))
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource ids so metric labels stay low-cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "v1" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/v1"
	}
	resource := parts[1]
	switch resource {
	case "datapoints":
		if len(parts) >= 4 {
			return "/v1/datapoints/:id/" + parts[3]
		}
		if len(parts) == 3 {
			return "/v1/datapoints/:id"
		}
		return "/v1/datapoints"
	case "contributors":
		if len(parts) >= 4 {
			return "/v1/contributors/:id/" + parts[3]
		}
		return "/v1/contributors/:id"
	default:
		return "/v1/" + resource
	}
}
