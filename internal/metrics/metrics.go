package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "staking_ledger"

// BucketHTTPReqs are the request latency buckets in milliseconds
var BucketHTTPReqs = []float64{0, 25, 50, 100, 250, 500, 1000, 2000, 5000}

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_request_count",
		Help:      "HTTP requests by route, status code and method.",
	}, []string{"path", "code", "method"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   BucketHTTPReqs,
	}, []string{"path", "code", "method"})

	accrualStakes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "accrual_stakes_total",
		Help:      "Stakes handled by reward accrual passes, by outcome.",
	}, []string{"outcome"})

	sweepWithdrawals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "condition_sweep_withdrawals_total",
		Help:      "Withdrawals handled by condition sweeps, by outcome.",
	}, []string{"outcome"})

	payouts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payouts_total",
		Help:      "Payout dispatch attempts, by outcome.",
	}, []string{"outcome"})

	rollbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rollbacks_total",
		Help:      "Compensating rollbacks, by operation and result.",
	}, []string{"op", "result"})

	journalFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "journal_failures_total",
		Help:      "Ledger entries that could not be mirrored to the external journal.",
	})

	jobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "job_runs_total",
		Help:      "Scheduled job runs, by job and result.",
	}, []string{"job", "result"})

	jobDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_ms",
		Help:      "Scheduled job run time in milliseconds.",
		Buckets:   []float64{10, 50, 100, 500, 1000, 5000, 15000, 60000},
	}, []string{"job"})
)

func init() {
	prometheus.MustRegister(
		httpRequests,
		httpDuration,
		accrualStakes,
		sweepWithdrawals,
		payouts,
		rollbacks,
		journalFailures,
		jobRuns,
		jobDuration,
	)
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTPRequest(path, method string, code int, elapsed time.Duration) {
	labels := prometheus.Labels{"path": path, "code": strconv.Itoa(code), "method": method}
	httpRequests.With(labels).Inc()
	httpDuration.With(labels).Observe(float64(elapsed.Milliseconds()))
}

func AccrualOutcome(outcome string) {
	accrualStakes.WithLabelValues(outcome).Inc()
}

func SweepOutcome(outcome string) {
	sweepWithdrawals.WithLabelValues(outcome).Inc()
}

func PayoutOutcome(outcome string) {
	payouts.WithLabelValues(outcome).Inc()
}

// Rollback records a compensating step. failed is true when the rollback
// itself did not apply.
func Rollback(op string, failed bool) {
	result := "ok"
	if failed {
		result = "failed"
	}
	rollbacks.WithLabelValues(op, result).Inc()
}

func JournalFailure() {
	journalFailures.Inc()
}

func ObserveJob(job string, err error, elapsed time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	jobRuns.WithLabelValues(job, result).Inc()
	jobDuration.WithLabelValues(job).Observe(float64(elapsed.Milliseconds()))
}
