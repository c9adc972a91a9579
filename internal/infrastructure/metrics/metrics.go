package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Validation
	ValidationRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bpmnlint_validation_runs_total",
			Help: "Number of validation requests by outcome",
		},
		[]string{"result"}, // result: passed|findings|missing_file|unsupported_type|timeout|tool_unavailable|internal_error
	)
	ValidationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bpmnlint_validation_duration_seconds",
			Help:    "Duration of linter invocations",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms..51s
		},
		[]string{"result"},
	)
	UploadBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bpmnlint_upload_bytes",
			Help:    "Size of accepted uploads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 8), // 1KiB..16MiB
		},
	)
	ScratchCleanupFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bpmnlint_scratch_cleanup_failures_total",
			Help: "Scratch files that could not be removed",
		},
	)

	// HTTP
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "path"},
	)
	ErrorCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of HTTP request errors.",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		// Validation
		ValidationRuns,
		ValidationDurationSeconds,
		UploadBytes,
		ScratchCleanupFailures,
		// HTTP
		RequestDuration,
		RequestCount,
		ErrorCount,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer serves /metrics on addr until ctx is done.
func StartMetricsServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Validation
func IncValidationRun(result string) {
	ValidationRuns.WithLabelValues(result).Inc()
}

func ObserveValidationDuration(result string, d time.Duration) {
	ValidationDurationSeconds.WithLabelValues(result).Observe(d.Seconds())
}

func ObserveUploadSize(n int64) {
	if n < 0 {
		return
	}
	UploadBytes.Observe(float64(n))
}

func IncScratchCleanupFailure() {
	ScratchCleanupFailures.Inc()
}

// HTTP
func ObserveRequest(method, path string, status int, d time.Duration) {
	statusStr := strconv.Itoa(status)
	RequestCount.WithLabelValues(method, path).Inc()
	RequestDuration.WithLabelValues(method, path, statusStr).Observe(d.Seconds())
	if status >= 400 {
		ErrorCount.WithLabelValues(method, path, statusStr).Inc()
	}
}
