package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// PrometheusMetricsRecorder records metrics using Prometheus.
type PrometheusMetricsRecorder struct {
	loginAttemptsTotal    *prometheus.CounterVec
	validationErrorsTotal prometheus.Counter
	groupSyncOpsTotal     *prometheus.CounterVec
}

var (
	defaultOnce     sync.Once
	defaultRecorder *PrometheusMetricsRecorder
)

// NewPrometheusMetricsRecorder returns the process-wide recorder registered
// on the default Prometheus registry. A single instance is shared because
// config reloads re-provision the handler and counters may only be
// registered once.
func NewPrometheusMetricsRecorder() *PrometheusMetricsRecorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewPrometheusMetricsRecorderWithRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewPrometheusMetricsRecorderWithRegistry creates a new Prometheus metrics
// recorder with a custom registry. Use this for testing.
func NewPrometheusMetricsRecorderWithRegistry(reg prometheus.Registerer) *PrometheusMetricsRecorder {
	loginAttemptsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shib_remote_user_login_attempts_total",
		Help: "Total authentication attempts against the user backend",
	}, []string{"result"})

	validationErrorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shib_remote_user_validation_errors_total",
		Help: "Total requests rejected for missing required attributes",
	})

	groupSyncOpsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shib_remote_user_group_sync_ops_total",
		Help: "Total group membership changes applied by reconciliation",
	}, []string{"op"})

	reg.MustRegister(
		loginAttemptsTotal,
		validationErrorsTotal,
		groupSyncOpsTotal,
	)

	return &PrometheusMetricsRecorder{
		loginAttemptsTotal:    loginAttemptsTotal,
		validationErrorsTotal: validationErrorsTotal,
		groupSyncOpsTotal:     groupSyncOpsTotal,
	}
}

// RecordLogin records an authentication attempt against the backend.
func (r *PrometheusMetricsRecorder) RecordLogin(success bool) {
	result := "success"
	if !success {
		result = "rejected"
	}
	r.loginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordValidationError records a request rejected for missing attributes.
func (r *PrometheusMetricsRecorder) RecordValidationError() {
	r.validationErrorsTotal.Inc()
}

// RecordGroupSync records the membership changes applied by one sync.
func (r *PrometheusMetricsRecorder) RecordGroupSync(added, removed int) {
	if added > 0 {
		r.groupSyncOpsTotal.WithLabelValues("add").Add(float64(added))
	}
	if removed > 0 {
		r.groupSyncOpsTotal.WithLabelValues("remove").Add(float64(removed))
	}
}

// Ensure PrometheusMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*PrometheusMetricsRecorder)(nil)
