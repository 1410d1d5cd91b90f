package ports

// MetricsRecorder is the port interface for recording metrics.
// Implementations are adapters (PrometheusMetricsRecorder for production,
// NoopMetricsRecorder for disabled/testing).
type MetricsRecorder interface {
	// RecordLogin records an authentication attempt against the backend.
	RecordLogin(success bool)

	// RecordValidationError records a request rejected because required
	// attributes were missing.
	RecordValidationError()

	// RecordGroupSync records the membership changes applied by one
	// group reconciliation.
	RecordGroupSync(added, removed int)
}
