package metrics

import (
	"github.com/dbf/caddy-shib-remoteuser/internal/core/ports"
)

// NoopMetricsRecorder is a no-op implementation for when metrics are disabled.
// All methods are safe to call and do nothing.
type NoopMetricsRecorder struct{}

// NewNoopMetricsRecorder creates a new no-op metrics recorder.
func NewNoopMetricsRecorder() *NoopMetricsRecorder {
	return &NoopMetricsRecorder{}
}

// RecordLogin is a no-op.
func (n *NoopMetricsRecorder) RecordLogin(success bool) {}

// RecordValidationError is a no-op.
func (n *NoopMetricsRecorder) RecordValidationError() {}

// RecordGroupSync is a no-op.
func (n *NoopMetricsRecorder) RecordGroupSync(added, removed int) {}

// Ensure NoopMetricsRecorder implements ports.MetricsRecorder
var _ ports.MetricsRecorder = (*NoopMetricsRecorder)(nil)
