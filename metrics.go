/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlmigrate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/acronis/go-sqlmigrate/migrate"
)

const (
	metricsLabelMigration = "migration"
	metricsLabelDirection = "direction"
)

// PrometheusMetrics represents a Prometheus collector of metrics for executed migration steps.
// It satisfies the migrate.MetricsCollector interface and may be passed
// to the migration manager via migrate.WithMetrics.
type PrometheusMetrics struct {
	StepDurations *prometheus.HistogramVec
}

var _ migrate.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new metrics collector.
func NewPrometheusMetrics() *PrometheusMetrics {
	stepDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "migration_step_duration_seconds",
			Help:    "A histogram of the time a single migration step took to execute.",
			Buckets: []float64{0.001, 0.01, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{metricsLabelMigration, metricsLabelDirection},
	)
	return &PrometheusMetrics{StepDurations: stepDurations}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.StepDurations)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.StepDurations)
}

// ObserveStepDuration observes the duration of a single executed migration step.
func (pm *PrometheusMetrics) ObserveStepDuration(migration string, direction migrate.Direction, duration time.Duration) {
	pm.StepDurations.With(prometheus.Labels{
		metricsLabelMigration: migration,
		metricsLabelDirection: string(direction),
	}).Observe(duration.Seconds())
}
