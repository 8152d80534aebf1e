package pipeline

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts batch activity. Each Runner owns its own registry so
// concurrent runners and tests never share counters.
type Metrics struct {
	registry *prometheus.Registry

	// unitsTotal counts processed units by status (ok, failed, partial, skipped).
	unitsTotal *prometheus.CounterVec

	// methodsTotal counts analyzed methods by status (ok, failed).
	methodsTotal *prometheus.CounterVec

	edgesTotal prometheus.Counter

	unitDuration prometheus.Histogram
}

// NewMetrics registers the batch metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		unitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gfg",
			Subsystem: "build",
			Name:      "units_total",
			Help:      "Units processed by status",
		}, []string{"status"}),
		methodsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gfg",
			Subsystem: "build",
			Name:      "methods_total",
			Help:      "Methods analyzed by status",
		}, []string{"status"}),
		edgesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "gfg",
			Subsystem: "build",
			Name:      "edges_total",
			Help:      "Edge rows written",
		}),
		unitDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "gfg",
			Subsystem: "build",
			Name:      "unit_duration_seconds",
			Help:      "Time to load, analyze and store one unit",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
	}
}

// Registry exposes the underlying prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(u *UnitReport) {
	status := "ok"
	switch {
	case u.Skipped:
		m.unitsTotal.WithLabelValues("skipped").Inc()
		return
	case u.Err != nil:
		status = "failed"
	case len(u.Failures) > 0:
		status = "partial"
	}
	m.unitsTotal.WithLabelValues(status).Inc()
	m.methodsTotal.WithLabelValues("ok").Add(float64(u.Methods))
	m.methodsTotal.WithLabelValues("failed").Add(float64(len(u.Failures)))
	m.edgesTotal.Add(float64(u.Edges))
	m.unitDuration.Observe(u.Duration.Seconds())
}

// WriteTextfile writes the metrics in the node exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
