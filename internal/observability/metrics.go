package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the collectors recorded around each calculation.
type Metrics struct {
	Registry     *prometheus.Registry
	calculations *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	batchSize    prometheus.Histogram
}

// NewMetrics registers the calculation collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		calculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "calcengine",
			Name:      "calculations_total",
			Help:      "Calculations by calculator and outcome.",
		}, []string{"calculator", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "calcengine",
			Name:      "calculation_duration_seconds",
			Help:      "Wall time spent in a calculator.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"calculator"}),
		batchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "calcengine",
			Name:      "batch_size",
			Help:      "Number of requests per batch calculation.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
	reg.MustRegister(
		m.calculations,
		m.duration,
		m.batchSize,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCalculation records one calculation outcome.
func (m *Metrics) ObserveCalculation(calculator, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calculations.WithLabelValues(calculator, status).Inc()
	m.duration.WithLabelValues(calculator).Observe(elapsed.Seconds())
}

// ObserveBatch records the size of a batch request.
func (m *Metrics) ObserveBatch(size int) {
	if m == nil {
		return
	}
	m.batchSize.Observe(float64(size))
}
