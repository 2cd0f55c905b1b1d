package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetricsRecorder exports service metrics through a Prometheus registry.
type PrometheusMetricsRecorder struct {
	operations *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	cash       prometheus.Gauge
	quarters   prometheus.Counter
	taxes      prometheus.Counter
}

// NewPrometheusMetricsRecorder registers the erpsim collectors with reg.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	r := &PrometheusMetricsRecorder{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erpsim",
			Name:      "operations_total",
			Help:      "Service operations by outcome.",
		}, []string{"operation", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "erpsim",
			Name:      "operation_duration_seconds",
			Help:      "Service operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"operation"}),
		cash: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "erpsim",
			Name:      "cash_balance",
			Help:      "Cash balance after the last quarter advance, in millions.",
		}),
		quarters: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erpsim",
			Name:      "quarters_advanced_total",
			Help:      "Quarters advanced by the engine.",
		}),
		taxes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "erpsim",
			Name:      "income_tax_paid_total",
			Help:      "Income tax paid at year ends, in millions.",
		}),
	}
	for _, c := range []prometheus.Collector{r.operations, r.durations, r.cash, r.quarters, r.taxes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe implements MetricsRecorder.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	r.operations.WithLabelValues(operation, statusLabel(success)).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveQuarter implements QuarterObserver.
func (r *PrometheusMetricsRecorder) ObserveQuarter(_ context.Context, summary QuarterSummary, cash float64) {
	r.quarters.Inc()
	r.cash.Set(cash)
	if summary.Tax.IsPositive() {
		r.taxes.Add(summary.Tax.InexactFloat64())
	}
}
