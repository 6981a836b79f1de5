package validation

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSkipped = "skipped"
	OutcomePassed  = "passed"
	OutcomeFailed  = "failed"
	OutcomeError   = "error"
)

// Metrics counts validation outcomes and times dispatches.
type Metrics struct {
	Requests *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics registers the validation metrics with reg.
// Use prometheus.DefaultRegisterer to expose them with promhttp.Handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentvalidation_requests_total",
				Help: "Requests seen by content validation, by service, outcome and problem status",
			},
			[]string{"service", "outcome", "status"},
		),
		Duration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contentvalidation_dispatch_duration_seconds",
				Help:    "Time spent validating a request",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"service"},
		),
	}
}

func (m *Metrics) observe(service, outcome string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	s := ""
	if status > 0 {
		s = strconv.Itoa(status)
	}
	m.Requests.WithLabelValues(service, outcome, s).Inc()
	m.Duration.WithLabelValues(service).Observe(elapsed.Seconds())
}
