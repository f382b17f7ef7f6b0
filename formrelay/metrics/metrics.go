// Package metrics exposes Prometheus collectors for form submissions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Pandentia/formrelay/formrelay/schema"
	"github.com/Pandentia/formrelay/formrelay/submitter"
)

const namespace = "formrelay"

// Metrics observes submitter sessions. It implements submitter.Observer.
type Metrics struct {
	submissions *prometheus.CounterVec
	rejections  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
}

var _ submitter.Observer = (*Metrics)(nil)

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Completed form submissions by outcome.",
		}, []string{"form", "outcome"}),
		rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Submissions blocked by field validation.",
		}, []string{"form"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "relay_duration_seconds",
			Help:      "Time spent waiting for the form relay.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"form"}),
		inFlight: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight",
			Help:      "Submissions currently waiting for the form relay.",
		}, []string{"form"}),
	}
}

// Rejected implements submitter.Observer.
func (m *Metrics) Rejected(form string, _ *schema.ValidationError) {
	m.rejections.WithLabelValues(form).Inc()
}

// Started implements submitter.Observer.
func (m *Metrics) Started(form string) {
	m.inFlight.WithLabelValues(form).Inc()
}

// Finished implements submitter.Observer.
func (m *Metrics) Finished(c submitter.Completion) {
	m.inFlight.WithLabelValues(c.Form).Dec()
	m.submissions.WithLabelValues(c.Form, string(c.Result.State)).Inc()
	m.duration.WithLabelValues(c.Form).Observe(c.Finished.Sub(c.Started).Seconds())
}
