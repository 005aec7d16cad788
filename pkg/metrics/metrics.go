// Package metrics exposes Prometheus counters for upload admission and result reconciliation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomePersisted = "persisted"
	OutcomeFailed    = "failed"
)

type Metrics struct {
	uploads           *prometheus.CounterVec
	validationResults *prometheus.CounterVec
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathways_uploads_total",
				Help: "Pathways uploads received, by admission outcome",
			},
			[]string{"outcome"},
		),
		validationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pathways_validation_results_total",
				Help: "Validation results consumed, by reconciliation outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Nop returns counters registered nowhere.
func Nop() *Metrics {
	return New(prometheus.NewRegistry())
}

func (m *Metrics) UploadAccepted() {
	m.uploads.WithLabelValues(OutcomeAccepted).Inc()
}

func (m *Metrics) UploadRejected() {
	m.uploads.WithLabelValues(OutcomeRejected).Inc()
}

func (m *Metrics) ResultPersisted() {
	m.validationResults.WithLabelValues(OutcomePersisted).Inc()
}

func (m *Metrics) ResultFailed() {
	m.validationResults.WithLabelValues(OutcomeFailed).Inc()
}

// Uploads and ValidationResults expose the collectors for inspection.
func (m *Metrics) Uploads() *prometheus.CounterVec {
	return m.uploads
}

func (m *Metrics) ValidationResults() *prometheus.CounterVec {
	return m.validationResults
}
