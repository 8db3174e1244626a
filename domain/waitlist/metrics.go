package waitlist

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
)

type submissionMetrics struct {
	submissions *prometheus.CounterVec
}

// newSubmissionMetrics registers the submission counter on reg. A nil reg
// keeps the counter private to the service.
func newSubmissionMetrics(reg prometheus.Registerer) *submissionMetrics {
	m := &submissionMetrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "waitlist_submissions_total",
				Help: "Waitlist writes by persistence backend and outcome.",
			},
			[]string{"backend", "outcome"},
		),
	}

	if reg == nil {
		return m
	}

	if err := reg.Register(m.submissions); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				m.submissions = existing
			}
		}
	}

	return m
}

func (m *submissionMetrics) observe(backend, outcome string) {
	m.submissions.WithLabelValues(backend, outcome).Inc()
}
