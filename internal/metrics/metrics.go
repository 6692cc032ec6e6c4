// Package metrics exposes Prometheus collectors for scored submissions.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/soaringjerry/BariCheck/internal/services"
)

// Recorder counts submissions by global color. It implements
// services.SubmissionObserver.
type Recorder struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	escalations prometheus.Counter
	percentage  prometheus.Histogram
}

// NewRecorder registers the collectors on a private registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "baricheck_submissions_total",
			Help: "Scored questionnaire submissions by global color.",
		}, []string{"global_color"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "baricheck_escalations_total",
			Help: "Submissions where a critical question evaluated red.",
		}),
		percentage: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "baricheck_score_percentage",
			Help:    "Normalised score percentage of submissions.",
			Buckets: []float64{10, 20, 34, 50, 67, 80, 90, 100},
		}),
	}
	r.registry.MustRegister(r.submissions, r.escalations, r.percentage)
	r.registry.MustRegister(collectors.NewGoCollector())
	return r
}

// ObserveSubmission records one stored submission.
func (r *Recorder) ObserveSubmission(s *services.Submission) {
	sum := s.Report.Summary
	r.submissions.WithLabelValues(string(sum.GlobalColor)).Inc()
	if sum.Escalated {
		r.escalations.Inc()
	}
	r.percentage.Observe(sum.Percentage)
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry is exposed for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

var _ services.SubmissionObserver = (*Recorder)(nil)
