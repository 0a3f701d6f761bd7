package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for drafts and submissions.
type Metrics struct {
	DraftsCreated      prometheus.Counter
	DraftSaves         *prometheus.CounterVec
	SubmissionsTotal   *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		DraftsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_application_drafts_created_total",
			Help: "Draft applications created on first save",
		}),
		DraftSaves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_application_draft_saves_total",
			Help: "Draft step saves by step key",
		}, []string{"step"}),
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_application_submissions_total",
			Help: "Submission attempts by outcome",
		}, []string{"outcome"}),
		SubmissionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_application_submission_duration_seconds",
			Help:    "Duration of the submission transaction",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementDraftsCreated() {
	if m == nil {
		return
	}
	m.DraftsCreated.Inc()
}

func (m *Metrics) IncrementDraftSaves(step string) {
	if m == nil {
		return
	}
	m.DraftSaves.WithLabelValues(step).Inc()
}

// ObserveSubmission records an outcome and the time since start.
func (m *Metrics) ObserveSubmission(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
	m.SubmissionDuration.Observe(time.Since(start).Seconds())
}
