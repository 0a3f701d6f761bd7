package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	LoginAttemptsLimited prometheus.Counter
	LimiterErrors        prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		LoginAttemptsLimited: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_ratelimit_login_limited_total",
			Help: "Total number of login attempts rejected by the rate limiter",
		}),
		LimiterErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_ratelimit_errors_total",
			Help: "Total number of limiter backend failures (requests fail open)",
		}),
	}
}

func (m *Metrics) IncrementLimited() {
	if m == nil {
		return
	}
	m.LoginAttemptsLimited.Inc()
}

func (m *Metrics) IncrementErrors() {
	if m == nil {
		return
	}
	m.LimiterErrors.Inc()
}
