package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the account module.
type Metrics struct {
	UsersCreated  prometheus.Counter
	LoginsTotal   *prometheus.CounterVec
	LoginDuration prometheus.Histogram
}

// New creates a new Metrics instance with all account metrics registered.
func New() *Metrics {
	return &Metrics{
		UsersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "portal_users_created_total",
			Help: "Total number of accounts registered",
		}),
		LoginsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "portal_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		LoginDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "portal_login_duration_seconds",
			Help:    "Duration of login operations including password verification",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2},
		}),
	}
}

// IncrementUsersCreated records a successful registration.
func (m *Metrics) IncrementUsersCreated() {
	if m == nil {
		return
	}
	m.UsersCreated.Inc()
}

// ObserveLogin records a login outcome and its duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveLogin(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.LoginsTotal.WithLabelValues(outcome).Inc()
	m.LoginDuration.Observe(time.Since(start).Seconds())
}
