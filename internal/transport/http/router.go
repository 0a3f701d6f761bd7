package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"govportal/internal/platform/metrics"
	dErrors "govportal/pkg/domain-errors"
	"govportal/pkg/platform/httputil"
	"govportal/pkg/platform/middleware/metadata"
	"govportal/pkg/platform/middleware/request"
	"govportal/pkg/platform/middleware/requesttime"
)

// Module mounts its routes on the shared router.
type Module interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

type Config struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	RequestTimeout time.Duration
	HealthChecks   map[string]HealthCheck
	ExposeMetrics  bool
	// TrustedProxies may set the client IP through X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

// NewRouter builds the middleware chain shared by every module and mounts
// the operational endpoints.
func NewRouter(cfg Config, modules ...Module) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(metadata.ClientMetadata(cfg.TrustedProxies))
	r.Use(requesttime.Middleware)
	r.Use(cfg.Metrics.Middleware)
	if cfg.RequestTimeout > 0 {
		r.Use(request.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	if cfg.ExposeMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}
	for _, m := range modules {
		if m != nil {
			m.Register(r)
		}
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Error: "method_not_allowed"})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for name, check := range checks {
			if resp.Checks == nil {
				resp.Checks = make(map[string]string, len(checks))
			}
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
