// Package ratelimit throttles login attempts per email and client IP.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"govportal/internal/ratelimit/metrics"
	"govportal/internal/ratelimit/models"
	dErrors "govportal/pkg/domain-errors"
)

// BucketStore counts requests per key within a window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
	Reset(ctx context.Context, key string) error
}

// LoginLimiter admits at most limit login attempts per window for each
// email and IP pair, and at most emailLimit per email across all IPs.
// A successful login clears both counters.
type LoginLimiter struct {
	store      BucketStore
	limit      int
	emailLimit int
	window     time.Duration
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*LoginLimiter)

// WithEmailLimit caps attempts per email regardless of client IP. Zero
// disables the email-wide bucket.
func WithEmailLimit(n int) Option {
	return func(l *LoginLimiter) {
		if n >= 0 {
			l.emailLimit = n
		}
	}
}

func NewLoginLimiter(store BucketStore, limit int, window time.Duration, logger *slog.Logger, m *metrics.Metrics, opts ...Option) *LoginLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	l := &LoginLimiter{store: store, limit: limit, window: window, logger: logger, metrics: m}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records an attempt and returns a rate_limited error once the pair or
// the email is over its limit. Backend failures fail open.
func (l *LoginLimiter) Check(ctx context.Context, email, clientIP string) error {
	allowed := l.allow(ctx, models.LoginKey(email, clientIP), l.limit)
	if l.emailLimit > 0 {
		// Always counted, even when the pair is already over its limit.
		allowed = l.allow(ctx, models.LoginEmailKey(email), l.emailLimit) && allowed
	}
	if !allowed {
		l.metrics.IncrementLimited()
		return dErrors.New(dErrors.CodeRateLimited, "too many login attempts, try again later")
	}
	return nil
}

func (l *LoginLimiter) allow(ctx context.Context, key string, limit int) bool {
	result, err := l.store.Allow(ctx, key, limit, l.window)
	if err != nil {
		l.metrics.IncrementErrors()
		l.logger.WarnContext(ctx, "login rate limiter unavailable", "error", err)
		return true
	}
	return result.Allowed
}

// Reset clears the pair and the email counter after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, email, clientIP string) {
	keys := []string{models.LoginKey(email, clientIP)}
	if l.emailLimit > 0 {
		keys = append(keys, models.LoginEmailKey(email))
	}
	for _, key := range keys {
		if err := l.store.Reset(ctx, key); err != nil {
			l.logger.WarnContext(ctx, "failed to reset login rate limit", "error", err)
		}
	}
}
