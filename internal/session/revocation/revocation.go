// Package revocation tracks logged-out session tokens until they expire.
package revocation

import (
	"context"
	"fmt"
	"time"

	"govportal/pkg/platform/sentinel"
)

// List records revoked token IDs.
type List interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// Clock returns the current time.
type Clock func() time.Time

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}
