package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL keeps revoked token IDs in process. Expired entries are pruned
// lazily on write.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

// InMemoryTRLOption configures an InMemoryTRL.
type InMemoryTRLOption func(*InMemoryTRL)

// WithClock sets the clock function for testability.
func WithClock(clock Clock) InMemoryTRLOption {
	return func(t *InMemoryTRL) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewInMemoryTRL(opts ...InMemoryTRLOption) *InMemoryTRL {
	t := &InMemoryTRL{revoked: make(map[string]time.Time), clock: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for k, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	exp, ok := t.revoked[jti]
	return ok && t.clock().Before(exp), nil
}
