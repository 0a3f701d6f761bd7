package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "govportal/pkg/domain"
)

func TestAccessorsDefaultToZero(t *testing.T) {
	ctx := context.Background()
	assert.True(t, UserID(ctx).IsNil())
	assert.Empty(t, Email(ctx))
	assert.Empty(t, TokenID(ctx))
	assert.Empty(t, RequestID(ctx))
	assert.Empty(t, ClientIP(ctx))
	assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
}

func TestAccessorsRoundTrip(t *testing.T) {
	userID := id.NewUserID()
	fixed := time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC)

	ctx := WithUserID(context.Background(), userID)
	ctx = WithEmail(ctx, "j@x.com")
	ctx = WithTokenID(ctx, "jti-1")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithClientMetadata(ctx, "203.0.113.9", "curl/8")
	ctx = WithTime(ctx, fixed)

	assert.Equal(t, userID, UserID(ctx))
	assert.Equal(t, "j@x.com", Email(ctx))
	assert.Equal(t, "jti-1", TokenID(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "203.0.113.9", ClientIP(ctx))
	assert.Equal(t, "curl/8", UserAgent(ctx))
	assert.Equal(t, fixed, Now(ctx))
}
