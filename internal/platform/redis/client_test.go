package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govportal/internal/platform/config"
)

func TestNewWithoutURL(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{URL: "  "})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestOptions(t *testing.T) {
	t.Run("applies configured pool settings", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{
			URL:          "redis://:secret@cache.internal:6380/2",
			PoolSize:     20,
			MinIdleConns: 4,
			DialTimeout:  time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		require.NoError(t, err)
		assert.Equal(t, "cache.internal:6380", opts.Addr)
		assert.Equal(t, 2, opts.DB)
		assert.Equal(t, "secret", opts.Password)
		assert.Equal(t, 20, opts.PoolSize)
		assert.Equal(t, 4, opts.MinIdleConns)
		assert.Equal(t, time.Second, opts.DialTimeout)
		assert.Equal(t, 2*time.Second, opts.ReadTimeout)
		assert.Equal(t, 3*time.Second, opts.WriteTimeout)
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		opts, err := Options(config.RedisConfig{URL: "redis://localhost:6379"})
		require.NoError(t, err)
		assert.Zero(t, opts.PoolSize)
		assert.Zero(t, opts.DialTimeout)
	})

	t.Run("rejects a malformed url", func(t *testing.T) {
		_, err := Options(config.RedisConfig{URL: "http://localhost"})
		assert.Error(t, err)
	})
}

func TestNewUnreachable(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{
		URL:         "redis://127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	assert.ErrorContains(t, err, "unreachable")
}
