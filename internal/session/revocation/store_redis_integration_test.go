//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"govportal/internal/session/revocation"
	"govportal/pkg/testutil/containers"
)

type RedisTRLSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	trl   *revocation.RedisTRL
}

func TestRedisTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTRLSuite))
}

func (s *RedisTRLSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.trl = revocation.NewRedisTRL(s.redis.Client)
}

func (s *RedisTRLSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisTRLSuite) TestRevokeSetsTTL() {
	ctx := context.Background()
	s.Require().NoError(s.trl.RevokeToken(ctx, "jti-1", time.Minute))

	revoked, err := s.trl.IsTokenRevoked(ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)

	ttl, err := s.redis.Client.TTL(ctx, "trl:jti:jti-1").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, time.Minute)
}

func (s *RedisTRLSuite) TestUnknownTokenNotRevoked() {
	revoked, err := s.trl.IsTokenRevoked(context.Background(), "missing")
	s.Require().NoError(err)
	s.False(revoked)
}
