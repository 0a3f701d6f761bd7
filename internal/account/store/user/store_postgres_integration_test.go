//go:build integration

package user_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"govportal/internal/account/models"
	"govportal/internal/account/store/user"
	id "govportal/pkg/domain"
	"govportal/pkg/platform/sentinel"
	"govportal/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *user.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func newTestUser(email string) *models.User {
	city := "Springfield"
	return &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		PasswordHash: "hash",
		FirstName:    "Jane",
		LastName:     "Doe",
		Phone:        "555-0100",
		City:         &city,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := newTestUser("jane@example.com")
	s.Require().NoError(s.store.CreateIfEmailAvailable(ctx, u))

	got, err := s.store.FindByEmail(ctx, u.Email)
	s.Require().NoError(err)
	s.Equal(u.ID, got.ID)
	s.Require().NotNil(got.City)
	s.Equal("Springfield", *got.City)
	s.Nil(got.Address)
}

func (s *PostgresStoreSuite) TestConcurrentUniqueEmailViolation() {
	ctx := context.Background()
	var wg sync.WaitGroup
	var success, conflict atomic.Int32
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.CreateIfEmailAvailable(ctx, newTestUser("race@example.com"))
			switch {
			case err == nil:
				success.Add(1)
			case err == sentinel.ErrAlreadyUsed:
				conflict.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), success.Load())
	s.Equal(int32(19), conflict.Load())
}

func (s *PostgresStoreSuite) TestFindMissing() {
	_, err := s.store.FindByID(context.Background(), id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}
