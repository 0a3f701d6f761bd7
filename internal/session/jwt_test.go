package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
)

var (
	userID = id.NewUserID()
	email  = "jane@example.com"
)

func newService(ttl time.Duration) *JWTService {
	return NewJWTService("test-signing-key", "test-issuer", ttl)
}

func Test_Issue(t *testing.T) {
	svc := newService(time.Hour)
	issued, err := svc.Issue(userID, email)
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.JTI)

	claims, err := svc.ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, email, claims.Email)
	assert.Equal(t, issued.JTI, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := newService(time.Hour).ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	svc := newService(-time.Hour)
	issued, err := svc.Issue(userID, email)
	require.NoError(t, err)

	_, err = svc.ValidateToken(issued.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	issued, err := newService(time.Hour).Issue(userID, email)
	require.NoError(t, err)

	other := NewJWTService("another-key", "test-issuer", time.Hour)
	_, err = other.ValidateToken(issued.Token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_WrongIssuer(t *testing.T) {
	issued, err := newService(time.Hour).Issue(userID, email)
	require.NoError(t, err)

	other := NewJWTService("test-signing-key", "someone-else", time.Hour)
	_, err = other.ValidateToken(issued.Token)
	require.Error(t, err)
}

func Test_Adapter(t *testing.T) {
	svc := newService(time.Hour)
	issued, err := svc.Issue(userID, email)
	require.NoError(t, err)

	claims, err := NewJWTServiceAdapter(svc).ValidateToken(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, issued.JTI, claims.JTI)
}

func Test_Cookies(t *testing.T) {
	svc := newService(7 * 24 * time.Hour)
	issued, err := svc.Issue(userID, email)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	Cookies{}.Set(rec, issued, svc.TTL())
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "session", c.Name)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, 7*24*60*60, c.MaxAge)

	rec = httptest.NewRecorder()
	Cookies{Secure: true}.Clear(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, -1, cleared[0].MaxAge)
	assert.True(t, cleared[0].Secure)
}
