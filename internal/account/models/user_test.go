package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "govportal/pkg/domain"
	dErrors "govportal/pkg/domain-errors"
)

func TestNewUser(t *testing.T) {
	p := Profile{Email: "jane@example.com", FirstName: "Jane", LastName: "Doe", Phone: "555"}
	u, err := NewUser(id.NewUserID(), p, "hash", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", u.DisplayName())

	_, err = NewUser(id.NewUserID(), Profile{Email: "x@y.z"}, "hash", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewUser(id.NewUserID(), p, "", time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}
