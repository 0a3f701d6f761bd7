package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("direct error", func(t *testing.T) {
		err := New(CodeNotFound, "no draft found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("wrapped by fmt", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeConflict, "application is not a draft"))
		assert.True(t, HasCode(err, CodeConflict))
		assert.Equal(t, CodeConflict, CodeOf(err))
	})

	t.Run("plain error defaults to internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestWrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(cause, CodeInternal, "failed to save draft")
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeInternal))
	assert.Nil(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestErrorIsComparesCodeAndMessage(t *testing.T) {
	err := New(CodeUnauthorized, "invalid token")
	assert.ErrorIs(t, err, New(CodeUnauthorized, "invalid token"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
}

func TestWithFieldsCopiesSlice(t *testing.T) {
	fields := []string{"phone"}
	err := WithFields(CodeValidation, "missing required fields", fields)
	fields[0] = "email"
	assert.Equal(t, []string{"phone"}, err.Fields)
}
