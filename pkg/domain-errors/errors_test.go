package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches the outer code", func(t *testing.T) {
		err := New(CodeNotFound, "missing")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("matches a code nested under another coded error", func(t *testing.T) {
		inner := New(CodeInvariantViolation, "bad state")
		outer := Wrap(inner, CodeInternal, "failed")
		assert.True(t, HasCode(outer, CodeInternal))
		assert.True(t, HasCode(outer, CodeInvariantViolation))
	})

	t.Run("sees through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("context: %w", New(CodeUnauthorized, "nope"))
		assert.True(t, HasCode(err, CodeUnauthorized))
		assert.Equal(t, CodeUnauthorized, CodeOf(err))
	})

	t.Run("uncoded errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("plain"), CodeInternal))
		assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(cause, CodeInternal, "write failed")
	require.ErrorIs(t, err, cause)
	assert.Equal(t, "write failed: disk full", err.Error())
}

func TestIsMatchesCodeAndMessage(t *testing.T) {
	err := fmt.Errorf("login: %w", New(CodeUnauthorized, "invalid signature"))
	require.ErrorIs(t, err, New(CodeUnauthorized, "invalid signature"))
	assert.NotErrorIs(t, err, New(CodeUnauthorized, "token has expired"))
	assert.NotErrorIs(t, err, New(CodeForbidden, "invalid signature"))
}
