package errors

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_MessageAndCause(t *testing.T) {
	cause := stderrors.New("underlying failure")
	err := NewExternalError("github-graphql", "request failed").WithCause(cause)

	assert.Contains(t, err.Error(), "request failed")
	assert.Contains(t, err.Error(), "underlying failure")
	assert.ErrorIs(t, err, cause)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewValidationError("bad input").
		WithContext("field", "endpoint").
		WithContext("status_code", 400)

	assert.Equal(t, "endpoint", err.Context["field"])
	assert.Equal(t, 400, err.Context["status_code"])
}

func TestAsAppError(t *testing.T) {
	appErr, ok := AsAppError(NewUnauthorizedError("no token"))
	require.True(t, ok)
	assert.Equal(t, ErrorTypeUnauthorized, appErr.Type)

	_, ok = AsAppError(stderrors.New("plain"))
	assert.False(t, ok)

	assert.True(t, IsAppError(NewUnauthorizedError("no token")))
	assert.False(t, IsAppError(stderrors.New("plain")))
}

func TestWrapError(t *testing.T) {
	cause := stderrors.New("boom")
	err := WrapError(cause, "pipeline failed")

	assert.Equal(t, ErrorTypeInternal, err.Type)
	assert.ErrorIs(t, err, cause)
}
