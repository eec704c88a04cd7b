package errors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	pkgerrors "github.com/meridianlabs/boardsync/pkg/errors"
)

func TestNotFoundError(t *testing.T) {
	err := pkgerrors.NewNotFoundError("board", "200")
	assert.Equal(t, "board with ID 200 not found", err.Error())
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestAPIErrorStatusMapping(t *testing.T) {
	t.Run("429 is rate limited", func(t *testing.T) {
		err := pkgerrors.NewAPIError("/v2", 429, "Too Many Requests")
		assert.True(t, pkgerrors.IsRateLimited(err))
		assert.False(t, pkgerrors.IsUnavailable(err))
	})

	t.Run("5xx is unavailable", func(t *testing.T) {
		err := pkgerrors.NewAPIError("/v2", 503, "Service Unavailable")
		assert.True(t, pkgerrors.IsUnavailable(err))
		assert.False(t, pkgerrors.IsRateLimited(err))
	})

	t.Run("4xx is neither", func(t *testing.T) {
		err := pkgerrors.NewAPIError("/v2", 400, "Bad Request")
		assert.False(t, pkgerrors.IsRateLimited(err))
		assert.False(t, pkgerrors.IsUnavailable(err))
	})

	t.Run("unwraps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &pkgerrors.APIError{Endpoint: "/v2", Message: "request failed", Err: cause}
		assert.ErrorIs(t, err, cause)
	})
}

func TestWriteError(t *testing.T) {
	cause := errors.New("rejected")

	t.Run("field level", func(t *testing.T) {
		err := pkgerrors.NewWriteError("200", "4242", "t_email", cause)
		assert.Contains(t, err.Error(), "column t_email")
		assert.ErrorIs(t, err, cause)
	})

	t.Run("record level", func(t *testing.T) {
		err := pkgerrors.NewWriteError("200", "4242", "", cause)
		assert.NotContains(t, err.Error(), "column")
	})

	t.Run("wrap helper passes nil through", func(t *testing.T) {
		assert.NoError(t, pkgerrors.WrapWrite("200", "4242", "c", nil))
	})
}

func TestValidationError(t *testing.T) {
	err := &pkgerrors.ValidationError{Field: "index", Message: "duplicate index is required"}
	assert.True(t, errors.Is(err, pkgerrors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "index")
}

func TestWrapHelpers(t *testing.T) {
	assert.NoError(t, pkgerrors.WrapIO("read", "mapping.yaml", nil))
	assert.NoError(t, pkgerrors.WrapParse("yaml", "mapping.yaml", nil))

	cause := errors.New("no such file")
	err := pkgerrors.WrapIO("read", "mapping.yaml", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "mapping.yaml")
}
