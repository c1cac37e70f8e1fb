package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindsMatchWithErrorsIs(t *testing.T) {
	assert.ErrorIs(t, Validation("Please fill in all fields"), ErrValidation)
	assert.ErrorIs(t, NotFound("spot not found"), ErrNotFound)
	assert.ErrorIs(t, Conflict("spot B3 is not available"), ErrConflict)
	assert.NotErrorIs(t, Conflict("x"), ErrValidation)
}

func TestBackendPassesMessageThrough(t *testing.T) {
	cause := errors.New("dial tcp 10.0.0.1:3306: connection refused")
	err := Backend(cause)

	assert.ErrorIs(t, err, ErrBackend)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause.Error(), err.Error())
}

func TestBackendKeepsClassifiedErrors(t *testing.T) {
	conflict := Conflict("taken")
	wrapped := fmt.Errorf("reserve: %w", conflict)

	assert.Same(t, wrapped, Backend(wrapped))
	assert.NotErrorIs(t, Backend(wrapped), ErrBackend)
	assert.Nil(t, Backend(nil))
}
