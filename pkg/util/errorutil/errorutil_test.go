package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	wrapped := fmt.Errorf("closing: %w", NewStateError("Ticket is already closed.", nil))
	de := ToDomainError(wrapped)
	assert.Equal(t, CodeInvalidState, de.Code)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)

	de = ToDomainError(errors.New("boom"))
	assert.Equal(t, CodeInternal, de.Code)
	assert.Equal(t, "internal server error", de.Message)
	assert.Equal(t, http.StatusInternalServerError, de.HTTPStatus)

	de = ToDomainError(fiber.ErrNotFound)
	assert.Equal(t, CodeNotFound, de.Code)
	assert.Equal(t, http.StatusNotFound, de.HTTPStatus)
}

func TestHasCode(t *testing.T) {
	assert.True(t, HasCode(NewEmailNotVerified(), CodeEmailNotVerified))
	assert.False(t, HasCode(NewInvalidCredentials(), CodeEmailNotVerified))
	assert.False(t, HasCode(errors.New("plain"), CodeInternal))
}

func TestNewFieldError(t *testing.T) {
	de := ToDomainError(NewFieldError("email", "A user with that email already exists."))
	assert.Equal(t, CodeValidation, de.Code)
	assert.Equal(t, "A user with that email already exists.", de.Details["email"])
}

func TestDomainErrorUnwrap(t *testing.T) {
	cause := errors.New("smtp down")
	err := NewInternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "smtp down")
}
