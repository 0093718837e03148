package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput,
		ErrUnauthorized, ErrExpired, ErrInternal,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "db connection lost")

	bare := &AppError{Code: "NOT_FOUND", Message: "user not found"}
	assert.Equal(t, "NOT_FOUND: user not found", bare.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("user", "ab"))
	assert.True(t, errors.Is(err, ErrNotFound))
}

// --- Constructors ---

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("channel", "ab"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"conflict", AlreadyExists("user", "userName", "ab"), "ALREADY_EXISTS", http.StatusBadRequest, ErrAlreadyExists},
		{"invalid", InvalidInput("fullName is required"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("missing credential"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"expired", Expired("refresh token is expired or used"), "TOKEN_EXPIRED", http.StatusUnauthorized, ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("pq: relation users does not exist")
	err := Internal(cause)
	assert.Equal(t, "an internal error occurred", err.Message)
	assert.True(t, errors.Is(err, cause))
}

func TestInvalidInput_Details(t *testing.T) {
	err := InvalidInput("validation failed", "email is required", "fullName is required")
	assert.Len(t, err.Details, 2)
}

// --- HTTPStatus ---

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("x: %w", ErrNotFound)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ErrAlreadyExists))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(ErrExpired))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("no")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "get channel")
	assert.Equal(t, "get channel: resource not found", err.Error())
	assert.True(t, errors.Is(err, ErrNotFound))
}
