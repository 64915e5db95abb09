package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *ServiceError
		status int
		code   ErrorCode
	}{
		{"validation", Validation("bad"), http.StatusBadRequest, CodeValidation},
		{"conflict", Conflict("dup"), http.StatusConflict, CodeConflict},
		{"unauthorized", Unauthorized(""), http.StatusUnauthorized, CodeUnauthorized},
		{"invalid token", InvalidToken(nil), http.StatusUnauthorized, CodeInvalidToken},
		{"not found", NotFound("gone"), http.StatusNotFound, CodeNotFound},
		{"corruption", DataCorruption("bad data", nil), http.StatusInternalServerError, CodeDataCorruption},
		{"internal", Internal("boom", nil), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestGetServiceErrorUnwraps(t *testing.T) {
	cause := stderrors.New("disk full")
	wrapped := fmt.Errorf("save: %w", Internal("An error occurred", cause))

	serviceErr := GetServiceError(wrapped)
	require.NotNil(t, serviceErr)
	assert.Equal(t, CodeInternal, serviceErr.Code)
	assert.True(t, stderrors.Is(wrapped, cause))
	assert.True(t, HasCode(wrapped, CodeInternal))
	assert.False(t, HasCode(wrapped, CodeNotFound))
}

func TestGetServiceErrorPlainError(t *testing.T) {
	assert.Nil(t, GetServiceError(stderrors.New("plain")))
}

func TestWithDetails(t *testing.T) {
	err := InvalidToken(nil).WithDetails("method", "none")
	assert.Equal(t, "none", err.Details["method"])
}
