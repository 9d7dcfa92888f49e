package dto

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusConflict},
		{ErrCodePassInProgress, http.StatusConflict},
		{ErrCodeIdentifierExhausted, http.StatusServiceUnavailable},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotFound, NormalizeErrorCode("NOT_FOUND"))
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_PREFIX"))
	assert.Equal(t, ErrCodeInvalidState, NormalizeErrorCode("INVALID_TRANSITION"))
	assert.Equal(t, ErrCodeIdentifierExhausted, NormalizeErrorCode("IDENTIFIER_EXHAUSTED"))
	assert.Equal(t, ErrCodePassInProgress, NormalizeErrorCode("PASS_IN_PROGRESS"))
	assert.Equal(t, "ERR_CUSTOM", NormalizeErrorCode("ERR_CUSTOM"))
}

func TestValidationDetails(t *testing.T) {
	req := IssueIdentifierRequest{EntityType: "garage", Prefix: ""}

	details := ValidationDetails(binding.Validator.ValidateStruct(&req))
	require.Len(t, details, 2)
	assert.Equal(t, "EntityType", details[0].Field)
	assert.Equal(t, "oneof", details[0].Rule)
	assert.Contains(t, details[0].Message, "listing")
	assert.Equal(t, "required", details[1].Rule)

	assert.Nil(t, ValidationDetails(assert.AnError))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(ErrCodeNotFound, "Lease not found", "req-1")
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}
