package dto

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// Error codes returned to API clients. Domain codes are mapped onto these
// by NormalizeErrorCode.
const (
	ErrCodeInternal            = "ERR_INTERNAL"
	ErrCodeBadRequest          = "ERR_BAD_REQUEST"
	ErrCodeValidation          = "ERR_VALIDATION"
	ErrCodeInvalidInput        = "ERR_INVALID_INPUT"
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "ERR_INVALID_STATE"
	ErrCodeIdentifierExhausted = "ERR_IDENTIFIER_EXHAUSTED"
	ErrCodePassInProgress      = "ERR_PASS_IN_PROGRESS"
)

var errorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidState:        http.StatusConflict,
	// the registry ran out of retries; the caller may try again later
	ErrCodeIdentifierExhausted: http.StatusServiceUnavailable,
	ErrCodePassInProgress:      http.StatusConflict,
}

var domainErrorCodes = map[string]string{
	"NOT_FOUND":             ErrCodeNotFound,
	"ALREADY_EXISTS":        ErrCodeAlreadyExists,
	"DUPLICATE_IDENTIFIER":  ErrCodeAlreadyExists,
	"DUPLICATE_REVENUE_KEY": ErrCodeAlreadyExists,
	"INVALID_INPUT":         ErrCodeInvalidInput,
	"INVALID_PREFIX":        ErrCodeInvalidInput,
	"INVALID_DATE_RANGE":    ErrCodeInvalidInput,
	"INVALID_STATE":         ErrCodeInvalidState,
	"INVALID_TRANSITION":    ErrCodeInvalidState,
	"CONCURRENCY_CONFLICT":  ErrCodeConcurrencyConflict,
	"IDENTIFIER_EXHAUSTED":  ErrCodeIdentifierExhausted,
	"PASS_IN_PROGRESS":      ErrCodePassInProgress,
}

// GetHTTPStatus returns the status for an API error code, 500 when unknown
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode maps a domain error code to its API code. Unknown codes
// pass through unchanged.
func NormalizeErrorCode(code string) string {
	if c, ok := domainErrorCodes[code]; ok {
		return c
	}
	return code
}

// ValidationDetail is one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationDetails flattens validator errors. It returns nil for anything
// else, such as malformed JSON.
func ValidationDetails(err error) []ValidationDetail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make([]ValidationDetail, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, ValidationDetail{
			Field:   fe.Field(),
			Rule:    fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return details
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "min":
		return fe.Field() + " must be at least " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "uuid":
		return fe.Field() + " must be a UUID"
	case "alpha", "uppercase":
		return fe.Field() + " must contain uppercase letters only"
	}
	return fe.Field() + " failed " + fe.Tag() + " validation"
}
