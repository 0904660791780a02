package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Request errors
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeDuplicate    ErrorCode = "DUPLICATE_ENTRY"

	// Risk calculation errors
	ErrCodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"
	ErrCodeDecomposition    ErrorCode = "DECOMPOSITION_ERROR"

	// System errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeTimeout  ErrorCode = "TIMEOUT"
)

// RiskError is the standardized application error.
type RiskError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Err        error                  `json:"-"`
}

func (e *RiskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *RiskError) Unwrap() error {
	return e.Err
}

// Is matches errors by code.
func (e *RiskError) Is(target error) bool {
	t, ok := target.(*RiskError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new RiskError
func New(code ErrorCode, message string) *RiskError {
	return &RiskError{
		Code:       code,
		Message:    message,
		StatusCode: httpStatusFor(code),
	}
}

// Newf creates a new RiskError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *RiskError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with a RiskError
func Wrap(err error, code ErrorCode, message string) *RiskError {
	return &RiskError{
		Code:       code,
		Message:    message,
		StatusCode: httpStatusFor(code),
		Err:        err,
	}
}

// WithDetail adds a detail to the error
func (e *RiskError) WithDetail(key string, value interface{}) *RiskError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func httpStatusFor(code ErrorCode) int {
	switch code {
	case ErrCodeValidation, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeDuplicate:
		return http.StatusConflict
	case ErrCodeInsufficientData, ErrCodeDecomposition:
		return http.StatusUnprocessableEntity
	case ErrCodeTimeout:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Common constructors

func NotFound(message string) *RiskError {
	return New(ErrCodeNotFound, message)
}

func NotFoundf(format string, args ...interface{}) *RiskError {
	return Newf(ErrCodeNotFound, format, args...)
}

func Validation(message string) *RiskError {
	return New(ErrCodeValidation, message)
}

func Validationf(format string, args ...interface{}) *RiskError {
	return Newf(ErrCodeValidation, format, args...)
}

// InsufficientData reports too little price history; got/want describe the
// observed and required series lengths.
func InsufficientData(got, want int) *RiskError {
	return Newf(ErrCodeInsufficientData,
		"insufficient historical data: need %d observations, got %d", want, got).
		WithDetail("observations", got).
		WithDetail("required", want).
		WithDetail("shortfall", want-got)
}

func Decomposition(message string) *RiskError {
	return New(ErrCodeDecomposition, message)
}

func Timeout(message string) *RiskError {
	return New(ErrCodeTimeout, message)
}

func Internal(message string) *RiskError {
	return New(ErrCodeInternal, message)
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal for plain errors.
func CodeOf(err error) ErrorCode {
	var re *RiskError
	if errors.As(err, &re) {
		return re.Code
	}
	return ErrCodeInternal
}

// StatusOf extracts the HTTP status from err, defaulting to 500.
func StatusOf(err error) int {
	var re *RiskError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return http.StatusInternalServerError
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var re *RiskError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
