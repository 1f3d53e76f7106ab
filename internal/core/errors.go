// internal/core/errors.go
package core

import (
	"errors"
	"fmt"
)

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Data errors
	ErrSymbolNotFound   = &Error{Code: "SYMBOL_NOT_FOUND", Message: "symbol not found"}
	ErrNoData           = &Error{Code: "NO_DATA", Message: "no data available"}
	ErrInsufficientData = &Error{Code: "INSUFFICIENT_DATA", Message: "insufficient history for analysis"}

	// Provider errors
	ErrProviderFailed  = &Error{Code: "PROVIDER_FAILED", Message: "data provider failed"}
	ErrProviderTimeout = &Error{Code: "PROVIDER_TIMEOUT", Message: "data provider timeout"}

	// Scoring errors
	ErrScoringFailed = &Error{Code: "SCORING_FAILED", Message: "scoring failed"}
	ErrVetoed        = &Error{Code: "VETOED", Message: "ticker vetoed by hard rules"}

	// Backtest / optimization errors
	ErrNoPeriods      = &Error{Code: "NO_PERIODS", Message: "date range too short for any walk-forward period"}
	ErrNoCombinations = &Error{Code: "NO_COMBINATIONS", Message: "no valid weight combinations in search space"}

	// Statistics errors
	ErrInsufficientSample = &Error{Code: "INSUFFICIENT_SAMPLE", Message: "insufficient sample for statistical test"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)

// weight validation causes
var (
	errNegativeWeight = errors.New("category weights must be non-negative")
	errWeightSum      = errors.New("category weights must sum to 1.0 within tolerance")
)
