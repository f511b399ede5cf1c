package models

import "errors"

// Custom errors
var (
	ErrUnknownSessionKind  = errors.New("unknown session kind")
	ErrNotFound            = errors.New("record not found")
	ErrEmptyClassification = errors.New("session has no classification")
	ErrInvalidRound        = errors.New("round number must be positive")
)

// ValidationError describes a domain record that failed validation.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Code + ": " + e.Message
}

// NewValidationError creates a validation error with a stable code.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// Errors
var (
	ErrInvalidFeatureRow    = NewValidationError("invalid_feature_row", "feature row is missing driver or round")
	ErrInvalidPrediction    = NewValidationError("invalid_prediction", "prediction record is missing driver")
	ErrInvalidSessionResult = NewValidationError("invalid_session_result", "session result is missing driver or constructor")
)
