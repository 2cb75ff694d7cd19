package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies engine errors by how the caller must react
type ErrorCategory string

const (
	// Fatal at startup: an unregistered policy scope or invalid configuration
	ErrorCategoryConfig ErrorCategory = "CONFIG"

	// Bad input data (missing/NaN price or volume); skip the symbol for the cycle
	ErrorCategoryValidation ErrorCategory = "VALIDATION"

	// Durable-write failure on the ledger; recoverable, trading continues
	ErrorCategoryPersistence ErrorCategory = "PERSISTENCE"

	// Upstream price/broker collaborator failure
	ErrorCategoryData ErrorCategory = "DATA"

	// Inconsistent position bookkeeping
	ErrorCategoryPosition ErrorCategory = "POSITION"
)

// EngineError is a categorized error with component and operation context.
// Trade rejections are never EngineErrors; they are decision outcomes with
// reason codes.
type EngineError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// IsFatal returns whether this error should stop the engine before it runs
func (e *EngineError) IsFatal() bool {
	return e.Category == ErrorCategoryConfig
}

// IsRecoverable returns whether the trading loop continues after this error
func (e *EngineError) IsRecoverable() bool {
	return e.Category == ErrorCategoryPersistence || e.Category == ErrorCategoryValidation
}

// New creates a categorized engine error
func New(category ErrorCategory, component, operation, message string) *EngineError {
	return &EngineError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
	}
}

// Wrap wraps an existing error with engine error context
func Wrap(err error, category ErrorCategory, component, operation string) *EngineError {
	if err == nil {
		return nil
	}
	return &EngineError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
	}
}

// NewConfigError reports an unsupported or invalid configuration. Always fatal.
func NewConfigError(component, operation, message string) *EngineError {
	return New(ErrorCategoryConfig, component, operation, message)
}

// NewValidationError reports bad input data for one symbol
func NewValidationError(component, operation, message string) *EngineError {
	return New(ErrorCategoryValidation, component, operation, message)
}

// NewPersistenceError reports a failed durable write
func NewPersistenceError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryPersistence, component, operation)
}

// NewDataError reports a failed collaborator call
func NewDataError(component, operation string, err error) *EngineError {
	return Wrap(err, ErrorCategoryData, component, operation)
}

// CategoryOf extracts the category from any error in the chain,
// or empty string when the error is not an EngineError.
func CategoryOf(err error) ErrorCategory {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return ""
}

// IsCategory reports whether err carries the given category
func IsCategory(err error, category ErrorCategory) bool {
	return CategoryOf(err) == category
}
