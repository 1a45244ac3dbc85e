package errors

import "fmt"

// ErrorCategory classifies simulation errors by the subsystem that raised them.
type ErrorCategory string

const (
	// Fatal categories: the run cannot continue.
	ErrorCategoryCapital ErrorCategory = "CAPITAL"
	ErrorCategoryConfig  ErrorCategory = "CONFIG"

	// Recoverable categories: the engine records the failure and moves on.
	ErrorCategoryData  ErrorCategory = "DATA"
	ErrorCategoryStats ErrorCategory = "STATS"
)

// SimError is a categorized error with component and operation context.
type SimError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *SimError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s in %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s in %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *SimError) Unwrap() error {
	return e.Underlying
}

// IsFatal reports whether this error should abort the whole run rather than
// skip the current day.
func (e *SimError) IsFatal() bool {
	return e.Category == ErrorCategoryCapital || e.Category == ErrorCategoryConfig
}

// NewSimError creates a new categorized simulation error
func NewSimError(category ErrorCategory, component, operation, message string) *SimError {
	return &SimError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with simulation error context
func WrapError(err error, category ErrorCategory, component, operation string) *SimError {
	if err == nil {
		return nil
	}

	return &SimError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *SimError) WithContext(key string, value interface{}) *SimError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Common error constructors

// NewDataError reports missing or malformed market data for a day or session.
func NewDataError(component, operation string, err error) *SimError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

// NewCapitalError reports a non-recoverable capital state such as a
// non-positive balance. Always fatal.
func NewCapitalError(component, operation, message string) *SimError {
	return NewSimError(ErrorCategoryCapital, component, operation, message)
}

// NewConfigError reports an invalid configuration value. Always fatal.
func NewConfigError(component, operation, message string) *SimError {
	return NewSimError(ErrorCategoryConfig, component, operation, message)
}

// NewStatsError reports a statistical computation that could not produce a
// meaningful value (degenerate inputs, empty series).
func NewStatsError(component, operation, message string) *SimError {
	return NewSimError(ErrorCategoryStats, component, operation, message)
}
