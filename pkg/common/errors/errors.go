package errors

import (
	"errors"
	"fmt"
)

// Common error types used across the mapflow library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidInput indicates that a pipeline input cannot be enumerated as keyed pairs
	ErrInvalidInput = errors.New("invalid input")

	// ErrTaskFailed indicates that a pool task returned an error or panicked
	ErrTaskFailed = errors.New("task failed")

	// ErrCallbackFailed indicates that a result callback returned an error or panicked
	ErrCallbackFailed = errors.New("callback failed")

	// ErrCacheMiss is returned by memo caches when a key has no stored value
	ErrCacheMiss = errors.New("cache miss")
)

// ValidationError describes a single invalid configuration value.
type ValidationError struct {
	Module string
	Field  string
	Value  interface{}
	Reason string
	Hint   string
}

// NewValidationError creates a ValidationError for module.field.
func NewValidationError(module, field string, value interface{}, reason string) *ValidationError {
	return &ValidationError{
		Module: module,
		Field:  field,
		Value:  value,
		Reason: reason,
	}
}

// WithHint attaches a remediation hint and returns the same error for chaining.
func (e *ValidationError) WithHint(hint string) *ValidationError {
	e.Hint = hint
	return e
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("%s: invalid %s=%v (%s)", e.Module, e.Field, e.Value, e.Reason)
	if e.Hint != "" {
		msg += " - " + e.Hint
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// ConfigurationError reports a structurally unusable definition, such as a
// processor that defines neither a map nor a reduce stage.
type ConfigurationError struct {
	Module string
	Reason string
}

// NewConfigurationError creates a ConfigurationError.
func NewConfigurationError(module, reason string) *ConfigurationError {
	return &ConfigurationError{Module: module, Reason: reason}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %s", e.Module, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}

// InvalidInputError reports a value that cannot be enumerated as (key, value) pairs.
type InvalidInputError struct {
	Module string
	Type   string
	Reason string
}

// NewInvalidInputError creates an InvalidInputError for a value of the given Go type.
func NewInvalidInputError(module string, value interface{}, reason string) *InvalidInputError {
	return &InvalidInputError{
		Module: module,
		Type:   fmt.Sprintf("%T", value),
		Reason: reason,
	}
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: invalid input of type %s: %s", e.Module, e.Type, e.Reason)
}

func (e *InvalidInputError) Unwrap() error {
	return ErrInvalidInput
}

// TaskError wraps the failure of a single pool task.
type TaskError struct {
	Pool     string
	Task     string
	Cause    error
	Panicked bool
}

func (e *TaskError) Error() string {
	kind := "failed"
	if e.Panicked {
		kind = "panicked"
	}
	if e.Task == "" {
		return fmt.Sprintf("%s: task %s: %v", e.Pool, kind, e.Cause)
	}
	return fmt.Sprintf("%s: task %s %s: %v", e.Pool, e.Task, kind, e.Cause)
}

func (e *TaskError) Unwrap() error {
	return e.Cause
}

// Is reports ErrTaskFailed as a match in addition to the wrapped cause.
func (e *TaskError) Is(target error) bool {
	return target == ErrTaskFailed
}

// CallbackError wraps the failure of a result callback.
type CallbackError struct {
	Pool     string
	Task     string
	Cause    error
	Panicked bool
}

func (e *CallbackError) Error() string {
	kind := "failed"
	if e.Panicked {
		kind = "panicked"
	}
	return fmt.Sprintf("%s: callback for task %s %s: %v", e.Pool, e.Task, kind, e.Cause)
}

func (e *CallbackError) Unwrap() error {
	return e.Cause
}

// Is reports ErrCallbackFailed as a match in addition to the wrapped cause.
func (e *CallbackError) Is(target error) bool {
	return target == ErrCallbackFailed
}

// StageError reports that a pipeline stage (preprocess, reduce or
// postprocess) returned an error and halted the run.
type StageError struct {
	Processor string
	Stage     string
	Cause     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s stage failed: %v", e.Processor, e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// OperationError wraps a failed operation of a module, e.g. a pipeline stage.
type OperationError struct {
	Module    string
	Operation string
	Cause     error
	Context   string
}

// NewOperationError creates an OperationError.
func NewOperationError(module, operation string, cause error) *OperationError {
	return &OperationError{
		Module:    module,
		Operation: operation,
		Cause:     cause,
	}
}

// WithContext attaches extra context and returns the same error for chaining.
func (e *OperationError) WithContext(context string) *OperationError {
	e.Context = context
	return e
}

func (e *OperationError) Error() string {
	msg := fmt.Sprintf("%s.%s failed: %v", e.Module, e.Operation, e.Cause)
	if e.Context != "" {
		msg += " (" + e.Context + ")"
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsConfigurationError reports whether err is a fatal configuration problem,
// either a ConfigurationError or a ValidationError.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration)
}

// IsRecoverable returns true for per-task failures that the pool isolates
// instead of propagating to the caller
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrTaskFailed) || errors.Is(err, ErrCallbackFailed)
}
