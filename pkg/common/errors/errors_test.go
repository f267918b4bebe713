package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrTaskFailed", ErrTaskFailed, "task failed"},
		{"ErrCallbackFailed", ErrCallbackFailed, "callback failed"},
		{"ErrCacheMiss", ErrCacheMiss, "cache miss"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "workerpool",
				Field:  "worker_count",
				Value:  -1,
				Reason: "cannot be negative",
			},
			want: "workerpool: invalid worker_count=-1 (cannot be negative)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "throttle",
				Field:  "burst",
				Value:  0,
				Reason: "must be positive",
				Hint:   "use a value greater than 0",
			},
			want: "throttle: invalid burst=0 (must be positive) - use a value greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_WithHint(t *testing.T) {
	err := NewValidationError("test", "field", 0, "invalid").
		WithHint("try using a positive value")

	if err.Hint != "try using a positive value" {
		t.Errorf("Hint = %q, want %q", err.Hint, "try using a positive value")
	}
	if result := err.WithHint("new hint"); result != err {
		t.Error("WithHint should return the same instance")
	}
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError("mapreduce", "processor defines neither map nor reduce")

	want := "mapreduce: invalid configuration: processor defines neither map nor reduce"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrInvalidConfiguration) {
		t.Error("ConfigurationError should wrap ErrInvalidConfiguration")
	}
	if !IsConfigurationError(err) {
		t.Error("IsConfigurationError should report true")
	}
}

func TestInvalidInputError(t *testing.T) {
	err := NewInvalidInputError("collection", 42, "not a keyed collection")

	if err.Type != "int" {
		t.Errorf("Type = %q, want int", err.Type)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("InvalidInputError should wrap ErrInvalidInput")
	}
	if IsConfigurationError(err) {
		t.Error("input errors are not configuration errors")
	}
}

func TestTaskError(t *testing.T) {
	cause := errors.New("connection reset")

	tests := []struct {
		name string
		err  *TaskError
		want string
	}{
		{"unnamed", &TaskError{Pool: "p", Cause: cause}, "p: task failed: connection reset"},
		{"named", &TaskError{Pool: "p", Task: "key=3", Cause: cause}, "p: task key=3 failed: connection reset"},
		{"panicked", &TaskError{Pool: "p", Task: "key=3", Cause: cause, Panicked: true}, "p: task key=3 panicked: connection reset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if !errors.Is(tt.err, ErrTaskFailed) {
				t.Error("TaskError should match ErrTaskFailed")
			}
			if !errors.Is(tt.err, cause) {
				t.Error("TaskError should wrap its cause")
			}
			if !IsRecoverable(tt.err) {
				t.Error("task failures are recoverable")
			}
		})
	}
}

func TestCallbackError(t *testing.T) {
	cause := errors.New("boom")
	err := &CallbackError{Pool: "p", Task: "key=a", Cause: cause}

	if !errors.Is(err, ErrCallbackFailed) {
		t.Error("CallbackError should match ErrCallbackFailed")
	}
	if errors.Is(err, ErrTaskFailed) {
		t.Error("CallbackError must not match ErrTaskFailed")
	}
	if !strings.Contains(err.Error(), "key=a") {
		t.Errorf("message should name the task, got %q", err.Error())
	}
}

func TestOperationError(t *testing.T) {
	cause := errors.New("bad row")
	err := NewOperationError("mapreduce", "reduce", cause).WithContext("run 1")

	want := "mapreduce.reduce failed: bad row (run 1)"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("OperationError should wrap the cause error")
	}
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", NewValidationError("m", "f", 0, "r"), true},
		{"wrapped validation error", &OperationError{Cause: NewValidationError("m", "f", 0, "r")}, true},
		{"configuration error", NewConfigurationError("m", "r"), false},
		{"standard error", errors.New("test"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.want {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("division by zero")
	err := &StageError{Processor: "stats", Stage: "reduce", Cause: cause}

	want := "stats: reduce stage failed: division by zero"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Error("StageError should wrap the cause error")
	}
}
