package oracle

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidPayload marks an empty body or a missing required field.
	ErrInvalidPayload = errors.New("invalid payload")
	// ErrMalformedField marks a present field that does not parse to the expected type.
	ErrMalformedField = errors.New("malformed field")
	// ErrEngineRejected marks a failure reported by the engine itself.
	ErrEngineRejected = errors.New("engine rejected")
	// ErrEngineBusy is returned when the engine wait queue is full or the wait timed out.
	ErrEngineBusy = errors.New("engine busy")
)

// FieldError names the request field that failed to parse.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("malformed field %s", e.Field)
	}
	return fmt.Sprintf("malformed field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func (e *FieldError) Is(target error) bool { return target == ErrMalformedField }

// EngineError carries the engine operation that failed and its reason.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string {
	return "engine rejected: " + e.Reason()
}

// Reason is the underlying engine failure prefixed with the failing operation.
func (e *EngineError) Reason() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *EngineError) Unwrap() error { return e.Err }

func (e *EngineError) Is(target error) bool { return target == ErrEngineRejected }

func missingField(field string) error {
	return fmt.Errorf("%w: missing %s", ErrInvalidPayload, field)
}
