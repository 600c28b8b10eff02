package model

import "fmt"

// ViolationError is returned when data does not conform to its declared
// schema. Validation stops at the first violation.
type ViolationError struct {
	Field   string
	Message string
}

func (e *ViolationError) Error() string {
	return e.Message
}

// MisuseError reports an invalid schema definition. It is a programming
// error: exported field constructors panic with it, the YAML loader returns it.
type MisuseError struct {
	Message string
}

func (e *MisuseError) Error() string {
	return "model misuse: " + e.Message
}

func violationf(field, format string, args ...any) error {
	return &ViolationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func misusef(format string, args ...any) *MisuseError {
	return &MisuseError{Message: fmt.Sprintf(format, args...)}
}

// must panics with err when it is non-nil. Used by the exported constructors.
func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
