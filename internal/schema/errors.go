package schema

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField   = errors.New("unknown field")
	ErrWrongFieldKind = errors.New("wrong field kind")
	ErrNotStored      = errors.New("field is not stored")
	ErrMissingValue   = errors.New("missing field value")
	ErrBadValue       = errors.New("unexpected field value")
)

// FieldError describes a failed field access.
type FieldError struct {
	Op   string
	Name string
	Err  error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("schema: %s %s: %v", e.Op, e.Name, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

func fieldErr(op string, f PostField, err error) error {
	return &FieldError{Op: op, Name: f.String(), Err: err}
}
