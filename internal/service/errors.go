package service

import (
	"database/sql"
	"errors"
	"fmt"
)

// ValidationError marks a request that is semantically invalid: wrong
// quantities, unknown products, mismatched counts, illegal status
// transitions. It always aborts the enclosing transaction.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

// Validationf builds a ValidationError.
func Validationf(format string, args ...interface{}) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err means the referenced record does not
// exist or is not visible to the caller. The store wraps sql.ErrNoRows
// into its lookup errors.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
