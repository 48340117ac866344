package db

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConnection indicates a database handle could not be obtained.
// Fatal to the in-progress operation; callers surface it without retry.
var ErrConnection = errors.New("cannot obtain database connection")

// SchemaError reports that an expected column or table is absent and no
// fallback alias applies.
type SchemaError struct {
	Table      string
	Candidates []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("table %q has none of the expected columns: %s",
		e.Table, strings.Join(e.Candidates, ", "))
}

// ValidationError reports caller-supplied input that violates a
// contract. It is raised before any database write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// RepositoryError wraps a SQL execution failure. The enclosing
// operation has already rolled back its own transaction scope and
// released its connection.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// RepoErr is a convenience constructor used by the postgres layer.
func RepoErr(op string, err error) error {
	return &RepositoryError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
