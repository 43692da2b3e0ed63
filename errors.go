package arbor

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoSuchEntity is returned when no entity was found for a given key.
	ErrNoSuchEntity = errors.New("arbor: no such entity")
	// ErrConcurrentTransaction is returned when a transaction is rolled back
	// because another writer committed a conflicting change first.
	ErrConcurrentTransaction = errors.New("arbor: concurrent transaction")
	// ErrInvalidKey is returned when an invalid key is presented.
	ErrInvalidKey = errors.New("arbor: invalid key")
)

// MultiError is returned by batch operations when there are errors with
// particular elements. Errors will be in a one-to-one correspondence with
// the input elements; successful elements will have a nil entry.
type MultiError []error

func (m MultiError) Error() string {
	s, n := "", 0
	for _, e := range m {
		if e != nil {
			if n == 0 {
				s = e.Error()
			}
			n++
		}
	}
	switch n {
	case 0:
		return "(0 errors)"
	case 1:
		return s
	case 2:
		return s + " (and 1 other error)"
	}
	return fmt.Sprintf("%s (and %d other errors)", s, n-1)
}

// UniqueConstraintError reports that one or more unique property values are
// already held by another entity of the same kind. It is an expected,
// recoverable outcome of insert and update; callers should detect it with
// errors.As and retry with different values if appropriate.
type UniqueConstraintError struct {
	Kind       string
	Properties []string
}

func (e *UniqueConstraintError) Error() string {
	return fmt.Sprintf("arbor: unique constraint violated on %s [%s]",
		e.Kind, strings.Join(e.Properties, ", "))
}

// IsUniqueConstraint reports whether err (or an error it wraps) is a
// *UniqueConstraintError.
func IsUniqueConstraint(err error) bool {
	var uce *UniqueConstraintError
	return errors.As(err, &uce)
}
