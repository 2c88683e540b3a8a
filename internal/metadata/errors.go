package metadata

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the requested entity or attribute does not
// exist in the provider's metadata.
var ErrNotFound = errors.New("metadata: not found")

// LookupError wraps a failed provider call with the operation and key.
type LookupError struct {
	Op  string // "entities", "attributes", "options", "relationships"
	Key string
	Err error
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("list %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("list %s for %q: %v", e.Op, e.Key, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
