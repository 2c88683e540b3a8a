package querytree

import (
	"fmt"
	"slices"
)

// Result is the validation state of an attribute, a node or the tree.
type Result struct {
	Valid  bool
	Errors []string

	// Pending is set until a remote validator has produced its first result.
	Pending bool

	// Resolved carries metadata found while validating. Validators never
	// write it anywhere; owners that need it read it from the result.
	Resolved *Resolution
}

// Resolution is metadata resolved by a successful remote check.
type Resolution struct {
	EntityName    string
	EntitySetName string
}

// Valid returns a passing result.
func Valid() Result {
	return Result{Valid: true}
}

// Invalid returns a failing result with the given messages.
func Invalid(errs ...string) Result {
	return Result{Valid: false, Errors: errs}
}

func pending() Result {
	return Result{Valid: false, Pending: true}
}

// validationError converts an unexpected failure inside a validator.
func validationError(reason any) Result {
	return Invalid(fmt.Sprintf("Validation error: %v", reason))
}

// Equal reports whether two results are indistinguishable to subscribers.
func (r Result) Equal(o Result) bool {
	if r.Valid != o.Valid || r.Pending != o.Pending || !slices.Equal(r.Errors, o.Errors) {
		return false
	}
	switch {
	case r.Resolved == nil && o.Resolved == nil:
		return true
	case r.Resolved == nil || o.Resolved == nil:
		return false
	default:
		return *r.Resolved == *o.Resolved
	}
}

func resultEqual(a, b Result) bool {
	return a.Equal(b)
}

// Merge combines results in order: valid iff every result is valid, errors
// concatenated, pending if any is pending, first resolution wins.
func Merge(results []Result) Result {
	out := Result{Valid: true}
	for _, r := range results {
		if !r.Valid {
			out.Valid = false
		}
		if r.Pending {
			out.Pending = true
		}
		out.Errors = append(out.Errors, r.Errors...)
		if out.Resolved == nil && r.Resolved != nil {
			out.Resolved = r.Resolved
		}
	}
	return out
}
