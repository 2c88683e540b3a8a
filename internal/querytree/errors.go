package querytree

import (
	"errors"
	"fmt"
)

// TreeErrorCode categorizes rejected tree operations.
type TreeErrorCode string

const (
	// ErrCodeUnknownNode indicates an element name the tree does not model.
	ErrCodeUnknownNode TreeErrorCode = "E200"

	// ErrCodeInvalidParent indicates the node cannot be nested there.
	ErrCodeInvalidParent TreeErrorCode = "E201"

	// ErrCodeNotInTree indicates a node that was removed or belongs to another tree.
	ErrCodeNotInTree TreeErrorCode = "E202"

	// ErrCodeNotCondition indicates a condition-only operation on another kind.
	ErrCodeNotCondition TreeErrorCode = "E203"

	// ErrCodeNotMultiValue indicates a multi-value operation on a condition
	// whose operator takes a single value.
	ErrCodeNotMultiValue TreeErrorCode = "E204"

	// ErrCodeMultiValue indicates a single value written to a condition
	// whose operator keeps its values in value elements.
	ErrCodeMultiValue TreeErrorCode = "E205"
)

// TreeError is returned by Service operations the tree cannot perform.
// Validation failures are never reported as TreeError.
type TreeError struct {
	Code    TreeErrorCode
	Message string
	Node    NodeName // node kind involved, if any
}

// Error implements the error interface.
func (e *TreeError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.Node)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func newTreeError(code TreeErrorCode, node NodeName, format string, args ...any) *TreeError {
	return &TreeError{Code: code, Message: fmt.Sprintf(format, args...), Node: node}
}

// HasCode reports whether err is, or wraps, a TreeError with code.
func HasCode(err error, code TreeErrorCode) bool {
	var te *TreeError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}
