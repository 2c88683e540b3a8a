package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/fetchq/internal/querytree"
)

// AssertionContext gives assertions access to the settled service.
type AssertionContext struct {
	Service *querytree.Service
	Result  *Result
}

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // assertion type for categorization
	Node     string // node path, if the assertion targets one
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s", e.Type)
	if e.Node != "" {
		fmt.Fprintf(&buf, " (%s)", e.Node)
	}
	fmt.Fprintf(&buf, "\n  Expected: %s\n  Actual: %s", e.Expected, e.Actual)
	return buf.String()
}

// EvaluateAssertions runs all assertions and returns their failure
// messages.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(a, actx); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(a Assertion, actx *AssertionContext) error {
	tree := actx.Service.Tree()

	var node *querytree.Node
	if a.Node != "" {
		n, err := tree.Resolve(a.Node)
		if err != nil {
			return &AssertionError{Type: a.Type, Node: a.Node, Expected: "node exists", Actual: err.Error()}
		}
		node = n
	}

	result := tree.Result()
	if node != nil {
		result = node.Result()
	}

	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Node: a.Node, Expected: expected, Actual: actual}
	}

	switch a.Type {
	case AssertValid:
		if !result.Valid {
			return fail("valid", fmt.Sprintf("invalid: %v", result.Errors))
		}
	case AssertInvalid:
		if result.Valid {
			return fail("invalid", "valid")
		}
	case AssertErrorContains:
		if !slices.Contains(result.Errors, a.Message) {
			return fail(fmt.Sprintf("error %q", a.Message), fmt.Sprintf("%v", result.Errors))
		}
	case AssertErrorCount:
		if len(result.Errors) != a.Count {
			return fail(fmt.Sprintf("%d errors", a.Count), fmt.Sprintf("%d errors: %v", len(result.Errors), result.Errors))
		}
	case AssertNodeCount:
		count := 0
		for n := range tree.All() {
			if a.Kind == "" || string(n.Name()) == a.Kind {
				count++
			}
		}
		if count != a.Count {
			return fail(fmt.Sprintf("%d nodes", a.Count), fmt.Sprintf("%d nodes", count))
		}
	case AssertLabel:
		if got := node.DisplayName(); got != a.Value {
			return fail(fmt.Sprintf("%q", a.Value), fmt.Sprintf("%q", got))
		}
	case AssertMultiValue:
		got, err := actx.Service.MultiValueString(node)
		if err != nil {
			return fail(fmt.Sprintf("%q", a.Value), err.Error())
		}
		if got != a.Value {
			return fail(fmt.Sprintf("%q", a.Value), fmt.Sprintf("%q", got))
		}
	case AssertDocument:
		want := strings.TrimSpace(a.Document)
		got := strings.TrimSpace(actx.Result.Document)
		if got != want {
			return fail(want, got)
		}
	}
	return nil
}
