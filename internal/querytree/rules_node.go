package querytree

import (
	"fmt"
	"strings"

	"github.com/roach88/fetchq/internal/reactive"
)

// allowedNamesOnce rejects imported attributes the node kind does not model.
func allowedNamesOnce() NodeOneTimeValidator {
	return nodeOnceFunc{
		name: "allowed-names",
		check: func(n *Node) Result {
			var errs []string
			for _, a := range n.attrs {
				if !a.desc.IsValidName {
					errs = append(errs, fmt.Sprintf("Attribute '%s' is not allowed on '%s'", a.Name(), n.name))
				}
			}
			if len(errs) > 0 {
				return Invalid(errs...)
			}
			return Valid()
		},
	}
}

// requiredAttributesOnce rejects imported nodes missing required attributes.
func requiredAttributesOnce(names ...string) NodeOneTimeValidator {
	return nodeOnceFunc{
		name: "required-attributes",
		check: func(n *Node) Result {
			var errs []string
			for _, name := range names {
				if _, ok := n.Attribute(name); !ok {
					errs = append(errs, fmt.Sprintf("'%s' requires attribute '%s'", n.name, name))
				}
			}
			if len(errs) > 0 {
				return Invalid(errs...)
			}
			return Valid()
		},
	}
}

func kidsOnly(n *Node) []reactive.Observable[string] {
	return []reactive.Observable[string]{n.Kids()}
}

func countKids(sig string, name NodeName) int {
	count := 0
	for _, k := range strings.Split(sig, ",") {
		if k == string(name) {
			count++
		}
	}
	return count
}

// filterContentRule requires every filter to hold a condition or a filter.
func filterContentRule() NodeValidator {
	return &nodeRule{
		name:   "filter-content",
		inputs: kidsOnly,
		check: func(_ *Node, in []string) Result {
			if countKids(in[0], NodeCondition)+countKids(in[0], NodeFilter) == 0 {
				return Invalid("Filter must contain at least one condition or filter")
			}
			return Valid()
		},
	}
}

// conditionArityRule checks that a condition carries as many values as its
// operator takes: in is operator, value, valueof, child kinds.
func conditionArityRule() NodeValidator {
	return &nodeRule{
		name: "condition-arity",
		inputs: func(n *Node) []reactive.Observable[string] {
			return []reactive.Observable[string]{
				n.Slot(AttrOperator), n.Slot(AttrValue), n.Slot(AttrValueOf), n.Kids(),
			}
		},
		check: func(_ *Node, in []string) Result {
			op, ok := LookupOperator(in[0])
			if !ok {
				return Valid()
			}
			values := countKids(in[3], NodeValue)
			switch op.Arity {
			case ArityNone:
				if in[1] != "" || values > 0 {
					return Invalid(fmt.Sprintf("Operator '%s' does not take a value", op.Name))
				}
			case ArityOne, ArityCount:
				if values > 0 {
					return Invalid(fmt.Sprintf("Operator '%s' does not take value elements", op.Name))
				}
				if in[1] == "" && in[2] == "" {
					return Invalid(fmt.Sprintf("Operator '%s' requires a value", op.Name))
				}
			case ArityMulti:
				if values == 0 {
					return Invalid(fmt.Sprintf("Operator '%s' requires at least one value", op.Name))
				}
			case ArityPair:
				if values != 2 {
					return Invalid(fmt.Sprintf("Operator '%s' requires exactly two values", op.Name))
				}
			}
			return Valid()
		},
	}
}
