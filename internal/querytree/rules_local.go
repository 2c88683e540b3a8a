package querytree

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// shape checks one value in isolation and returns a message, or "" when the
// value is acceptable. Empty values are always acceptable to a shape; use
// required for presence.
type shape func(attr, v string) string

func booleanShape(attr, v string) string {
	switch strings.ToLower(v) {
	case "", "true", "false", "1", "0":
		return ""
	}
	return fmt.Sprintf("'%s' must be true or false", attr)
}

func wholeNumberShape(min, max int) shape {
	return func(attr, v string) string {
		if v == "" {
			return ""
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Sprintf("'%s' must be a whole number", attr)
		}
		if n < min || max > 0 && n > max {
			if max > 0 {
				return fmt.Sprintf("'%s' must be between %d and %d", attr, min, max)
			}
			return fmt.Sprintf("'%s' must be at least %d", attr, min)
		}
		return ""
	}
}

func oneOfShape(allowed ...string) shape {
	return func(attr, v string) string {
		if v == "" || slices.Contains(allowed, v) {
			return ""
		}
		return fmt.Sprintf("'%s' must be one of: %s", attr, strings.Join(allowed, ", "))
	}
}

func operatorShape(attr, v string) string {
	if v == "" {
		return ""
	}
	if _, ok := LookupOperator(v); !ok {
		return fmt.Sprintf("Unknown operator '%s'", v)
	}
	return ""
}

var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func aliasShape(attr, v string) string {
	switch {
	case v == "":
		return ""
	case strings.ContainsAny(v, " \t\r\n"):
		return fmt.Sprintf("'%s' must not contain whitespace", attr)
	case v[0] >= '0' && v[0] <= '9':
		return fmt.Sprintf("'%s' must not start with a digit", attr)
	case !aliasPattern.MatchString(v):
		return fmt.Sprintf("'%s' may only contain letters, digits and underscores", attr)
	}
	return ""
}

func nameShape(attr, v string) string {
	if strings.TrimSpace(v) != v {
		return fmt.Sprintf("'%s' must not have leading or trailing whitespace", attr)
	}
	return ""
}

// shapeRule is the live form of a shape.
func shapeRule(attr string, s shape) Validator {
	return &localRule{
		name:   "shape:" + attr,
		inputs: []input{own},
		check: func(in []string) Result {
			if msg := s(attr, in[0]); msg != "" {
				return Invalid(msg)
			}
			return Valid()
		},
	}
}

// shapeOnce is the one-time form of a shape, used in parse mode.
func shapeOnce(attr string, s shape) OneTimeValidator {
	return onceFunc{
		name: "shape-once:" + attr,
		check: func(v string) Result {
			if msg := s(attr, v); msg != "" {
				return Invalid(msg)
			}
			return Valid()
		},
	}
}

func requiredOnce(attr string) OneTimeValidator {
	return onceFunc{
		name: "required:" + attr,
		check: func(v string) Result {
			if strings.TrimSpace(v) == "" {
				return Invalid(fmt.Sprintf("'%s' must not be empty", attr))
			}
			return Valid()
		},
	}
}

func truthy(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}

// topWithoutPageRule rejects top combined with paging on fetch.
func topWithoutPageRule() Validator {
	return &localRule{
		name:   "top-page",
		inputs: []input{own, sibling(AttrPage)},
		check: func(in []string) Result {
			if in[0] != "" && in[1] != "" {
				return Invalid("'top' cannot be combined with 'page'")
			}
			return Valid()
		},
	}
}

// aggregateQueryRule requires aggregate="true" on fetch for aggregate
// attributes such as aggregate and groupby.
func aggregateQueryRule(attr string) Validator {
	return &localRule{
		name:   "aggregate-query:" + attr,
		inputs: []input{own, rootSlot(AttrAggregate)},
		check: func(in []string) Result {
			if in[0] == "" || strings.EqualFold(in[0], "false") || truthy(in[1]) {
				return Valid()
			}
			return Invalid(fmt.Sprintf("'%s' requires aggregate=\"true\" on fetch", attr))
		},
	}
}

// aggregateAliasRule requires an alias on aggregated attributes.
func aggregateAliasRule() Validator {
	return &localRule{
		name:   "aggregate-alias",
		inputs: []input{own, sibling(AttrAlias)},
		check: func(in []string) Result {
			if in[0] != "" && in[1] == "" {
				return Invalid("Aggregate attribute requires an alias")
			}
			return Valid()
		},
	}
}

// dateGroupingRule requires groupby="true" next to dategrouping.
func dateGroupingRule() Validator {
	return &localRule{
		name:   "dategrouping",
		inputs: []input{own, sibling(AttrGroupBy)},
		check: func(in []string) Result {
			if in[0] != "" && !truthy(in[1]) {
				return Invalid("'dategrouping' requires groupby=\"true\"")
			}
			return Valid()
		},
	}
}

// entityNameRefRule checks that a condition's entityname names a
// link-entity in the query.
func entityNameRefRule() Validator {
	return &localRule{
		name:   "entityname-ref",
		inputs: []input{own, scopeEntity},
		check: func(in []string) Result {
			if in[0] != "" && in[1] == "" {
				return Invalid(fmt.Sprintf("No link-entity with alias or name '%s'", in[0]))
			}
			return Valid()
		},
	}
}

// countValue decides values of count operators, which never need metadata.
func countValue(op Operator, v string) (Result, bool) {
	if op.Arity != ArityCount {
		return Result{}, false
	}
	if msg := countProblem(op.Name, v); msg != "" {
		return Invalid(msg), true
	}
	return Valid(), true
}
