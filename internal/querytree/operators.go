package querytree

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/fetchq/internal/metadata"
)

// Arity is how many values a condition operator takes.
type Arity int

const (
	ArityNone  Arity = iota // null, today, eq-userid
	ArityOne                // eq, like, on
	ArityMulti              // in, not-in: one Value child per literal
	ArityPair               // between: exactly two Value children
	ArityCount              // last-x-days: one non-negative integer
)

type opFamily int

const (
	famAny opFamily = iota
	famOrdered
	famText
	famDate
	famUser
	famHierarchy
	famMultiSelect
	famFiscal
)

// Operator describes one condition operator.
type Operator struct {
	Name  string
	Arity Arity
	fam   opFamily
}

var operators = func() map[string]Operator {
	m := make(map[string]Operator)
	add := func(fam opFamily, arity Arity, names ...string) {
		for _, n := range names {
			m[n] = Operator{Name: n, Arity: arity, fam: fam}
		}
	}
	add(famAny, ArityOne, "eq", "ne", "neq")
	add(famAny, ArityNone, "null", "not-null")
	add(famAny, ArityMulti, "in", "not-in")
	add(famOrdered, ArityOne, "gt", "ge", "lt", "le")
	add(famOrdered, ArityPair, "between", "not-between")
	add(famText, ArityOne, "like", "not-like", "begins-with", "not-begin-with", "ends-with", "not-end-with")
	add(famDate, ArityNone,
		"yesterday", "today", "tomorrow", "last-seven-days", "next-seven-days",
		"last-week", "this-week", "next-week", "last-month", "this-month", "next-month",
		"last-year", "this-year", "next-year", "this-fiscal-year", "this-fiscal-period",
		"next-fiscal-year", "next-fiscal-period", "last-fiscal-year", "last-fiscal-period")
	add(famDate, ArityOne, "on", "on-or-before", "on-or-after", "not-on")
	add(famDate, ArityCount,
		"last-x-hours", "next-x-hours", "last-x-days", "next-x-days",
		"last-x-weeks", "next-x-weeks", "last-x-months", "next-x-months",
		"last-x-years", "next-x-years", "olderthan-x-minutes", "olderthan-x-hours",
		"olderthan-x-days", "olderthan-x-weeks", "olderthan-x-months", "olderthan-x-years",
		"last-x-fiscal-years", "last-x-fiscal-periods", "next-x-fiscal-years", "next-x-fiscal-periods")
	add(famFiscal, ArityCount, "in-fiscal-year", "in-fiscal-period")
	add(famUser, ArityNone,
		"eq-userid", "ne-userid", "eq-userteams", "eq-useroruserteams",
		"eq-useroruserhierarchy", "eq-useroruserhierarchyandteams",
		"eq-businessid", "ne-businessid")
	add(famHierarchy, ArityOne, "above", "under", "eq-or-above", "eq-or-under", "not-under")
	add(famMultiSelect, ArityMulti, "contain-values", "not-contain-values")
	return m
}()

// LookupOperator returns the operator named op.
func LookupOperator(op string) (Operator, bool) {
	o, ok := operators[op]
	return o, ok
}

// OperatorNames returns every known operator name, sorted.
func OperatorNames() []string {
	names := make([]string, 0, len(operators))
	for n := range operators {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// IsMultiValueOperator reports whether op keeps its values in Value children.
func IsMultiValueOperator(op string) bool {
	o, ok := operators[op]
	return ok && (o.Arity == ArityMulti || o.Arity == ArityPair)
}

// AppliesTo reports whether the operator may be used on attributes of type t.
func (o Operator) AppliesTo(t metadata.AttributeType) bool {
	switch o.fam {
	case famAny:
		return true
	case famOrdered:
		return isNumeric(t) || t == metadata.TypeDateTime || isText(t)
	case famText:
		return isText(t)
	case famDate, famFiscal:
		return t == metadata.TypeDateTime
	case famUser:
		return isReference(t)
	case famHierarchy:
		return isReference(t)
	case famMultiSelect:
		return t == metadata.TypeMultiSelectPicklist
	}
	return false
}

func isNumeric(t metadata.AttributeType) bool {
	switch t {
	case metadata.TypeInteger, metadata.TypeBigInt, metadata.TypeDecimal, metadata.TypeDouble, metadata.TypeMoney:
		return true
	}
	return false
}

func isText(t metadata.AttributeType) bool {
	return t == metadata.TypeString || t == metadata.TypeMemo || t == metadata.TypeEntityName
}

func isReference(t metadata.AttributeType) bool {
	switch t {
	case metadata.TypeLookup, metadata.TypeCustomer, metadata.TypeOwner, metadata.TypeUniqueIdentifier:
		return true
	}
	return false
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// countProblem validates the value of a count operator such as last-x-days
// and returns a message, or "" when the value is acceptable.
func countProblem(op, v string) string {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return fmt.Sprintf("Operator '%s' requires a non-negative whole number, got '%s'", op, v)
	}
	return ""
}

// literalProblem validates the lexical form of v for an attribute of type t.
// Option-set membership is checked separately against metadata.
func literalProblem(attr string, t metadata.AttributeType, v string) string {
	v = strings.TrimSpace(v)
	switch t {
	case metadata.TypeInteger, metadata.TypePicklist, metadata.TypeState, metadata.TypeStatus, metadata.TypeMultiSelectPicklist:
		if _, err := strconv.ParseInt(v, 10, 32); err != nil {
			return fmt.Sprintf("Value '%s' is not a valid whole number for '%s'", v, attr)
		}
	case metadata.TypeBigInt:
		if _, err := strconv.ParseInt(v, 10, 64); err != nil {
			return fmt.Sprintf("Value '%s' is not a valid whole number for '%s'", v, attr)
		}
	case metadata.TypeDecimal, metadata.TypeDouble, metadata.TypeMoney:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Sprintf("Value '%s' is not a valid number for '%s'", v, attr)
		}
	case metadata.TypeBoolean:
		switch strings.ToLower(v) {
		case "0", "1", "true", "false":
		default:
			return fmt.Sprintf("Value '%s' is not a valid boolean for '%s'", v, attr)
		}
	case metadata.TypeDateTime:
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, v); err == nil {
				return ""
			}
		}
		return fmt.Sprintf("Value '%s' is not a valid date for '%s'", v, attr)
	case metadata.TypeLookup, metadata.TypeCustomer, metadata.TypeOwner, metadata.TypeUniqueIdentifier:
		if err := uuid.Validate(strings.Trim(v, "{}")); err != nil {
			return fmt.Sprintf("Value '%s' is not a valid GUID for '%s'", v, attr)
		}
	}
	return ""
}

// optionValue returns the option-set code of a boolean or option literal.
func optionValue(t metadata.AttributeType, v string) (int, bool) {
	v = strings.TrimSpace(v)
	if t == metadata.TypeBoolean {
		switch strings.ToLower(v) {
		case "true":
			return 1, true
		case "false":
			return 0, true
		}
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}
