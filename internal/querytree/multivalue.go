package querytree

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SplitLiterals parses a comma-separated multi-value string: literals are
// trimmed and NFC-normalized, empty entries dropped and duplicates removed
// keeping the first occurrence.
func SplitLiterals(input string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(input, ",") {
		lit := norm.NFC.String(strings.TrimSpace(part))
		if lit == "" || seen[lit] {
			continue
		}
		seen[lit] = true
		out = append(out, lit)
	}
	return out
}

// JoinLiterals renders literals as a multi-value string.
func JoinLiterals(literals []string) string {
	return strings.Join(literals, ", ")
}

// MultiValueSynchronizer keeps a multi-valued condition's Value children
// and its comma-separated string form in step.
type MultiValueSynchronizer struct {
	svc *Service
}

// NodesToString renders the condition's Value children in order.
func (m *MultiValueSynchronizer) NodesToString(cond *Node) (string, error) {
	if err := m.svc.checkCondition(cond); err != nil {
		return "", err
	}
	var literals []string
	for _, v := range cond.ChildrenNamed(NodeValue) {
		literals = append(literals, v.Value(AttrInnerText))
	}
	return JoinLiterals(literals), nil
}

// StringToNodes replaces the condition's Value children with one child per
// literal of input. The condition's operator must be multi-valued.
func (m *MultiValueSynchronizer) StringToNodes(cond *Node, input string) ([]*Node, error) {
	if err := m.svc.checkCondition(cond); err != nil {
		return nil, err
	}
	if op := cond.Value(AttrOperator); !IsMultiValueOperator(op) {
		return nil, newTreeError(ErrCodeNotMultiValue, NodeCondition, "operator '%s' does not take multiple values", op)
	}

	var created []*Node
	err := m.svc.tree.mutate(func() error {
		m.svc.removeValueNodes(cond)
		for _, lit := range SplitLiterals(input) {
			v, err := m.svc.newValueNode(cond, lit, ModeEdit)
			if err != nil {
				return err
			}
			created = append(created, v)
		}
		return nil
	})
	return created, err
}
