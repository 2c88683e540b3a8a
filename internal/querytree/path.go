package querytree

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolve finds the node addressed by path. A path lists element names from
// the root, each optionally indexed among same-named siblings:
// /fetch/entity/filter[1]/condition.
func (t *Tree) Resolve(path string) (*Node, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if path == "" || len(segments) == 0 {
		return nil, fmt.Errorf("empty node path")
	}

	var n *Node
	for i, seg := range segments {
		name, index, err := parseSegment(seg)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", path, err)
		}

		var candidates []*Node
		if i == 0 {
			if root := t.Root(); root != nil && root.Name() == name {
				candidates = []*Node{root}
			}
		} else {
			candidates = n.ChildrenNamed(name)
		}
		if index >= len(candidates) {
			return nil, fmt.Errorf("path %q: no node at %q", path, seg)
		}
		n = candidates[index]
	}
	return n, nil
}

func parseSegment(seg string) (NodeName, int, error) {
	raw, index := seg, 0
	if open := strings.IndexByte(seg, '['); open >= 0 {
		if !strings.HasSuffix(seg, "]") {
			return "", 0, fmt.Errorf("malformed segment %q", seg)
		}
		i, err := strconv.Atoi(seg[open+1 : len(seg)-1])
		if err != nil || i < 0 {
			return "", 0, fmt.Errorf("malformed index in %q", seg)
		}
		raw, index = seg[:open], i
	}
	name, ok := ParseNodeName(raw)
	if !ok {
		return "", 0, fmt.Errorf("unknown element %q", raw)
	}
	return name, index, nil
}

// Path renders the path that Tree.Resolve maps back to n. The index of the
// first same-named sibling is omitted.
func (n *Node) Path() string {
	var segments []string
	for c := n; c != nil; c = c.Parent() {
		seg := string(c.Name())
		if p := c.Parent(); p != nil {
			for i, sib := range p.ChildrenNamed(c.Name()) {
				if sib == c && i > 0 {
					seg += "[" + strconv.Itoa(i) + "]"
				}
			}
		}
		segments = append(segments, seg)
	}
	var sb strings.Builder
	for i := len(segments) - 1; i >= 0; i-- {
		sb.WriteString("/" + segments[i])
	}
	return sb.String()
}
