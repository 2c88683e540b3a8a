package querytree

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/fetchq/internal/reactive"
)

// NodeID addresses a node in its tree's arena. IDs are never reused.
type NodeID int

const noNode NodeID = -1

// Node is one element of the query document.
//
// Structure (parent, children, document order) is owned by the Tree; a Node
// only holds its own attributes and validation state.
type Node struct {
	id   NodeID
	key  uuid.UUID
	name NodeName
	mode Mode
	tree *Tree

	attrs []*Attribute // kept in descriptor order
	slots map[string]*reactive.Cell[string]
	kids  *reactive.Cell[string]
	scope *reactive.Scope

	entitySet   *reactive.Cell[string]
	entityScope reactive.Observable[string]
	scopeCloser interface{ Close() }

	nodeResults []reactive.Observable[Result]
	result      *reactive.Cell[Result]
	agg         *reactive.Derived[Result]
}

func newNode(t *Tree, id NodeID, name NodeName, mode Mode) *Node {
	n := &Node{
		id:        id,
		key:       uuid.New(),
		name:      name,
		mode:      mode,
		tree:      t,
		slots:     make(map[string]*reactive.Cell[string]),
		kids:      reactive.NewValueCell(""),
		scope:     reactive.NewScope(t.scope),
		entitySet: reactive.NewValueCell(""),
		result:    reactive.NewCell(Valid(), resultEqual),
	}
	n.scope.Track(n.result)
	n.scope.Track(n.entitySet)
	n.scope.Track(n.kids)
	n.scope.OnEnd(func() {
		if n.agg != nil {
			n.agg.Close()
			n.agg = nil
		}
	})
	return n
}

// ID returns the node's arena index.
func (n *Node) ID() NodeID { return n.id }

// Key returns a stable identity for UI collaborators.
func (n *Node) Key() uuid.UUID { return n.key }

// Name returns the node kind.
func (n *Node) Name() NodeName { return n.name }

// Mode returns the mode the node was created in.
func (n *Node) Mode() Mode { return n.mode }

// Tree returns the owning tree.
func (n *Node) Tree() *Tree { return n.tree }

// Removed reports whether the node has been removed from its tree.
func (n *Node) Removed() bool { return !n.tree.contains(n) }

// Parent returns the parent node, or nil for the root.
func (n *Node) Parent() *Node { return n.tree.at(n.tree.parent[n.id]) }

// Next returns the following node in document order.
func (n *Node) Next() *Node { return n.tree.at(n.tree.next[n.id]) }

// Prev returns the preceding node in document order.
func (n *Node) Prev() *Node { return n.tree.at(n.tree.prev[n.id]) }

// Children returns the direct children in order.
func (n *Node) Children() []*Node {
	ids := n.tree.children[n.id]
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, n.tree.nodes[id])
	}
	return out
}

// ChildrenNamed returns the direct children of the given kind.
func (n *Node) ChildrenNamed(name NodeName) []*Node {
	var out []*Node
	for _, c := range n.Children() {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// Level returns the depth of the node; the root is at level 0.
func (n *Node) Level() int {
	level := 0
	for p := n.tree.parent[n.id]; p != noNode; p = n.tree.parent[p] {
		level++
	}
	return level
}

// ParentEntity returns the nearest entity or link-entity ancestor.
func (n *Node) ParentEntity() *Node {
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.name.IsEntityBearing() {
			return p
		}
	}
	return nil
}

// Attributes returns the attributes in descriptor order.
func (n *Node) Attributes() []*Attribute {
	return slices.Clone(n.attrs)
}

// Attribute returns the attribute with the given editor name.
func (n *Node) Attribute(name string) (*Attribute, bool) {
	for _, a := range n.attrs {
		if a.Name() == name {
			return a, true
		}
	}
	return nil, false
}

// Value returns the value of the named attribute, or "" when absent.
func (n *Node) Value(name string) string {
	if a, ok := n.Attribute(name); ok {
		return a.Value()
	}
	return ""
}

// Slot observes the value of the named attribute across its lifetime: it
// follows the attribute while present and holds "" while absent.
func (n *Node) Slot(name string) reactive.Observable[string] {
	return n.slot(name)
}

func (n *Node) slot(name string) *reactive.Cell[string] {
	c, ok := n.slots[name]
	if !ok {
		c = reactive.NewValueCell(n.Value(name))
		n.slots[name] = c
		n.scope.Track(c)
	}
	return c
}

// Kids observes the comma-separated kinds of the direct children.
func (n *Node) Kids() reactive.Observable[string] { return n.kids }

func (n *Node) refreshKids() {
	ids := n.tree.children[n.id]
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, string(n.tree.nodes[id].name))
	}
	n.kids.Set(strings.Join(names, ","))
}

// EntitySetName observes the Web API collection name resolved for an
// entity or link-entity. It is "" until the entity name is confirmed.
func (n *Node) EntitySetName() reactive.Observable[string] { return n.entitySet }

// EntityScope observes the logical name of the entity this node's
// attributes refer to.
//
//   - entity, link-entity: the node's own name
//   - condition: the link-entity named by entityname, else the parent entity
//   - value: the scope of its condition
//   - everything else: the nearest entity ancestor
func (n *Node) EntityScope() reactive.Observable[string] {
	if n.entityScope != nil {
		return n.entityScope
	}

	switch n.name {
	case NodeEntity, NodeLinkEntity:
		n.entityScope = n.Slot(AttrName)
	case NodeCondition:
		var parentName reactive.Observable[string] = constant("")
		if p := n.ParentEntity(); p != nil {
			parentName = p.Slot(AttrName)
		}
		d := reactive.Combine(
			[]reactive.Observable[string]{n.Slot(AttrEntityName), n.tree.aliases, parentName},
			func(in []string) string {
				if in[0] == "" {
					return in[2]
				}
				if link := n.tree.findLinkEntity(in[0]); link != nil {
					return link.Value(AttrName)
				}
				return ""
			},
			func(a, b string) bool { return a == b },
		)
		n.scopeCloser = d
		n.entityScope = d
	case NodeValue:
		if p := n.Parent(); p != nil && p.name == NodeCondition {
			n.entityScope = p.EntityScope()
		} else {
			n.entityScope = constant("")
		}
	default:
		if p := n.ParentEntity(); p != nil {
			n.entityScope = p.Slot(AttrName)
		} else {
			n.entityScope = constant("")
		}
	}
	return n.entityScope
}

// resetEntityScope drops the cached scope after the node moved.
func (n *Node) resetEntityScope() {
	if n.scopeCloser != nil {
		n.scopeCloser.Close()
		n.scopeCloser = nil
	}
	n.entityScope = nil
}

// Result returns the node's combined validation result.
func (n *Node) Result() Result { return n.result.Get() }

// Results observes the node's combined validation result.
func (n *Node) Results() reactive.Observable[Result] { return n.result }

// attach adds a to the node, replacing any attribute with the same name.
func (n *Node) attach(a *Attribute) {
	if old, ok := n.Attribute(a.Name()); ok {
		n.detach(old, false)
	}

	i, _ := slices.BinarySearchFunc(n.attrs, a, func(x, y *Attribute) int {
		switch {
		case x.desc.less(y.desc):
			return -1
		case y.desc.less(x.desc):
			return 1
		}
		return 0
	})
	n.attrs = slices.Insert(n.attrs, i, a)

	slot := n.slot(a.Name())
	a.scope.OnEnd(a.value.Subscribe(slot.Set))

	if n.name.IsEntityBearing() && a.Name() == AttrName {
		a.scope.OnEnd(a.results.Subscribe(func(r Result) {
			if r.Valid && r.Resolved != nil {
				n.entitySet.Set(r.Resolved.EntitySetName)
				return
			}
			n.entitySet.Set("")
		}))
	}

	n.rebuild()
}

// detach tears a down. clear resets the attribute's slot; a replacement
// leaves it for the new attribute to overwrite.
func (n *Node) detach(a *Attribute, clear bool) {
	a.scope.End()
	n.attrs = slices.DeleteFunc(n.attrs, func(x *Attribute) bool { return x == a })
	if clear {
		n.slot(a.Name()).Set("")
		if n.name.IsEntityBearing() && a.Name() == AttrName {
			n.entitySet.Set("")
		}
		n.rebuild()
	}
}

// addNodeResult appends a node-level result stream.
func (n *Node) addNodeResult(r reactive.Observable[Result]) {
	n.nodeResults = append(n.nodeResults, r)
	n.rebuild()
}

// rebuild recombines node-level and attribute results after the attribute
// set changed.
func (n *Node) rebuild() {
	if n.scope.Ended() {
		return
	}
	if n.agg != nil {
		n.agg.Close()
		n.agg = nil
	}

	sources := slices.Clone(n.nodeResults)
	for _, a := range n.attrs {
		sources = append(sources, a.results)
	}
	if len(sources) == 0 {
		n.result.Set(Valid())
		return
	}

	n.agg = reactive.Combine(sources, Merge, resultEqual)
	n.agg.Subscribe(n.result.Set)
}

// teardown ends every subscription the node owns.
func (n *Node) teardown() {
	n.resetEntityScope()
	n.scope.End()
	n.attrs = nil
}

// DisplayName renders the node's tree-view label.
func (n *Node) DisplayName() string {
	var sb strings.Builder
	sb.WriteString(string(n.name))
	for _, a := range n.attrs {
		v := a.Value()
		d := a.desc
		if v == "" || d.IgnoreFalseValues && strings.EqualFold(v, "false") {
			continue
		}
		switch d.DisplayStyle {
		case DisplayNameOnly:
			sb.WriteString(" " + d.EditorName)
		case DisplayNameWithValue:
			sb.WriteString(" " + d.EditorName + "=\"" + v + "\"")
		case DisplayValueOnly:
			sb.WriteString(" " + v)
		case DisplayAlias:
			sb.WriteString(" (" + v + ")")
		}
	}
	return sb.String()
}
