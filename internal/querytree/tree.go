package querytree

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/reactive"
)

// Tree is the query document: an arena of nodes with a parent/children edge
// set and a pre-order next/prev edge set.
type Tree struct {
	env   *Env
	scope *reactive.Scope

	nodes    []*Node
	parent   []NodeID
	children [][]NodeID
	next     []NodeID
	prev     []NodeID
	root     NodeID

	aliases *reactive.Cell[string]
	result  *reactive.Cell[Result]
	agg     *reactive.Derived[Result]

	batch int
	dirty bool
}

func newTree(env *Env) *Tree {
	t := &Tree{
		env:     env,
		scope:   reactive.NewScope(nil),
		root:    noNode,
		aliases: reactive.NewValueCell(""),
		result:  reactive.NewCell(structureResult(nil), resultEqual),
	}
	t.scope.Track(t.result)
	t.scope.Track(t.aliases)
	return t
}

// Root returns the root node, or nil for an empty tree.
func (t *Tree) Root() *Node { return t.at(t.root) }

// Node returns the live node with the given id.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	n := t.at(id)
	return n, n != nil
}

func (t *Tree) at(id NodeID) *Node {
	if id < 0 || int(id) >= len(t.nodes) {
		return nil
	}
	return t.nodes[id]
}

func (t *Tree) contains(n *Node) bool {
	return n != nil && n.tree == t && t.at(n.id) == n
}

// All iterates every node in document order.
func (t *Tree) All() iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		for id := t.root; id != noNode; id = t.next[id] {
			if !yield(t.nodes[id]) {
				return
			}
		}
	}
}

// Subtree iterates n and its descendants in document order.
func (t *Tree) Subtree(n *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if !t.contains(n) {
			return
		}
		last := t.lastDescendant(n.id)
		for id := n.id; ; id = t.next[id] {
			if !yield(t.nodes[id]) || id == last {
				return
			}
		}
	}
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	count := 0
	for range t.All() {
		count++
	}
	return count
}

// Result returns the tree's validation result.
func (t *Tree) Result() Result { return t.result.Get() }

// Results observes the tree's validation result.
func (t *Tree) Results() reactive.Observable[Result] { return t.result }

// Aliases observes a signature of every link-entity alias and name. It
// changes whenever a condition's entityname may resolve differently.
func (t *Tree) Aliases() reactive.Observable[string] { return t.aliases }

// alloc reserves an arena slot for a new, unlinked node.
func (t *Tree) alloc(name NodeName, mode Mode) *Node {
	id := NodeID(len(t.nodes))
	n := newNode(t, id, name, mode)
	t.nodes = append(t.nodes, n)
	t.parent = append(t.parent, noNode)
	t.children = append(t.children, nil)
	t.next = append(t.next, noNode)
	t.prev = append(t.prev, noNode)
	return n
}

func (t *Tree) lastDescendant(id NodeID) NodeID {
	for len(t.children[id]) > 0 {
		kids := t.children[id]
		id = kids[len(kids)-1]
	}
	return id
}

// link inserts the subtree rooted at id under parent at index. A negative
// or out-of-range index appends. A noNode parent makes id the root.
func (t *Tree) link(id, parent NodeID, index int) {
	t.parent[id] = parent
	last := t.lastDescendant(id)

	if parent == noNode {
		t.root = id
		t.prev[id] = noNode
		t.next[last] = noNode
		return
	}

	kids := t.children[parent]
	if index < 0 || index > len(kids) {
		index = len(kids)
	}
	before := parent
	if index > 0 {
		before = t.lastDescendant(kids[index-1])
	}
	after := t.next[before]

	t.next[before] = id
	t.prev[id] = before
	t.next[last] = after
	if after != noNode {
		t.prev[after] = last
	}
	t.children[parent] = slices.Insert(kids, index, id)
}

// unlink detaches the subtree rooted at id from both edge sets. The
// subtree's internal edges are kept so it can be linked elsewhere.
func (t *Tree) unlink(id NodeID) {
	last := t.lastDescendant(id)
	before, after := t.prev[id], t.next[last]
	if before != noNode {
		t.next[before] = after
	}
	if after != noNode {
		t.prev[after] = before
	}
	t.prev[id] = noNode
	t.next[last] = noNode

	if p := t.parent[id]; p != noNode {
		t.children[p] = slices.DeleteFunc(t.children[p], func(c NodeID) bool { return c == id })
	} else if t.root == id {
		t.root = noNode
	}
	t.parent[id] = noNode
}

// remove tears the subtree down, children first, then unlinks it and
// releases its arena slots. Subscriptions end before any edge is cut.
func (t *Tree) remove(n *Node) {
	var ids []NodeID
	for d := range t.Subtree(n) {
		ids = append(ids, d.id)
	}
	for i := len(ids) - 1; i >= 0; i-- {
		t.nodes[ids[i]].teardown()
	}
	t.unlink(n.id)
	for _, id := range ids {
		t.nodes[id] = nil
		t.children[id] = nil
		t.next[id] = noNode
		t.prev[id] = noNode
		t.parent[id] = noNode
	}
	t.structureChanged()
}

// mutate runs fn with aggregate recomputation deferred until it returns, so
// subscribers of the tree result never see a half-applied operation.
func (t *Tree) mutate(fn func() error) error {
	t.batch++
	defer func() {
		t.batch--
		if t.batch == 0 && t.dirty {
			t.dirty = false
			t.rebuild()
		}
	}()
	return fn()
}

func (t *Tree) structureChanged() {
	if t.batch > 0 {
		t.dirty = true
		return
	}
	t.rebuild()
}

// rebuild refreshes structure-derived cells and recombines node results in
// document order. A failed structure check short-circuits node validation.
func (t *Tree) rebuild() {
	if t.scope.Ended() {
		return
	}
	if t.agg != nil {
		t.agg.Close()
		t.agg = nil
	}

	t.refreshAliases()
	for n := range t.All() {
		n.refreshKids()
	}

	if r := structureResult(t.Root()); !r.Valid {
		t.result.Set(r)
		return
	}

	var sources []reactive.Observable[Result]
	for n := range t.All() {
		sources = append(sources, n.result)
	}
	t.agg = reactive.Combine(sources, Merge, resultEqual)
	t.agg.Subscribe(t.result.Set)
}

// structureResult checks the required skeleton: a fetch root whose next
// node in document order is an entity.
func structureResult(root *Node) Result {
	switch {
	case root == nil:
		return Invalid("Query has no root element")
	case root.name != NodeFetch:
		return Invalid(fmt.Sprintf("Root element must be 'fetch', found '%s'", root.name))
	}
	next := root.Next()
	if next == nil || next.name != NodeEntity {
		return Invalid("The first element under 'fetch' must be an 'entity'")
	}
	return Valid()
}

func (t *Tree) refreshAliases() {
	var parts []string
	for n := range t.All() {
		if n.name == NodeLinkEntity {
			parts = append(parts, n.Value(AttrAlias)+"="+n.Value(AttrName))
		}
	}
	t.aliases.Set(strings.Join(parts, ";"))
}

// findLinkEntity returns the link-entity whose alias matches ref, or,
// failing that, the first unaliased link-entity named ref.
func (t *Tree) findLinkEntity(ref string) *Node {
	key := metadata.Key(ref)
	var byName *Node
	for n := range t.All() {
		if n.name != NodeLinkEntity {
			continue
		}
		alias := n.Value(AttrAlias)
		if alias != "" && metadata.Key(alias) == key {
			return n
		}
		if byName == nil && alias == "" && metadata.Key(n.Value(AttrName)) == key {
			byName = n
		}
	}
	return byName
}

// close tears down every node and the tree's own cells.
func (t *Tree) close() {
	if root := t.Root(); root != nil {
		t.remove(root)
	}
	if t.agg != nil {
		t.agg.Close()
		t.agg = nil
	}
	t.scope.End()
}
