package querytree

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/reactive"
)

// AttributeValue is one name/value pair of an imported element.
type AttributeValue struct {
	Name  string
	Value string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce sets the remote validation quiet period.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		s.debounce = d
	}
}

// WithLoop drives the service with an existing loop.
func WithLoop(loop *reactive.Loop) Option {
	return func(s *Service) {
		s.loop = loop
	}
}

// Service is the single mutation entry point of a query document.
//
// CRITICAL: every method must be called on the goroutine that drives the
// service's loop (Settle or Loop().Run).
type Service struct {
	env      *Env
	tree     *Tree
	multi    *MultiValueSynchronizer
	selected NodeID

	logger   *slog.Logger
	debounce time.Duration
	loop     *reactive.Loop
}

// NewService creates an empty document validated against provider.
func NewService(provider metadata.Provider, opts ...Option) *Service {
	s := &Service{
		selected: noNode,
		logger:   slog.Default(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.loop == nil {
		s.loop = reactive.NewLoop(reactive.WithLogger(s.logger))
	}

	s.env = &Env{
		Loop:     s.loop,
		Provider: provider,
		Logger:   s.logger,
		Debounce: s.debounce,
	}
	s.tree = newTree(s.env)
	s.multi = &MultiValueSynchronizer{svc: s}
	return s
}

// Tree returns the document.
func (s *Service) Tree() *Tree { return s.tree }

// Loop returns the loop that runs validator continuations.
func (s *Service) Loop() *reactive.Loop { return s.loop }

// MultiValue returns the multi-value synchronizer.
func (s *Service) MultiValue() *MultiValueSynchronizer { return s.multi }

// Settle runs pending validation until the document is quiescent.
func (s *Service) Settle(ctx context.Context) error {
	return s.loop.Settle(ctx)
}

// Close tears the document down and stops the loop.
func (s *Service) Close() {
	s.tree.close()
	s.loop.Close()
}

// AddNode appends an edit-mode node of kind name under parent. A nil parent
// creates the root of an empty tree. The node's default attributes are
// created empty.
func (s *Service) AddNode(name NodeName, parent *Node) (*Node, error) {
	return s.InsertNode(name, parent, -1)
}

// InsertNode is AddNode at a child index.
func (s *Service) InsertNode(name NodeName, parent *Node, index int) (*Node, error) {
	var n *Node
	err := s.tree.mutate(func() error {
		var err error
		n, err = s.createNode(name, parent, index, ModeEdit)
		if err != nil {
			return err
		}
		f := factories[name]
		for _, attr := range f.defaults {
			n.attach(f.create(s.env, n, attr, "", ModeEdit))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("node added", "node", name, "id", n.id)
	return n, nil
}

// ImportNode appends a parse-mode node carrying attrs. One-time validators
// check every attribute and then the node as a whole. A Value under a
// condition whose operator is not multi-valued is rejected with E204.
func (s *Service) ImportNode(name NodeName, parent *Node, attrs []AttributeValue) (*Node, error) {
	var n *Node
	err := s.tree.mutate(func() error {
		var err error
		n, err = s.createNode(name, parent, -1, ModeParse)
		if err != nil {
			return err
		}
		f := factories[name]
		for _, av := range attrs {
			n.attach(f.create(s.env, n, av.Name, av.Value, ModeParse))
		}
		if name == NodeCondition {
			if err := s.normalizeImportedCondition(n); err != nil {
				return err
			}
		}
		s.checkImported(n)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) checkImported(n *Node) {
	for _, v := range factories[n.name].nodeOnce() {
		if r := v.CheckNode(n); !r.Valid {
			n.addNodeResult(fixedResult(r))
		}
	}
}

// normalizeImportedCondition establishes the value invariant for an
// imported condition: a value attribute for single-value operators, Value
// children for multi-value operators.
func (s *Service) normalizeImportedCondition(cond *Node) error {
	op := cond.Value(AttrOperator)
	a, hasValue := cond.Attribute(AttrValue)
	switch {
	case IsMultiValueOperator(op) && hasValue:
		literals := SplitLiterals(a.Value())
		cond.detach(a, true)
		for _, lit := range literals {
			if _, err := s.newValueNode(cond, lit, ModeParse); err != nil {
				return err
			}
		}
	case !IsMultiValueOperator(op) && !hasValue:
		cond.attach(factories[NodeCondition].create(s.env, cond, AttrValue, "", ModeParse))
	}
	return nil
}

// createNode allocates, links and binds a node with no attributes.
func (s *Service) createNode(name NodeName, parent *Node, index int, mode Mode) (*Node, error) {
	f, ok := factories[name]
	if !ok {
		return nil, newTreeError(ErrCodeUnknownNode, name, "unknown element '%s'", name)
	}

	parentID := noNode
	if parent == nil {
		if s.tree.root != noNode {
			return nil, newTreeError(ErrCodeInvalidParent, name, "document already has a root")
		}
	} else {
		if !s.tree.contains(parent) {
			return nil, newTreeError(ErrCodeNotInTree, parent.name, "parent is not in the document")
		}
		if !parent.name.CanContain(name) {
			return nil, newTreeError(ErrCodeInvalidParent, name, "'%s' cannot contain '%s'", parent.name, name)
		}
		if err := checkValueParent(name, parent); err != nil {
			return nil, err
		}
		parentID = parent.id
	}

	n := s.tree.alloc(name, mode)
	s.tree.link(n.id, parentID, index)
	if name == NodeLinkEntity {
		refresh := func(string) { s.tree.refreshAliases() }
		n.scope.OnEnd(n.Slot(AttrAlias).Subscribe(refresh))
		n.scope.OnEnd(n.Slot(AttrName).Subscribe(refresh))
	}
	f.bindNode(n)
	s.tree.structureChanged()
	return n, nil
}

// checkValueParent rejects a Value element under a condition whose operator
// keeps its operand in the value attribute.
func checkValueParent(name NodeName, parent *Node) error {
	if name != NodeValue || parent.name != NodeCondition {
		return nil
	}
	if op := parent.Value(AttrOperator); !IsMultiValueOperator(op) {
		return newTreeError(ErrCodeNotMultiValue, NodeCondition, "operator '%s' does not take value elements", op)
	}
	return nil
}

func (s *Service) newValueNode(cond *Node, literal string, mode Mode) (*Node, error) {
	v, err := s.createNode(NodeValue, cond, -1, mode)
	if err != nil {
		return nil, err
	}
	v.attach(factories[NodeValue].create(s.env, v, AttrInnerText, literal, mode))
	return v, nil
}

func (s *Service) checkNode(n *Node) error {
	if !s.tree.contains(n) {
		name := NodeName("")
		if n != nil {
			name = n.name
		}
		return newTreeError(ErrCodeNotInTree, name, "node is not in the document")
	}
	return nil
}

func (s *Service) checkCondition(n *Node) error {
	if err := s.checkNode(n); err != nil {
		return err
	}
	if n.name != NodeCondition {
		return newTreeError(ErrCodeNotCondition, n.name, "node is not a condition")
	}
	return nil
}

// RemoveNode removes n and its subtree. Validators are unsubscribed before
// the subtree leaves the document.
func (s *Service) RemoveNode(n *Node) error {
	if err := s.checkNode(n); err != nil {
		return err
	}
	if sel := s.Selected(); sel != nil {
		for d := range s.tree.Subtree(n) {
			if d == sel {
				s.selected = noNode
				break
			}
		}
	}
	_ = s.tree.mutate(func() error {
		s.tree.remove(n)
		return nil
	})
	s.logger.Debug("node removed", "node", n.name, "id", n.id)
	return nil
}

// MoveNode re-parents n under parent at index, counted after n has been
// detached. Attributes of the moved subtree are re-bound to their new
// surroundings.
func (s *Service) MoveNode(n, parent *Node, index int) error {
	if err := s.checkNode(n); err != nil {
		return err
	}
	if err := s.checkNode(parent); err != nil {
		return err
	}
	if n == s.tree.Root() {
		return newTreeError(ErrCodeInvalidParent, n.name, "the root cannot be moved")
	}
	for d := range s.tree.Subtree(n) {
		if d == parent {
			return newTreeError(ErrCodeInvalidParent, n.name, "a node cannot be moved into its own subtree")
		}
	}
	if !parent.name.CanContain(n.name) {
		return newTreeError(ErrCodeInvalidParent, n.name, "'%s' cannot contain '%s'", parent.name, n.name)
	}
	if err := checkValueParent(n.name, parent); err != nil {
		return err
	}

	return s.tree.mutate(func() error {
		s.tree.unlink(n.id)
		s.tree.link(n.id, parent.id, index)
		var moved []*Node
		for d := range s.tree.Subtree(n) {
			moved = append(moved, d)
		}
		for _, d := range moved {
			s.rebind(d)
		}
		s.tree.structureChanged()
		return nil
	})
}

// rebind recreates a node's attributes so validators observe its current
// ancestors.
func (s *Service) rebind(n *Node) {
	n.resetEntityScope()
	f := factories[n.name]
	for _, a := range n.Attributes() {
		n.attach(f.create(s.env, n, a.Name(), a.Value(), a.mode))
	}
}

// DuplicateNode copies n and its subtree and inserts the copy right after
// n. Attributes are recreated by the factories, so the copy gets its own
// validators.
func (s *Service) DuplicateNode(n *Node) (*Node, error) {
	if err := s.checkNode(n); err != nil {
		return nil, err
	}
	parent := n.Parent()
	if parent == nil {
		return nil, newTreeError(ErrCodeInvalidParent, n.name, "the root cannot be duplicated")
	}
	index := 0
	for i, c := range parent.Children() {
		if c == n {
			index = i + 1
		}
	}

	var dup *Node
	err := s.tree.mutate(func() error {
		var err error
		dup, err = s.copySubtree(n, parent, index)
		return err
	})
	return dup, err
}

func (s *Service) copySubtree(src, parent *Node, index int) (*Node, error) {
	dst, err := s.createNode(src.name, parent, index, src.mode)
	if err != nil {
		return nil, err
	}
	f := factories[src.name]
	for _, a := range src.attrs {
		dst.attach(f.create(s.env, dst, a.Name(), a.Value(), a.mode))
	}
	if src.mode == ModeParse {
		s.checkImported(dst)
	}
	for _, c := range src.Children() {
		if _, err := s.copySubtree(c, dst, -1); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

// AddValueNode appends a Value child holding literal to a condition whose
// operator is multi-valued.
func (s *Service) AddValueNode(cond *Node, literal string) (*Node, error) {
	if err := s.checkCondition(cond); err != nil {
		return nil, err
	}
	if op := cond.Value(AttrOperator); !IsMultiValueOperator(op) {
		return nil, newTreeError(ErrCodeNotMultiValue, NodeCondition, "operator '%s' does not take multiple values", op)
	}
	var v *Node
	err := s.tree.mutate(func() error {
		var err error
		v, err = s.newValueNode(cond, literal, ModeEdit)
		return err
	})
	return v, err
}

// SetMultiValue replaces a condition's Value children from a
// comma-separated string.
func (s *Service) SetMultiValue(cond *Node, input string) ([]*Node, error) {
	return s.multi.StringToNodes(cond, input)
}

// MultiValueString renders a condition's Value children.
func (s *Service) MultiValueString(cond *Node) (string, error) {
	return s.multi.NodesToString(cond)
}

// GetAttribute returns the named attribute of n.
func (s *Service) GetAttribute(n *Node, name string) (*Attribute, bool) {
	if !s.tree.contains(n) {
		return nil, false
	}
	return n.Attribute(name)
}

// SetAttribute sets an attribute in edit mode, creating it if needed. An
// attribute whose one-time validation failed is replaced by a fresh one.
// Dependent attributes and Value children are updated in the same step.
func (s *Service) SetAttribute(n *Node, name, value string) (*Attribute, error) {
	if err := s.checkNode(n); err != nil {
		return nil, err
	}
	if n.name == NodeCondition && name == AttrValue && IsMultiValueOperator(n.Value(AttrOperator)) {
		return nil, newTreeError(ErrCodeMultiValue, NodeCondition,
			"operator '%s' keeps its values in value elements", n.Value(AttrOperator))
	}

	var a *Attribute
	err := s.tree.mutate(func() error {
		old := n.Value(name)
		a = s.setValue(n, name, value)
		if old != value {
			s.handleAttributeChange(n, name, old, value)
		}
		return nil
	})
	return a, err
}

func (s *Service) setValue(n *Node, name, value string) *Attribute {
	a, ok := n.Attribute(name)
	if ok && !a.OneTimeFailed() {
		a.SetValue(value)
		return a
	}
	a = factories[n.name].create(s.env, n, name, value, ModeEdit)
	n.attach(a)
	return a
}

// RemoveAttribute removes the named attribute of n if present.
func (s *Service) RemoveAttribute(n *Node, name string) error {
	if err := s.checkNode(n); err != nil {
		return err
	}
	a, ok := n.Attribute(name)
	if !ok {
		return nil
	}
	return s.tree.mutate(func() error {
		old := a.Value()
		n.detach(a, true)
		if old != "" {
			s.handleAttributeChange(n, name, old, "")
		}
		return nil
	})
}

// handleAttributeChange keeps dependent state consistent after an edit.
func (s *Service) handleAttributeChange(n *Node, name, old, value string) {
	if n.name != NodeCondition {
		return
	}
	switch name {
	case AttrAttribute:
		if old == "" {
			return
		}
		// A different attribute invalidates the operator and the values.
		s.removeValueNodes(n)
		if _, ok := n.Attribute(AttrOperator); ok {
			s.setValue(n, AttrOperator, "")
		}
		s.setValue(n, AttrValue, "")
		s.logger.Debug("condition reset", "from", old, "to", value)
	case AttrOperator:
		s.applyOperator(n, old, value)
	}
}

// applyOperator moves a condition's values between the value attribute and
// Value children when the operator's arity changes. Removal always happens
// before creation, so both forms never coexist.
func (s *Service) applyOperator(cond *Node, old, op string) {
	if IsMultiValueOperator(op) {
		if a, ok := cond.Attribute(AttrValue); ok {
			cond.detach(a, true)
		}
		if !IsMultiValueOperator(old) {
			s.removeValueNodes(cond)
		}
		return
	}
	s.removeValueNodes(cond)
	if _, ok := cond.Attribute(AttrValue); !ok {
		cond.attach(factories[NodeCondition].create(s.env, cond, AttrValue, "", ModeEdit))
	}
}

func (s *Service) removeValueNodes(cond *Node) {
	for _, v := range cond.ChildrenNamed(NodeValue) {
		s.tree.remove(v)
	}
}

// Select marks n as the selected node; nil clears the selection.
func (s *Service) Select(n *Node) error {
	if n == nil {
		s.selected = noNode
		return nil
	}
	if err := s.checkNode(n); err != nil {
		return err
	}
	s.selected = n.id
	return nil
}

// Selected returns the selected node, or nil.
func (s *Service) Selected() *Node {
	return s.tree.at(s.selected)
}

// SelectedSubtree returns the selected node and its descendants in
// document order.
func (s *Service) SelectedSubtree() []*Node {
	var out []*Node
	for n := range s.tree.Subtree(s.Selected()) {
		out = append(out, n)
	}
	return out
}
