package querytree

import (
	"slices"
)

// attrSpec is everything a factory knows about one attribute name.
type attrSpec struct {
	desc Descriptor
	once []OneTimeValidator // parse mode only
	live []Validator
}

// Factory creates the attributes and node validators of one node kind.
// Factories are immutable and shared.
type Factory struct {
	node     NodeName
	specs    map[string]attrSpec
	defaults []string // created empty when a node is added in edit mode
	required []string // checked once in parse mode

	nodeLive []func() NodeValidator
}

func newFactory(node NodeName) *Factory {
	return &Factory{node: node, specs: make(map[string]attrSpec)}
}

// attr registers an attribute; order follows registration.
func (f *Factory) attr(name string, style DisplayStyle, live ...Validator) *attrBuilder {
	spec := attrSpec{
		desc: Descriptor{
			EditorName:   name,
			Order:        len(f.specs) + 1,
			DisplayStyle: style,
			IsValidName:  true,
		},
		live: live,
	}
	f.specs[name] = spec
	return &attrBuilder{f: f, name: name}
}

type attrBuilder struct {
	f    *Factory
	name string
}

func (b *attrBuilder) once(v ...OneTimeValidator) *attrBuilder {
	spec := b.f.specs[b.name]
	spec.once = append(spec.once, v...)
	b.f.specs[b.name] = spec
	return b
}

func (b *attrBuilder) shape(s shape) *attrBuilder {
	spec := b.f.specs[b.name]
	spec.once = append(spec.once, shapeOnce(b.name, s))
	spec.live = append([]Validator{shapeRule(b.name, s)}, spec.live...)
	b.f.specs[b.name] = spec
	return b
}

func (b *attrBuilder) ignoreFalse() *attrBuilder {
	spec := b.f.specs[b.name]
	spec.desc.IgnoreFalseValues = true
	b.f.specs[b.name] = spec
	return b
}

// NodeName returns the kind this factory builds attributes for.
func (f *Factory) NodeName() NodeName { return f.node }

// Descriptor returns the descriptor for name. Unknown names get the default
// order and are marked invalid.
func (f *Factory) Descriptor(name string) Descriptor {
	if spec, ok := f.specs[name]; ok {
		return spec.desc
	}
	return unknownDescriptor(name)
}

// AllowedNames returns the modelled attribute names in descriptor order.
func (f *Factory) AllowedNames() []string {
	names := make([]string, 0, len(f.specs))
	for name := range f.specs {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		return f.specs[a].desc.Order - f.specs[b].desc.Order
	})
	return names
}

// create builds and activates an attribute for n. It is not attached.
func (f *Factory) create(env *Env, n *Node, name, value string, mode Mode) *Attribute {
	spec, ok := f.specs[name]
	if !ok {
		spec = attrSpec{desc: unknownDescriptor(name)}
	}
	a := newAttribute(n, spec.desc, value, mode)
	a.activate(env, spec.once, spec.live)
	return a
}

// bindNode binds node-level validators. Parse-mode one-time checks run
// separately once the imported attributes exist.
func (f *Factory) bindNode(n *Node) {
	for _, mk := range f.nodeLive {
		n.addNodeResult(mk().BindNode(n, n.scope))
	}
}

func (f *Factory) nodeOnce() []NodeOneTimeValidator {
	out := []NodeOneTimeValidator{allowedNamesOnce()}
	if len(f.required) > 0 {
		out = append(out, requiredAttributesOnce(f.required...))
	}
	return out
}

var factories = map[NodeName]*Factory{
	NodeFetch:         fetchFactory(),
	NodeEntity:        entityFactory(),
	NodeLinkEntity:    linkEntityFactory(),
	NodeAttribute:     attributeFactory(),
	NodeAllAttributes: newFactory(NodeAllAttributes),
	NodeOrder:         orderFactory(),
	NodeFilter:        filterFactory(),
	NodeCondition:     conditionFactory(),
	NodeValue:         valueFactory(),
}

// FactoryFor returns the factory for a node kind.
func FactoryFor(name NodeName) (*Factory, bool) {
	f, ok := factories[name]
	return f, ok
}
