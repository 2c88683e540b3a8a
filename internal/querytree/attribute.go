package querytree

import (
	"github.com/roach88/fetchq/internal/reactive"
)

// Mode selects how strictly a node or attribute is validated at creation.
type Mode int

const (
	// ModeEdit is used for form editing: partial and empty values are
	// expected, so no one-time validation runs.
	ModeEdit Mode = iota

	// ModeParse is used for imported documents: one-time validators check
	// the snapshot before reactive validation starts.
	ModeParse
)

func (m Mode) String() string {
	if m == ModeParse {
		return "parse"
	}
	return "edit"
}

// Attribute is one named, validated value of a node.
type Attribute struct {
	desc    Descriptor
	node    *Node
	mode    Mode
	value   *reactive.Cell[string]
	scope   *reactive.Scope
	results reactive.Observable[Result]
	fixed   bool
}

func newAttribute(n *Node, desc Descriptor, value string, mode Mode) *Attribute {
	a := &Attribute{
		desc:  desc,
		node:  n,
		mode:  mode,
		value: reactive.NewValueCell(value),
		scope: reactive.NewScope(n.scope),
	}
	a.scope.Track(a.value)
	return a
}

// activate runs the one-time phase and then binds the reactive validators.
// A one-time failure fixes the result; reactive validators never bind.
func (a *Attribute) activate(env *Env, once []OneTimeValidator, live []Validator) {
	if a.mode == ModeParse {
		var failed []Result
		for _, v := range once {
			if r := v.Check(a.value.Get()); !r.Valid {
				failed = append(failed, r)
			}
		}
		if len(failed) > 0 {
			a.fixed = true
			a.results = fixedResult(Merge(failed))
			return
		}
	}

	if len(live) == 0 {
		a.results = fixedResult(Valid())
		return
	}

	b := Binding{Attr: a, Node: a.node, Scope: a.scope, Env: env}
	streams := make([]reactive.Observable[Result], 0, len(live))
	for _, v := range live {
		streams = append(streams, v.Bind(b))
	}
	d := reactive.Combine(streams, Merge, resultEqual)
	a.scope.Track(d)
	a.results = d
}

func fixedResult(r Result) reactive.Observable[Result] {
	c := reactive.NewCell(r, resultEqual)
	c.Close()
	return c
}

// Name returns the attribute's editor name.
func (a *Attribute) Name() string { return a.desc.EditorName }

// Descriptor returns the attribute's static metadata.
func (a *Attribute) Descriptor() Descriptor { return a.desc }

// Mode returns the mode the attribute was created in.
func (a *Attribute) Mode() Mode { return a.mode }

// Node returns the owning node.
func (a *Attribute) Node() *Node { return a.node }

// Value returns the current value.
func (a *Attribute) Value() string { return a.value.Get() }

// ValueStream observes the value.
func (a *Attribute) ValueStream() reactive.Observable[string] { return a.value }

// SetValue replaces the value. Identical values do not notify. Use
// Service.SetAttribute so dependent structure stays consistent.
func (a *Attribute) SetValue(v string) { a.value.Set(v) }

// Result returns the current combined validation result.
func (a *Attribute) Result() Result { return a.results.Get() }

// Results observes the combined validation result.
func (a *Attribute) Results() reactive.Observable[Result] { return a.results }

// OneTimeFailed reports whether a one-time validator fixed the result.
func (a *Attribute) OneTimeFailed() bool { return a.fixed }

// Removed reports whether the attribute has been torn down.
func (a *Attribute) Removed() bool { return a.scope.Ended() }
