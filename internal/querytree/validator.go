package querytree

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/fetchq/internal/metadata"
	"github.com/roach88/fetchq/internal/reactive"
)

// OneTimeValidator checks an attribute value exactly once, at creation in
// parse mode. A failure fixes the attribute's result for its lifetime.
type OneTimeValidator interface {
	Name() string
	Check(value string) Result
}

// Validator derives a live result stream for an attribute.
type Validator interface {
	Name() string
	Bind(b Binding) reactive.Observable[Result]
}

// NodeOneTimeValidator checks a node once, after all of its parse-mode
// attributes exist.
type NodeOneTimeValidator interface {
	Name() string
	CheckNode(n *Node) Result
}

// NodeValidator derives a live result stream for a node.
type NodeValidator interface {
	Name() string
	BindNode(n *Node, scope *reactive.Scope) reactive.Observable[Result]
}

// Binding is what a Validator observes. Subscriptions made while binding
// must be released when Scope ends.
type Binding struct {
	Attr  *Attribute
	Node  *Node
	Scope *reactive.Scope
	Env   *Env
}

// input selects one string stream a rule depends on.
type input func(b Binding) reactive.Observable[string]

func own(b Binding) reactive.Observable[string] {
	return b.Attr.ValueStream()
}

func sibling(name string) input {
	return func(b Binding) reactive.Observable[string] {
		return b.Node.Slot(name)
	}
}

func rootSlot(name string) input {
	return func(b Binding) reactive.Observable[string] {
		root := b.Node.tree.Root()
		if root == nil || root.Name() != NodeFetch {
			return constant("")
		}
		return root.Slot(name)
	}
}

// parentEntity observes the name of the nearest entity-bearing ancestor.
func parentEntity(b Binding) reactive.Observable[string] {
	if p := b.Node.ParentEntity(); p != nil {
		return p.Slot(AttrName)
	}
	return constant("")
}

// scopeEntity observes the logical name of the entity an attribute of the
// node refers to.
func scopeEntity(b Binding) reactive.Observable[string] {
	return b.Node.EntityScope()
}

func constant(v string) reactive.Observable[string] {
	c := reactive.NewValueCell(v)
	c.Close()
	return c
}

// localRule is a synchronous reactive validator over a fixed set of inputs.
type localRule struct {
	name   string
	inputs []input
	check  func(in []string) Result
}

func (r *localRule) Name() string { return r.name }

func (r *localRule) Bind(b Binding) reactive.Observable[Result] {
	d := reactive.Combine(resolveInputs(b, r.inputs), func(in []string) Result {
		return safeCheck(r.name, func() Result { return r.check(in) })
	}, resultEqual)
	b.Scope.Track(d)
	return d
}

func resolveInputs(b Binding, inputs []input) []reactive.Observable[string] {
	out := make([]reactive.Observable[string], len(inputs))
	for i, in := range inputs {
		out[i] = in(b)
	}
	return out
}

// remoteRule is a debounced validator that consults metadata.
//
// Every distinct input tuple restarts the debounce timer and cancels the
// lookup in flight. A lookup result is published only if no newer tuple was
// seen since it started; results for superseded values are dropped.
type remoteRule struct {
	name   string
	inputs []input

	// local answers without a lookup when it returns ok.
	local func(in []string) (Result, bool)

	check func(ctx context.Context, p metadata.Provider, in []string) Result
}

func (r *remoteRule) Name() string { return r.name }

func (r *remoteRule) Bind(b Binding) reactive.Observable[Result] {
	env := b.Env
	out := reactive.NewCell(pending(), resultEqual)

	var (
		generation uint64
		stopTimer  func()
		cancel     context.CancelFunc
	)
	abort := func() {
		if stopTimer != nil {
			stopTimer()
			stopTimer = nil
		}
		if cancel != nil {
			cancel()
			cancel = nil
		}
	}

	key := reactive.Combine(resolveInputs(b, r.inputs), func(in []string) []string { return in }, func(a, c []string) bool { return slices.Equal(a, c) })
	unsub := key.Subscribe(func(in []string) {
		generation++
		gen := generation
		abort()

		if r.local != nil {
			var ok bool
			res := safeCheck(r.name, func() Result {
				var res Result
				res, ok = r.local(in)
				return res
			})
			if ok || !res.Valid {
				out.Set(res)
				return
			}
		}

		// The previous key's result no longer applies.
		out.Set(pending())
		stopTimer = env.Loop.After(env.Debounce, func() {
			stopTimer = nil
			if b.Scope.Ended() || gen != generation {
				return
			}
			ctx, cancelLookup := context.WithCancel(b.Scope.Context())
			cancel = cancelLookup
			env.Loop.Go(func() func() {
				res := safeCheck(r.name, func() Result { return r.check(ctx, env.Provider, in) })
				return func() {
					cancelLookup()
					if b.Scope.Ended() || gen != generation {
						return
					}
					cancel = nil
					out.Set(res)
				}
			})
		})
	})

	b.Scope.OnEnd(func() {
		abort()
		unsub()
		key.Close()
		out.Close()
	})
	return out
}

// lookupFailed converts a provider error into a validation result.
// Not-found errors are turned into domain messages by the caller.
func lookupFailed(err error) Result {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return validationError(fmt.Sprintf("lookup cancelled: %v", err))
	}
	return validationError(err)
}

// safeCheck runs a validator body and turns a panic into an invalid result.
func safeCheck(name string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = validationError(fmt.Sprintf("%s: %v", name, r))
		}
	}()
	return fn()
}

// nodeRule is a synchronous node-level validator.
type nodeRule struct {
	name   string
	inputs func(n *Node) []reactive.Observable[string]
	check  func(n *Node, in []string) Result
}

func (r *nodeRule) Name() string { return r.name }

func (r *nodeRule) BindNode(n *Node, scope *reactive.Scope) reactive.Observable[Result] {
	d := reactive.Combine(r.inputs(n), func(in []string) Result {
		return safeCheck(r.name, func() Result { return r.check(n, in) })
	}, resultEqual)
	scope.Track(d)
	return d
}

// onceFunc adapts a function to OneTimeValidator.
type onceFunc struct {
	name  string
	check func(value string) Result
}

func (o onceFunc) Name() string { return o.name }

func (o onceFunc) Check(value string) Result {
	return safeCheck(o.name, func() Result { return o.check(value) })
}

// nodeOnceFunc adapts a function to NodeOneTimeValidator.
type nodeOnceFunc struct {
	name  string
	check func(n *Node) Result
}

func (o nodeOnceFunc) Name() string { return o.name }

func (o nodeOnceFunc) CheckNode(n *Node) Result {
	return safeCheck(o.name, func() Result { return o.check(n) })
}
