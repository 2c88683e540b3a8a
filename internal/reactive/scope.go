package reactive

import "context"

// Scope is an ownership-bound cancellation token. A query node owns one
// scope and each of its attributes owns a child scope; removing the node
// ends the node scope and with it every attribute and validator subscription.
//
// Scope is not safe for concurrent use except for Context, whose Done
// channel may be observed from lookup goroutines.
type Scope struct {
	ctx      context.Context
	cancel   context.CancelFunc
	parent   *Scope
	children []*Scope
	hooks    []func()
	ended    bool
}

// NewScope creates a scope. A nil parent creates a root scope.
func NewScope(parent *Scope) *Scope {
	base := context.Background()
	if parent != nil {
		base = parent.ctx
	}
	ctx, cancel := context.WithCancel(base)

	s := &Scope{ctx: ctx, cancel: cancel, parent: parent}
	if parent != nil {
		if parent.ended {
			s.End()
			return s
		}
		parent.children = append(parent.children, s)
	}
	return s
}

// Context returns a context cancelled when the scope ends.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// OnEnd registers fn to run when the scope ends. If the scope has already
// ended fn runs immediately.
func (s *Scope) OnEnd(fn func()) {
	if s.ended {
		fn()
		return
	}
	s.hooks = append(s.hooks, fn)
}

// Track ties a closable resource to the scope.
func (s *Scope) Track(c interface{ Close() }) {
	s.OnEnd(c.Close)
}

// End ends child scopes (most recent first), runs hooks in reverse
// registration order and cancels the context. End is idempotent.
func (s *Scope) End() {
	if s.ended {
		return
	}
	s.ended = true

	for i := len(s.children) - 1; i >= 0; i-- {
		s.children[i].End()
	}
	s.children = nil

	for i := len(s.hooks) - 1; i >= 0; i-- {
		s.hooks[i]()
	}
	s.hooks = nil

	s.cancel()

	if s.parent != nil {
		s.parent.removeChild(s)
		s.parent = nil
	}
}

// Ended reports whether End has been called.
func (s *Scope) Ended() bool {
	return s.ended
}

func (s *Scope) removeChild(child *Scope) {
	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}
