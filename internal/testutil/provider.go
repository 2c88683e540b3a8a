package testutil

import (
	"context"
	"sync"

	"github.com/roach88/fetchq/internal/metadata"
)

// GatedProvider is a metadata.Provider decorator for tests.
//
// Thread-safety: all methods are safe for concurrent use; lookups run on
// validator goroutines while the test drives the loop.
type GatedProvider struct {
	next metadata.Provider

	mu       sync.Mutex
	gate     chan struct{} // nil when lookups pass straight through
	err      error
	panicMsg string
	calls    map[string]int
	entered  chan string
}

// NewGatedProvider wraps next with an open gate.
func NewGatedProvider(next metadata.Provider) *GatedProvider {
	return &GatedProvider{
		next:    next,
		calls:   make(map[string]int),
		entered: make(chan string, 64),
	}
}

// Hold makes every following lookup block until Release.
func (p *GatedProvider) Hold() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate == nil {
		p.gate = make(chan struct{})
	}
}

// Release lets held lookups continue and reopens the gate.
func (p *GatedProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.gate != nil {
		close(p.gate)
		p.gate = nil
	}
}

// FailWith makes lookups return err. A nil err restores normal behaviour.
func (p *GatedProvider) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

// PanicWith makes lookups panic with msg. An empty msg disables it.
func (p *GatedProvider) PanicWith(msg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panicMsg = msg
}

// Calls returns how many times method was called.
func (p *GatedProvider) Calls(method string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[method]
}

// TotalCalls returns the number of lookups of any kind.
func (p *GatedProvider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, n := range p.calls {
		total += n
	}
	return total
}

// Entered receives the method name of every lookup as it starts. Use it
// to wait until a held lookup is in flight.
func (p *GatedProvider) Entered() <-chan string {
	return p.entered
}

// enter records the call and applies the gate and any injected failure.
func (p *GatedProvider) enter(ctx context.Context, method string) error {
	p.mu.Lock()
	p.calls[method]++
	gate, err, panicMsg := p.gate, p.err, p.panicMsg
	p.mu.Unlock()

	select {
	case p.entered <- method:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return err
}

// ListEntities implements metadata.Provider.
func (p *GatedProvider) ListEntities(ctx context.Context) ([]metadata.Entity, error) {
	if err := p.enter(ctx, "ListEntities"); err != nil {
		return nil, err
	}
	return p.next.ListEntities(ctx)
}

// ListAttributes implements metadata.Provider.
func (p *GatedProvider) ListAttributes(ctx context.Context, entityName string) ([]metadata.Attribute, error) {
	if err := p.enter(ctx, "ListAttributes"); err != nil {
		return nil, err
	}
	return p.next.ListAttributes(ctx, entityName)
}

// ListOptionSetValues implements metadata.Provider.
func (p *GatedProvider) ListOptionSetValues(ctx context.Context, entityName, attributeName string, kind metadata.OptionSetKind) ([]metadata.Option, error) {
	if err := p.enter(ctx, "ListOptionSetValues"); err != nil {
		return nil, err
	}
	return p.next.ListOptionSetValues(ctx, entityName, attributeName, kind)
}

// ListRelationships implements metadata.Provider.
func (p *GatedProvider) ListRelationships(ctx context.Context, entityName string) ([]metadata.Relationship, error) {
	if err := p.enter(ctx, "ListRelationships"); err != nil {
		return nil, err
	}
	return p.next.ListRelationships(ctx, entityName)
}
