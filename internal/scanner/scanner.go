package scanner

import (
	"context"
	"fmt"
	"time"

	"DealScanner/internal/domain"
)

// Query carries all parameters required to execute one collect call.
type Query struct {
	// Company is empty for run-scoped adapters.
	Company domain.Company
	// Since is the start of the collection window.
	Since time.Time
	// Now is the collection time; relative dates resolve against it.
	Now time.Time
	// MaxPages caps listing depth; zero keeps the adapter's own depth.
	MaxPages int
}

// Result is what one collect call produced. Failures lists the pages, queries or
// model calls that were skipped; the articles are still usable.
type Result struct {
	Articles []domain.RawArticle
	Failures []error
}

// Degraded reports whether part of the collection failed.
func (r Result) Degraded() bool {
	return len(r.Failures) > 0
}

// Adapter collects raw candidate articles from one source.
// Collect returns an error only when the adapter as a whole cannot run
// (authentication, quota, cancellation); it is then skipped for the rest of the run
// when the error wraps domain.ErrSourceAuth.
type Adapter interface {
	Name() string
	Method() domain.CollectionMethod
	Collect(ctx context.Context, q Query) (Result, error)
}

// RunScoped reports whether adapters of method ignore the company and run once per run.
func RunScoped(method domain.CollectionMethod) bool {
	return method == domain.MethodHTML || method == domain.MethodRSS
}

// Cost orders per-company adapters cheapest first; the LLM runs last.
func Cost(method domain.CollectionMethod) int {
	switch method {
	case domain.MethodHTML, domain.MethodRSS:
		return 0
	case domain.MethodSearchAPI:
		return 1
	case domain.MethodManual:
		return 2
	case domain.MethodLLMGrounded:
		return 3
	}
	return 4
}

// Factory builds an adapter from a SourceSpec.
type Factory func(spec SourceSpec) (Adapter, error)

// Registry keeps adapters by name, in registration order, plus one factory per
// collection method.
type Registry struct {
	adapters  map[string]Adapter
	order     []string
	factories map[domain.CollectionMethod]Factory
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		adapters:  map[string]Adapter{},
		factories: map[domain.CollectionMethod]Factory{},
	}
}

// Register adds or replaces an adapter.
func (r *Registry) Register(adapter Adapter) {
	if r.adapters == nil {
		r.adapters = map[string]Adapter{}
	}
	name := adapter.Name()
	if _, ok := r.adapters[name]; !ok {
		r.order = append(r.order, name)
	}
	r.adapters[name] = adapter
}

// Resolve returns an adapter by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Adapter, error) {
	if adapter, ok := r.adapters[name]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("adapter %s is not registered", name)
}

// Adapters returns every adapter in registration order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.adapters[name])
	}
	return out
}

// RegisterFactory sets the builder used for specs of method.
func (r *Registry) RegisterFactory(method domain.CollectionMethod, factory Factory) {
	if r.factories == nil {
		r.factories = map[domain.CollectionMethod]Factory{}
	}
	r.factories[method] = factory
}

// Build dispatches spec to its method's factory and registers the result.
func (r *Registry) Build(spec SourceSpec) (Adapter, error) {
	factory, ok := r.factories[spec.Method()]
	if !ok {
		return nil, fmt.Errorf("source %d (%s): no factory for %s", spec.Descriptor().Number, spec.Descriptor().Name, spec.Method())
	}
	adapter, err := factory(spec)
	if err != nil {
		return nil, fmt.Errorf("source %d (%s): %w", spec.Descriptor().Number, spec.Descriptor().Name, err)
	}
	r.Register(adapter)
	return adapter, nil
}
