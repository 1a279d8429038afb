package generation

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
)

// CompletionRequest is what a backend adapter receives for one attempt.
type CompletionRequest struct {
	Model      string
	Prompt     string
	Credential string
}

// Completion is a successful backend answer. Token counts are best effort
// and may be zero when the provider does not report them.
type Completion struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Backend is implemented by each provider adapter. Complete must honour
// ctx cancellation and should return *Error values (or errors that KindOf
// classifies correctly) so the chain can decide what to do next.
type Backend interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Pair is one position in a backend chain.
type Pair struct {
	Backend string
	Model   string
}

// Registry maps backend identifiers to adapters, their default model lists
// and optional server-side credentials.
type Registry struct {
	mu          sync.RWMutex
	backends    map[string]Backend
	defaults    map[string][]string
	credentials map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		backends:    make(map[string]Backend),
		defaults:    make(map[string][]string),
		credentials: make(map[string]string),
	}
}

// Register adds a backend with its ordered default models. A non-empty
// credential is used for requests that do not bring their own.
func (r *Registry) Register(b Backend, credential string, defaultModels ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := b.Name()
	r.backends[name] = b
	r.defaults[name] = slices.Clone(defaultModels)
	if credential != "" {
		r.credentials[name] = credential
	}
}

// Backend returns the adapter registered under name.
func (r *Registry) Backend(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Names returns the registered backend identifiers in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Credential picks the request credential when present, otherwise the
// server default for the backend.
func (r *Registry) Credential(backend, requested string) string {
	if requested != "" {
		return requested
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.credentials[backend]
}

// Pairs builds the ordered chain for a backend: the override model first,
// then the defaults, with duplicates removed.
func (r *Registry) Pairs(backend, override string) ([]Pair, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.backends[backend]; !ok {
		return nil, NewError(KindConfiguration, fmt.Errorf("%w: %q", ErrUnknownBackend, backend))
	}

	models := make([]string, 0, len(r.defaults[backend])+1)
	if override != "" {
		models = append(models, override)
	}
	for _, m := range r.defaults[backend] {
		if !slices.Contains(models, m) {
			models = append(models, m)
		}
	}
	if len(models) == 0 {
		return nil, NewError(KindConfiguration, fmt.Errorf("no models configured for backend %q", backend))
	}

	pairs := make([]Pair, len(models))
	for i, m := range models {
		pairs[i] = Pair{Backend: backend, Model: m}
	}
	return pairs, nil
}
