package params

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"framekit/internal/statetree"
)

var (
	// ErrDuplicateKey reports a second registration of the same owner kind
	// and name.
	ErrDuplicateKey = errors.New("duplicate parameter key")
	// ErrAlreadyRegistered reports a descriptor registered twice.
	ErrAlreadyRegistered = errors.New("parameter already registered")
)

// Registry assigns global indices to parameters. Indices start at 1 and are
// never reused. A Registry is safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	byKey   map[Key]Parameter
	byIndex []Parameter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byKey: make(map[Key]Parameter)}
}

// Register assigns p the next global index.
func (r *Registry) Register(p Parameter) error {
	base := p.base()
	r.mu.Lock()
	defer r.mu.Unlock()
	if base.index != 0 {
		return fmt.Errorf("%w: %s (index %d)", ErrAlreadyRegistered, base.key, base.index)
	}
	if _, exists := r.byKey[base.key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, base.key)
	}
	r.byIndex = append(r.byIndex, p)
	base.index = len(r.byIndex)
	r.byKey[base.key] = p
	return nil
}

// MustRegister registers every parameter and panics on the first failure.
// Duplicate keys are configuration errors that cannot be recovered from.
func (r *Registry) MustRegister(ps ...Parameter) {
	for _, p := range ps {
		if err := r.Register(p); err != nil {
			panic(err)
		}
	}
}

// Lookup finds a parameter by key.
func (r *Registry) Lookup(key Key) (Parameter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byKey[key]
	return p, ok
}

// ByIndex finds a parameter by global index.
func (r *Registry) ByIndex(index int) (Parameter, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index < 1 || index > len(r.byIndex) {
		return nil, false
	}
	return r.byIndex[index-1], true
}

// All returns every parameter in index order.
func (r *Registry) All() []Parameter {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.byIndex)
}

// Applicable returns the parameters that apply to owner, in index order.
func (r *Registry) Applicable(owner Owner) []Parameter {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Parameter
	for _, p := range r.byIndex {
		if p.AppliesTo(owner) {
			out = append(out, p)
		}
	}
	return out
}

// ResetAll writes every applicable parameter's default value.
func (r *Registry) ResetAll(owner Owner) {
	for _, p := range r.Applicable(owner) {
		p.Reset(owner)
	}
}

// WriteValues stores every applicable parameter value into d, keyed by
// "Kind::Name".
func (r *Registry) WriteValues(owner Owner, d *statetree.Dict) {
	for _, p := range r.Applicable(owner) {
		p.writeState(owner, d)
	}
}

// ReadValues restores parameter values from d. Missing or malformed entries
// leave the current value untouched and unknown keys are ignored.
func (r *Registry) ReadValues(owner Owner, d *statetree.Dict) {
	for _, p := range r.Applicable(owner) {
		p.readState(owner, d)
	}
}
