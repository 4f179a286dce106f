package transform

import (
	"sort"
	"sync"

	"github.com/gofiber/fiber/v2/log"
)

// Func converts one field value. Implementations must be deterministic and
// side-effect free; they return an error instead of panicking.
type Func func(value interface{}) (interface{}, error)

// Registry resolves transform ids to functions. Unknown ids resolve to the
// identity function with a logged warning so a stale mapping config can never
// break payload generation.
type Registry struct {
	mu         sync.RWMutex
	transforms map[string]Func
}

// NewRegistry returns a registry pre-populated with the built-in catalogue.
func NewRegistry() *Registry {
	r := &Registry{transforms: make(map[string]Func)}
	registerBuiltins(r)
	return r
}

// Register adds or replaces a transform under the given id.
func (r *Registry) Register(id string, fn Func) {
	r.mu.Lock()
	r.transforms[id] = fn
	r.mu.Unlock()
}

// Has reports whether a transform id is known.
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	_, ok := r.transforms[id]
	r.mu.RUnlock()
	return ok
}

// IDs returns the sorted list of registered transform ids.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.transforms))
	for id := range r.transforms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply runs the transform with the given id. nil input short-circuits to nil
// without invoking the transform. An unknown id returns the value unchanged.
func (r *Registry) Apply(id string, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}

	r.mu.RLock()
	fn, ok := r.transforms[id]
	r.mu.RUnlock()

	if !ok {
		log.Warnf("[Transform] Unknown transform id %q, passing value through", id)
		return value, nil
	}
	return fn(value)
}
