// Package convert provides the converter registry.
//
// Entities declare named conversion functions in their descriptors and
// resolve converters owned by other entities by name at call time. The
// indirection keeps entity packages from importing each other's internals:
// an issue converter can convert its embedded milestone without ever
// importing the milestones package.
package convert

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/agext/levenshtein"

	"github.com/zjrosen/trove/internal/log"
)

// Func converts one raw API record into a domain object.
type Func func(raw any) (any, error)

// Spec declares a named converter supplied by an entity descriptor.
type Spec struct {
	// Target names the produced domain type, used to detect conflicting
	// declarations of the same converter name.
	Target string

	// New builds the converter. The registry passes itself in so the
	// converter can resolve nested converters by name.
	New func(r *Registry) Func
}

// ErrNotFound is returned when a converter name is not registered.
var ErrNotFound = errors.New("converter not found")

type registered struct {
	entity string
	target string
	fn     Func
}

// Registry holds every declared converter, validated eagerly at startup.
type Registry struct {
	mu         sync.RWMutex
	converters map[string]registered
}

// NewRegistry creates an empty converter registry.
func NewRegistry() *Registry {
	return &Registry{converters: make(map[string]registered)}
}

// Load validates and registers the converters declared by one entity.
// A converter name already registered by another entity is an error unless
// both declarations name the same target type, in which case the first
// registration wins.
func (r *Registry) Load(entityName string, specs map[string]Spec) error {
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		spec := specs[name]
		if spec.New == nil {
			return fmt.Errorf("converter %q declared by entity %q has no constructor", name, entityName)
		}

		if existing, ok := r.converters[name]; ok {
			if existing.target != spec.Target {
				return fmt.Errorf(
					"converter name collision: %q declared by entity %q (target %q) and entity %q (target %q)",
					name, existing.entity, existing.target, entityName, spec.Target)
			}
			log.Debug(log.CatConvert, "converter already registered, keeping first", "name", name, "entity", existing.entity)
			continue
		}

		fn := spec.New(r)
		if fn == nil {
			return fmt.Errorf("converter %q declared by entity %q is not callable", name, entityName)
		}

		r.converters[name] = registered{entity: entityName, target: spec.Target, fn: fn}
		log.Debug(log.CatConvert, "registered converter", "name", name, "entity", entityName, "target", spec.Target)
	}
	return nil
}

// Get resolves a converter by name. On a miss the error carries a
// best-effort suggestion for small typos.
func (r *Registry) Get(name string) (Func, error) {
	r.mu.RLock()
	reg, ok := r.converters[name]
	r.mu.RUnlock()

	if ok {
		return reg.fn, nil
	}

	if suggestion := r.suggest(name); suggestion != "" {
		return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrNotFound, name, suggestion)
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// Has reports whether a converter name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.converters[name]
	return ok
}

// Names returns all registered converter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.converters))
	for name := range r.converters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// maxSuggestionDistance bounds how far a fuzzy match may stray before it
// stops being helpful.
const maxSuggestionDistance = 3

// suggest returns the closest registered name within the edit-distance
// bound, or "" when nothing is close enough.
func (r *Registry) suggest(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	bestDistance := maxSuggestionDistance + 1
	for candidate := range r.converters {
		d := levenshtein.Distance(name, candidate, nil)
		if d < bestDistance || (d == bestDistance && candidate < best) {
			best = candidate
			bestDistance = d
		}
	}
	if bestDistance > maxSuggestionDistance {
		return ""
	}
	return best
}
