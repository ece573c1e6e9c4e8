package entity

import (
	"fmt"
	"sort"
	"sync"

	"github.com/zjrosen/trove/internal/log"
)

// Registry collects entity descriptors, validates the dependency graph and
// resolves the enabled set for a run. Construct once, register every
// descriptor, call Validate, then treat as read-only.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
}

// NewRegistry creates an empty entity registry.
func NewRegistry() *Registry {
	return &Registry{descriptors: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Registering the same name twice is a
// configuration error.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil {
		return fmt.Errorf("descriptor cannot be nil")
	}
	if d.Name == "" {
		return fmt.Errorf("descriptor has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Name]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyRegistered, d.Name)
	}
	r.descriptors[d.Name] = d
	log.Debug(log.CatRegistry, "registered entity", "name", d.Name, "deps", d.Dependencies)
	return nil
}

// Get returns the descriptor for name.
func (r *Registry) Get(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	return d, ok
}

// Descriptors returns all registered descriptors sorted by name.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns all registered entity names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the dependency graph: every dependency must reference a
// registered entity and the graph must be acyclic. Run once at startup,
// before resolution or scheduling.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, dep := range r.descriptors[name].Dependencies {
			if _, ok := r.descriptors[dep]; !ok {
				return fmt.Errorf("entity %q depends on unknown entity %q", name, dep)
			}
		}
	}

	// Cycle detection via coloring DFS; gray means "on the current path",
	// so hitting a gray node closes a cycle.
	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(names))
	var stack []string

	var visit func(name string) *CycleError
	visit = func(name string) *CycleError {
		color[name] = gray
		stack = append(stack, name)

		deps := append([]string(nil), r.descriptors[name].Dependencies...)
		sort.Strings(deps)
		for _, dep := range deps {
			switch color[dep] {
			case gray:
				start := 0
				for i, n := range stack {
					if n == dep {
						start = i
						break
					}
				}
				path := append(append([]string(nil), stack[start:]...), dep)
				return &CycleError{Path: path}
			case white:
				if cerr := visit(dep); cerr != nil {
					return cerr
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[name] = black
		return nil
	}

	for _, name := range names {
		if color[name] == white {
			if cerr := visit(name); cerr != nil {
				return cerr
			}
		}
	}
	return nil
}

// Resolution is the outcome of resolving a requested configuration.
type Resolution struct {
	// Enabled lists the entities that will run, sorted by name.
	Enabled []string

	// Warnings describes entities auto-disabled during cascading.
	Warnings []string
}

// EnabledSet returns the enabled entities as a set.
func (res *Resolution) EnabledSet() map[string]bool {
	set := make(map[string]bool, len(res.Enabled))
	for _, name := range res.Enabled {
		set[name] = true
	}
	return set
}

// Resolve computes the enabled-entity set from the requested tri-state
// configuration. Entities absent from requested use their default.
//
// When a dependency of an enabled entity is disabled, non-strict mode
// disables the dependent too and records a warning. Strict mode instead
// fails, but only when the dependent was explicitly requested by the
// caller; default-enabled entities still cascade with a warning.
//
// Cascading runs as an iterative fixed point over the graph, so arbitrarily
// deep chains resolve without unbounded recursion.
func (r *Registry) Resolve(requested map[string]bool, strict bool) (*Resolution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for name := range requested {
		if _, ok := r.descriptors[name]; !ok {
			return nil, fmt.Errorf("requested configuration names unknown entity %q", name)
		}
	}

	names := make([]string, 0, len(r.descriptors))
	for name := range r.descriptors {
		names = append(names, name)
	}
	sort.Strings(names)

	enabled := make(map[string]bool, len(names))
	explicit := make(map[string]bool, len(requested))
	for _, name := range names {
		if want, ok := requested[name]; ok {
			enabled[name] = want
			explicit[name] = want
		} else {
			enabled[name] = r.descriptors[name].EnabledByDefault
		}
	}

	res := &Resolution{}
	for changed := true; changed; {
		changed = false
		for _, name := range names {
			if !enabled[name] {
				continue
			}
			for _, dep := range r.descriptors[name].Dependencies {
				if enabled[dep] {
					continue
				}
				if strict && explicit[name] {
					return nil, &ResolutionError{Entity: name, Dependency: dep}
				}
				enabled[name] = false
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("auto-disabled %q because its dependency %q is disabled", name, dep))
				log.Warn(log.CatRegistry, "auto-disabled entity", "name", name, "dependency", dep)
				changed = true
				break
			}
		}
	}

	for _, name := range names {
		if enabled[name] {
			res.Enabled = append(res.Enabled, name)
		}
	}
	return res, nil
}
