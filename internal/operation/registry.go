package operation

import (
	"fmt"
	"sort"

	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/log"
)

// Registry indexes every declared operation by its global method name.
// Built eagerly at startup so every spec problem surfaces before the first
// call is served; read-only afterwards.
type Registry struct {
	ops map[string]*Operation
}

// NewRegistry validates the operations of every descriptor and builds the
// operation table. Fails on the first missing transport method, unknown
// converter, or cross-entity method-name collision.
func NewRegistry(descriptors []*entity.Descriptor, converters *convert.Registry) (*Registry, error) {
	reg := &Registry{ops: make(map[string]*Operation)}

	sorted := append([]*entity.Descriptor(nil), descriptors...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	for _, d := range sorted {
		names := make([]string, 0, len(d.Operations))
		for name := range d.Operations {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			spec := d.Operations[name]
			if spec.TransportMethod == "" {
				return nil, fmt.Errorf("operation %q of entity %q has no transport method", name, d.Name)
			}
			if spec.Converter != "" && !converters.Has(spec.Converter) {
				return nil, fmt.Errorf("operation %q of entity %q references unknown converter %q",
					name, d.Name, spec.Converter)
			}
			if existing, ok := reg.ops[name]; ok {
				return nil, fmt.Errorf("operation name collision: %q declared by entity %q and entity %q",
					name, existing.Entity, d.Name)
			}
			reg.ops[name] = New(name, d.Name, spec)
		}
	}

	log.Debug(log.CatRegistry, "operation registry built", "operations", len(reg.ops))
	return reg, nil
}

// Get returns the operation registered under the method name.
func (r *Registry) Get(name string) (*Operation, bool) {
	op, ok := r.ops[name]
	return op, ok
}

// Names returns every registered method name, sorted. Used to make
// unknown-operation errors debuggable.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ops))
	for name := range r.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered operations.
func (r *Registry) Len() int { return len(r.ops) }
