// Package operation provides the validated runtime form of the remote-API
// operations that entity descriptors declare, and the registry indexing
// them by method name.
package operation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zjrosen/trove/internal/entity"
)

// writePrefixes is the naming convention for operations that mutate remote
// state. It is an inference default only; a spec's Write field overrides it.
var writePrefixes = []string{"create_", "update_", "delete_", "close_"}

// Operation is an entity's operation spec validated into its runtime form.
type Operation struct {
	// Name is the global method name callers pass to the dispatcher.
	Name string

	// Entity names the descriptor that declared this operation.
	Entity string

	// Spec is the declaration as the entity wrote it.
	Spec entity.OperationSpec

	write bool
}

// New derives the runtime Operation from a declared spec.
func New(name, entityName string, spec entity.OperationSpec) *Operation {
	write := false
	if spec.Write != nil {
		write = *spec.Write
	} else {
		for _, prefix := range writePrefixes {
			if strings.HasPrefix(name, prefix) {
				write = true
				break
			}
		}
	}
	return &Operation{Name: name, Entity: entityName, Spec: spec, write: write}
}

// IsWrite reports whether the operation mutates remote state.
func (o *Operation) IsWrite() bool { return o.write }

// ShouldCache reports whether results may be served from cache: reads only,
// unless the declaration explicitly disabled caching.
func (o *Operation) ShouldCache() bool {
	return !o.write && !o.Spec.NoCache
}

// ShouldRetry reports whether transient failures are retried. Writes retry
// by default too: the dominant transient failure is secondary rate
// limiting, not duplicate-effect risk.
func (o *Operation) ShouldRetry() bool {
	return !o.Spec.NoRetry
}

// CacheKey builds the deterministic cache key for a parameter set.
//
// With a template, {param} placeholders are substituted. Without one, the
// key is the method name plus every parameter as name=value, sorted by
// parameter name so call-site argument order cannot change the key.
func (o *Operation) CacheKey(params map[string]any) string {
	if o.Spec.CacheKeyTemplate != "" {
		key := o.Spec.CacheKeyTemplate
		for name, value := range params {
			key = strings.ReplaceAll(key, "{"+name+"}", fmt.Sprintf("%v", value))
		}
		return key
	}

	if len(params) == 0 {
		return o.Name
	}

	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString(o.Name)
	for _, name := range names {
		sb.WriteByte('|')
		sb.WriteString(name)
		sb.WriteByte('=')
		fmt.Fprintf(&sb, "%v", params[name])
	}
	return sb.String()
}

// String renders the full spec for error context.
func (o *Operation) String() string {
	parts := []string{
		fmt.Sprintf("entity=%s", o.Entity),
		fmt.Sprintf("transport=%s", o.Spec.TransportMethod),
	}
	if o.Spec.Converter != "" {
		parts = append(parts, fmt.Sprintf("converter=%s", o.Spec.Converter))
	}
	if o.Spec.CacheKeyTemplate != "" {
		parts = append(parts, fmt.Sprintf("cache_key=%s", o.Spec.CacheKeyTemplate))
	}
	parts = append(parts, fmt.Sprintf("write=%t", o.write))
	if o.Spec.NoRetry {
		parts = append(parts, "no_retry")
	}
	if o.Spec.NoCache {
		parts = append(parts, "no_cache")
	}
	return fmt.Sprintf("%s{%s}", o.Name, strings.Join(parts, " "))
}
