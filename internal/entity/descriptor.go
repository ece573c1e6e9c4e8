// Package entity provides the entity registry: the descriptor every
// pluggable entity type supplies, the dependency graph built from those
// descriptors, and the resolution of which entities actually run.
package entity

import (
	"github.com/zjrosen/trove/internal/convert"
)

// OperationSpec declares one remote-API operation, as written by an entity
// package. It is validated into an operation.Operation at startup.
type OperationSpec struct {
	// TransportMethod names the method to invoke on the transport client.
	// Required.
	TransportMethod string

	// Converter optionally names a converter applied to each raw result.
	Converter string

	// CacheKeyTemplate optionally overrides the auto-derived cache key.
	// Placeholders of the form {param} are filled from call parameters.
	CacheKeyTemplate string

	// Write overrides the name-prefix write inference when set.
	Write *bool

	// NoRetry disables retrying this operation on transient failures.
	NoRetry bool

	// NoCache disables caching this operation even if it is a read.
	NoCache bool

	// InvalidatesPrefix lists cache-key prefixes a write operation evicts.
	InvalidatesPrefix []string
}

// Descriptor is the static record an entity package registers. Constructed
// once at process start and immutable thereafter.
type Descriptor struct {
	// Name uniquely identifies the entity, e.g. "issues".
	Name string

	// EnabledByDefault controls whether the entity runs when the
	// requested configuration does not mention it.
	EnabledByDefault bool

	// Dependencies lists entities that must be ready before this one runs.
	Dependencies []string

	// Operations maps operation names to their declarative specs.
	Operations map[string]OperationSpec

	// Converters maps converter names to their declarations.
	Converters map[string]convert.Spec

	// RequiredServices lists the service capabilities this entity's
	// strategies need from the shared context.
	RequiredServices []string
}
