package strategy

import (
	"fmt"
	"sort"

	"github.com/zjrosen/trove/internal/log"
)

// MissingServiceError reports an entity whose declared capability is not
// available in the current service set.
type MissingServiceError struct {
	Entity     string
	Capability string
}

func (e *MissingServiceError) Error() string {
	return fmt.Sprintf("entity %q requires service %q which is not configured", e.Entity, e.Capability)
}

type registration struct {
	required []string
	builders Builders
}

// Factory builds strategies for registered entities against one shared
// service set.
type Factory struct {
	services      Services
	registrations map[string]registration
}

// NewFactory creates a factory over the given services.
func NewFactory(services Services) *Factory {
	return &Factory{
		services:      services,
		registrations: make(map[string]registration),
	}
}

// Register adds an entity's builders with its required capabilities.
func (f *Factory) Register(entityName string, required []string, builders Builders) error {
	if _, exists := f.registrations[entityName]; exists {
		return fmt.Errorf("strategies for entity %q already registered", entityName)
	}
	if builders.NewSave == nil && builders.NewRestore == nil {
		return fmt.Errorf("entity %q registered with no strategies", entityName)
	}
	f.registrations[entityName] = registration{required: required, builders: builders}
	log.Debug(log.CatRegistry, "strategies registered", "entity", entityName, "required", required)
	return nil
}

// Validate checks that every named entity is registered and that all its
// required capabilities are available. Called once before a run starts.
func (f *Factory) Validate(entityNames []string) error {
	sorted := append([]string(nil), entityNames...)
	sort.Strings(sorted)

	for _, name := range sorted {
		reg, ok := f.registrations[name]
		if !ok {
			return fmt.Errorf("no strategies registered for entity %q", name)
		}
		for _, capability := range reg.required {
			if !f.services.Has(capability) {
				return &MissingServiceError{Entity: name, Capability: capability}
			}
		}
	}
	return nil
}

// NewSave builds the save strategy for the entity.
func (f *Factory) NewSave(entityName string) (SaveStrategy, error) {
	reg, ok := f.registrations[entityName]
	if !ok {
		return nil, fmt.Errorf("no strategies registered for entity %q", entityName)
	}
	if reg.builders.NewSave == nil {
		return nil, fmt.Errorf("entity %q has no save strategy", entityName)
	}
	return reg.builders.NewSave(f.services), nil
}

// NewRestore builds the restore strategy for the entity.
func (f *Factory) NewRestore(entityName string) (RestoreStrategy, error) {
	reg, ok := f.registrations[entityName]
	if !ok {
		return nil, fmt.Errorf("no strategies registered for entity %q", entityName)
	}
	if reg.builders.NewRestore == nil {
		return nil, fmt.Errorf("entity %q has no restore strategy", entityName)
	}
	return reg.builders.NewRestore(f.services), nil
}

// Entities returns the registered entity names, sorted.
func (f *Factory) Entities() []string {
	names := make([]string, 0, len(f.registrations))
	for name := range f.registrations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
