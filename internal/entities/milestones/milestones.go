// Package milestones backs up and restores milestones. Milestones run
// before issues so restored issues can reference their new identifiers.
package milestones

import (
	"fmt"

	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/strategy"
)

// Name is the entity name this package registers under.
const Name = "milestones"

// Milestone is the archived form of one milestone.
type Milestone struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	State       string `yaml:"state"`
	Description string `yaml:"description,omitempty"`
	DueOn       string `yaml:"due_on,omitempty"`
}

// Descriptor declares the milestones entity.
func Descriptor() *entity.Descriptor {
	return &entity.Descriptor{
		Name:             Name,
		EnabledByDefault: true,
		Operations: map[string]entity.OperationSpec{
			"list_milestones": {
				TransportMethod:  "milestones.list",
				Converter:        "milestone",
				CacheKeyTemplate: "milestones:{repo}",
			},
			"create_milestone": {
				TransportMethod:   "milestones.create",
				InvalidatesPrefix: []string{"milestones:{repo}"},
			},
			"update_milestone": {
				TransportMethod:   "milestones.update",
				InvalidatesPrefix: []string{"milestones:{repo}"},
			},
			"close_milestone": {
				TransportMethod:   "milestones.close",
				InvalidatesPrefix: []string{"milestones:{repo}"},
			},
		},
		Converters: map[string]convert.Spec{
			"milestone": {
				Target: "milestones.Milestone",
				New: func(r *convert.Registry) convert.Func {
					return convertMilestone
				},
			},
		},
		RequiredServices: []string{
			strategy.CapDispatcher,
			strategy.CapArchive,
			strategy.CapRemap,
			strategy.CapConflicts,
		},
	}
}

// Builders returns the strategy constructors for milestones.
func Builders() strategy.Builders {
	return strategy.Builders{
		NewSave:    newSave,
		NewRestore: newRestore,
	}
}

func convertMilestone(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("milestone record: expected object, got %T", raw)
	}
	return Milestone{
		ID:          stringField(m, "id"),
		Title:       stringField(m, "title"),
		State:       stringField(m, "state"),
		Description: stringField(m, "description"),
		DueOn:       stringField(m, "due_on"),
	}, nil
}

func fromArchive(rec any) (Milestone, error) {
	switch v := rec.(type) {
	case Milestone:
		return v, nil
	case map[string]any:
		return Milestone{
			ID:          stringField(v, "id"),
			Title:       stringField(v, "title"),
			State:       stringField(v, "state"),
			Description: stringField(v, "description"),
			DueOn:       stringField(v, "due_on"),
		}, nil
	default:
		return Milestone{}, fmt.Errorf("milestone archive record: unexpected type %T", rec)
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
