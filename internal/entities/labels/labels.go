// Package labels backs up and restores repository labels. Labels have no
// dependencies and run in the first wave.
package labels

import (
	"fmt"

	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/strategy"
)

// Name is the entity name this package registers under.
const Name = "labels"

// Label is the archived form of one label.
type Label struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Color       string `yaml:"color"`
	Description string `yaml:"description,omitempty"`
}

// Descriptor declares the labels entity.
func Descriptor() *entity.Descriptor {
	return &entity.Descriptor{
		Name:             Name,
		EnabledByDefault: true,
		Operations: map[string]entity.OperationSpec{
			"list_labels": {
				TransportMethod:  "labels.list",
				Converter:        "label",
				CacheKeyTemplate: "labels:{repo}",
			},
			"create_label": {
				TransportMethod:   "labels.create",
				InvalidatesPrefix: []string{"labels:{repo}"},
			},
			"update_label": {
				TransportMethod:   "labels.update",
				InvalidatesPrefix: []string{"labels:{repo}"},
			},
			"delete_label": {
				TransportMethod:   "labels.delete",
				InvalidatesPrefix: []string{"labels:{repo}"},
			},
		},
		Converters: map[string]convert.Spec{
			"label": {
				Target: "labels.Label",
				New: func(r *convert.Registry) convert.Func {
					return convertLabel
				},
			},
		},
		RequiredServices: []string{
			strategy.CapDispatcher,
			strategy.CapArchive,
			strategy.CapConflicts,
		},
	}
}

// Builders returns the strategy constructors for labels.
func Builders() strategy.Builders {
	return strategy.Builders{
		NewSave:    newSave,
		NewRestore: newRestore,
	}
}

func convertLabel(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("label record: expected object, got %T", raw)
	}
	return Label{
		ID:          stringField(m, "id"),
		Name:        stringField(m, "name"),
		Color:       stringField(m, "color"),
		Description: stringField(m, "description"),
	}, nil
}

// fromArchive decodes an archived record. Records come back as Label when
// the archive is in memory and as generic maps when read from disk.
func fromArchive(rec any) (Label, error) {
	switch v := rec.(type) {
	case Label:
		return v, nil
	case map[string]any:
		return Label{
			ID:          stringField(v, "id"),
			Name:        stringField(v, "name"),
			Color:       stringField(v, "color"),
			Description: stringField(v, "description"),
		}, nil
	default:
		return Label{}, fmt.Errorf("label archive record: unexpected type %T", rec)
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
