// Package issues backs up and restores issues. Issues depend on
// milestones: a restored issue references its milestone through the remap
// table populated by the milestones restore.
package issues

import (
	"fmt"

	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/strategy"
)

// Name is the entity name this package registers under.
const Name = "issues"

// Issue is the archived form of one issue. Author holds the normalized
// actor record produced by the shared "actor" converter.
type Issue struct {
	ID          string         `yaml:"id"`
	Title       string         `yaml:"title"`
	Body        string         `yaml:"body,omitempty"`
	State       string         `yaml:"state"`
	MilestoneID string         `yaml:"milestone_id,omitempty"`
	Labels      []string       `yaml:"labels,omitempty"`
	Author      map[string]any `yaml:"author,omitempty"`
}

// Descriptor declares the issues entity. The "actor" converter it declares
// is shared: other entities resolve it by name to normalize user records
// without importing this package.
func Descriptor() *entity.Descriptor {
	return &entity.Descriptor{
		Name:             Name,
		EnabledByDefault: true,
		Dependencies:     []string{"milestones"},
		Operations: map[string]entity.OperationSpec{
			"list_issues": {
				TransportMethod:  "issues.list",
				Converter:        "issue",
				CacheKeyTemplate: "issues:{repo}",
			},
			"get_issue": {
				TransportMethod: "issues.get",
				Converter:       "issue",
			},
			"create_issue": {
				TransportMethod:   "issues.create",
				InvalidatesPrefix: []string{"issues:{repo}"},
			},
			"update_issue": {
				TransportMethod:   "issues.update",
				InvalidatesPrefix: []string{"issues:{repo}"},
			},
			"close_issue": {
				TransportMethod:   "issues.close",
				InvalidatesPrefix: []string{"issues:{repo}"},
			},
		},
		Converters: map[string]convert.Spec{
			"issue": {
				Target: "issues.Issue",
				New:    newIssueConverter,
			},
			"actor": {
				Target: "tracker.Actor",
				New: func(r *convert.Registry) convert.Func {
					return convertActor
				},
			},
		},
		RequiredServices: []string{
			strategy.CapDispatcher,
			strategy.CapArchive,
			strategy.CapRemap,
		},
	}
}

// Builders returns the strategy constructors for issues.
func Builders() strategy.Builders {
	return strategy.Builders{
		NewSave:    newSave,
		NewRestore: newRestore,
	}
}

// newIssueConverter resolves the actor converter through the registry so
// the author field is normalized the same way everywhere.
func newIssueConverter(r *convert.Registry) convert.Func {
	return func(raw any) (any, error) {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("issue record: expected object, got %T", raw)
		}

		issue := Issue{
			ID:     stringField(m, "id"),
			Title:  stringField(m, "title"),
			Body:   stringField(m, "body"),
			State:  stringField(m, "state"),
			Labels: stringList(m["labels"]),
		}
		if ms, ok := m["milestone"].(map[string]any); ok {
			issue.MilestoneID = stringField(ms, "id")
		}

		if rawAuthor, ok := m["user"]; ok && rawAuthor != nil {
			actorFn, err := r.Get("actor")
			if err != nil {
				return nil, err
			}
			author, err := actorFn(rawAuthor)
			if err != nil {
				return nil, fmt.Errorf("issue %s author: %w", issue.ID, err)
			}
			issue.Author, _ = author.(map[string]any)
		}
		return issue, nil
	}
}

func convertActor(raw any) (any, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("actor record: expected object, got %T", raw)
	}
	return map[string]any{
		"login": stringField(m, "login"),
		"type":  stringField(m, "type"),
	}, nil
}

func fromArchive(rec any) (Issue, error) {
	switch v := rec.(type) {
	case Issue:
		return v, nil
	case map[string]any:
		issue := Issue{
			ID:          stringField(v, "id"),
			Title:       stringField(v, "title"),
			Body:        stringField(v, "body"),
			State:       stringField(v, "state"),
			MilestoneID: stringField(v, "milestone_id"),
			Labels:      stringList(v["labels"]),
		}
		if author, ok := v["author"].(map[string]any); ok {
			issue.Author = author
		}
		return issue, nil
	default:
		return Issue{}, fmt.Errorf("issue archive record: unexpected type %T", rec)
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		return nil
	}
}
