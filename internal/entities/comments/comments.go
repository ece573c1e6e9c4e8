// Package comments backs up and restores issue comments. Comments depend
// on issues: a restored comment attaches to its issue's new identifier
// through the remap table.
package comments

import (
	"fmt"

	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/strategy"
)

// Name is the entity name this package registers under.
const Name = "comments"

// Comment is the archived form of one comment. Author holds the
// normalized actor record produced by the issues entity's "actor"
// converter, resolved by name through the converter registry.
type Comment struct {
	ID      string         `yaml:"id"`
	IssueID string         `yaml:"issue_id"`
	Body    string         `yaml:"body"`
	Author  map[string]any `yaml:"author,omitempty"`
}

// Descriptor declares the comments entity.
func Descriptor() *entity.Descriptor {
	return &entity.Descriptor{
		Name:             Name,
		EnabledByDefault: true,
		Dependencies:     []string{"issues"},
		Operations: map[string]entity.OperationSpec{
			"list_comments": {
				TransportMethod:  "comments.list",
				Converter:        "comment",
				CacheKeyTemplate: "comments:{repo}",
			},
			"create_comment": {
				TransportMethod:   "comments.create",
				InvalidatesPrefix: []string{"comments:{repo}"},
			},
			"delete_comment": {
				TransportMethod:   "comments.delete",
				InvalidatesPrefix: []string{"comments:{repo}"},
			},
		},
		Converters: map[string]convert.Spec{
			"comment": {
				Target: "comments.Comment",
				New:    newCommentConverter,
			},
		},
		RequiredServices: []string{
			strategy.CapDispatcher,
			strategy.CapArchive,
			strategy.CapRemap,
		},
	}
}

// Builders returns the strategy constructors for comments.
func Builders() strategy.Builders {
	return strategy.Builders{
		NewSave:    newSave,
		NewRestore: newRestore,
	}
}

// newCommentConverter resolves the "actor" converter owned by the issues
// entity through the registry, so comment authors are normalized exactly
// like issue authors.
func newCommentConverter(r *convert.Registry) convert.Func {
	return func(raw any) (any, error) {
		m, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("comment record: expected object, got %T", raw)
		}

		comment := Comment{
			ID:      stringField(m, "id"),
			IssueID: stringField(m, "issue_id"),
			Body:    stringField(m, "body"),
		}

		if rawAuthor, ok := m["user"]; ok && rawAuthor != nil {
			actorFn, err := r.Get("actor")
			if err != nil {
				return nil, err
			}
			author, err := actorFn(rawAuthor)
			if err != nil {
				return nil, fmt.Errorf("comment %s author: %w", comment.ID, err)
			}
			comment.Author, _ = author.(map[string]any)
		}
		return comment, nil
	}
}

func fromArchive(rec any) (Comment, error) {
	switch v := rec.(type) {
	case Comment:
		return v, nil
	case map[string]any:
		comment := Comment{
			ID:      stringField(v, "id"),
			IssueID: stringField(v, "issue_id"),
			Body:    stringField(v, "body"),
		}
		if author, ok := v["author"].(map[string]any); ok {
			comment.Author = author
		}
		return comment, nil
	default:
		return Comment{}, fmt.Errorf("comment archive record: unexpected type %T", rec)
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}
