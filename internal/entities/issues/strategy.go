package issues

import (
	"context"
	"fmt"

	"github.com/zjrosen/trove/internal/log"
	"github.com/zjrosen/trove/internal/strategy"
	"github.com/zjrosen/trove/internal/transport"
)

type saveStrategy struct {
	svc strategy.Services
}

func newSave(svc strategy.Services) strategy.SaveStrategy {
	return &saveStrategy{svc: svc}
}

func (s *saveStrategy) Save(ctx context.Context) error {
	result, err := s.svc.Dispatcher.Call(ctx, "list_issues", transport.Params{"repo": s.svc.Repo})
	if err != nil {
		return fmt.Errorf("fetch issues: %w", err)
	}
	records, ok := result.([]any)
	if !ok {
		return fmt.Errorf("fetch issues: unexpected result type %T", result)
	}
	return s.svc.Archive.Write(ctx, Name, records)
}

type restoreStrategy struct {
	svc strategy.Services
}

func newRestore(svc strategy.Services) strategy.RestoreStrategy {
	return &restoreStrategy{svc: svc}
}

// Restore recreates archived issues. Milestone references are translated
// through the remap table; the issue's own old-to-new mapping is recorded
// for the comments restore that follows.
func (s *restoreStrategy) Restore(ctx context.Context) error {
	records, err := s.svc.Archive.Read(ctx, Name)
	if err != nil {
		return fmt.Errorf("read issue archive: %w", err)
	}

	for _, rec := range records {
		issue, err := fromArchive(rec)
		if err != nil {
			return err
		}

		params := transport.Params{
			"repo":  s.svc.Repo,
			"title": issue.Title,
			"body":  issue.Body,
		}
		if len(issue.Labels) > 0 {
			params["labels"] = issue.Labels
		}
		if issue.MilestoneID != "" {
			newMilestone, ok := s.svc.Remap.Resolve("milestones", issue.MilestoneID)
			if !ok {
				// The milestone was not restored in this run. Keep the
				// issue rather than failing the whole entity.
				log.Warn(log.CatOrch, "issue references unknown milestone, dropping reference",
					"issue", issue.Title, "milestone_id", issue.MilestoneID)
			} else {
				params["milestone"] = newMilestone
			}
		}

		result, err := s.svc.Dispatcher.Call(ctx, "create_issue", params)
		if err != nil {
			return fmt.Errorf("create issue %q: %w", issue.Title, err)
		}
		newID, err := createdID(result)
		if err != nil {
			return fmt.Errorf("create issue %q: %w", issue.Title, err)
		}
		s.svc.Remap.Set(Name, issue.ID, newID)

		if issue.State == "closed" {
			if _, err := s.svc.Dispatcher.Call(ctx, "close_issue", transport.Params{
				"repo": s.svc.Repo,
				"id":   newID,
			}); err != nil {
				return fmt.Errorf("close issue %q: %w", issue.Title, err)
			}
		}
	}
	return nil
}

func createdID(result any) (string, error) {
	m, ok := result.(map[string]any)
	if !ok {
		return "", fmt.Errorf("unexpected create result type %T", result)
	}
	id, ok := m["id"]
	if !ok || id == nil {
		return "", fmt.Errorf("create result has no id field")
	}
	return fmt.Sprintf("%v", id), nil
}
