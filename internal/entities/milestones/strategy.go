package milestones

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
	result, err := s.svc.Dispatcher.Call(ctx, "list_milestones", transport.Params{"repo": s.svc.Repo})
	if err != nil {
		return fmt.Errorf("fetch milestones: %w", err)
	}
	records, ok := result.([]any)
	if !ok {
		return fmt.Errorf("fetch milestones: unexpected result type %T", result)
	}
	return s.svc.Archive.Write(ctx, Name, records)
}

type restoreStrategy struct {
	svc strategy.Services
}

func newRestore(svc strategy.Services) strategy.RestoreStrategy {
	return &restoreStrategy{svc: svc}
}

// Restore recreates archived milestones and records the old-to-new
// identifier mapping that issues restored later depend on. A conflict
// resolved by skip or overwrite still records the mapping, pointing at
// the destination's existing milestone.
func (s *restoreStrategy) Restore(ctx context.Context) error {
	records, err := s.svc.Archive.Read(ctx, Name)
	if err != nil {
		return fmt.Errorf("read milestone archive: %w", err)
	}

	existing, err := s.existingByTitle(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		ms, err := fromArchive(rec)
		if err != nil {
			return err
		}

		if found, ok := existing[ms.Title]; ok {
			switch s.svc.Conflicts {
			case strategy.ConflictFail:
				return fmt.Errorf("milestone %q already exists at destination", ms.Title)
			case strategy.ConflictOverwrite:
				if _, err := s.svc.Dispatcher.Call(ctx, "update_milestone", transport.Params{
					"repo":        s.svc.Repo,
					"id":          found.ID,
					"title":       ms.Title,
					"state":       ms.State,
					"description": ms.Description,
					"due_on":      ms.DueOn,
				}); err != nil {
					return fmt.Errorf("update milestone %q: %w", ms.Title, err)
				}
			default:
				log.Info(log.CatOrch, "milestone exists, skipping", "title", ms.Title)
			}
			s.svc.Remap.Set(Name, ms.ID, found.ID)
			continue
		}

		result, err := s.svc.Dispatcher.Call(ctx, "create_milestone", transport.Params{
			"repo":        s.svc.Repo,
			"title":       ms.Title,
			"description": ms.Description,
			"due_on":      ms.DueOn,
		})
		if err != nil {
			return fmt.Errorf("create milestone %q: %w", ms.Title, err)
		}

		newID, err := createdID(result)
		if err != nil {
			return fmt.Errorf("create milestone %q: %w", ms.Title, err)
		}
		s.svc.Remap.Set(Name, ms.ID, newID)

		if ms.State == "closed" {
			if _, err := s.svc.Dispatcher.Call(ctx, "close_milestone", transport.Params{
				"repo": s.svc.Repo,
				"id":   newID,
			}); err != nil {
				return fmt.Errorf("close milestone %q: %w", ms.Title, err)
			}
		}
	}
	return nil
}

func (s *restoreStrategy) existingByTitle(ctx context.Context) (map[string]Milestone, error) {
	result, err := s.svc.Dispatcher.Call(ctx, "list_milestones", transport.Params{"repo": s.svc.Repo})
	if err != nil {
		return nil, fmt.Errorf("list destination milestones: %w", err)
	}
	records, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("list destination milestones: unexpected result type %T", result)
	}

	byTitle := make(map[string]Milestone, len(records))
	for _, rec := range records {
		ms, ok := rec.(Milestone)
		if !ok {
			return nil, fmt.Errorf("list destination milestones: unexpected record type %T", rec)
		}
		byTitle[ms.Title] = ms
	}
	return byTitle, nil
}

// createdID pulls the identifier out of a raw create result.
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
