package labels

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
	result, err := s.svc.Dispatcher.Call(ctx, "list_labels", transport.Params{"repo": s.svc.Repo})
	if err != nil {
		return fmt.Errorf("fetch labels: %w", err)
	}
	records, ok := result.([]any)
	if !ok {
		return fmt.Errorf("fetch labels: unexpected result type %T", result)
	}
	return s.svc.Archive.Write(ctx, Name, records)
}

type restoreStrategy struct {
	svc strategy.Services
}

func newRestore(svc strategy.Services) strategy.RestoreStrategy {
	return &restoreStrategy{svc: svc}
}

func (s *restoreStrategy) Restore(ctx context.Context) error {
	records, err := s.svc.Archive.Read(ctx, Name)
	if err != nil {
		return fmt.Errorf("read label archive: %w", err)
	}

	existing, err := s.existingByName(ctx)
	if err != nil {
		return err
	}

	for _, rec := range records {
		label, err := fromArchive(rec)
		if err != nil {
			return err
		}

		if _, found := existing[label.Name]; found {
			switch s.svc.Conflicts {
			case strategy.ConflictSkip:
				log.Info(log.CatOrch, "label exists, skipping", "name", label.Name)
				continue
			case strategy.ConflictFail:
				return fmt.Errorf("label %q already exists at destination", label.Name)
			case strategy.ConflictOverwrite:
				if _, err := s.svc.Dispatcher.Call(ctx, "update_label", transport.Params{
					"repo":        s.svc.Repo,
					"name":        label.Name,
					"color":       label.Color,
					"description": label.Description,
				}); err != nil {
					return fmt.Errorf("update label %q: %w", label.Name, err)
				}
				continue
			}
		}

		if _, err := s.svc.Dispatcher.Call(ctx, "create_label", transport.Params{
			"repo":        s.svc.Repo,
			"name":        label.Name,
			"color":       label.Color,
			"description": label.Description,
		}); err != nil {
			return fmt.Errorf("create label %q: %w", label.Name, err)
		}
	}
	return nil
}

// existingByName lists destination labels keyed by name for conflict
// detection.
func (s *restoreStrategy) existingByName(ctx context.Context) (map[string]Label, error) {
	result, err := s.svc.Dispatcher.Call(ctx, "list_labels", transport.Params{"repo": s.svc.Repo})
	if err != nil {
		return nil, fmt.Errorf("list destination labels: %w", err)
	}
	records, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("list destination labels: unexpected result type %T", result)
	}

	byName := make(map[string]Label, len(records))
	for _, rec := range records {
		label, ok := rec.(Label)
		if !ok {
			return nil, fmt.Errorf("list destination labels: unexpected record type %T", rec)
		}
		byName[label.Name] = label
	}
	return byName, nil
}
