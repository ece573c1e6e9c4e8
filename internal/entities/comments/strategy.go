package comments

import (
	"context"
	"fmt"

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
	result, err := s.svc.Dispatcher.Call(ctx, "list_comments", transport.Params{"repo": s.svc.Repo})
	if err != nil {
		return fmt.Errorf("fetch comments: %w", err)
	}
	records, ok := result.([]any)
	if !ok {
		return fmt.Errorf("fetch comments: unexpected result type %T", result)
	}
	return s.svc.Archive.Write(ctx, Name, records)
}

type restoreStrategy struct {
	svc strategy.Services
}

func newRestore(svc strategy.Services) strategy.RestoreStrategy {
	return &restoreStrategy{svc: svc}
}

// Restore recreates archived comments against their issues' new
// identifiers. A comment whose issue has no mapping is an archive
// inconsistency and fails the entity.
func (s *restoreStrategy) Restore(ctx context.Context) error {
	records, err := s.svc.Archive.Read(ctx, Name)
	if err != nil {
		return fmt.Errorf("read comment archive: %w", err)
	}

	for _, rec := range records {
		comment, err := fromArchive(rec)
		if err != nil {
			return err
		}

		newIssueID, err := s.svc.Remap.MustResolve("issues", comment.IssueID)
		if err != nil {
			return fmt.Errorf("restore comment %s: %w", comment.ID, err)
		}

		if _, err := s.svc.Dispatcher.Call(ctx, "create_comment", transport.Params{
			"repo":  s.svc.Repo,
			"issue": newIssueID,
			"body":  comment.Body,
		}); err != nil {
			return fmt.Errorf("create comment on issue %s: %w", newIssueID, err)
		}
	}
	return nil
}
