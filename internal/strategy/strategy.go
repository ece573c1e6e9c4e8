// Package strategy defines the per-entity save and restore behaviors and
// the shared service set they run against.
package strategy

import (
	"context"
	"fmt"

	"github.com/zjrosen/trove/internal/archive"
	"github.com/zjrosen/trove/internal/cachemanager"
	"github.com/zjrosen/trove/internal/dispatch"
	"github.com/zjrosen/trove/internal/ratelimit"
	"github.com/zjrosen/trove/internal/remap"
	"github.com/zjrosen/trove/internal/transport"
)

// Capability names a service an entity can declare as required. Declaring
// one lets the factory fail fast at startup instead of mid-run on a nil
// collaborator.
const (
	CapTransport  = "transport"
	CapDispatcher = "dispatcher"
	CapLimiter    = "limiter"
	CapCache      = "cache"
	CapArchive    = "archive"
	CapRemap      = "remap"
	CapConflicts  = "conflicts"
)

// ConflictPolicy decides what a restore does when the destination already
// has a record matching one being restored.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
	ConflictFail      ConflictPolicy = "fail"
)

// ParseConflictPolicy validates a config string.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case ConflictSkip, ConflictOverwrite, ConflictFail:
		return ConflictPolicy(s), nil
	case "":
		return ConflictSkip, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want skip, overwrite or fail)", s)
	}
}

// Services is the shared collaborator set handed to every strategy.
// Fields may be nil when a run does not need them; entities guard against
// that by declaring required capabilities on their descriptor.
type Services struct {
	// Repo is the owner/name coordinate of the tracked project.
	Repo string

	Transport  transport.Client
	Dispatcher *dispatch.Dispatcher
	Limiter    ratelimit.Limiter
	Cache      cachemanager.CacheManager[any]
	Archive    archive.Store
	Remap      *remap.Table
	Conflicts  ConflictPolicy
}

// Has reports whether the named capability is available.
func (s Services) Has(capability string) bool {
	switch capability {
	case CapTransport:
		return s.Transport != nil
	case CapDispatcher:
		return s.Dispatcher != nil
	case CapLimiter:
		return s.Limiter != nil
	case CapCache:
		return s.Cache != nil
	case CapArchive:
		return s.Archive != nil
	case CapRemap:
		return s.Remap != nil
	case CapConflicts:
		return s.Conflicts != ""
	default:
		return false
	}
}

// SaveStrategy captures an entity's records from the source into the
// archive.
type SaveStrategy interface {
	Save(ctx context.Context) error
}

// RestoreStrategy recreates an entity's records at the destination from
// the archive.
type RestoreStrategy interface {
	Restore(ctx context.Context) error
}

// SaveFunc adapts a function to SaveStrategy.
type SaveFunc func(ctx context.Context) error

func (f SaveFunc) Save(ctx context.Context) error { return f(ctx) }

// RestoreFunc adapts a function to RestoreStrategy.
type RestoreFunc func(ctx context.Context) error

func (f RestoreFunc) Restore(ctx context.Context) error { return f(ctx) }

// Builders holds an entity's strategy constructors. Either side may be nil
// when the entity only participates in one direction.
type Builders struct {
	NewSave    func(Services) SaveStrategy
	NewRestore func(Services) RestoreStrategy
}
