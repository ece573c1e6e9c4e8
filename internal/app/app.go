// Package app wires the registries, dispatcher, strategies and
// orchestrator into a runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/zjrosen/trove/internal/archive"
	"github.com/zjrosen/trove/internal/cachemanager"
	"github.com/zjrosen/trove/internal/config"
	"github.com/zjrosen/trove/internal/convert"
	"github.com/zjrosen/trove/internal/dispatch"
	"github.com/zjrosen/trove/internal/entities"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/log"
	"github.com/zjrosen/trove/internal/operation"
	"github.com/zjrosen/trove/internal/orchestrator"
	"github.com/zjrosen/trove/internal/pubsub"
	"github.com/zjrosen/trove/internal/ratelimit"
	"github.com/zjrosen/trove/internal/remap"
	"github.com/zjrosen/trove/internal/strategy"
	"github.com/zjrosen/trove/internal/tracing"
	"github.com/zjrosen/trove/internal/transport"
)

// Options override collaborators the app would otherwise construct from
// config. Used by tests and by offline runs.
type Options struct {
	// Transport replaces the REST client.
	Transport transport.Client
	// Archive replaces the directory-backed store.
	Archive archive.Store
	// Registrations replaces the built-in entity set.
	Registrations []entities.Registration
	// Broker receives orchestrator progress events when set.
	Broker *pubsub.Broker[orchestrator.Update]
}

// App is the assembled application. Build with New, then run Backup or
// Restore, then Close.
type App struct {
	cfg config.Config

	registry   *entity.Registry
	converters *convert.Registry
	operations *operation.Registry
	dispatcher *dispatch.Dispatcher
	factory    *strategy.Factory
	orch       *orchestrator.Orchestrator
	provider   *tracing.Provider

	resolution *entity.Resolution
	plan       *entity.Plan
}

// New validates the configuration and builds every component, failing
// fast on any registration, graph or resolution problem.
func New(cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	registrations := opts.Registrations
	if registrations == nil {
		registrations = entities.All()
	}

	registry := entity.NewRegistry()
	converters := convert.NewRegistry()
	for _, reg := range registrations {
		if err := registry.Register(reg.Descriptor); err != nil {
			return nil, err
		}
		if err := converters.Load(reg.Descriptor.Name, reg.Descriptor.Converters); err != nil {
			return nil, err
		}
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}

	operations, err := operation.NewRegistry(registry.Descriptors(), converters)
	if err != nil {
		return nil, err
	}

	resolution, err := registry.Resolve(cfg.Entities, cfg.Strict)
	if err != nil {
		return nil, err
	}
	plan, err := registry.ExecutionPlan(resolution.Enabled)
	if err != nil {
		return nil, err
	}
	log.Info(log.CatOrch, "resolved plan", "plan", plan.String(), "warnings", len(resolution.Warnings))

	client := opts.Transport
	if client == nil {
		client = transport.NewRESTClient(cfg.BaseURL, cfg.Token, apiRoutes())
	}

	var cache cachemanager.CacheManager[any]
	if cfg.Cache.Enabled {
		cache = cachemanager.NewInMemoryCacheManager[any]("dispatch", cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}
	limiter := ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	dispatcher, err := dispatch.New(dispatch.Config{
		Transport:    client,
		Operations:   operations,
		Converters:   converters,
		Cache:        cache,
		Limiter:      limiter,
		CacheEnabled: cfg.Cache.Enabled,
		CacheTTL:     cfg.Cache.TTL,
		CallTimeout:  cfg.CallTimeout,
		Retry: dispatch.RetryPolicy{
			MaxTries:        cfg.Retry.MaxTries,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
		Tracer: provider.Tracer(),
	})
	if err != nil {
		return nil, err
	}

	store := opts.Archive
	if store == nil {
		store, err = archive.NewDirStore(cfg.ArchiveDir)
		if err != nil {
			return nil, err
		}
	}

	conflicts, err := strategy.ParseConflictPolicy(cfg.Conflicts)
	if err != nil {
		return nil, err
	}

	factory := strategy.NewFactory(strategy.Services{
		Repo:       cfg.Repo,
		Transport:  client,
		Dispatcher: dispatcher,
		Limiter:    limiter,
		Cache:      cache,
		Archive:    store,
		Remap:      remap.NewTable(),
		Conflicts:  conflicts,
	})
	for _, reg := range registrations {
		if err := factory.Register(reg.Descriptor.Name, reg.Descriptor.RequiredServices, reg.Builders); err != nil {
			return nil, err
		}
	}
	if err := factory.Validate(resolution.Enabled); err != nil {
		return nil, err
	}

	orch := orchestrator.New(orchestrator.Config{
		MaxWorkers: cfg.MaxWorkers,
		IsFatal:    isFatal,
		Broker:     opts.Broker,
		Tracer:     provider.Tracer(),
	})

	return &App{
		cfg:        cfg,
		registry:   registry,
		converters: converters,
		operations: operations,
		dispatcher: dispatcher,
		factory:    factory,
		orch:       orch,
		provider:   provider,
		resolution: resolution,
		plan:       plan,
	}, nil
}

// Backup captures every enabled entity into the archive.
func (a *App) Backup(ctx context.Context) (*orchestrator.Report, error) {
	waves, err := a.waves(func(name string) (func(context.Context) error, error) {
		s, err := a.factory.NewSave(name)
		if err != nil {
			return nil, err
		}
		return s.Save, nil
	})
	if err != nil {
		return nil, err
	}
	return a.orch.Run(ctx, orchestrator.ModeBackup, waves, a.resolution.Warnings), nil
}

// Restore recreates every enabled entity from the archive.
func (a *App) Restore(ctx context.Context) (*orchestrator.Report, error) {
	waves, err := a.waves(func(name string) (func(context.Context) error, error) {
		s, err := a.factory.NewRestore(name)
		if err != nil {
			return nil, err
		}
		return s.Restore, nil
	})
	if err != nil {
		return nil, err
	}
	return a.orch.Run(ctx, orchestrator.ModeRestore, waves, a.resolution.Warnings), nil
}

// waves materializes the plan into orchestrator jobs, building every
// strategy up front so a missing one fails before anything runs.
func (a *App) waves(build func(name string) (func(context.Context) error, error)) ([][]orchestrator.Job, error) {
	out := make([][]orchestrator.Job, 0, len(a.plan.Waves))
	for _, wave := range a.plan.Waves {
		jobs := make([]orchestrator.Job, 0, len(wave))
		for _, name := range wave {
			run, err := build(name)
			if err != nil {
				return nil, err
			}
			desc, _ := a.registry.Get(name)
			jobs = append(jobs, orchestrator.Job{
				Entity:    name,
				DependsOn: desc.Dependencies,
				Run:       run,
			})
		}
		out = append(out, jobs)
	}
	return out, nil
}

// Plan returns the resolved execution plan.
func (a *App) Plan() *entity.Plan { return a.plan }

// Resolution returns the resolved entity set and its warnings.
func (a *App) Resolution() *entity.Resolution { return a.resolution }

// Descriptors returns every registered entity descriptor, sorted by name.
func (a *App) Descriptors() []*entity.Descriptor { return a.registry.Descriptors() }

// Dispatcher exposes the dispatcher, for overrides registered by callers.
func (a *App) Dispatcher() *dispatch.Dispatcher { return a.dispatcher }

// Close flushes tracing.
func (a *App) Close(ctx context.Context) error {
	return a.provider.Shutdown(ctx)
}

// isFatal classifies errors that doom the whole run: failed
// authentication will fail every later entity the same way, so there is
// no point continuing.
func isFatal(err error) bool {
	var terr *transport.Error
	if errors.As(err, &terr) {
		return terr.StatusCode == http.StatusUnauthorized || terr.StatusCode == http.StatusForbidden
	}
	return false
}
