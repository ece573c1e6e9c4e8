// Package orchestrator executes entity jobs wave by wave.
//
// Waves run sequentially; jobs inside a wave run concurrently up to a
// worker bound. A failed job skips every entity that depends on it,
// directly or transitively, and the skip record names the root-cause
// entity rather than the nearest dependency.
package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/zjrosen/trove/internal/log"
	"github.com/zjrosen/trove/internal/pubsub"
	"github.com/zjrosen/trove/internal/tracing"
)

// Run modes.
const (
	ModeBackup  = "backup"
	ModeRestore = "restore"
)

// Event types published during a run.
const (
	EventWaveStarted  pubsub.EventType = "orchestrator.wave.started"
	EventWaveFinished pubsub.EventType = "orchestrator.wave.finished"
	EventJobStarted   pubsub.EventType = "orchestrator.job.started"
	EventJobSucceeded pubsub.EventType = "orchestrator.job.succeeded"
	EventJobFailed    pubsub.EventType = "orchestrator.job.failed"
	EventJobSkipped   pubsub.EventType = "orchestrator.job.skipped"
)

// Update is the payload carried by every orchestrator event.
type Update struct {
	Entity string
	Wave   int
	Err    error
}

// Job is one entity's unit of work within a run.
type Job struct {
	Entity string
	// DependsOn lists the entities whose failure or skip must skip this job.
	DependsOn []string
	Run       func(ctx context.Context) error
}

// Config holds the orchestrator's knobs. The zero value is usable.
type Config struct {
	// MaxWorkers bounds concurrency within a wave. Zero means unbounded.
	MaxWorkers int
	// IsFatal, when it returns true for a job error, cancels the wave and
	// skips all later waves.
	IsFatal func(error) bool
	// Broker receives progress events when set.
	Broker *pubsub.Broker[Update]
	// Tracer is optional; a no-op tracer is used when nil.
	Tracer trace.Tracer
}

// Orchestrator runs job waves and assembles the run report.
type Orchestrator struct {
	maxWorkers int
	isFatal    func(error) bool
	broker     *pubsub.Broker[Update]
	tracer     trace.Tracer
}

// New creates an orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.Tracer == nil {
		cfg.Tracer = noop.NewTracerProvider().Tracer("orchestrator")
	}
	return &Orchestrator{
		maxWorkers: cfg.MaxWorkers,
		isFatal:    cfg.IsFatal,
		broker:     cfg.Broker,
		tracer:     cfg.Tracer,
	}
}

type jobOutcome struct {
	entity   string
	wave     int
	err      error
	duration time.Duration
}

// Run executes the waves and returns the completed report. Warnings are
// recorded on the report verbatim.
func (o *Orchestrator) Run(ctx context.Context, mode string, waves [][]Job, warnings []string) *Report {
	report := NewReport(mode, warnings)
	defer report.finish()

	ctx, runSpan := o.tracer.Start(ctx, tracing.SpanRun, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, report.RunID),
		attribute.String(tracing.AttrRunMode, mode),
	))
	defer runSpan.End()

	log.Info(log.CatOrch, "run started", "run_id", report.RunID, "mode", mode, "waves", len(waves))

	// rootCause maps an entity that failed or was skipped to the entity
	// whose failure started the chain.
	rootCause := make(map[string]string)
	fatalFrom := ""

	for waveIdx, wave := range waves {
		if fatalFrom != "" {
			o.skipWave(report, waveIdx, wave, fatalFrom, rootCause)
			continue
		}
		fatalFrom = o.runWave(ctx, report, waveIdx, wave, rootCause)
	}

	succeeded, failed, skipped := report.Counts()
	runSpan.SetAttributes(
		attribute.Int("trove.succeeded", succeeded),
		attribute.Int("trove.failed", failed),
		attribute.Int("trove.skipped", skipped),
	)
	log.Info(log.CatOrch, "run finished", "run_id", report.RunID,
		"succeeded", succeeded, "failed", failed, "skipped", skipped)
	return report
}

// runWave executes one wave and returns the name of the entity whose
// fatal failure should abort the run, or "".
func (o *Orchestrator) runWave(ctx context.Context, report *Report, waveIdx int, wave []Job, rootCause map[string]string) string {
	ctx, waveSpan := o.tracer.Start(ctx, tracing.SpanWave, trace.WithAttributes(
		attribute.Int(tracing.AttrWaveIndex, waveIdx),
		attribute.Int(tracing.AttrWaveSize, len(wave)),
	))
	defer waveSpan.End()

	o.publish(EventWaveStarted, Update{Wave: waveIdx})
	defer o.publish(EventWaveFinished, Update{Wave: waveIdx})

	waveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes []jobOutcome
	)

	var sem chan struct{}
	if o.maxWorkers > 0 {
		sem = make(chan struct{}, o.maxWorkers)
	}

	fatalFrom := ""
	for _, job := range wave {
		if cause, skipped := o.skipCause(job, rootCause); skipped {
			rootCause[job.Entity] = cause
			report.Entities = append(report.Entities, EntityResult{
				Entity:         job.Entity,
				Status:         StatusSkipped,
				Wave:           waveIdx,
				SkippedBecause: cause,
			})
			o.publish(EventJobSkipped, Update{Entity: job.Entity, Wave: waveIdx})
			log.Warn(log.CatOrch, "job skipped", "entity", job.Entity, "cause", cause)
			continue
		}

		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			outcome := o.runJob(waveCtx, waveIdx, job)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			if outcome.err != nil && o.isFatal != nil && o.isFatal(outcome.err) {
				cancel()
			}
		}(job)
	}
	wg.Wait()

	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].entity < outcomes[j].entity })
	for _, out := range outcomes {
		result := EntityResult{
			Entity:   out.entity,
			Wave:     out.wave,
			Duration: out.duration,
		}
		if out.err != nil {
			result.Status = StatusFailed
			result.Err = out.err
			result.Error = out.err.Error()
			rootCause[out.entity] = out.entity
			if o.isFatal != nil && o.isFatal(out.err) {
				fatalFrom = out.entity
			}
		} else {
			result.Status = StatusSucceeded
		}
		report.Entities = append(report.Entities, result)
	}
	return fatalFrom
}

// runJob executes one job with panic recovery and per-job tracing.
func (o *Orchestrator) runJob(ctx context.Context, waveIdx int, job Job) (outcome jobOutcome) {
	outcome = jobOutcome{entity: job.Entity, wave: waveIdx}

	ctx, span := o.tracer.Start(ctx, tracing.SpanPrefixJob+job.Entity, trace.WithAttributes(
		attribute.String(tracing.AttrEntityName, job.Entity),
	))
	defer func() {
		status := StatusSucceeded
		if outcome.err != nil {
			status = StatusFailed
			span.RecordError(outcome.err)
		}
		span.SetAttributes(attribute.String(tracing.AttrEntityStatus, status.String()))
		span.End()
	}()

	o.publish(EventJobStarted, Update{Entity: job.Entity, Wave: waveIdx})
	log.Info(log.CatOrch, "job started", "entity", job.Entity, "wave", waveIdx)

	start := time.Now()
	func() {
		defer func() {
			if r := recover(); r != nil {
				outcome.err = fmt.Errorf("job for entity %q panicked: %v", job.Entity, r)
			}
		}()
		outcome.err = job.Run(ctx)
	}()
	outcome.duration = time.Since(start)

	if outcome.err != nil {
		o.publish(EventJobFailed, Update{Entity: job.Entity, Wave: waveIdx, Err: outcome.err})
		log.ErrorErr(log.CatOrch, "job failed", outcome.err, "entity", job.Entity, "wave", waveIdx)
	} else {
		o.publish(EventJobSucceeded, Update{Entity: job.Entity, Wave: waveIdx})
		log.Info(log.CatOrch, "job succeeded", "entity", job.Entity, "wave", waveIdx, "duration", outcome.duration)
	}
	return outcome
}

// skipCause returns the root-cause entity if any dependency of the job
// failed or was skipped.
func (o *Orchestrator) skipCause(job Job, rootCause map[string]string) (string, bool) {
	for _, dep := range job.DependsOn {
		if cause, ok := rootCause[dep]; ok {
			return cause, true
		}
	}
	return "", false
}

// skipWave marks every job in a wave skipped after a fatal failure.
func (o *Orchestrator) skipWave(report *Report, waveIdx int, wave []Job, fatalFrom string, rootCause map[string]string) {
	for _, job := range wave {
		cause := fatalFrom
		if depCause, skipped := o.skipCause(job, rootCause); skipped {
			cause = depCause
		}
		rootCause[job.Entity] = cause
		report.Entities = append(report.Entities, EntityResult{
			Entity:         job.Entity,
			Status:         StatusSkipped,
			Wave:           waveIdx,
			SkippedBecause: cause,
		})
		o.publish(EventJobSkipped, Update{Entity: job.Entity, Wave: waveIdx})
	}
}

func (o *Orchestrator) publish(eventType pubsub.EventType, update Update) {
	if o.broker != nil {
		o.broker.Publish(eventType, update)
	}
}
