package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/trove/internal/pubsub"
)

func okJob(entity string, deps ...string) Job {
	return Job{
		Entity:    entity,
		DependsOn: deps,
		Run:       func(ctx context.Context) error { return nil },
	}
}

func failJob(entity string, err error, deps ...string) Job {
	return Job{
		Entity:    entity,
		DependsOn: deps,
		Run:       func(ctx context.Context) error { return err },
	}
}

// === Happy path ===

func TestRun_AllJobsSucceed(t *testing.T) {
	o := New(Config{})

	report := o.Run(context.Background(), ModeBackup, [][]Job{
		{okJob("labels"), okJob("milestones")},
		{okJob("issues", "milestones")},
	}, []string{"a warning"})

	require.Equal(t, ModeBackup, report.Mode)
	require.NotEmpty(t, report.RunID)
	require.Equal(t, []string{"a warning"}, report.Warnings)
	require.False(t, report.Failed())

	succeeded, failed, skipped := report.Counts()
	require.Equal(t, 3, succeeded)
	require.Zero(t, failed)
	require.Zero(t, skipped)

	issues, ok := report.Result("issues")
	require.True(t, ok)
	require.Equal(t, StatusSucceeded, issues.Status)
	require.Equal(t, 1, issues.Wave)
}

// === Skip propagation ===

func TestRun_FailureSkipsTransitiveDependents(t *testing.T) {
	boom := errors.New("boom")
	o := New(Config{})

	report := o.Run(context.Background(), ModeBackup, [][]Job{
		{okJob("labels"), failJob("milestones", boom)},
		{okJob("issues", "milestones")},
		{okJob("comments", "issues")},
	}, nil)

	require.True(t, report.Failed())

	milestones, _ := report.Result("milestones")
	require.Equal(t, StatusFailed, milestones.Status)
	require.ErrorIs(t, milestones.Err, boom)

	// Both dependents are skipped and both name the root cause, not the
	// nearest dependency.
	issues, _ := report.Result("issues")
	require.Equal(t, StatusSkipped, issues.Status)
	require.Equal(t, "milestones", issues.SkippedBecause)

	comments, _ := report.Result("comments")
	require.Equal(t, StatusSkipped, comments.Status)
	require.Equal(t, "milestones", comments.SkippedBecause)

	labels, _ := report.Result("labels")
	require.Equal(t, StatusSucceeded, labels.Status)
}

func TestRun_IndependentEntitiesUnaffectedByFailure(t *testing.T) {
	o := New(Config{})

	report := o.Run(context.Background(), ModeRestore, [][]Job{
		{failJob("labels", errors.New("nope")), okJob("milestones")},
		{okJob("issues", "milestones")},
	}, nil)

	issues, _ := report.Result("issues")
	require.Equal(t, StatusSucceeded, issues.Status)
}

// === Concurrency ===

func TestRun_JobsWithinWaveRunConcurrently(t *testing.T) {
	var mu sync.Mutex
	started := make(map[string]bool)
	bothStarted := make(chan struct{})

	mark := func(entity string) {
		mu.Lock()
		started[entity] = true
		if len(started) == 2 {
			close(bothStarted)
		}
		mu.Unlock()
	}

	job := func(entity string) Job {
		return Job{Entity: entity, Run: func(ctx context.Context) error {
			mark(entity)
			select {
			case <-bothStarted:
				return nil
			case <-time.After(2 * time.Second):
				return errors.New("peer never started")
			}
		}}
	}

	o := New(Config{MaxWorkers: 4})
	report := o.Run(context.Background(), ModeBackup, [][]Job{
		{job("labels"), job("milestones")},
	}, nil)

	require.False(t, report.Failed())
}

func TestRun_LaterWaveWaitsForSlowEarlierWave(t *testing.T) {
	issuesDone := make(chan struct{})
	var issuesFinished, subStartedAfter atomic.Bool

	slowIssues := Job{Entity: "issues", Run: func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		issuesFinished.Store(true)
		close(issuesDone)
		return nil
	}}
	subIssues := Job{Entity: "sub_issues", DependsOn: []string{"issues"}, Run: func(ctx context.Context) error {
		subStartedAfter.Store(issuesFinished.Load())
		return nil
	}}

	o := New(Config{MaxWorkers: 4})
	report := o.Run(context.Background(), ModeBackup, [][]Job{
		{slowIssues},
		{subIssues},
	}, nil)

	<-issuesDone
	require.False(t, report.Failed())
	require.True(t, subStartedAfter.Load(), "sub_issues must not start before issues completes")
}

func TestRun_MaxWorkersBoundsConcurrency(t *testing.T) {
	var active, peak int32

	job := func(entity string) Job {
		return Job{Entity: entity, Run: func(ctx context.Context) error {
			n := atomic.AddInt32(&active, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&active, -1)
			return nil
		}}
	}

	o := New(Config{MaxWorkers: 1})
	o.Run(context.Background(), ModeBackup, [][]Job{
		{job("a"), job("b"), job("c")},
	}, nil)

	require.Equal(t, int32(1), atomic.LoadInt32(&peak))
}

// === Panic recovery ===

func TestRun_PanicBecomesFailure(t *testing.T) {
	o := New(Config{})

	report := o.Run(context.Background(), ModeBackup, [][]Job{
		{{Entity: "labels", Run: func(ctx context.Context) error { panic("kaboom") }}},
		{okJob("issues", "labels")},
	}, nil)

	labels, _ := report.Result("labels")
	require.Equal(t, StatusFailed, labels.Status)
	require.Contains(t, labels.Error, "panicked")
	require.Contains(t, labels.Error, "kaboom")

	issues, _ := report.Result("issues")
	require.Equal(t, StatusSkipped, issues.Status)
}

// === Fatal errors ===

func TestRun_FatalErrorSkipsLaterWaves(t *testing.T) {
	fatal := errors.New("credentials rejected")
	o := New(Config{
		IsFatal: func(err error) bool { return errors.Is(err, fatal) },
	})

	report := o.Run(context.Background(), ModeBackup, [][]Job{
		{failJob("labels", fatal), okJob("milestones")},
		{okJob("issues", "milestones")},
		{okJob("comments", "issues")},
	}, nil)

	// Later waves are skipped entirely, even entities whose own
	// dependencies succeeded.
	issues, _ := report.Result("issues")
	require.Equal(t, StatusSkipped, issues.Status)
	require.Equal(t, "labels", issues.SkippedBecause)

	comments, _ := report.Result("comments")
	require.Equal(t, StatusSkipped, comments.Status)
}

func TestRun_FatalErrorCancelsWavePeers(t *testing.T) {
	fatal := errors.New("token expired")
	released := make(chan struct{})

	o := New(Config{
		IsFatal: func(err error) bool { return errors.Is(err, fatal) },
	})

	slow := Job{Entity: "milestones", Run: func(ctx context.Context) error {
		defer close(released)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	}}

	report := o.Run(context.Background(), ModeBackup, [][]Job{
		{failJob("labels", fatal), slow},
	}, nil)

	<-released
	milestones, _ := report.Result("milestones")
	require.Equal(t, StatusFailed, milestones.Status)
	require.ErrorIs(t, milestones.Err, context.Canceled)
}

// === Events ===

func TestRun_PublishesLifecycleEvents(t *testing.T) {
	broker := pubsub.NewBroker[Update]()
	defer broker.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	o := New(Config{Broker: broker})
	o.Run(context.Background(), ModeBackup, [][]Job{
		{okJob("labels"), failJob("milestones", errors.New("boom"))},
		{okJob("issues", "milestones")},
	}, nil)

	// 2 wave starts, 2 wave finishes, 2 job starts, 1 success, 1 failure,
	// 1 skip.
	seen := make(map[pubsub.EventType]int)
	deadline := time.After(time.Second)
	for total := 0; total < 9; total++ {
		select {
		case ev := <-events:
			seen[ev.Type]++
		case <-deadline:
			t.Fatalf("timed out waiting for events, saw %v", seen)
		}
	}

	require.Equal(t, 1, seen[EventJobSucceeded])
	require.Equal(t, 1, seen[EventJobFailed])
	require.Equal(t, 1, seen[EventJobSkipped])
	require.Equal(t, 2, seen[EventWaveStarted])
	require.Equal(t, 2, seen[EventWaveFinished])
	require.Equal(t, 2, seen[EventJobStarted])
}

// === Report ===

func TestReport_StatusStrings(t *testing.T) {
	require.Equal(t, "succeeded", StatusSucceeded.String())
	require.Equal(t, "failed", StatusFailed.String())
	require.Equal(t, "skipped", StatusSkipped.String())
}
