package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/trove/internal/archive"
	"github.com/zjrosen/trove/internal/config"
	"github.com/zjrosen/trove/internal/entity"
	"github.com/zjrosen/trove/internal/orchestrator"
	"github.com/zjrosen/trove/internal/transport"
)

var errUnauthorized = errors.New("bad credentials")

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.Repo = "octo/widgets"
	cfg.Cache.Enabled = false
	return cfg
}

// sourceRecorder fakes the source tracker for a backup run.
func sourceRecorder() *transport.Recorder {
	return transport.NewRecorder().
		HandleValue("labels.list", []any{
			map[string]any{"id": "1", "name": "bug", "color": "d73a4a"},
		}).
		HandleValue("milestones.list", []any{
			map[string]any{"id": "3", "title": "v1.0", "state": "open"},
		}).
		HandleValue("issues.list", []any{
			map[string]any{
				"id": "101", "title": "crash on start", "state": "open",
				"milestone": map[string]any{"id": "3"},
				"user":      map[string]any{"login": "alice", "type": "User"},
			},
		}).
		HandleValue("comments.list", []any{
			map[string]any{
				"id": "9001", "issue_id": "101", "body": "same here",
				"user": map[string]any{"login": "bob", "type": "User"},
			},
		})
}

// destinationRecorder fakes an empty destination tracker for a restore run.
func destinationRecorder() *transport.Recorder {
	return transport.NewRecorder().
		HandleValue("labels.list", []any{}).
		HandleValue("labels.create", map[string]any{"id": "21"}).
		HandleValue("milestones.list", []any{}).
		HandleValue("milestones.create", map[string]any{"id": "77"}).
		HandleValue("issues.create", map[string]any{"id": "501"}).
		HandleValue("comments.create", map[string]any{"id": "8001"})
}

func TestBackupThenRestore_EndToEnd(t *testing.T) {
	store := archive.NewMemoryStore()
	ctx := context.Background()

	// Backup from the source.
	backupApp, err := New(testConfig(), Options{Transport: sourceRecorder(), Archive: store})
	require.NoError(t, err)
	defer backupApp.Close(ctx)

	report, err := backupApp.Backup(ctx)
	require.NoError(t, err)
	require.False(t, report.Failed())
	require.Equal(t, orchestrator.ModeBackup, report.Mode)

	archived, err := store.Entities(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"comments", "issues", "labels", "milestones"}, archived)

	// Restore into an empty destination.
	dest := destinationRecorder()
	restoreApp, err := New(testConfig(), Options{Transport: dest, Archive: store})
	require.NoError(t, err)
	defer restoreApp.Close(ctx)

	report, err = restoreApp.Restore(ctx)
	require.NoError(t, err)
	require.False(t, report.Failed())

	// The comment landed on the issue's new identifier, and the issue on
	// the milestone's.
	var issueParams, commentParams transport.Params
	for _, call := range dest.Calls() {
		switch call.Method {
		case "issues.create":
			issueParams = call.Params
		case "comments.create":
			commentParams = call.Params
		}
	}
	require.NotNil(t, issueParams)
	require.Equal(t, "77", issueParams["milestone"])
	require.NotNil(t, commentParams)
	require.Equal(t, "501", commentParams["issue"])
}

func TestNew_PlanOrdersWavesByDependency(t *testing.T) {
	a, err := New(testConfig(), Options{Transport: transport.NewRecorder(), Archive: archive.NewMemoryStore()})
	require.NoError(t, err)
	defer a.Close(context.Background())

	plan := a.Plan()
	labelsWave, _ := plan.WaveOf("labels")
	milestonesWave, _ := plan.WaveOf("milestones")
	issuesWave, _ := plan.WaveOf("issues")
	commentsWave, _ := plan.WaveOf("comments")

	require.Equal(t, 0, labelsWave)
	require.Equal(t, 0, milestonesWave)
	require.Greater(t, issuesWave, milestonesWave)
	require.Greater(t, commentsWave, issuesWave)
}

func TestNew_DisablingDependencyCascades(t *testing.T) {
	cfg := testConfig()
	cfg.Entities = map[string]bool{"milestones": false}

	a, err := New(cfg, Options{Transport: sourceRecorder(), Archive: archive.NewMemoryStore()})
	require.NoError(t, err)
	defer a.Close(context.Background())

	res := a.Resolution()
	require.Equal(t, []string{"labels"}, res.Enabled)
	require.Len(t, res.Warnings, 2)

	// Warnings flow into the run report.
	report, err := a.Backup(context.Background())
	require.NoError(t, err)
	require.Equal(t, res.Warnings, report.Warnings)
}

func TestNew_StrictModeRejectsExplicitRequestWithDisabledDependency(t *testing.T) {
	cfg := testConfig()
	cfg.Strict = true
	cfg.Entities = map[string]bool{"milestones": false, "issues": true}

	_, err := New(cfg, Options{Transport: transport.NewRecorder(), Archive: archive.NewMemoryStore()})
	require.Error(t, err)

	var resErr *entity.ResolutionError
	require.ErrorAs(t, err, &resErr)
	require.Equal(t, "issues", resErr.Entity)
	require.Equal(t, "milestones", resErr.Dependency)
}

func TestNew_RejectsUnknownRequestedEntity(t *testing.T) {
	cfg := testConfig()
	cfg.Entities = map[string]bool{"wiki": true}

	_, err := New(cfg, Options{Transport: transport.NewRecorder(), Archive: archive.NewMemoryStore()})
	require.Error(t, err)
	require.Contains(t, err.Error(), `"wiki"`)
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Repo = ""

	_, err := New(cfg, Options{Transport: transport.NewRecorder()})
	require.Error(t, err)
}

func TestBackup_FatalAuthErrorSkipsEverythingDownstream(t *testing.T) {
	rec := transport.NewRecorder().
		Handle("labels.list", func(transport.Params) (any, error) {
			return nil, &transport.Error{Method: "labels.list", StatusCode: 401, Err: errUnauthorized}
		}).
		HandleValue("milestones.list", []any{}).
		HandleValue("issues.list", []any{}).
		HandleValue("comments.list", []any{})

	cfg := testConfig()
	cfg.Retry.MaxTries = 1

	a, err := New(cfg, Options{Transport: rec, Archive: archive.NewMemoryStore()})
	require.NoError(t, err)
	defer a.Close(context.Background())

	report, err := a.Backup(context.Background())
	require.NoError(t, err)
	require.True(t, report.Failed())

	labels, _ := report.Result("labels")
	require.Equal(t, orchestrator.StatusFailed, labels.Status)

	// Later waves never ran.
	issues, _ := report.Result("issues")
	require.Equal(t, orchestrator.StatusSkipped, issues.Status)
	comments, _ := report.Result("comments")
	require.Equal(t, orchestrator.StatusSkipped, comments.Status)
}
