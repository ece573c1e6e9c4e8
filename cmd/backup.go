package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/trove/internal/app"
	"github.com/zjrosen/trove/internal/orchestrator"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Capture the project's entities into the archive",
	Long: `Back up every enabled entity of the configured project into the
archive directory, one snapshot file per entity, in dependency order.

Examples:
  # Back up everything with defaults
  trove backup --repo octo/widgets --token $TROVE_TOKEN

  # Only labels and milestones
  trove backup -r octo/widgets --disable issues --disable comments`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd, orchestrator.ModeBackup)
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Recreate archived entities in the configured project",
	Long: `Restore archived entities into the configured project. Entities
are recreated in dependency order so restored issues reference restored
milestones and restored comments attach to restored issues.

The conflicts policy (skip, overwrite, fail) decides what happens when
the destination already has a matching record.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMode(cmd, orchestrator.ModeRestore)
	},
}

var dryRun bool

func init() {
	for _, c := range []*cobra.Command{backupCmd, restoreCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and print the execution plan without contacting the service")
	}
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
}

// planPreview is the YAML shape rendered by --dry-run.
type planPreview struct {
	Mode     string     `yaml:"mode"`
	Waves    [][]string `yaml:"waves"`
	Warnings []string   `yaml:"warnings,omitempty"`
}

// runMode executes one run and renders its report. The exit status is an
// error exactly when any entity failed.
func runMode(cmd *cobra.Command, mode string) error {
	cleanup, err := setupLogging()
	if err != nil {
		return err
	}
	defer cleanup()

	a, err := app.New(cfg, app.Options{})
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer func() { _ = a.Close(ctx) }()

	if dryRun {
		preview := planPreview{
			Mode:     mode,
			Waves:    a.Plan().Waves,
			Warnings: a.Resolution().Warnings,
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode(preview)
	}

	var report *orchestrator.Report
	switch mode {
	case orchestrator.ModeBackup:
		report, err = a.Backup(ctx)
	case orchestrator.ModeRestore:
		report, err = a.Restore(ctx)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
	if err != nil {
		return err
	}

	if err := renderReport(os.Stdout, report); err != nil {
		return err
	}
	if report.Failed() {
		_, failed, _ := report.Counts()
		return fmt.Errorf("%d entity(ies) failed", failed)
	}
	return nil
}

// renderReport writes the run report as YAML.
func renderReport(w *os.File, report *orchestrator.Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	defer func() { _ = enc.Close() }()
	return enc.Encode(report)
}
