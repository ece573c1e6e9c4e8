// Package cmd implements the trove command line interface.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/trove/internal/config"
	"github.com/zjrosen/trove/internal/log"
)

var (
	version = "dev"
	cfgFile string
	cfg     config.Config

	logFile string
	verbose bool

	enableEntities  []string
	disableEntities []string
)

var rootCmd = &cobra.Command{
	Use:           "trove",
	Short:         "Backup and restore for hosted issue trackers",
	Long:          `Trove captures labels, milestones, issues and comments from a hosted issue tracker into a local archive, and restores them into another project in dependency order.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/trove/config.yaml)")
	rootCmd.PersistentFlags().StringP("repo", "r", "",
		"project coordinate, e.g. owner/name")
	rootCmd.PersistentFlags().String("token", "",
		"API token (or TROVE_TOKEN)")
	rootCmd.PersistentFlags().String("base-url", "",
		"API endpoint of the tracking service")
	rootCmd.PersistentFlags().StringP("archive-dir", "a", "",
		"directory backups are written to and restored from")
	rootCmd.PersistentFlags().Bool("strict", false,
		"fail instead of auto-disabling explicitly requested entities with disabled dependencies")
	rootCmd.PersistentFlags().StringSliceVar(&enableEntities, "enable", nil,
		"entity to enable regardless of its default (repeatable)")
	rootCmd.PersistentFlags().StringSliceVar(&disableEntities, "disable", nil,
		"entity to disable regardless of its default (repeatable)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write structured logs to this file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"log at debug level")

	_ = viper.BindPFlag("repo", rootCmd.PersistentFlags().Lookup("repo"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	_ = viper.BindPFlag("archive_dir", rootCmd.PersistentFlags().Lookup("archive-dir"))
	_ = viper.BindPFlag("strict", rootCmd.PersistentFlags().Lookup("strict"))
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("base_url", defaults.BaseURL)
	viper.SetDefault("archive_dir", defaults.ArchiveDir)
	viper.SetDefault("conflicts", defaults.Conflicts)
	viper.SetDefault("max_workers", defaults.MaxWorkers)
	viper.SetDefault("call_timeout", defaults.CallTimeout)
	viper.SetDefault("cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("cache.ttl", defaults.Cache.TTL)
	viper.SetDefault("cache.cleanup_interval", defaults.Cache.CleanupInterval)
	viper.SetDefault("rate_limit.requests_per_second", defaults.RateLimit.RequestsPerSecond)
	viper.SetDefault("rate_limit.burst", defaults.RateLimit.Burst)
	viper.SetDefault("retry.max_tries", defaults.Retry.MaxTries)
	viper.SetDefault("retry.initial_interval", defaults.Retry.InitialInterval)
	viper.SetDefault("retry.max_interval", defaults.Retry.MaxInterval)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	viper.SetEnvPrefix("TROVE")
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .trove/config.yaml (current directory)
		// 2. ~/.config/trove/config.yaml (user config)
		if _, err := os.Stat(".trove/config.yaml"); err == nil {
			viper.SetConfigFile(".trove/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "trove"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is fine, defaults plus flags carry the run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "warning: reading config: %v\n", err)
		}
	}

	cfg = config.Defaults()
	_ = viper.Unmarshal(&cfg)

	if cfg.Entities == nil {
		cfg.Entities = map[string]bool{}
	}
	for _, name := range enableEntities {
		cfg.Entities[name] = true
	}
	for _, name := range disableEntities {
		cfg.Entities[name] = false
	}
}

// setupLogging wires the file logger when requested. Returns a cleanup
// func.
func setupLogging() (func(), error) {
	if logFile == "" {
		return func() {}, nil
	}
	cleanup, err := log.Init(logFile)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	if verbose {
		log.SetMinLevel(log.LevelDebug)
	} else {
		log.SetMinLevel(log.LevelInfo)
	}
	return cleanup, nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags).
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
