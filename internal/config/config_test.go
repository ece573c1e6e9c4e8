package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.Repo = "acme/widgets"
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.True(t, cfg.Cache.Enabled)
	require.Equal(t, 4, cfg.MaxWorkers)
	require.Equal(t, "skip", cfg.Conflicts)
	require.NotNil(t, cfg.Entities)
	require.Empty(t, cfg.Entities)
}

func TestValidate_RequiresRepo(t *testing.T) {
	cfg := Defaults()

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "repo")
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"zero workers", func(c *Config) { c.MaxWorkers = 0 }, "max_workers"},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerSecond = 0 }, "requests_per_second"},
		{"zero burst", func(c *Config) { c.RateLimit.Burst = 0 }, "burst"},
		{"zero tries", func(c *Config) { c.Retry.MaxTries = 0 }, "max_tries"},
		{"zero timeout", func(c *Config) { c.CallTimeout = 0 }, "call_timeout"},
		{"bad conflicts", func(c *Config) { c.Conflicts = "merge" }, "conflicts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
