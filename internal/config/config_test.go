package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("MESHSYNC_SERVER_JOIN_SECRET", "join")
	t.Setenv("MESHSYNC_SERVER_SIGNING_SECRET", "signing")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, 24*time.Hour, cfg.Server.TokenTTL)
	assert.Equal(t, 3, cfg.Registry.MissDegraded)
	assert.Equal(t, 5, cfg.Registry.MissOffline)
	assert.Equal(t, 10*time.Minute, cfg.Registry.OfflineTTL)
	assert.Equal(t, 1024, cfg.Scheduler.QueueSize)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.BackoffBase)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.BackoffCap)
	assert.Equal(t, 0.5, cfg.Router.HealthThreshold)
	assert.Equal(t, "edge", cfg.Node.Role)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MESHSYNC_SERVER_JOIN_SECRET", "join")
	t.Setenv("MESHSYNC_SERVER_SIGNING_SECRET", "signing")
	t.Setenv("MESHSYNC_SERVER_LISTEN_ADDR", ":9090")
	t.Setenv("MESHSYNC_LOG_LEVEL", "debug")
	t.Setenv("MESHSYNC_REGISTRY_MISS_OFFLINE", "7")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 7, cfg.Registry.MissOffline)
}

func TestLoad_ConfigFile(t *testing.T) {
	content := `
log_level: warn
server:
  join_secret: file-join
  signing_secret: file-signing
  listen_addr: ":7070"
routes:
  - service: thumbnails
    default_policy: local_first
    candidates:
      - node_id: edge-1
        addr: "http://edge-1:8081"
        role: edge
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, ":7070", cfg.Server.ListenAddr)
	require.Len(t, cfg.Routes, 1)
	assert.Equal(t, "thumbnails", cfg.Routes[0].Service)
	assert.Equal(t, "local_first", cfg.Routes[0].DefaultPolicy)
	require.Len(t, cfg.Routes[0].Candidates, 1)
	assert.Equal(t, "edge-1", cfg.Routes[0].Candidates[0].NodeID)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{
				JoinSecret:    "join",
				SigningSecret: "signing",
			},
			Registry: RegistryConfig{
				MissDegraded: 3,
				MissOffline:  5,
			},
			Scheduler: SchedulerConfig{QueueSize: 100},
			Router:    RouterConfig{HealthThreshold: 0.5},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing join secret",
			mutate:  func(c *Config) { c.Server.JoinSecret = "" },
			wantErr: true,
		},
		{
			name:    "missing signing secret",
			mutate:  func(c *Config) { c.Server.SigningSecret = "" },
			wantErr: true,
		},
		{
			name:    "degraded threshold zero",
			mutate:  func(c *Config) { c.Registry.MissDegraded = 0 },
			wantErr: true,
		},
		{
			name:    "offline not above degraded",
			mutate:  func(c *Config) { c.Registry.MissOffline = 3 },
			wantErr: true,
		},
		{
			name:    "zero queue size",
			mutate:  func(c *Config) { c.Scheduler.QueueSize = 0 },
			wantErr: true,
		},
		{
			name:    "health threshold above one",
			mutate:  func(c *Config) { c.Router.HealthThreshold = 1.5 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
