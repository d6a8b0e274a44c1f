package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/phased/internal/taskbackend"
)

func TestLoadWithFile_Defaults(t *testing.T) {
	// Point at a path that does not exist; defaults must fill everything.
	cfg, err := LoadWithFile(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, taskbackend.KindAuto, cfg.Backend.Kind)
	assert.Equal(t, taskbackend.DefaultCommand, cfg.Backend.Command)
	assert.Equal(t, taskbackend.DefaultTimeout, cfg.Backend.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, filepath.Join(cfg.DataDir, "journal.jsonl"), cfg.Journal.Path)
	assert.False(t, cfg.Review.RequireByDefault)
}

func TestLoadWithFile_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/phased
workflow:
  search_paths:
    - /etc/phased/workflows
backend:
  kind: external
  command: backlog
  timeout: 30s
review:
  require_by_default: true
agent:
  role: architect
journal:
  enabled: true
logging:
  level: debug
  format: console
`), 0o600))

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/phased", cfg.DataDir)
	assert.Equal(t, []string{"/etc/phased/workflows"}, cfg.Workflow.SearchPaths)
	assert.Equal(t, taskbackend.KindExternal, cfg.Backend.Kind)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.True(t, cfg.Review.RequireByDefault)
	assert.Equal(t, "architect", cfg.Agent.Role)
	assert.True(t, cfg.Journal.Enabled)
	assert.Equal(t, filepath.Join("/var/lib/phased", "journal.jsonl"), cfg.Journal.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadWithFile_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  kind: inline\n"), 0o600))

	t.Setenv("PHASED_BACKEND_KIND", "external")
	t.Setenv("PHASED_AGENT_ROLE", "developer")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, taskbackend.KindExternal, cfg.Backend.Kind)
	assert.Equal(t, "developer", cfg.Agent.Role)
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: [not: a: map\n"), 0o600))

	_, err := LoadWithFile(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults pass",
			mutate: func(*Config) {},
		},
		{
			name:    "unknown backend kind",
			mutate:  func(c *Config) { c.Backend.Kind = "jira" },
			wantErr: "backend.kind",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Backend.Timeout = -time.Second },
			wantErr: "backend.timeout",
		},
		{
			name:    "timeout over ceiling",
			mutate:  func(c *Config) { c.Backend.Timeout = 10 * time.Minute },
			wantErr: "backend.timeout",
		},
		{
			name:    "empty search path",
			mutate:  func(c *Config) { c.Workflow.SearchPaths = []string{""} },
			wantErr: "workflow.search_paths",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "shout" },
			wantErr: "logging",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			applyDefaults(cfg)
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
