// Package config provides configuration loading for phased.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fyrsmithlabs/phased/internal/logging"
	"github.com/fyrsmithlabs/phased/internal/taskbackend"
)

// Config is the full phased configuration.
type Config struct {
	// DataDir holds conversation state and the transition journal.
	DataDir string `koanf:"data_dir"`

	Workflow WorkflowConfig     `koanf:"workflow"`
	Backend  taskbackend.Config `koanf:"backend"`
	Review   ReviewConfig       `koanf:"review"`
	Agent    AgentConfig        `koanf:"agent"`
	Journal  JournalConfig      `koanf:"journal"`
	Logging  logging.Config     `koanf:"logging"`
}

// WorkflowConfig controls workflow definition lookup.
type WorkflowConfig struct {
	// SearchPaths are consulted in order before built-in definitions.
	// A file matching <name>.yaml in an earlier path shadows later ones.
	SearchPaths []string `koanf:"search_paths"`
}

// ReviewConfig sets the default review posture for new conversations.
// A start request may override it per conversation.
type ReviewConfig struct {
	RequireByDefault bool `koanf:"require_by_default"`
}

// AgentConfig identifies this agent in collaborative workflows.
type AgentConfig struct {
	Role string `koanf:"role"`
}

// JournalConfig controls the append-only transition journal.
type JournalConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path of the JSONL file. Defaults to <data_dir>/journal.jsonl.
	Path string `koanf:"path"`
}

// applyDefaults fills in zero values after loading.
func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, ".local", "share", "phased")
		} else {
			cfg.DataDir = ".phased-data"
		}
	}
	if cfg.Backend.Kind == "" {
		cfg.Backend.Kind = taskbackend.KindAuto
	}
	if cfg.Backend.Command == "" {
		cfg.Backend.Command = taskbackend.DefaultCommand
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = taskbackend.DefaultTimeout
	}
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = filepath.Join(cfg.DataDir, "journal.jsonl")
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case taskbackend.KindInline, taskbackend.KindExternal, taskbackend.KindAuto:
	default:
		return fmt.Errorf("backend.kind: unknown kind %q", c.Backend.Kind)
	}
	if c.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout: cannot be negative")
	}
	if c.Backend.Timeout > 5*time.Minute {
		return fmt.Errorf("backend.timeout: %s exceeds the 5m ceiling", c.Backend.Timeout)
	}
	for _, p := range c.Workflow.SearchPaths {
		if p == "" {
			return fmt.Errorf("workflow.search_paths: empty entry")
		}
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return nil
}
