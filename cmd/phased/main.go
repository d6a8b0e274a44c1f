// Phased is an MCP daemon that walks coding agents through development
// workflows phase by phase.
//
// Usage:
//
//	# Start the MCP server on stdio
//	phased serve
//
//	# List available workflows
//	phased workflows
//
// Configuration is loaded from ~/.config/phased/config.yaml and PHASED_*
// environment variables. See internal/config for details.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/config"
	"github.com/fyrsmithlabs/phased/internal/conversation"
	"github.com/fyrsmithlabs/phased/internal/engine"
	"github.com/fyrsmithlabs/phased/internal/hooks"
	"github.com/fyrsmithlabs/phased/internal/logging"
	"github.com/fyrsmithlabs/phased/internal/mcp"
	"github.com/fyrsmithlabs/phased/internal/workflow"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var configFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "phased",
	Short: "Phase orchestration MCP server for coding agents",
	Long: `phased guides coding agents through development workflows: it tracks
which phase a work unit is in, validates phase transitions, and tells the
agent what to do next. Agents talk to it over MCP on stdio.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ~/.config/phased/config.yaml)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workflowsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.SetVersionTemplate("phased {{.Version}}\n")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the phased MCP server on the stdio transport.

The process is meant to be spawned by an MCP client (a coding agent
harness), which owns stdin and stdout. Logs go to stderr.`,
	RunE: runServe,
}

var workflowsCmd = &cobra.Command{
	Use:   "workflows",
	Short: "List available workflow definitions",
	RunE:  runWorkflows,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("phased %s (commit %s, built %s)\n", version, gitCommit, buildDate)
	},
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, logger, cfg, err := buildService()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	server, err := mcp.NewServer(&mcp.Config{
		Name:    "phased",
		Version: version,
		Logger:  logger.Named("mcp"),
	}, svc)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("phased starting",
		zap.String("version", version),
		zap.String("data_dir", cfg.DataDir),
		zap.String("backend_kind", string(cfg.Backend.Kind)),
	)
	return server.Run(ctx)
}

func runWorkflows(cmd *cobra.Command, args []string) error {
	svc, logger, _, err := buildService()
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	for _, info := range svc.ListWorkflows() {
		if info.Description != "" {
			fmt.Printf("%-12s %s\n", info.Name, info.Description)
			continue
		}
		fmt.Println(info.Name)
	}
	return nil
}

// buildService wires config, logging, storage, hooks, and the engine.
func buildService() (*engine.Service, *zap.Logger, *config.Config, error) {
	cfg, err := config.LoadWithFile(configFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger, err := logging.New(&cfg.Logging)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, nil, nil, fmt.Errorf("creating data directory %s: %w", cfg.DataDir, err)
	}

	registry := workflow.NewRegistry(logger.Named("workflow"))
	store := conversation.NewStore(filepath.Join(cfg.DataDir, "conversations"), logger.Named("store"))

	hookReg := hooks.NewRegistry()
	if cfg.Journal.Enabled {
		hookReg.Register(hooks.NewJournal(cfg.Journal.Path, logger.Named("journal")))
	}

	svc := engine.NewService(engine.Config{
		WorkflowSearchPaths:     cfg.Workflow.SearchPaths,
		Backend:                 cfg.Backend,
		AgentRole:               cfg.Agent.Role,
		RequireReviewsByDefault: cfg.Review.RequireByDefault,
	}, registry, store, hookReg, logger.Named("engine"))

	return svc, logger, cfg, nil
}
