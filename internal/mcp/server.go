// Package mcp exposes the phase orchestration engine as MCP tools.
//
// This implementation uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and calls the engine directly. Transition gate rejections are returned as
// structured tool output, not protocol errors: the calling agent is expected
// to read the rejection and act on it.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/engine"
)

// Server is the MCP server wrapping the orchestration engine.
type Server struct {
	mcp    *mcp.Server
	svc    *engine.Service
	logger *zap.Logger
}

// Config configures the MCP server.
type Config struct {
	// Name is the server implementation name (default: "phased")
	Name string

	// Version is the server version (default: "dev")
	Version string

	// Logger for structured logging
	Logger *zap.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Name:    "phased",
		Version: "dev",
		Logger:  zap.NewNop(),
	}
}

// NewServer creates the MCP server and registers all tools.
func NewServer(cfg *Config, svc *engine.Service) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if svc == nil {
		return nil, fmt.Errorf("engine service is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    cfg.Name,
			Version: cfg.Version,
		},
		nil,
	)

	s := &Server{
		mcp:    mcpServer,
		svc:    svc,
		logger: cfg.Logger,
	}
	s.registerTools()
	return s, nil
}

// Run starts the MCP server on the stdio transport.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting MCP server on stdio transport")
	transport := &mcp.StdioTransport{}
	if err := s.mcp.Run(ctx, transport); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}
