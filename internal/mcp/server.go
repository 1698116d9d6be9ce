package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/census-mcp/internal/census"
	"github.com/dshills/census-mcp/internal/logging"
)

const (
	// ServerName is the MCP server name
	ServerName = "census-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with the census registry
type Server struct {
	mcp      *server.MCPServer
	registry *census.Registry
	logger   *slog.Logger
}

// NewServer creates a new MCP server over reg. The server owns reg and
// closes it when Serve returns.
func NewServer(reg *census.Registry, logger *slog.Logger) (*Server, error) {
	if reg == nil {
		return nil, errors.New("registry is required")
	}
	if logger == nil {
		logger = logging.Discard()
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:      mcpServer,
		registry: reg,
		logger:   logger,
	}

	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.registry.Close() }()
	s.logger.InfoContext(ctx, "serving census tools on stdio", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(listTablesTool(), s.handleListTables)
	s.mcp.AddTool(lookupManifoldTool(), s.handleLookupManifold)
	s.mcp.AddTool(getManifoldTool(), s.handleGetManifold)
	s.mcp.AddTool(sliceTableTool(), s.handleSliceTable)
	s.mcp.AddTool(identifyManifoldTool(), s.handleIdentifyManifold)
}
