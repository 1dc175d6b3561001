package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server serves a Registry over the Model Context Protocol.
type Server struct {
	registry *Registry
	mcp      *server.MCPServer
	logger   *slog.Logger
}

// NewServer registers every tool in registry on a new MCP server.
func NewServer(registry *Registry, name, version string, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		registry: registry,
		mcp:      server.NewMCPServer(name, version, server.WithToolCapabilities(false), server.WithRecovery()),
		logger:   logger,
	}

	for _, spec := range registry.Specs() {
		inputSchema, err := json.Marshal(spec.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to encode input schema for %s: %w", spec.Name, err)
		}
		s.mcp.AddTool(mcp.NewToolWithRawSchema(spec.Name, spec.Description, inputSchema), s.handler(spec.Name))
	}
	return s, nil
}

// handler runs one tool. A ToolError becomes an error result the model can
// read; any other error fails the request.
func (s *Server) handler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("failed to encode arguments for %s: %w", name, err)
		}

		out, err := s.registry.Execute(ctx, name, args)
		var toolErr *ToolError
		if errors.As(err, &toolErr) {
			body, _ := json.Marshal(toolErr)
			return mcp.NewToolResultError(string(body)), nil
		}
		if err != nil {
			s.logger.Error("tool failed", "tool", name, "error", err)
			return nil, err
		}

		body, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s result: %w", name, err)
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}

// ServeStdio speaks MCP over in/out until ctx is cancelled or in closes.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))

	s.logger.Info("serving MCP over stdio", "tools", len(s.registry.Specs()))
	err := stdio.Listen(ctx, in, out)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio server: %w", err)
	}
	return nil
}

// ServeHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled.
func (s *Server) ServeHTTP(ctx context.Context, addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.mcp)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(addr)
	}()
	s.logger.Info("serving MCP over HTTP", "addr", addr, "tools", len(s.registry.Specs()))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down MCP HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	}
}
