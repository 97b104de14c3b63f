// Package mcptools exposes the controller to MCP clients over stdio.
//
// Each tool follows the same pattern:
//   - a struct with its dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Controller calls are run through a Runner so that they execute on the
// application's dispatch loop.
package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/vk/loopctl/internal/controller"
	"github.com/vk/loopctl/internal/ctxlog"
)

// Controller is the part of the controller the tools drive.
type Controller interface {
	ReloadProject(ctx context.Context)
	BuildLive(ctx context.Context)
	Play() bool
	Stop()
	Status() controller.Status
}

// History lists past build attempts.
type History interface {
	Recent(ctx context.Context, unit controller.Unit, limit int) ([]controller.Attempt, error)
}

// Runner runs fn on the goroutine that owns the controller and waits for it.
type Runner interface {
	Run(ctx context.Context, fn func(ctx context.Context)) error
}

// Deps are the dependencies shared by all tools. History may be nil.
type Deps struct {
	Controller Controller
	History    History
	Runner     Runner
}

// NewServer creates an MCP server with every tool registered.
func NewServer(version string, deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"loopctl",
		version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions("Controls a live-coding loop. Build the project or live unit after editing, then check status."),
	)

	build := &BuildTool{deps: deps}
	s.AddTool(build.ProjectDefinition(), build.HandleProject)
	s.AddTool(build.LiveDefinition(), build.HandleLive)

	status := &StatusTool{deps: deps}
	s.AddTool(status.Definition(), status.Handle)

	transport := &TransportTool{deps: deps}
	s.AddTool(transport.PlayDefinition(), transport.HandlePlay)
	s.AddTool(transport.StopDefinition(), transport.HandleStop)

	history := &HistoryTool{deps: deps}
	s.AddTool(history.Definition(), history.Handle)

	return s
}

// Serve speaks MCP over in/out until ctx is done.
func Serve(ctx context.Context, s *server.MCPServer, in io.Reader, out io.Writer) error {
	logger := ctxlog.FromContext(ctx)
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(logger.Handler(), slog.LevelError))

	logger.Info("MCP server listening on stdio.")
	err := stdio.Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// statusAfter runs fn on the dispatch loop and returns the resulting status.
func statusAfter(ctx context.Context, deps Deps, fn func(ctx context.Context)) (*mcp.CallToolResult, error) {
	var status controller.Status
	err := deps.Runner.Run(ctx, func(ctx context.Context) {
		if fn != nil {
			fn(ctx)
		}
		status = deps.Controller.Status()
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("controller unavailable: %v", err)), nil
	}
	return jsonResult(status)
}
