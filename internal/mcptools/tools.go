package mcptools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/vk/loopctl/internal/controller"
)

// BuildTool handles build_project and build_live.
type BuildTool struct {
	deps Deps
}

func (t *BuildTool) ProjectDefinition() mcp.Tool {
	return mcp.NewTool("build_project",
		mcp.WithDescription("Stop playback and rebuild the project unit, then the live unit. Returns the controller status."),
	)
}

func (t *BuildTool) LiveDefinition() mcp.Tool {
	return mcp.NewTool("build_live",
		mcp.WithDescription("Re-evaluate the live unit if it changed. A failing edit falls back to the last clean version. Returns the controller status."),
	)
}

func (t *BuildTool) HandleProject(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return statusAfter(ctx, t.deps, t.deps.Controller.ReloadProject)
}

func (t *BuildTool) HandleLive(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return statusAfter(ctx, t.deps, t.deps.Controller.BuildLive)
}

// StatusTool handles status.
type StatusTool struct {
	deps Deps
}

func (t *StatusTool) Definition() mcp.Tool {
	return mcp.NewTool("status",
		mcp.WithDescription("Show the controller state, loop position, tracks and the last live error."),
	)
}

func (t *StatusTool) Handle(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return statusAfter(ctx, t.deps, nil)
}

// TransportTool handles play and stop.
type TransportTool struct {
	deps Deps
}

func (t *TransportTool) PlayDefinition() mcp.Tool {
	return mcp.NewTool("play",
		mcp.WithDescription("Start the loop. Fails when no project is loaded or playback was halted."),
	)
}

func (t *TransportTool) StopDefinition() mcp.Tool {
	return mcp.NewTool("stop",
		mcp.WithDescription("Stop the loop and rewind to the start of the form."),
	)
}

func (t *TransportTool) HandlePlay(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var started bool
	if err := t.deps.Runner.Run(ctx, func(context.Context) { started = t.deps.Controller.Play() }); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("controller unavailable: %v", err)), nil
	}
	if !started {
		return mcp.NewToolResultError("nothing to play: no project is loaded or playback is halted"), nil
	}
	return mcp.NewToolResultText("Playing."), nil
}

func (t *TransportTool) HandleStop(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := t.deps.Runner.Run(ctx, func(context.Context) { t.deps.Controller.Stop() }); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("controller unavailable: %v", err)), nil
	}
	return mcp.NewToolResultText("Stopped."), nil
}

// HistoryTool handles history.
type HistoryTool struct {
	deps Deps
}

func (t *HistoryTool) Definition() mcp.Tool {
	return mcp.NewTool("history",
		mcp.WithDescription("List recent build attempts, newest first."),
		mcp.WithString("unit",
			mcp.Description("Only list attempts for this unit."),
			mcp.Enum(string(controller.UnitProject), string(controller.UnitLive), string(controller.UnitFallback)),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of attempts to return."),
			mcp.DefaultNumber(20),
			mcp.Min(1),
			mcp.Max(200),
		),
	)
}

func (t *HistoryTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if t.deps.History == nil {
		return mcp.NewToolResultError("build journal is disabled, start loopctl with -journal"), nil
	}
	unit := controller.Unit(req.GetString("unit", ""))
	limit := req.GetInt("limit", 20)

	attempts, err := t.deps.History.Recent(ctx, unit, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read history: %v", err)), nil
	}
	if len(attempts) == 0 {
		return mcp.NewToolResultText("No build attempts recorded."), nil
	}
	return jsonResult(attempts)
}
