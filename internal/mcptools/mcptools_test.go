package mcptools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loopctl/internal/controller"
)

type fakeController struct {
	calls   []string
	playing bool
	canPlay bool
}

func (f *fakeController) ReloadProject(context.Context) { f.calls = append(f.calls, "project") }
func (f *fakeController) BuildLive(context.Context)     { f.calls = append(f.calls, "live") }
func (f *fakeController) Play() bool {
	f.calls = append(f.calls, "play")
	f.playing = f.canPlay
	return f.canPlay
}
func (f *fakeController) Stop() {
	f.calls = append(f.calls, "stop")
	f.playing = false
}
func (f *fakeController) Status() controller.Status {
	return controller.Status{State: controller.StateLiveClean.String(), Running: f.playing}
}

type inlineRunner struct{ err error }

func (r inlineRunner) Run(ctx context.Context, fn func(ctx context.Context)) error {
	if r.err != nil {
		return r.err
	}
	fn(ctx)
	return nil
}

type fakeHistory struct {
	unit     controller.Unit
	limit    int
	attempts []controller.Attempt
	err      error
}

func (f *fakeHistory) Recent(_ context.Context, unit controller.Unit, limit int) ([]controller.Attempt, error) {
	f.unit, f.limit = unit, limit
	return f.attempts, f.err
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestNewServer_RegistersTools(t *testing.T) {
	s := NewServer("test", Deps{Controller: &fakeController{}, Runner: inlineRunner{}})

	tools := s.ListTools()
	for _, name := range []string{"build_project", "build_live", "status", "play", "stop", "history"} {
		assert.Contains(t, tools, name)
	}
	assert.Len(t, tools, 6)
}

func TestBuildTool(t *testing.T) {
	ctrl := &fakeController{}
	tool := &BuildTool{deps: Deps{Controller: ctrl, Runner: inlineRunner{}}}

	res, err := tool.HandleProject(context.Background(), makeReq(nil))
	require.NoError(t, err)
	require.False(t, res.IsError)

	var status controller.Status
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &status))
	assert.Equal(t, "live-clean", status.State)

	res, err = tool.HandleLive(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, []string{"project", "live"}, ctrl.calls)
}

func TestStatusTool_RunnerUnavailable(t *testing.T) {
	tool := &StatusTool{deps: Deps{Controller: &fakeController{}, Runner: inlineRunner{err: context.Canceled}}}

	res, err := tool.Handle(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "controller unavailable")
}

func TestTransportTool(t *testing.T) {
	ctrl := &fakeController{}
	tool := &TransportTool{deps: Deps{Controller: ctrl, Runner: inlineRunner{}}}

	res, err := tool.HandlePlay(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, resultText(res), "nothing to play")

	ctrl.canPlay = true
	res, err = tool.HandlePlay(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.True(t, ctrl.playing)

	res, err = tool.HandleStop(context.Background(), makeReq(nil))
	require.NoError(t, err)
	assert.Equal(t, "Stopped.", resultText(res))
	assert.False(t, ctrl.playing)
}

func TestHistoryTool(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		tool := &HistoryTool{deps: Deps{}}
		res, err := tool.Handle(context.Background(), makeReq(nil))
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})

	t.Run("defaults", func(t *testing.T) {
		h := &fakeHistory{}
		tool := &HistoryTool{deps: Deps{History: h}}
		res, err := tool.Handle(context.Background(), makeReq(nil))
		require.NoError(t, err)
		assert.Equal(t, "No build attempts recorded.", resultText(res))
		assert.Equal(t, controller.Unit(""), h.unit)
		assert.Equal(t, 20, h.limit)
	})

	t.Run("filtered", func(t *testing.T) {
		h := &fakeHistory{attempts: []controller.Attempt{
			{Unit: controller.UnitLive, File: "Live.hcl", Kind: "SyntaxError", Message: "boom", Line: 3},
		}}
		tool := &HistoryTool{deps: Deps{History: h}}
		res, err := tool.Handle(context.Background(), makeReq(map[string]interface{}{"unit": "live", "limit": 5}))
		require.NoError(t, err)
		require.False(t, res.IsError)
		assert.Equal(t, controller.UnitLive, h.unit)
		assert.Equal(t, 5, h.limit)

		var got []controller.Attempt
		require.NoError(t, json.Unmarshal([]byte(resultText(res)), &got))
		require.Len(t, got, 1)
		assert.Equal(t, 3, got[0].Line)
	})

	t.Run("error", func(t *testing.T) {
		tool := &HistoryTool{deps: Deps{History: &fakeHistory{err: errors.New("disk gone")}}}
		res, err := tool.Handle(context.Background(), makeReq(nil))
		require.NoError(t, err)
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "disk gone")
	})
}

func TestDefinitions(t *testing.T) {
	def := (&HistoryTool{}).Definition()
	assert.Equal(t, "history", def.Name)
	assert.Contains(t, def.InputSchema.Properties, "unit")
	assert.Contains(t, def.InputSchema.Properties, "limit")
	assert.Empty(t, def.InputSchema.Required)
}
