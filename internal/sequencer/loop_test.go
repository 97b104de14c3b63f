package sequencer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loopctl/internal/testutil"
)

type recordingListener struct {
	mu        sync.Mutex
	positions []string
	stops     int
}

func (r *recordingListener) OnPosition(pos Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions = append(r.positions, pos.String())
}

func (r *recordingListener) OnStop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stops++
}

func (r *recordingListener) Stops() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stops
}

func newTestLoop(t *testing.T, settings Settings) (*Loop, *testutil.RecordingOutput) {
	t.Helper()
	logger, _ := testutil.NewLogger(t)
	out := testutil.NewRecordingOutput("rec")
	return New(out, settings, logger), out
}

func TestStep_PlaysPatterns(t *testing.T) {
	loop, out := newTestLoop(t, Settings{Form: Form{Bars: 1, Beats: 1}})
	loop.Reload(Frame{Patterns: []Pattern{
		{Track: "kick", Channel: 10, Note: 36, Velocity: 100, Steps: []int{1, 0}},
		{Track: "hat", Channel: 10, Note: 42, Velocity: 80, Steps: []int{1}},
	}})

	loop.Step()
	loop.Step()

	assert.Equal(t, []int{36, 42, 42}, out.Notes())
	assert.Equal(t, 10, out.Messages()[0].Channel)
	assert.Equal(t, loop.StepDuration(), out.Messages()[0].Duration)
}

func TestStep_SkipsMutedTracks(t *testing.T) {
	loop, out := newTestLoop(t, Settings{})
	loop.Reload(Frame{
		Patterns: []Pattern{
			{Track: "kick", Note: 36, Steps: []int{1}},
			{Track: "hat", Note: 42, Steps: []int{1}},
		},
		Muted: []string{"hat"},
	})

	loop.Step()
	assert.Equal(t, []int{36}, out.Notes())

	assert.False(t, loop.ToggleMute("hat"))
	assert.True(t, loop.ToggleMute("kick"))
	loop.Step()
	assert.Equal(t, []int{36, 42}, out.Notes())
	assert.Equal(t, []string{"kick"}, loop.Muted())
}

func TestStep_PositionAndForm(t *testing.T) {
	loop, _ := newTestLoop(t, Settings{Form: Form{Bars: 2, Beats: 2}})
	listener := &recordingListener{}
	loop.Observe(listener)

	for i := 0; i < 5; i++ {
		require.True(t, loop.Step())
	}

	assert.Equal(t, []string{"1:1:1", "1:1:2", "1:1:3", "1:1:4", "1:2:1"}, listener.positions)
	assert.Equal(t, "1:2:2", loop.Position().String())
}

func TestStep_EndOfForm(t *testing.T) {
	t.Run("without repeat", func(t *testing.T) {
		loop, _ := newTestLoop(t, Settings{Form: Form{Bars: 1, Beats: 1}})
		assert.True(t, loop.Step())
		assert.True(t, loop.Step())
		assert.True(t, loop.Step())
		assert.False(t, loop.Step())
		assert.Equal(t, "1:1:1", loop.Position().String())
	})

	t.Run("repeat with max restarts", func(t *testing.T) {
		loop, _ := newTestLoop(t, Settings{Form: Form{Bars: 1, Beats: 1}, Repeat: true, MaxRestarts: 1})
		for i := 0; i < 4; i++ {
			require.True(t, loop.Step())
		}
		assert.Equal(t, 1, loop.Restarts())
		for i := 0; i < 3; i++ {
			require.True(t, loop.Step())
		}
		assert.False(t, loop.Step())
	})
}

func TestReload_TempoOverride(t *testing.T) {
	loop, _ := newTestLoop(t, Settings{BPM: 120})
	assert.Equal(t, 125*time.Millisecond, loop.StepDuration())

	loop.Reload(Frame{BPM: 60})
	assert.Equal(t, 250*time.Millisecond, loop.StepDuration())

	loop.Reload(Frame{})
	assert.Equal(t, 60.0, loop.Settings().BPM, "zero bpm keeps the current tempo")
}

func TestStartStop(t *testing.T) {
	loop, out := newTestLoop(t, Settings{BPM: 6000, Repeat: true})
	listener := &recordingListener{}
	loop.Observe(listener)
	loop.Reload(Frame{Patterns: []Pattern{{Track: "kick", Note: 36, Steps: []int{1}}}})

	loop.Start()
	loop.Start() // no-op
	require.Eventually(t, func() bool { return len(out.Notes()) >= 3 }, time.Second, time.Millisecond)
	assert.True(t, loop.Running())

	loop.Stop()
	loop.Stop() // idempotent

	assert.False(t, loop.Running())
	assert.Equal(t, 1, listener.Stops())
	assert.Equal(t, "1:1:1", loop.Position().String())

	played := len(out.Notes())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, played, len(out.Notes()), "no notes after stop")
}

func TestStart_FinishesWithoutRepeat(t *testing.T) {
	loop, _ := newTestLoop(t, Settings{BPM: 6000, Form: Form{Bars: 1, Beats: 1}})
	listener := &recordingListener{}
	loop.Observe(listener)

	loop.Start()

	require.Eventually(t, func() bool { return !loop.Running() }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return listener.Stops() == 1 }, time.Second, time.Millisecond)
}

func TestReset(t *testing.T) {
	loop, _ := newTestLoop(t, Settings{})
	loop.Reload(Frame{Patterns: []Pattern{{Track: "kick", Steps: []int{1}}}, Muted: []string{"kick"}})
	loop.Step()

	loop.Reset()

	assert.Empty(t, loop.Patterns())
	assert.Empty(t, loop.Muted())
	assert.Equal(t, "1:1:1", loop.Position().String())
}

func TestObserve_Unsubscribe(t *testing.T) {
	loop, _ := newTestLoop(t, Settings{})
	listener := &recordingListener{}
	remove := loop.Observe(listener)

	loop.Step()
	remove()
	loop.Step()

	assert.Len(t, listener.positions, 1)
}
