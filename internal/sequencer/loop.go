package sequencer

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/vk/loopctl/internal/device"
)

const stepsPerBeat = 4

// Form is the length of one pass through the loop.
type Form struct {
	Bars  int
	Beats int
}

// Settings configures a Loop.
type Settings struct {
	BPM         float64
	Form        Form
	Repeat      bool
	MaxRestarts int // 0 means unlimited
}

// Pattern is the step sequence of one track.
type Pattern struct {
	Track    string
	Channel  int
	Note     int
	Velocity int
	Steps    []int
}

// Frame is the playable state produced by a live reload.
type Frame struct {
	Patterns []Pattern
	Muted    []string
	BPM      float64 // 0 keeps the current tempo
}

// Position is a bar:beat:sixteenth position, 1-based.
type Position struct {
	Bar       int `json:"bar"`
	Beat      int `json:"beat"`
	Sixteenth int `json:"sixteenth"`
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d:%d", p.Bar, p.Beat, p.Sixteenth)
}

// Listener receives transport events. Callbacks run on the loop goroutine
// and must not block.
type Listener interface {
	OnPosition(pos Position)
	OnStop()
}

// Loop is the scheduling loop.
type Loop struct {
	logger *slog.Logger

	mu        sync.Mutex
	out       device.Output
	settings  Settings
	patterns  []Pattern
	muted     map[string]bool
	step      int
	restarts  int
	running   bool
	stop      chan struct{}
	done      chan struct{}
	nextID    int
	listeners map[int]Listener
}

// New creates a stopped loop playing to out.
func New(out device.Output, settings Settings, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger:    logger,
		out:       out,
		settings:  normalize(settings),
		muted:     make(map[string]bool),
		listeners: make(map[int]Listener),
	}
}

func normalize(s Settings) Settings {
	if s.BPM <= 0 {
		s.BPM = 120
	}
	if s.Form.Bars <= 0 {
		s.Form.Bars = 4
	}
	if s.Form.Beats <= 0 {
		s.Form.Beats = 4
	}
	if s.MaxRestarts < 0 {
		s.MaxRestarts = 0
	}
	return s
}

// Observe registers a listener and returns a function removing it.
func (l *Loop) Observe(listener Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = listener
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.listeners, id)
	}
}

// Start begins playback from the current position. Starting a running loop
// is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	l.logger.Debug("Loop started.", "bpm", l.settings.BPM, "position", l.positionLocked().String())
	go l.run(l.stop, l.done)
}

// Stop halts playback and rewinds to the start of the form. It is
// idempotent and waits for the loop goroutine to exit.
func (l *Loop) Stop() {
	l.mu.Lock()
	if !l.running {
		l.step = 0
		l.restarts = 0
		l.mu.Unlock()
		return
	}
	l.running = false
	close(l.stop)
	done := l.done
	l.mu.Unlock()

	<-done

	l.mu.Lock()
	l.step = 0
	l.restarts = 0
	l.mu.Unlock()

	l.logger.Debug("Loop stopped.")
	l.notifyStop()
}

// Reset stops the loop and drops all live state: patterns, mutes and the
// restart counter. Settings from the project are kept.
func (l *Loop) Reset() {
	l.Stop()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = nil
	l.muted = make(map[string]bool)
}

// Reload swaps in a new frame. Playback, if running, continues with the new
// patterns from the next step.
func (l *Loop) Reload(frame Frame) {
	patterns := append([]Pattern(nil), frame.Patterns...)
	muted := make(map[string]bool, len(frame.Muted))
	for _, name := range frame.Muted {
		muted[name] = true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns = patterns
	l.muted = muted
	if frame.BPM > 0 {
		l.settings.BPM = frame.BPM
	}
	l.logger.Debug("Loop reloaded.", "patterns", len(patterns), "muted", len(muted), "bpm", l.settings.BPM)
}

// Running reports whether the loop is playing.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Position returns the position of the next step to be played.
func (l *Loop) Position() Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.positionLocked()
}

// Settings returns the current settings.
func (l *Loop) Settings() Settings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// Restarts returns how many times the form has restarted since the last stop.
func (l *Loop) Restarts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.restarts
}

// SetRepeat enables or disables repeating the form.
func (l *Loop) SetRepeat(repeat bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.settings.Repeat = repeat
}

// ToggleMute flips the mute state of track and returns the new state.
func (l *Loop) ToggleMute(track string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.muted[track] = !l.muted[track]
	if !l.muted[track] {
		delete(l.muted, track)
	}
	return l.muted[track]
}

// Muted returns the muted track names, sorted.
func (l *Loop) Muted() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.muted))
	for name := range l.muted {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Patterns returns the active patterns.
func (l *Loop) Patterns() []Pattern {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Pattern(nil), l.patterns...)
}

// StepDuration is the length of one sixteenth note at the current tempo.
func (l *Loop) StepDuration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return stepDuration(l.settings.BPM)
}

func stepDuration(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm / stepsPerBeat)
}

// Step plays the current step and advances. It returns false when the form
// has ended and the loop should stop.
func (l *Loop) Step() bool {
	l.mu.Lock()
	pos := l.positionLocked()
	out := l.out
	duration := stepDuration(l.settings.BPM)
	var messages []device.Message
	for _, p := range l.patterns {
		if l.muted[p.Track] || len(p.Steps) == 0 {
			continue
		}
		if p.Steps[l.step%len(p.Steps)] <= 0 {
			continue
		}
		messages = append(messages, device.Message{
			Channel:  p.Channel,
			Note:     p.Note,
			Velocity: p.Velocity,
			Duration: duration,
		})
	}

	l.step++
	more := true
	if l.step >= l.totalStepsLocked() {
		l.step = 0
		switch {
		case !l.settings.Repeat:
			more = false
		case l.settings.MaxRestarts > 0 && l.restarts >= l.settings.MaxRestarts:
			more = false
		default:
			l.restarts++
		}
	}
	listeners := l.listenersLocked()
	l.mu.Unlock()

	for _, msg := range messages {
		if out == nil {
			break
		}
		if err := out.Send(msg); err != nil {
			l.logger.Warn("Output rejected note.", "output", out.ID(), "note", msg.Note, "error", err)
		}
	}
	for _, listener := range listeners {
		listener.OnPosition(pos)
	}
	return more
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-timer.C:
			if !l.Step() {
				l.finish()
				return
			}
			timer.Reset(l.StepDuration())
		}
	}
}

// finish is called by the loop goroutine when the form ends without repeat.
func (l *Loop) finish() {
	l.mu.Lock()
	if !l.running {
		// Stop is already in progress and will notify.
		l.mu.Unlock()
		return
	}
	l.running = false
	l.restarts = 0
	l.mu.Unlock()

	l.logger.Debug("Loop finished the form.")
	l.notifyStop()
}

func (l *Loop) notifyStop() {
	l.mu.Lock()
	listeners := l.listenersLocked()
	l.mu.Unlock()
	for _, listener := range listeners {
		listener.OnStop()
	}
}

func (l *Loop) listenersLocked() []Listener {
	ids := make([]int, 0, len(l.listeners))
	for id := range l.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]Listener, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.listeners[id])
	}
	return out
}

func (l *Loop) totalStepsLocked() int {
	return l.settings.Form.Bars * l.settings.Form.Beats * stepsPerBeat
}

func (l *Loop) positionLocked() Position {
	perBar := l.settings.Form.Beats * stepsPerBeat
	return Position{
		Bar:       l.step/perBar + 1,
		Beat:      (l.step%perBar)/stepsPerBeat + 1,
		Sixteenth: l.step%stepsPerBeat + 1,
	}
}
