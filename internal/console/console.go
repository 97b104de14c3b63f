// Package console is the user-facing log panel. Messages are printed to a
// terminal writer, mirrored into slog and fanned out to sinks such as the UI
// hub. Console methods never fail.
package console

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gookit/color"
)

// Level is the severity of a console entry.
type Level string

const (
	LevelLog     Level = "log"
	LevelSuccess Level = "success"
	LevelWarn    Level = "warn"
	LevelError   Level = "error"
)

const maxEntries = 200

// Entry is one line of the panel.
type Entry struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Sink receives every entry and every clear.
type Sink interface {
	Entry(Entry)
	Clear()
}

// Options configures a Console.
type Options struct {
	// Colors enables ANSI rendering of the terminal output.
	Colors bool
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Console is safe for concurrent use.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	logger  *slog.Logger
	colors  bool
	now     func() time.Time
	entries []Entry
	next    int
	sinks   map[int]Sink
}

// New creates a Console writing to w. A nil w discards terminal output.
func New(w io.Writer, logger *slog.Logger, opts Options) *Console {
	if w == nil {
		w = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Console{
		w:      w,
		logger: logger,
		colors: opts.Colors,
		now:    now,
		sinks:  make(map[int]Sink),
	}
}

func (c *Console) Log(msg string)     { c.write(LevelLog, msg) }
func (c *Console) Success(msg string) { c.write(LevelSuccess, msg) }
func (c *Console) Warn(msg string)    { c.write(LevelWarn, msg) }
func (c *Console) Error(msg string)   { c.write(LevelError, msg) }

// Logf formats according to a format specifier and logs the result.
func (c *Console) Logf(format string, args ...any) { c.Log(fmt.Sprintf(format, args...)) }

// Errorf formats according to a format specifier and logs the result as an
// error.
func (c *Console) Errorf(format string, args ...any) { c.Error(fmt.Sprintf(format, args...)) }

// Clear empties the panel.
func (c *Console) Clear() {
	c.mu.Lock()
	c.entries = nil
	sinks := c.snapshotSinks()
	c.mu.Unlock()

	c.logger.Debug("Console cleared.")
	for _, s := range sinks {
		s.Clear()
	}
}

// Entries returns the entries since the last Clear, oldest first.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Entry(nil), c.entries...)
}

// AddSink registers s and returns a function that removes it.
func (c *Console) AddSink(s Sink) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.next
	c.next++
	c.sinks[id] = s
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.sinks, id)
	}
}

func (c *Console) write(level Level, msg string) {
	e := Entry{Level: level, Message: msg, Time: c.now()}

	c.mu.Lock()
	c.entries = append(c.entries, e)
	if len(c.entries) > maxEntries {
		c.entries = c.entries[len(c.entries)-maxEntries:]
	}
	fmt.Fprintln(c.w, c.render(e))
	sinks := c.snapshotSinks()
	c.mu.Unlock()

	switch level {
	case LevelError:
		c.logger.Error(msg)
	case LevelWarn:
		c.logger.Warn(msg)
	default:
		c.logger.Info(msg, "level", string(level))
	}
	for _, s := range sinks {
		s.Entry(e)
	}
}

// snapshotSinks must be called with mu held.
func (c *Console) snapshotSinks() []Sink {
	out := make([]Sink, 0, len(c.sinks))
	for id := 0; id < c.next; id++ {
		if s, ok := c.sinks[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

func (c *Console) render(e Entry) string {
	line := e.Time.Format("15:04:05") + " " + e.Message
	if !c.colors {
		return line
	}
	switch e.Level {
	case LevelSuccess:
		return color.Green.Sprint(line)
	case LevelWarn:
		return color.Yellow.Sprint(line)
	case LevelError:
		return color.Red.Sprint(line)
	default:
		return color.Gray.Sprint(line)
	}
}
