// Package testutil holds helpers shared by package tests: log capture,
// project fixtures and a recording output.
package testutil

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/loopctl/internal/device"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// NewLogger returns a debug-level text logger writing into a SafeBuffer.
// Set LOOPCTL_TEST_LOGS=true to dump the buffer at the end of the test.
func NewLogger(t *testing.T) (*slog.Logger, *SafeBuffer) {
	t.Helper()
	buf := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() {
		if os.Getenv("LOOPCTL_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), buf.String())
		}
	})
	return logger, buf
}

// WriteFiles writes files relative to dir, creating parent directories.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

// NewProjectDir creates a temporary project directory holding files.
func NewProjectDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, files)
	return dir
}

// RecordingOutput is a device.Output that keeps every message it receives.
type RecordingOutput struct {
	OutputID string

	mu       sync.Mutex
	messages []device.Message
}

// NewRecordingOutput creates a RecordingOutput with the given id.
func NewRecordingOutput(id string) *RecordingOutput {
	return &RecordingOutput{OutputID: id}
}

func (o *RecordingOutput) ID() string   { return o.OutputID }
func (o *RecordingOutput) Name() string { return "Recording " + o.OutputID }

// Send records msg.
func (o *RecordingOutput) Send(msg device.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, msg)
	return nil
}

// Messages returns a copy of everything sent so far.
func (o *RecordingOutput) Messages() []device.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]device.Message(nil), o.messages...)
}

// Notes returns the note numbers sent so far, in order.
func (o *RecordingOutput) Notes() []int {
	var notes []int
	for _, m := range o.Messages() {
		notes = append(notes, m.Note)
	}
	return notes
}
