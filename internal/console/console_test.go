package console

import (
	"bytes"
	"testing"
	"time"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loopctl/internal/testutil"
)

type recordingSink struct {
	entries []Entry
	clears  int
}

func (s *recordingSink) Entry(e Entry) { s.entries = append(s.entries, e) }
func (s *recordingSink) Clear()        { s.clears++ }

func fixedClock() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) }

func TestConsole_Write(t *testing.T) {
	// Arrange
	var out bytes.Buffer
	logger, logs := testutil.NewLogger(t)
	c := New(&out, logger, Options{Now: fixedClock})
	sink := &recordingSink{}
	c.AddSink(sink)

	// Act
	c.Log("Acquiring output devices...")
	c.Success("Live file loaded successfully.")
	c.Warn("No project loaded.")
	c.Errorf("%s at line: %d", "boom", 3)

	// Assert
	assert.Equal(t, "03:04:05 Acquiring output devices...\n"+
		"03:04:05 Live file loaded successfully.\n"+
		"03:04:05 No project loaded.\n"+
		"03:04:05 boom at line: 3\n", out.String())

	require.Len(t, sink.entries, 4)
	assert.Equal(t, LevelError, sink.entries[3].Level)
	assert.Equal(t, c.Entries(), sink.entries)

	assert.Contains(t, logs.String(), "boom at line: 3")
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestConsole_Clear(t *testing.T) {
	c := New(nil, nil, Options{})
	sink := &recordingSink{}
	remove := c.AddSink(sink)

	c.Log("one")
	c.Clear()
	assert.Empty(t, c.Entries())
	assert.Equal(t, 1, sink.clears)

	remove()
	c.Log("two")
	c.Clear()
	assert.Len(t, sink.entries, 1)
	assert.Equal(t, 1, sink.clears)
}

func TestConsole_Bounded(t *testing.T) {
	c := New(nil, nil, Options{})
	for i := 0; i < maxEntries+10; i++ {
		c.Logf("line %d", i)
	}

	entries := c.Entries()
	require.Len(t, entries, maxEntries)
	assert.Equal(t, "line 10", entries[0].Message)
}

func TestConsole_Colors(t *testing.T) {
	var out bytes.Buffer
	c := New(&out, nil, Options{Colors: true, Now: fixedClock})

	c.Error("boom")

	assert.Equal(t, "03:04:05 boom\n", color.ClearCode(out.String()))
}
