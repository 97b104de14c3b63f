package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/loopctl/internal/testutil"
)

func touch(t *testing.T, path string, content string, mod time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestWatcher_Poll(t *testing.T) {
	// Arrange
	dir := testutil.NewProjectDir(t, map[string]string{
		"Project.hcl": "bpm = 120\n",
		"Live.hcl":    "",
		"notes.txt":   "ignored",
	})
	w := New(dir, ".hcl")
	var titles []string
	w.OnSave(func(title string) { titles = append(titles, title) })
	ctx := context.Background()

	// Act: the first poll only primes.
	require.NoError(t, w.Poll(ctx))
	assert.Empty(t, titles)

	base := time.Now().Add(time.Hour)
	touch(t, filepath.Join(dir, "Live.hcl"), "bpm = 90\n", base)
	touch(t, filepath.Join(dir, "notes.txt"), "still ignored", base)
	require.NoError(t, w.Poll(ctx))

	// Assert
	assert.Equal(t, []string{"Live.hcl"}, titles)

	// No change, no event.
	require.NoError(t, w.Poll(ctx))
	assert.Equal(t, []string{"Live.hcl"}, titles)

	touch(t, filepath.Join(dir, "Project.hcl"), "bpm = 100\n", base.Add(time.Second))
	touch(t, filepath.Join(dir, "Live.hcl"), "bpm = 91\n", base.Add(time.Second))
	require.NoError(t, w.Poll(ctx))
	assert.Equal(t, []string{"Live.hcl", "Live.hcl", "Project.hcl"}, titles)
}

func TestWatcher_NewFile(t *testing.T) {
	dir := t.TempDir()
	w := New(dir, ".hcl")
	var titles []string
	w.OnSave(func(title string) { titles = append(titles, title) })
	require.NoError(t, w.Poll(context.Background()))

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "parts"), 0755))
	touch(t, filepath.Join(dir, "parts", "Drums.hcl"), "", time.Now())
	require.NoError(t, w.Poll(context.Background()))

	assert.Equal(t, []string{"parts/Drums.hcl"}, titles)
}

func TestWatcher_Dispose(t *testing.T) {
	dir := testutil.NewProjectDir(t, map[string]string{"Live.hcl": ""})
	w := New(dir, ".hcl")
	calls := 0
	sub := w.OnSave(func(string) { calls++ })
	require.Equal(t, 1, w.Subscribers())

	sub.Dispose()
	sub.Dispose()

	assert.Equal(t, 0, w.Subscribers())
	require.NoError(t, w.Poll(context.Background()))
	touch(t, filepath.Join(dir, "Live.hcl"), "x = 1\n", time.Now().Add(time.Hour))
	require.NoError(t, w.Poll(context.Background()))
	assert.Equal(t, 0, calls)
}

func TestWatcher_Run(t *testing.T) {
	dir := testutil.NewProjectDir(t, map[string]string{"Live.hcl": ""})
	w := New(dir, ".hcl")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, w.Run(ctx, time.Millisecond))
}

func TestWatcher_Poll_SameSizeAndModTime(t *testing.T) {
	// Arrange: two saves of equal length inside one timestamp tick.
	dir := t.TempDir()
	path := filepath.Join(dir, "Live.hcl")
	mod := time.Now().Truncate(time.Second)
	touch(t, path, "bpm = 60\n", mod)

	w := New(dir, ".hcl")
	var titles []string
	w.OnSave(func(title string) { titles = append(titles, title) })
	require.NoError(t, w.Poll(context.Background()))

	// Act
	touch(t, path, "bpm = 70\n", mod)
	require.NoError(t, w.Poll(context.Background()))

	// Assert
	assert.Equal(t, []string{"Live.hcl"}, titles)
}

func TestWatcher_Poll_TouchWithoutChange(t *testing.T) {
	dir := testutil.NewProjectDir(t, map[string]string{"Live.hcl": "bpm = 60\n"})
	w := New(dir, ".hcl")
	calls := 0
	w.OnSave(func(string) { calls++ })
	require.NoError(t, w.Poll(context.Background()))

	touch(t, filepath.Join(dir, "Live.hcl"), "bpm = 60\n", time.Now().Add(time.Hour))
	require.NoError(t, w.Poll(context.Background()))

	assert.Equal(t, 0, calls)
}

func TestWatcher_Handle(t *testing.T) {
	// Arrange
	dir := testutil.NewProjectDir(t, map[string]string{"Live.hcl": "bpm = 60\n", "notes.txt": ""})
	path := filepath.Join(dir, "Live.hcl")
	w := New(dir, ".hcl")
	var titles []string
	w.OnSave(func(title string) { titles = append(titles, title) })
	ctx := context.Background()
	require.NoError(t, w.Poll(ctx))

	// Same content: nothing to report.
	require.NoError(t, w.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write}))
	assert.Empty(t, titles)

	// Changed content.
	require.NoError(t, os.WriteFile(path, []byte("bpm = 70\n"), 0644))
	require.NoError(t, w.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write}))
	require.NoError(t, w.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Write}))
	assert.Equal(t, []string{"Live.hcl"}, titles)

	// An editor that replaces the file by rename reports it again.
	require.NoError(t, w.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Rename}))
	require.NoError(t, w.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Create}))
	assert.Equal(t, []string{"Live.hcl", "Live.hcl"}, titles)

	// Other extensions and chmod are ignored.
	require.NoError(t, w.Handle(ctx, fsnotify.Event{Name: filepath.Join(dir, "notes.txt"), Op: fsnotify.Write}))
	require.NoError(t, w.Handle(ctx, fsnotify.Event{Name: path, Op: fsnotify.Chmod}))
	assert.Len(t, titles, 2)
}

func TestWatcher_HandleError(t *testing.T) {
	dir := testutil.NewProjectDir(t, map[string]string{"Live.hcl": ""})
	w := New(dir, ".hcl")
	var titles []string
	w.OnSave(func(title string) { titles = append(titles, title) })
	ctx := context.Background()
	require.NoError(t, w.Poll(ctx))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Live.hcl"), []byte("x = 1\n"), 0644))
	require.NoError(t, w.HandleError(ctx, fsnotify.ErrEventOverflow))
	assert.Equal(t, []string{"Live.hcl"}, titles)

	boom := errors.New("boom")
	assert.ErrorIs(t, w.HandleError(ctx, boom), boom)
}

func TestWatcher_Start(t *testing.T) {
	// Arrange
	dir := testutil.NewProjectDir(t, map[string]string{"Live.hcl": "bpm = 60\n"})
	w := New(dir, ".hcl")
	saves := make(chan string, 8)
	w.OnSave(func(title string) { saves <- title })
	ctx := context.Background()
	require.NoError(t, w.Start(ctx))
	t.Cleanup(func() { w.Close() })
	require.NotNil(t, w.Events())

	// Act
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "parts"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Live.hcl"), []byte("bpm = 70\n"), 0644))

	// Assert: feed events back the way a dispatch loop does.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-w.Events():
			require.NoError(t, w.Handle(ctx, ev))
		case err := <-w.Errors():
			require.NoError(t, w.HandleError(ctx, err))
		case title := <-saves:
			assert.Equal(t, "Live.hcl", title)
			return
		case <-deadline:
			t.Fatal("no save reported")
		}
	}
}

func TestWatcher_NotStarted(t *testing.T) {
	w := New(t.TempDir(), ".hcl")
	assert.Nil(t, w.Events())
	assert.Nil(t, w.Errors())
	assert.NoError(t, w.Close())
}
