// Package watch turns file modifications in a project directory into save
// notifications keyed by file title.
//
// A save is a change of file content. The Watcher learns about candidate
// changes from fsnotify events (Handle) or from a full rescan (Poll), and
// compares a SHA-256 digest of the content against the last one it saw, so
// rewrites that keep the size and modification time are still reported and
// touches that keep the content are not. Handle and Poll fire callbacks
// synchronously on the caller's goroutine, so a caller that owns a single
// dispatch loop keeps every callback on that loop.
package watch

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/vk/loopctl/internal/ctxlog"
	"github.com/vk/loopctl/internal/fsutil"
)

// Disposable cancels a subscription. Dispose is idempotent.
type Disposable interface {
	Dispose()
}

type digest [sha256.Size]byte

// Watcher reports saves of files ending in ext below root. The first Poll
// (or Start) only records the current contents.
type Watcher struct {
	root string
	ext  string

	fs *fsnotify.Watcher

	mu      sync.Mutex
	primed  bool
	digests map[string]digest
	next    int
	subs    map[int]func(title string)
}

// New creates a Watcher for files ending in ext below root.
func New(root, ext string) *Watcher {
	return &Watcher{
		root:    root,
		ext:     ext,
		digests: make(map[string]digest),
		subs:    make(map[int]func(string)),
	}
}

// OnSave registers fn for every save. The title passed to fn is the path of
// the saved file relative to the root, with forward slashes.
func (w *Watcher) OnSave(fn func(title string)) Disposable {
	w.mu.Lock()
	defer w.mu.Unlock()
	id := w.next
	w.next++
	w.subs[id] = fn
	return &subscription{w: w, id: id}
}

// Subscribers returns the number of active subscriptions.
func (w *Watcher) Subscribers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}

// Start subscribes to file system events for root and every directory below
// it, then primes the digests. Events must be fed back through Handle and
// errors through HandleError.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	w.fs = fw
	if err := w.addTree(ctx, w.root); err != nil {
		w.Close()
		return err
	}
	return w.Poll(ctx)
}

// Events delivers raw file system events. It is nil before Start, which
// blocks forever in a select.
func (w *Watcher) Events() <-chan fsnotify.Event {
	if w.fs == nil {
		return nil
	}
	return w.fs.Events
}

// Errors delivers file system watcher errors. It is nil before Start.
func (w *Watcher) Errors() <-chan error {
	if w.fs == nil {
		return nil
	}
	return w.fs.Errors
}

// Close stops file system notifications.
func (w *Watcher) Close() error {
	if w.fs == nil {
		return nil
	}
	err := w.fs.Close()
	w.fs = nil
	return err
}

// Handle processes one file system event and notifies subscribers when it
// changed the content of a watched file.
func (w *Watcher) Handle(ctx context.Context, ev fsnotify.Event) error {
	logger := ctxlog.FromContext(ctx)

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ctx, ev.Name); err != nil {
				return err
			}
			// Files may have landed in the directory before it was watched.
			return w.Poll(ctx)
		}
	}
	if !strings.HasSuffix(ev.Name, w.ext) {
		return nil
	}

	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.digests, ev.Name)
		w.mu.Unlock()
		return nil
	}
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return nil
	}

	sum, err := hashFile(ev.Name)
	if err != nil {
		// Removed or replaced again before we could read it.
		logger.Debug("Skipping unreadable file.", "path", ev.Name, "error", err)
		return nil
	}

	w.mu.Lock()
	prev, seen := w.digests[ev.Name]
	w.digests[ev.Name] = sum
	subs := w.snapshot()
	w.mu.Unlock()

	if seen && prev == sum {
		return nil
	}
	w.notify(ctx, subs, []string{w.title(ev.Name)})
	return nil
}

// HandleError processes a watcher error. A dropped-events overflow is
// recovered with a rescan. Other errors are returned.
func (w *Watcher) HandleError(ctx context.Context, err error) error {
	if errors.Is(err, fsnotify.ErrEventOverflow) {
		ctxlog.FromContext(ctx).Warn("File events overflowed, rescanning.", "dir", w.root)
		return w.Poll(ctx)
	}
	return err
}

// Poll rescans the root once and notifies subscribers of every file whose
// content was created or changed since the previous scan.
func (w *Watcher) Poll(ctx context.Context) error {
	paths, err := fsutil.FindFilesByExtension(w.root, w.ext)
	if err != nil {
		return err
	}

	current := make(map[string]digest, len(paths))
	for _, path := range paths {
		sum, err := hashFile(path)
		if err != nil {
			// Removed between the walk and the read.
			continue
		}
		current[path] = sum
	}

	w.mu.Lock()
	var saved []string
	if w.primed {
		for path, sum := range current {
			if prev, ok := w.digests[path]; !ok || prev != sum {
				saved = append(saved, w.title(path))
			}
		}
	}
	w.primed = true
	w.digests = current
	subs := w.snapshot()
	w.mu.Unlock()

	sort.Strings(saved)
	w.notify(ctx, subs, saved)
	return nil
}

// Run polls every interval until ctx is done. It is the fallback when file
// system notifications are unavailable.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.Poll(ctx); err != nil {
				ctxlog.FromContext(ctx).Warn("Polling failed.", "error", err)
			}
		}
	}
}

func (w *Watcher) addTree(ctx context.Context, dir string) error {
	dirs, err := fsutil.FindDirs(dir)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.fs.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}
	ctxlog.FromContext(ctx).Debug("Watching directories.", "root", dir, "count", len(dirs))
	return nil
}

func (w *Watcher) notify(ctx context.Context, subs []func(string), titles []string) {
	logger := ctxlog.FromContext(ctx)
	for _, title := range titles {
		logger.Debug("File saved.", "title", title)
		for _, fn := range subs {
			fn(title)
		}
	}
}

func (w *Watcher) title(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return filepath.Base(path)
	}
	return filepath.ToSlash(rel)
}

// snapshot must be called with mu held.
func (w *Watcher) snapshot() []func(string) {
	out := make([]func(string), 0, len(w.subs))
	for id := 0; id < w.next; id++ {
		if fn, ok := w.subs[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}

func hashFile(path string) (digest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return digest{}, err
	}
	return sha256.Sum256(data), nil
}

type subscription struct {
	once sync.Once
	w    *Watcher
	id   int
}

func (s *subscription) Dispose() {
	s.once.Do(func() {
		s.w.mu.Lock()
		defer s.w.mu.Unlock()
		delete(s.w.subs, s.id)
	})
}
