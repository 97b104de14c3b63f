// Package notify implements the build notifier: a small observer list used
// to announce lifecycle events, such as a successful rebuild, to interested
// parties like a UI refresh.
//
// A Notifier is owned by whoever publishes on it. Subscribers receive an
// unsubscribe function and are expected to call it when their own lifetime
// ends.
package notify

import (
	"sort"
	"sync"
)

// ProjectBuildSuccess is published after the live unit has been reloaded
// successfully.
const ProjectBuildSuccess = "project-build-success"

// Notifier broadcasts named, payload-free events to registered observers.
// It is safe for concurrent use; observers run synchronously on the
// publishing goroutine in subscription order.
type Notifier struct {
	mu        sync.Mutex
	next      int
	observers map[string]map[int]func()
}

// New creates an empty Notifier.
func New() *Notifier {
	return &Notifier{observers: make(map[string]map[int]func())}
}

// Subscribe registers fn for event. The returned function removes the
// subscription and may be called more than once.
func (n *Notifier) Subscribe(event string, fn func()) (unsubscribe func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	if n.observers[event] == nil {
		n.observers[event] = make(map[int]func())
	}
	n.observers[event][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.observers[event], id)
			if len(n.observers[event]) == 0 {
				delete(n.observers, event)
			}
		})
	}
}

// Publish calls every observer of event. Observers may subscribe or
// unsubscribe from inside their callback.
func (n *Notifier) Publish(event string) {
	n.mu.Lock()
	subs := n.observers[event]
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, subs[id])
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Count returns the number of observers currently registered for event.
func (n *Notifier) Count(event string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.observers[event])
}
