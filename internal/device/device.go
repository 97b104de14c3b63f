// Package device provides access to note outputs. Acquiring access is the
// gate for building a project: a project binds its scheduling loop to one of
// the enumerated outputs and to the access clock.
package device

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vk/loopctl/internal/ctxlog"
)

// Message is a single note event sent to an output.
type Message struct {
	Channel  int           `json:"channel"`
	Note     int           `json:"note"`
	Velocity int           `json:"velocity"`
	Duration time.Duration `json:"duration"`
}

// Output is a destination for note events.
type Output interface {
	ID() string
	Name() string
	Send(msg Message) error
}

// ErrNoOutputs is the cause of an AccessError when nothing can be played to.
var ErrNoOutputs = errors.New("no outputs available")

// AccessError reports a failed device acquisition.
type AccessError struct {
	Err error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("device access failed: %v", e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// Acquirer yields device access or fails.
type Acquirer interface {
	Acquire(ctx context.Context) (*Access, error)
}

// Access is the capability handed to projects: the enumerated outputs and a
// monotonic clock measured from acquisition.
type Access struct {
	outputs []Output
	started time.Time
}

// NewAccess builds an Access over the given outputs, sorted by ID.
func NewAccess(outputs ...Output) *Access {
	sorted := append([]Output(nil), outputs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID() < sorted[j].ID() })
	return &Access{outputs: sorted, started: time.Now()}
}

// Outputs returns the enumerated outputs.
func (a *Access) Outputs() []Output {
	return append([]Output(nil), a.outputs...)
}

// Output looks an output up by ID or by name.
func (a *Access) Output(key string) (Output, bool) {
	for _, o := range a.outputs {
		if o.ID() == key || o.Name() == key {
			return o, true
		}
	}
	return nil, false
}

// Default returns the first enumerated output.
func (a *Access) Default() (Output, bool) {
	if len(a.outputs) == 0 {
		return nil, false
	}
	return a.outputs[0], true
}

// Now returns the time elapsed since access was acquired.
func (a *Access) Now() time.Duration {
	return time.Since(a.started)
}

// Manager enumerates registered outputs and hands out Access.
type Manager struct {
	mu      sync.Mutex
	outputs []Output
}

// NewManager creates a Manager with the given outputs registered.
func NewManager(outputs ...Output) *Manager {
	return &Manager{outputs: outputs}
}

// Register adds outputs to the manager.
func (m *Manager) Register(outputs ...Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outputs = append(m.outputs, outputs...)
}

// Acquire returns access to every registered output. It fails with an
// AccessError when the context is done or no output is registered.
func (m *Manager) Acquire(ctx context.Context) (*Access, error) {
	logger := ctxlog.FromContext(ctx)

	if err := ctx.Err(); err != nil {
		return nil, &AccessError{Err: err}
	}

	m.mu.Lock()
	outputs := append([]Output(nil), m.outputs...)
	m.mu.Unlock()

	if len(outputs) == 0 {
		return nil, &AccessError{Err: ErrNoOutputs}
	}

	access := NewAccess(outputs...)
	for _, o := range access.Outputs() {
		logger.Debug("Output enumerated.", "id", o.ID(), "name", o.Name())
	}
	return access, nil
}
