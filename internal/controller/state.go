package controller

import (
	"fmt"

	"github.com/vk/loopctl/internal/program"
	"github.com/vk/loopctl/internal/sequencer"
)

// State is the position of a Controller in its lifecycle.
type State int

const (
	StateUnconfigured State = iota
	StateConfigured
	StateProjectLoaded
	StateLiveClean
	StateLiveDirty
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateProjectLoaded:
		return "project-loaded"
	case StateLiveClean:
		return "live-clean"
	case StateLiveDirty:
		return "live-dirty"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// buildState is cleared at the start of every project build.
type buildState struct {
	project   *program.Project
	dirty     *string
	clean     *string
	lastError *string
}

// shouldReload reports whether text differs from the slot that is
// authoritative for the current error state.
func (b *buildState) shouldReload(text string) bool {
	slot := b.clean
	if b.lastError != nil {
		slot = b.dirty
	}
	return slot == nil || *slot != text
}

// FallbackExhaustedError marks a session whose playback was stopped because
// no clean live source could be applied.
type FallbackExhaustedError struct {
	File string
	Err  error // nil when no clean source ever existed
}

func (e *FallbackExhaustedError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no clean source for %s to fall back to", e.File)
	}
	return fmt.Sprintf("failed to re-apply clean source for %s: %v", e.File, e.Err)
}

func (e *FallbackExhaustedError) Unwrap() error { return e.Err }

// Status is a snapshot of a Controller.
type Status struct {
	State       string             `json:"state"`
	ProjectFile string             `json:"projectFile,omitempty"`
	LiveFile    string             `json:"liveFile,omitempty"`
	Running     bool               `json:"running"`
	Position    sequencer.Position `json:"position"`
	BPM         float64            `json:"bpm,omitempty"`
	Tracks      []string           `json:"tracks,omitempty"`
	Muted       []string           `json:"muted,omitempty"`
	HasClean    bool               `json:"hasClean"`
	LastError   string             `json:"lastError,omitempty"`
	Halted      string             `json:"halted,omitempty"`
}
