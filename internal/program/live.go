// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the live half of a performance program: the Change a
// live unit evaluates to, the Live object that re-applies it, and the
// LiveTarget inside a Project that accepts it.
package program

import (
	"fmt"

	"github.com/vk/loopctl/internal/sequencer"
)

const defaultVelocity = 100

// Reloader is implemented by anything a live unit evaluates to.
type Reloader interface {
	Reload() error
}

// PatternSpec is one evaluated `pattern` block.
type PatternSpec struct {
	Track    string
	Steps    []int
	Note     int
	Velocity int // 0 selects the default velocity
}

// Change is the evaluated content of a live unit.
type Change struct {
	BPM      float64
	Mute     []string
	Patterns []PatternSpec
}

// LiveTarget applies changes to the project's loop.
type LiveTarget struct {
	project *Project
}

// Reload validates change against the project and swaps it into the loop.
// Nothing is applied when validation fails.
func (t *LiveTarget) Reload(change Change) error {
	frame := sequencer.Frame{BPM: change.BPM}

	if change.BPM < 0 {
		return fmt.Errorf("bpm must be positive, got %v", change.BPM)
	}
	for _, name := range change.Mute {
		if _, ok := t.project.Track(name); !ok {
			return fmt.Errorf("cannot mute %q: track is not defined in the project", name)
		}
	}
	frame.Muted = append(frame.Muted, change.Mute...)

	seen := make(map[string]bool, len(change.Patterns))
	for _, ps := range change.Patterns {
		tr, ok := t.project.Track(ps.Track)
		if !ok {
			return fmt.Errorf("track %q is not defined in the project", ps.Track)
		}
		if seen[ps.Track] {
			return fmt.Errorf("track %q has more than one pattern", ps.Track)
		}
		seen[ps.Track] = true

		if len(ps.Steps) == 0 {
			return fmt.Errorf("pattern %q has no steps", ps.Track)
		}
		if ps.Note < 0 || ps.Note > 127 {
			return fmt.Errorf("pattern %q: note %d is outside 0-127", ps.Track, ps.Note)
		}
		velocity := ps.Velocity
		if velocity == 0 {
			velocity = defaultVelocity
		}
		if velocity < 1 || velocity > 127 {
			return fmt.Errorf("pattern %q: velocity %d is outside 1-127", ps.Track, velocity)
		}

		frame.Patterns = append(frame.Patterns, sequencer.Pattern{
			Track:    tr.Name,
			Channel:  tr.Channel,
			Note:     ps.Note,
			Velocity: velocity,
			Steps:    append([]int(nil), ps.Steps...),
		})
	}

	t.project.loop.Reload(frame)
	return nil
}

// Live is the object a live unit evaluates to.
type Live struct {
	change Change
	target *LiveTarget
}

// NewLive binds change to target.
func NewLive(target *LiveTarget, change Change) *Live {
	return &Live{change: change, target: target}
}

// Change returns the evaluated change.
func (l *Live) Change() Change { return l.change }

// Reload applies the change to the target.
func (l *Live) Reload() error {
	return l.target.Reload(l.change)
}
