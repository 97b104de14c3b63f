// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the Project, the long-lived half of a performance
// program. A Project is built once from the project unit and owns the
// scheduling loop, the track list and the output it plays to.
//
// Why keep the Project opaque to the controller?
//
// The controller only ever needs two things from it: a way to stop and reset
// the loop before a rebuild, and the LiveTarget that live reloads are applied
// to. Everything musical stays in this package.
package program

import (
	"context"
	"fmt"

	"github.com/vk/loopctl/internal/ctxlog"
	"github.com/vk/loopctl/internal/device"
	"github.com/vk/loopctl/internal/sequencer"
)

// Track is a named voice of the project.
type Track struct {
	Name    string
	Channel int
}

// Spec is the evaluated content of a project unit.
type Spec struct {
	BPM         float64
	Bars        int
	Beats       int
	Repeat      bool
	MaxRestarts int
	Output      string // output id or name; empty selects the default output
	Tracks      []Track
}

// Factory builds a Project once device access is available. Evaluating a
// project unit yields a Factory rather than a Project so that the unit can be
// checked before anything is bound to an output.
type Factory func(ctx context.Context, access *device.Access) (*Project, error)

// Project is an active performance program.
type Project struct {
	spec   Spec
	tracks map[string]Track
	output device.Output
	access *device.Access
	loop   *sequencer.Loop
	target *LiveTarget
}

// New validates spec, binds it to an output from access and creates a stopped
// scheduling loop.
func New(ctx context.Context, spec Spec, access *device.Access) (*Project, error) {
	if access == nil {
		return nil, fmt.Errorf("project requires device access")
	}

	tracks := make(map[string]Track, len(spec.Tracks))
	for _, tr := range spec.Tracks {
		if _, dup := tracks[tr.Name]; dup {
			return nil, fmt.Errorf("track %q is defined more than once", tr.Name)
		}
		if tr.Channel < 1 || tr.Channel > 16 {
			return nil, fmt.Errorf("track %q: channel %d is outside 1-16", tr.Name, tr.Channel)
		}
		tracks[tr.Name] = tr
	}

	var (
		out device.Output
		ok  bool
	)
	if spec.Output == "" {
		out, ok = access.Default()
	} else {
		out, ok = access.Output(spec.Output)
	}
	if !ok {
		return nil, fmt.Errorf("output %q is not available", spec.Output)
	}

	logger := ctxlog.FromContext(ctx).With("output", out.ID())
	loop := sequencer.New(out, sequencer.Settings{
		BPM:         spec.BPM,
		Form:        sequencer.Form{Bars: spec.Bars, Beats: spec.Beats},
		Repeat:      spec.Repeat,
		MaxRestarts: spec.MaxRestarts,
	}, logger)

	// Record the defaults the loop filled in. Live reloads change the loop's
	// settings but never the spec.
	initial := loop.Settings()
	spec.BPM = initial.BPM
	spec.Bars = initial.Form.Bars
	spec.Beats = initial.Form.Beats

	p := &Project{
		spec:   spec,
		tracks: tracks,
		output: out,
		access: access,
		loop:   loop,
	}
	p.target = &LiveTarget{project: p}
	logger.Debug("Project created.", "tracks", len(tracks), "bpm", loop.Settings().BPM)
	return p, nil
}

// Spec returns the spec the project was built from.
func (p *Project) Spec() Spec { return p.spec }

// Tracks returns the tracks in declaration order.
func (p *Project) Tracks() []Track {
	return append([]Track(nil), p.spec.Tracks...)
}

// Track looks a track up by name.
func (p *Project) Track(name string) (Track, bool) {
	tr, ok := p.tracks[name]
	return tr, ok
}

// Output returns the output the loop plays to.
func (p *Project) Output() device.Output { return p.output }

// Access returns the device access the project was built with.
func (p *Project) Access() *device.Access { return p.access }

// Loop returns the scheduling loop.
func (p *Project) Loop() *sequencer.Loop { return p.loop }

// LiveTarget returns the object live units reload into.
func (p *Project) LiveTarget() *LiveTarget { return p.target }

// Stop stops the scheduling loop.
func (p *Project) Stop() { p.loop.Stop() }

// Reset stops the loop and drops everything applied by live reloads.
func (p *Project) Reset() { p.loop.Reset() }
