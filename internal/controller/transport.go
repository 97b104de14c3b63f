package controller

import (
	"context"
	"fmt"
)

// ReloadProject stops the current project and rebuilds from disk.
func (c *Controller) ReloadProject(ctx context.Context) {
	if c.cfg == nil {
		return
	}
	c.opts.Console.Clear()
	c.opts.Console.Log("Rebuilding project...")
	if c.build.project != nil {
		c.build.project.Stop()
		c.build.project.Reset()
	}
	c.BuildProject(ctx)
}

// Play starts the loop. It reports false when there is nothing to play.
func (c *Controller) Play() bool {
	if c.build.project == nil || c.halted != nil {
		return false
	}
	c.build.project.Loop().Start()
	return true
}

// Stop stops the loop and rewinds it.
func (c *Controller) Stop() {
	if c.build.project != nil {
		c.build.project.Stop()
	}
}

// Restart stops and starts the loop.
func (c *Controller) Restart() bool {
	c.Stop()
	return c.Play()
}

// ToggleMute flips the mute state of a track until the next live build.
func (c *Controller) ToggleMute(track string) (bool, error) {
	if c.build.project == nil {
		return false, fmt.Errorf("no project loaded")
	}
	if _, ok := c.build.project.Track(track); !ok {
		return false, fmt.Errorf("track %q is not defined in the project", track)
	}
	return c.build.project.Loop().ToggleMute(track), nil
}

// Status returns a snapshot for display.
func (c *Controller) Status() Status {
	s := Status{State: c.state.String(), HasClean: c.build.clean != nil}
	if c.cfg != nil {
		s.ProjectFile = c.cfg.ProjectFile
		s.LiveFile = c.cfg.LiveFile
	}
	if c.build.lastError != nil {
		s.LastError = *c.build.lastError
	}
	if c.halted != nil {
		s.Halted = c.halted.Error()
	}
	if p := c.build.project; p != nil {
		loop := p.Loop()
		s.Running = loop.Running()
		s.Position = loop.Position()
		s.BPM = loop.Settings().BPM
		s.Muted = loop.Muted()
		for _, t := range p.Tracks() {
			s.Tracks = append(s.Tracks, t.Name)
		}
	}
	return s
}
