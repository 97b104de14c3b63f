package app

import (
	"context"
	"time"

	"github.com/vk/loopctl/internal/hub"
)

// dispatch is the only goroutine that touches the controller after Setup.
func (a *App) dispatch(ctx context.Context) error {
	// A nil channel never fires, so only one of ticks and the watcher's
	// channels is live.
	var ticks <-chan time.Time
	if a.polling {
		ticker := time.NewTicker(a.config.PollInterval)
		defer ticker.Stop()
		ticks = ticker.C
	}
	events := a.watcher.Events()
	errs := a.watcher.Errors()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticks:
			a.watched(func() error { return a.watcher.Poll(ctx) })
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			a.watched(func() error { return a.watcher.Handle(ctx, ev) })
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			a.watched(func() error { return a.watcher.HandleError(ctx, err) })
		case cmd := <-a.hub.Commands():
			a.handleCommand(ctx, cmd)
			a.publish()
		case j := <-a.jobs:
			j.fn(a.context(j.ctx))
			close(j.done)
			a.publish()
		}
	}
}

// watched runs one watcher step and publishes the status if it fired saves.
func (a *App) watched(step func() error) {
	a.saved = false
	if err := step(); err != nil {
		a.logger.Warn("Watching for saves failed.", "error", err)
	}
	if a.saved {
		a.publish()
	}
}

func (a *App) handleCommand(ctx context.Context, cmd hub.Command) {
	a.logger.Debug("Command received.", "command", cmd.Name, "track", cmd.Track)
	switch cmd.Name {
	case hub.CommandPlay:
		if !a.ctrl.Play() {
			a.console.Warn("Nothing to play. Fix the build first.")
		}
	case hub.CommandStop:
		a.ctrl.Stop()
	case hub.CommandRestart:
		if !a.ctrl.Restart() {
			a.console.Warn("Nothing to play. Fix the build first.")
		}
	case hub.CommandReload:
		a.ctrl.ReloadProject(ctx)
	case hub.CommandMute:
		muted, err := a.ctrl.ToggleMute(cmd.Track)
		if err != nil {
			a.console.Warn(err.Error())
			return
		}
		if muted {
			a.console.Logf("Muted %s.", cmd.Track)
		} else {
			a.console.Logf("Unmuted %s.", cmd.Track)
		}
	case hub.CommandState:
	default:
		a.logger.Warn("Unknown command.", "command", cmd.Name)
	}
}
