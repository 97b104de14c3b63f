package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/vk/loopctl/internal/controller"
	"github.com/vk/loopctl/internal/journal"
	"github.com/vk/loopctl/internal/mcptools"
	"github.com/vk/loopctl/internal/workspace"
	"golang.org/x/sync/errgroup"
)

// Run sets up the project and serves until ctx is done or a server fails.
// It returns an error only when the project cannot be set up or a server
// fails; build errors are reported on the console. A directory without a
// configuration file leaves the app idle until ctx is done.
func (a *App) Run(ctx context.Context) error {
	ctx = a.context(ctx)
	a.logger.Debug("App.Run method started.")

	var (
		rec     controller.Recorder
		history mcptools.History
	)
	if a.config.JournalPath != "" {
		j, err := journal.Open(ctx, a.config.JournalPath)
		if err != nil {
			return fmt.Errorf("failed to open build journal: %w", err)
		}
		defer j.Close()
		rec, history = j, j
		a.logger.Debug("Build journal opened.", "path", a.config.JournalPath)
	}

	a.ctrl = a.newController(rec)
	defer a.ctrl.Close()

	if err := a.ctrl.Setup(ctx); err != nil {
		if errors.Is(err, workspace.ErrNotConfigured) {
			a.logger.Info("No loopctl configuration found, idling.", "dir", a.config.Dir)
			<-ctx.Done()
			return nil
		}
		return fmt.Errorf("failed to set up project in %s: %w", a.config.Dir, err)
	}

	a.ctrl.ReloadOnSave(ctx, a.watcher)
	saves := a.watcher.OnSave(func(string) { a.saved = true })
	defer saves.Dispose()
	if err := a.watcher.Start(ctx); err != nil {
		a.logger.Warn("File notifications unavailable, polling instead.", "error", err, "interval", a.config.PollInterval.String())
		if err := a.watcher.Poll(ctx); err != nil {
			return fmt.Errorf("failed to scan %s: %w", a.config.Dir, err)
		}
		a.polling = true
	}
	defer a.watcher.Close()
	a.publish()

	listeners, err := a.listen()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})

	for name, ln := range listeners {
		handler := a.healthMux()
		if name == "hub" {
			handler = a.hubMux()
		}
		srv := &http.Server{Handler: handler}
		g.Go(func() error { return serve(gctx, name, srv, ln) })
	}

	if a.config.MCP {
		deps := mcptools.Deps{
			Controller: a.ctrl,
			History:    history,
			Runner:     loopRunner{jobs: a.jobs, stopped: stopped},
		}
		s := mcptools.NewServer(a.version, deps)
		g.Go(func() error { return mcptools.Serve(gctx, s, a.stdin, a.stdout) })
	}

	g.Go(func() error {
		<-gctx.Done()
		a.hub.Close()
		return nil
	})
	g.Go(func() error {
		defer close(stopped)
		return a.dispatch(gctx)
	})
	close(a.listened)

	a.logger.Info("Watching for saves.", "dir", a.config.Dir, "polling", a.polling)
	err = g.Wait()
	a.logger.Debug("App.Run method finished.")
	return err
}

// listen binds the hub and healthcheck listeners that are enabled.
func (a *App) listen() (map[string]net.Listener, error) {
	addrs := map[string]string{}
	if a.config.Listen != "" {
		addrs["hub"] = a.config.Listen
	}
	if a.config.HealthcheckPort > 0 {
		addrs["health"] = net.JoinHostPort("", strconv.Itoa(a.config.HealthcheckPort))
	} else {
		a.logger.Debug("Health check server not started: disabled")
	}

	listeners := make(map[string]net.Listener, len(addrs))
	for name, addr := range addrs {
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			for _, l := range listeners {
				l.Close()
			}
			return nil, fmt.Errorf("failed to listen for %s on %s: %w", name, addr, err)
		}
		listeners[name] = ln
		a.setAddr(name, ln.Addr().String())
	}
	return listeners, nil
}
