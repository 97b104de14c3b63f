package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"

	"github.com/vk/loopctl/internal/console"
	"github.com/vk/loopctl/internal/controller"
	"github.com/vk/loopctl/internal/ctxlog"
	"github.com/vk/loopctl/internal/device"
	"github.com/vk/loopctl/internal/hub"
	"github.com/vk/loopctl/internal/notify"
	"github.com/vk/loopctl/internal/watch"
	"github.com/vk/loopctl/internal/workspace"
)

// sourceExt is the extension of files that trigger a rebuild when saved.
const sourceExt = ".hcl"

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	version string

	stdin  io.Reader
	stdout io.Writer

	console *console.Console
	hub     *hub.Hub
	devices *device.Manager
	watcher *watch.Watcher
	ctrl    *controller.Controller
	jobs    chan job

	// saved is set by the watcher while it handles an event or a poll.
	// Dispatch loop only.
	saved bool
	// polling is set when file notifications are unavailable.
	polling bool

	status atomic.Pointer[controller.Status]

	mu       sync.Mutex
	addrs    map[string]string
	listened chan struct{}
}

// Option customises an App.
type Option func(*App)

// WithStdio sets the streams the MCP server speaks on. Defaults to the
// process stdin and stdout.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(a *App) {
		a.stdin = in
		a.stdout = out
	}
}

// WithVersion sets the version reported to MCP clients.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithOutputs registers extra device outputs next to the log and hub outputs.
func WithOutputs(outputs ...device.Output) Option {
	return func(a *App) { a.devices.Register(outputs...) }
}

// NewApp is the constructor for the main application. It returns a fully
// wired App with its own isolated logger. Nothing runs until Run.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	a := &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		version:  "dev",
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		jobs:     make(chan job),
		addrs:    make(map[string]string),
		listened: make(chan struct{}),
	}

	a.console = console.New(outW, logger, console.Options{Colors: cfg.Colors})
	a.hub = hub.New(logger)
	a.console.AddSink(a.hub)
	a.devices = device.NewManager(device.NewLogOutput(logger), a.hub)
	a.watcher = watch.New(cfg.Dir, sourceExt)

	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("App dependencies created.", "dir", cfg.Dir)
	return a
}

// newController builds the controller. rec may be nil.
func (a *App) newController(rec controller.Recorder) *controller.Controller {
	ctrl := controller.New(controller.Options{
		Dir:      a.config.Dir,
		Loader:   workspace.NewLoader(),
		Devices:  a.devices,
		Console:  a.console,
		Recorder: rec,
		Listener: a.hub,
		AutoPlay: a.config.AutoPlay,
	})
	ctrl.Notifier().Subscribe(notify.ProjectBuildSuccess, a.hub.BuildSuccess)
	return ctrl
}

// Console returns the user-facing console.
func (a *App) Console() *console.Console { return a.console }

// Status returns the last status published by the dispatch loop.
func (a *App) Status() controller.Status {
	if s := a.status.Load(); s != nil {
		return *s
	}
	return controller.Status{State: controller.StateUnconfigured.String()}
}

// Addr returns the bound address of a named listener ("hub" or "health")
// once Run has started it.
func (a *App) Addr(name string) string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addrs[name]
}

// Listening is closed once every listener has been bound.
func (a *App) Listening() <-chan struct{} { return a.listened }

func (a *App) setAddr(name, addr string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addrs[name] = addr
}

// publish snapshots the controller status for other goroutines and clients.
// It must only be called from the dispatch loop.
func (a *App) publish() {
	s := a.ctrl.Status()
	a.status.Store(&s)
	a.hub.State(s)
}

func (a *App) context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
