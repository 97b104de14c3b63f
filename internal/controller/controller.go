package controller

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vk/loopctl/internal/ctxlog"
	"github.com/vk/loopctl/internal/device"
	"github.com/vk/loopctl/internal/evaluator"
	"github.com/vk/loopctl/internal/notify"
	"github.com/vk/loopctl/internal/program"
	"github.com/vk/loopctl/internal/sequencer"
	"github.com/vk/loopctl/internal/source"
	"github.com/vk/loopctl/internal/watch"
	"github.com/vk/loopctl/internal/workspace"
)

// Options configures a Controller.
type Options struct {
	// Dir is the project directory.
	Dir     string
	Loader  ConfigLoader
	Devices device.Acquirer
	Console Logger

	// Evaluator overrides the HCL evaluator rooted at the project directory.
	Evaluator Evaluator
	// Recorder, if set, receives every build attempt.
	Recorder Recorder
	// Listener, if set, observes the loop of every project that is built.
	Listener sequencer.Listener
	// AutoPlay starts the loop after a successful live build.
	AutoPlay bool

	Now func() time.Time
}

// Controller owns the project and live lifecycle.
type Controller struct {
	opts     Options
	now      func() time.Time
	notifier *notify.Notifier

	state  State
	cfg    *workspace.Config
	store  *source.Store
	eval   Evaluator
	access *device.Access
	build  buildState
	halted error

	unobserve func()
	sub       watch.Disposable
}

// New creates an unconfigured Controller.
func New(opts Options) *Controller {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Controller{
		opts:     opts,
		now:      now,
		notifier: notify.New(),
	}
}

// Notifier returns the notifier the controller publishes build events on.
func (c *Controller) Notifier() *notify.Notifier { return c.notifier }

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Config returns the resolved configuration, or nil before Setup succeeds.
func (c *Controller) Config() *workspace.Config { return c.cfg }

// Project returns the active project, or nil.
func (c *Controller) Project() *program.Project { return c.build.project }

// Halted returns the reason playback was halted, or nil.
func (c *Controller) Halted() error { return c.halted }

// Setup resolves the configuration, acquires device access and builds the
// project. It returns workspace.ErrNotConfigured when the directory has no
// configuration and a *device.AccessError when outputs cannot be acquired;
// in both cases the controller stays unable to build for the session.
func (c *Controller) Setup(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Controller setup started.", "dir", c.opts.Dir)

	cfg, err := c.opts.Loader.Load(ctx, c.opts.Dir)
	if err != nil {
		if errors.Is(err, workspace.ErrNotConfigured) {
			logger.Info("Directory is not a loopctl project.", "dir", c.opts.Dir)
			return err
		}
		c.opts.Console.Error(fmt.Sprintf("Invalid configuration: %v", err))
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	c.cfg = cfg
	c.store = source.NewStore(cfg.Dir)
	c.eval = c.opts.Evaluator
	if c.eval == nil {
		c.eval = evaluator.New(evaluator.Options{Root: cfg.Dir})
	}
	c.state = StateConfigured

	c.opts.Console.Log("Acquiring output devices...")
	access, err := c.opts.Devices.Acquire(ctx)
	if err != nil {
		c.opts.Console.Error("Failed to acquire output devices.")
		var accessErr *device.AccessError
		if !errors.As(err, &accessErr) {
			err = &device.AccessError{Err: err}
		}
		logger.Error("Device acquisition failed.", "error", err)
		return err
	}
	c.access = access
	c.opts.Console.Success("Output devices ready.")

	c.BuildProject(ctx)
	logger.Debug("Controller setup finished.", "state", c.state.String())
	return nil
}

// Reset clears the build state. The previous project, if any, is stopped
// and detached.
func (c *Controller) Reset() {
	if c.build.project != nil {
		c.build.project.Reset()
	}
	if c.unobserve != nil {
		c.unobserve()
		c.unobserve = nil
	}
	c.build = buildState{}
	c.halted = nil
	if c.cfg != nil {
		c.state = StateConfigured
	}
}

// BuildProject evaluates the project unit and, on success, the live unit.
// It does nothing until the controller is configured with device access.
func (c *Controller) BuildProject(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if c.cfg == nil || c.access == nil {
		logger.Debug("Project build skipped, controller is not ready.")
		return
	}

	c.Reset()
	file := c.cfg.ProjectFile
	src, err := c.store.Read(file)
	if err != nil {
		c.reportError(ctx, UnitProject, err, "", file)
		return
	}

	project, err := c.newProject(ctx, src, file)
	if err != nil {
		c.reportError(ctx, UnitProject, err, src, file)
		return
	}

	c.build.project = project
	if c.opts.Listener != nil {
		c.unobserve = project.Loop().Observe(c.opts.Listener)
	}
	c.state = StateProjectLoaded
	c.record(ctx, Attempt{Unit: UnitProject, File: file, OK: true})
	c.opts.Console.Success("Project file loaded successfully.")

	c.BuildLive(ctx)
}

func (c *Controller) newProject(ctx context.Context, src, file string) (*program.Project, error) {
	factory, err := c.eval.Project(ctx, src, file)
	if err != nil {
		return nil, err
	}
	return factory(ctx, c.access)
}

// BuildLive re-evaluates the live unit when its text changed since the
// last attempt. A failure falls back to the last clean text.
func (c *Controller) BuildLive(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if c.build.project == nil {
		if c.cfg != nil {
			c.opts.Console.Warn("No project loaded. Save the project file to build it.")
		}
		return
	}

	file := c.cfg.LiveFile
	src, err := c.store.Read(file)
	if err != nil {
		c.reportError(ctx, UnitLive, err, "", file)
		return
	}

	if !c.build.shouldReload(src) {
		c.opts.Console.Log("No changes to live file.")
		return
	}

	if err := c.applyLive(ctx, src, file); err != nil {
		c.build.dirty = &src
		located := c.eval.Locate(err, src, file)
		msg := located.Message
		c.build.lastError = &msg
		c.state = StateLiveDirty
		logger.Debug("Live build failed.", "error", err)

		c.FallbackToCleanSource(ctx)
		c.report(ctx, UnitLive, located)
		return
	}

	c.build.clean = &src
	c.build.lastError = nil
	c.halted = nil
	c.state = StateLiveClean
	c.record(ctx, Attempt{Unit: UnitLive, File: file, OK: true})
	c.notifier.Publish(notify.ProjectBuildSuccess)
	c.opts.Console.Success("Live file loaded successfully.")

	if c.opts.AutoPlay {
		c.build.project.Loop().Start()
	}
}

// FallbackToCleanSource re-applies the last clean live text. Without one,
// or when re-applying it fails, the loop is stopped and the session is
// marked halted. It never panics.
func (c *Controller) FallbackToCleanSource(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	project := c.build.project
	if project == nil {
		return
	}
	file := c.cfg.LiveFile

	if c.build.clean == nil {
		project.Stop()
		c.halted = &FallbackExhaustedError{File: file}
		c.record(ctx, Attempt{Unit: UnitFallback, File: file, Message: c.halted.Error()})
		logger.Warn("Playback halted, no clean live source.", "file", file)
		return
	}

	clean := *c.build.clean
	if err := c.applyLive(ctx, clean, file); err != nil {
		project.Stop()
		c.halted = &FallbackExhaustedError{File: file, Err: err}
		located := c.eval.Locate(err, clean, file)
		c.report(ctx, UnitFallback, located)
		logger.Error("Playback halted, clean live source failed.", "error", err)
		return
	}
	c.record(ctx, Attempt{Unit: UnitFallback, File: file, OK: true})
	logger.Debug("Re-applied clean live source.", "file", file)
}

// applyLive evaluates src and reloads the result. Panics are returned as
// errors.
func (c *Controller) applyLive(ctx context.Context, src, file string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &evaluator.Error{Kind: evaluator.KindPanic, Message: fmt.Sprint(r), File: file}
		}
	}()

	live, err := c.eval.Live(ctx, src, file, c.build.project)
	if err != nil {
		return err
	}
	return live.Reload()
}

// HandleSave routes a save notification. Saving the project file rebuilds
// everything; saving the live file rebuilds the live unit. Other titles are
// ignored.
func (c *Controller) HandleSave(ctx context.Context, title string) {
	if c.cfg == nil {
		return
	}
	logger := ctxlog.FromContext(ctx)

	switch filepath.ToSlash(filepath.Clean(title)) {
	case filepath.ToSlash(c.cfg.ProjectFile):
		logger.Debug("Project file saved.", "title", title)
		if c.build.project != nil {
			c.build.project.Stop()
			c.build.project.Reset()
		}
		c.opts.Console.Clear()
		c.BuildProject(ctx)
	case filepath.ToSlash(c.cfg.LiveFile):
		logger.Debug("Live file saved.", "title", title)
		c.opts.Console.Clear()
		c.BuildLive(ctx)
	}
}

// ReloadOnSave subscribes HandleSave to src. An existing subscription is
// disposed first.
func (c *Controller) ReloadOnSave(ctx context.Context, src SaveSource) {
	if c.sub != nil {
		c.sub.Dispose()
	}
	c.sub = src.OnSave(func(title string) {
		c.HandleSave(ctx, title)
	})
}

// Close disposes the save subscription and stops the project.
func (c *Controller) Close() {
	if c.sub != nil {
		c.sub.Dispose()
		c.sub = nil
	}
	if c.build.project != nil {
		c.build.project.Stop()
	}
}

func (c *Controller) reportError(ctx context.Context, unit Unit, err error, src, file string) {
	c.report(ctx, unit, c.eval.Locate(err, src, file))
}

func (c *Controller) report(ctx context.Context, unit Unit, located *evaluator.Error) {
	c.record(ctx, Attempt{
		Unit:    unit,
		File:    located.File,
		Kind:    string(located.Kind),
		Message: located.Message,
		Line:    located.Line,
	})
	c.opts.Console.Error(located.Error())
}

func (c *Controller) record(ctx context.Context, a Attempt) {
	if c.opts.Recorder == nil {
		return
	}
	a.Time = c.now()
	if err := c.opts.Recorder.Record(ctx, a); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to record build attempt.", "error", err)
	}
}
