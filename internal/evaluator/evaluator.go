package evaluator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/loopctl/internal/ctxlog"
	"github.com/vk/loopctl/internal/device"
	"github.com/vk/loopctl/internal/program"
	"github.com/zclconf/go-cty/cty"
)

const (
	// anonymousFile is the file name the fast pass parses under. Locate
	// searches failures for it.
	anonymousFile = "<anonymous>"

	unitPrelude = "unit %q {\n"
	unitClose   = "}\n"

	kindProject = "project"
	kindLive    = "live"
)

// wrapperOffset is how many lines the prelude adds in front of the user's
// text.
var wrapperOffset = strings.Count(unitPrelude, "\n")

// Options configures an Evaluator.
type Options struct {
	// Root is the project directory. file() reads are confined to it and
	// the second locate pass tags text with paths under it.
	Root string
}

// Evaluator evaluates project and live units.
type Evaluator struct {
	root string
}

// New creates an Evaluator.
func New(opts Options) *Evaluator {
	return &Evaluator{root: opts.Root}
}

// Project evaluates the text of a project unit. The returned factory binds
// the project to an output once device access is available.
func (e *Evaluator) Project(ctx context.Context, src, file string) (program.Factory, error) {
	logger := ctxlog.FromContext(ctx).With("file", file)
	logger.Debug("Evaluating project unit.")

	var body projectBody
	if err := e.evaluate(kindProject, src, file, map[string]cty.Value{}, &body); err != nil {
		return nil, err
	}

	spec := program.Spec{Repeat: true}
	if body.BPM != nil {
		spec.BPM = *body.BPM
	}
	if body.Bars != nil {
		spec.Bars = *body.Bars
	}
	if body.Beats != nil {
		spec.Beats = *body.Beats
	}
	if body.Repeat != nil {
		spec.Repeat = *body.Repeat
	}
	if body.MaxRestarts != nil {
		spec.MaxRestarts = *body.MaxRestarts
	}
	if body.Output != nil {
		spec.Output = *body.Output
	}
	for _, t := range body.Tracks {
		spec.Tracks = append(spec.Tracks, program.Track{Name: t.Name, Channel: t.Channel})
	}
	logger.Debug("Project unit evaluated.", "tracks", len(spec.Tracks))

	return func(ctx context.Context, access *device.Access) (*program.Project, error) {
		p, err := program.New(ctx, spec, access)
		if err != nil {
			return nil, runtimeError(file, err)
		}
		return p, nil
	}, nil
}

// Live evaluates the text of a live unit against the active project.
func (e *Evaluator) Live(ctx context.Context, src, file string, project *program.Project) (program.Reloader, error) {
	logger := ctxlog.FromContext(ctx).With("file", file)
	logger.Debug("Evaluating live unit.")

	if project == nil {
		return nil, &Error{Kind: KindRuntime, Message: "no project is loaded", File: file}
	}
	vars, err := liveVariables(project)
	if err != nil {
		return nil, runtimeError(file, err)
	}

	var body liveBody
	if err := e.evaluate(kindLive, src, file, vars, &body); err != nil {
		return nil, err
	}

	change := program.Change{Mute: body.Mute}
	if body.BPM != nil {
		change.BPM = *body.BPM
	}
	for _, p := range body.Patterns {
		change.Patterns = append(change.Patterns, program.PatternSpec{
			Track:    p.Track,
			Steps:    p.Steps,
			Note:     p.Note,
			Velocity: p.Velocity,
		})
	}
	logger.Debug("Live unit evaluated.", "patterns", len(change.Patterns))

	return &liveUnit{live: program.NewLive(project.LiveTarget(), change), file: file}, nil
}

// evaluate runs the fast pass: wrap, parse, decode. A panic anywhere inside
// becomes a KindPanic error.
func (e *Evaluator) evaluate(kind, src, file string, vars map[string]cty.Value, target any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Kind: KindPanic, Message: fmt.Sprint(r), File: file}
		}
	}()

	parsed, diags := hclsyntax.ParseConfig(wrap(kind, src), anonymousFile, hcl.InitialPos)
	if diags.HasErrors() {
		return syntaxError(file, diags)
	}
	content, diags := parsed.Body.Content(unitSchema)
	if diags.HasErrors() {
		return syntaxError(file, diags)
	}
	block, diags := findUniqueBlock(content.Blocks, "unit")
	if diags.HasErrors() {
		return syntaxError(file, diags)
	}
	if block == nil || block.Labels[0] != kind {
		return &Error{Kind: KindSyntax, Message: fmt.Sprintf("expected a %s unit", kind), File: file}
	}

	evalCtx := &hcl.EvalContext{
		Variables: vars,
		Functions: functions(e.root),
	}
	if diags := gohcl.DecodeBody(block.Body, evalCtx, target); diags.HasErrors() {
		return runtimeError(file, diags)
	}
	return nil
}

func wrap(kind, src string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, unitPrelude, kind)
	b.WriteString(src)
	if !strings.HasSuffix(src, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(unitClose)
	return []byte(b.String())
}

// liveUnit classifies failures of the underlying reload.
type liveUnit struct {
	live *program.Live
	file string
}

func (u *liveUnit) Reload() error {
	if err := u.live.Reload(); err != nil {
		return runtimeError(u.file, err)
	}
	return nil
}

// Change returns the evaluated change.
func (u *liveUnit) Change() program.Change { return u.live.Change() }
