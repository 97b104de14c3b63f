package evaluator

import (
	"fmt"

	"github.com/vk/loopctl/internal/program"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

type projectVar struct {
	BPM    float64 `cty:"bpm"`
	Bars   int     `cty:"bars"`
	Beats  int     `cty:"beats"`
	Output string  `cty:"output"`
}

type trackVar struct {
	Name    string `cty:"name"`
	Channel int    `cty:"channel"`
}

// toCtyValue converts a native Go value into its corresponding cty.Value.
func toCtyValue(v any) (cty.Value, error) {
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}

// liveVariables exposes the active project to a live unit as `project` and
// `track.<name>`. `project` holds what the project unit declared, not the
// loop's current tempo, so evaluating the same live text twice gives the same
// result.
func liveVariables(p *program.Project) (map[string]cty.Value, error) {
	spec := p.Spec()
	proj, err := toCtyValue(projectVar{
		BPM:    spec.BPM,
		Bars:   spec.Bars,
		Beats:  spec.Beats,
		Output: p.Output().ID(),
	})
	if err != nil {
		return nil, err
	}

	tracks := make(map[string]cty.Value, len(p.Tracks()))
	for _, t := range p.Tracks() {
		v, err := toCtyValue(trackVar{Name: t.Name, Channel: t.Channel})
		if err != nil {
			return nil, err
		}
		tracks[t.Name] = v
	}

	return map[string]cty.Value{
		"project": proj,
		"track":   cty.ObjectVal(tracks),
	}, nil
}
