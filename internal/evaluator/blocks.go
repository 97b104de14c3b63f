package evaluator

import (
	"github.com/hashicorp/hcl/v2"
)

// findUniqueBlock searches a slice of blocks for the block of a given type.
// It returns a diagnostic error if more than one block of that type is found.
// If no block is found, it returns nil.
func findUniqueBlock(blocks hcl.Blocks, name string) (*hcl.Block, hcl.Diagnostics) {
	var found *hcl.Block
	var diags hcl.Diagnostics

	for _, block := range blocks {
		if block.Type != name {
			continue
		}
		if found != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate \"" + name + "\" block",
				Detail:   "Only one \"" + name + "\" block is allowed.",
				Subject:  &block.DefRange,
			})
		}
		found = block
	}

	return found, diags
}

// unitSchema is the root schema of a wrapped unit.
var unitSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "unit", LabelNames: []string{"kind"}},
	},
}

// projectBody is the content of a project unit.
type projectBody struct {
	BPM         *float64      `hcl:"bpm,optional"`
	Bars        *int          `hcl:"bars,optional"`
	Beats       *int          `hcl:"beats,optional"`
	Repeat      *bool         `hcl:"repeat,optional"`
	MaxRestarts *int          `hcl:"max_restarts,optional"`
	Output      *string       `hcl:"output,optional"`
	Tracks      []*trackBlock `hcl:"track,block"`
}

type trackBlock struct {
	Name    string `hcl:"name,label"`
	Channel int    `hcl:"channel"`
}

// liveBody is the content of a live unit.
type liveBody struct {
	BPM      *float64        `hcl:"bpm,optional"`
	Mute     []string        `hcl:"mute,optional"`
	Patterns []*patternBlock `hcl:"pattern,block"`
}

type patternBlock struct {
	Track    string `hcl:"track,label"`
	Steps    []int  `hcl:"steps"`
	Note     int    `hcl:"note,optional"`
	Velocity int    `hcl:"velocity,optional"`
}
