package evaluator

import (
	"fmt"
	"os"

	"github.com/vk/loopctl/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"github.com/zclconf/go-cty/cty/gocty"
)

const maxEuclidSteps = 64

// functions returns the function table available to every unit. file paths
// are resolved under root.
func functions(root string) map[string]function.Function {
	return map[string]function.Function{
		"upper":      stdlib.UpperFunc,
		"lower":      stdlib.LowerFunc,
		"concat":     stdlib.ConcatFunc,
		"range":      stdlib.RangeFunc,
		"length":     stdlib.LengthFunc,
		"min":        stdlib.MinFunc,
		"max":        stdlib.MaxFunc,
		"reverse":    stdlib.ReverseListFunc,
		"flatten":    stdlib.FlattenFunc,
		"chunklist":  stdlib.ChunklistFunc,
		"slice":      stdlib.SliceFunc,
		"join":       stdlib.JoinFunc,
		"format":     stdlib.FormatFunc,
		"jsondecode": stdlib.JSONDecodeFunc,
		"euclid":     euclidFunc,
		"file":       fileFunc(root),
		"env":        envFunc,
	}
}

// envFunc reads an environment variable. The optional second argument is
// returned when the variable is unset.
var envFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "name", Type: cty.String},
	},
	VarParam: &function.Parameter{Name: "default", Type: cty.String},
	Type:     function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if len(args) > 2 {
			return cty.NilVal, function.NewArgErrorf(2, "env takes at most one default")
		}
		if v, ok := os.LookupEnv(args[0].AsString()); ok {
			return cty.StringVal(v), nil
		}
		if len(args) == 2 {
			return args[1], nil
		}
		return cty.StringVal(""), nil
	},
})

// euclidFunc spreads k hits as evenly as possible over n steps.
var euclidFunc = function.New(&function.Spec{
	Params: []function.Parameter{
		{Name: "hits", Type: cty.Number},
		{Name: "steps", Type: cty.Number},
	},
	Type: function.StaticReturnType(cty.List(cty.Number)),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		var k, n int
		if err := gocty.FromCtyValue(args[0], &k); err != nil {
			return cty.NilVal, function.NewArgError(0, err)
		}
		if err := gocty.FromCtyValue(args[1], &n); err != nil {
			return cty.NilVal, function.NewArgError(1, err)
		}
		if n < 1 || n > maxEuclidSteps {
			return cty.NilVal, function.NewArgErrorf(1, "steps must be between 1 and %d", maxEuclidSteps)
		}
		if k < 0 || k > n {
			return cty.NilVal, function.NewArgErrorf(0, "hits must be between 0 and %d", n)
		}
		return gocty.ToCtyValue(euclid(k, n), cty.List(cty.Number))
	},
})

func euclid(k, n int) []int {
	steps := make([]int, n)
	for i := range steps {
		if (i*k)%n < k {
			steps[i] = 1
		}
	}
	return steps
}

func fileFunc(root string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "path", Type: cty.String},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			path, err := fsutil.ResolveUnder(root, args[0].AsString())
			if err != nil {
				return cty.NilVal, function.NewArgError(0, err)
			}
			data, err := os.ReadFile(path)
			if err != nil {
				return cty.NilVal, fmt.Errorf("failed to read %s: %w", args[0].AsString(), err)
			}
			return cty.StringVal(string(data)), nil
		},
	})
}
