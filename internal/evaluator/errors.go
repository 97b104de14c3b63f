package evaluator

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/loopctl/internal/source"
)

// Kind classifies a failed evaluation.
type Kind string

const (
	KindSyntax  Kind = "SyntaxError"
	KindRuntime Kind = "RuntimeError"
	KindPanic   Kind = "Panic"
	KindIO      Kind = "IOError"
)

// Error is a classified evaluation failure. Line is 1-based; 0 means the line
// is unknown.
type Error struct {
	Kind    Kind
	Message string
	File    string
	Line    int
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s) at line: %s", e.Kind, e.Message, e.File, e.LineString())
}

func (e *Error) Unwrap() error { return e.Err }

// LineString renders Line, using "unknown" for 0.
func (e *Error) LineString() string {
	if e.Line <= 0 {
		return "unknown"
	}
	return strconv.Itoa(e.Line)
}

func syntaxError(file string, diags hcl.Diagnostics) *Error {
	return &Error{Kind: KindSyntax, Message: diagMessage(diags), File: file, Err: diags}
}

func runtimeError(file string, err error) *Error {
	var diags hcl.Diagnostics
	if errors.As(err, &diags) {
		return &Error{Kind: KindRuntime, Message: diagMessage(diags), File: file, Err: err}
	}
	return &Error{Kind: KindRuntime, Message: err.Error(), File: file, Err: err}
}

// diagMessage renders the first error diagnostic without its position.
func diagMessage(diags hcl.Diagnostics) string {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		if d.Detail == "" {
			return d.Summary
		}
		return d.Summary + ": " + d.Detail
	}
	return diags.Error()
}

// classify copies kind and message from err into a fresh Error for file.
func classify(err error, file string) *Error {
	var evalErr *Error
	if errors.As(err, &evalErr) {
		return &Error{Kind: evalErr.Kind, Message: evalErr.Message, File: file, Err: err}
	}
	var ioErr *source.IOError
	if errors.As(err, &ioErr) {
		return &Error{Kind: KindIO, Message: ioErr.Err.Error(), File: file, Err: err}
	}
	return runtimeError(file, err)
}
