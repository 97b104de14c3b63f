package evaluator

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

var anonymousPos = regexp.MustCompile(regexp.QuoteMeta(anonymousFile) + `:(\d+),(\d+)`)

// Locate classifies err and recovers the line in src it refers to. src is the
// text that was evaluated and file its name under the project root.
func (e *Evaluator) Locate(err error, src, file string) *Error {
	out := classify(err, file)
	if line, ok := markerLine(err, src); ok {
		out.Line = line
		return out
	}
	if line, ok := e.parseLine(src, file); ok {
		out.Line = line
	}
	return out
}

// markerLine looks for the "<anonymous>" marker in err, first in its
// diagnostics and then in its text.
func markerLine(err error, src string) (int, bool) {
	var diags hcl.Diagnostics
	if errors.As(err, &diags) {
		for _, d := range diags {
			if d.Severity != hcl.DiagError || d.Subject == nil || d.Subject.Filename != anonymousFile {
				continue
			}
			if line, ok := sourceLine(d.Subject.Start.Line, src); ok {
				return line, true
			}
		}
	}
	m := anonymousPos.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	n, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return sourceLine(n, src)
}

// sourceLine maps a line of the wrapped text back to src.
func sourceLine(wrapped int, src string) (int, bool) {
	line := wrapped - wrapperOffset
	if line < 1 || line > lineCount(src) {
		return 0, false
	}
	return line, true
}

func lineCount(src string) int {
	if src == "" {
		return 0
	}
	n := strings.Count(src, "\n")
	if !strings.HasSuffix(src, "\n") {
		n++
	}
	return n
}

// parseLine parses src without evaluating it, tagged with its real path, and
// returns the line of the first parse failure.
func (e *Evaluator) parseLine(src, file string) (int, bool) {
	path := filepath.Join(e.root, file)
	_, diags := hclsyntax.ParseConfig([]byte(src), path, hcl.InitialPos)
	if !diags.HasErrors() {
		return 0, false
	}
	pos := regexp.MustCompile(regexp.QuoteMeta(path) + `:(\d+),(\d+)`)
	m := pos.FindStringSubmatch(diags.Error())
	if m == nil {
		return 0, false
	}
	line, err := strconv.Atoi(m[1])
	if err != nil || line < 1 {
		return 0, false
	}
	return line, true
}
