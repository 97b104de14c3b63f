// Package evaluator turns the text of a source unit into something the
// controller can run: a program.Factory for the project unit and a
// program.Reloader for the live unit.
//
// Units are written in HCL. Evaluation happens in a single fast pass: the
// text is wrapped in a synthetic `unit "<kind>" { ... }` block, parsed under
// the marker file name "<anonymous>", and decoded against an evaluation
// context holding the unit's variables and functions.
//
// # Locating errors
//
// Locate recovers a 1-based source line for a failed evaluation in up to two
// attempts, which are kept separate on purpose:
//
//  1. The failure itself is searched for the "<anonymous>" marker and its
//     line,column pair. The wrapper shifts every line by the number of
//     prelude lines, so that offset is subtracted. A line that falls outside
//     the user's text (the wrapper's own braces) is not usable.
//  2. Otherwise the text is parsed again without executing it, tagged with
//     its real file name. A parse failure points straight at the line.
//
// When neither attempt yields a line the error is reported without one.
// Locate never fails.
package evaluator
