// Package controller keeps a performance program running across edits.
//
// A Controller loads the project unit once per explicit (re)build and
// hot-swaps the live unit on every save. A live unit that fails to evaluate
// is recorded as dirty and the last clean text is re-applied, so playback
// carries on. When no clean text exists yet the loop is stopped and the
// session is marked halted until a live build succeeds.
//
// A Controller is not safe for concurrent use. All of its methods are
// expected to run on one goroutine, normally the application's dispatch
// loop.
package controller
