package controller

import (
	"context"
	"time"

	"github.com/vk/loopctl/internal/evaluator"
	"github.com/vk/loopctl/internal/program"
	"github.com/vk/loopctl/internal/watch"
	"github.com/vk/loopctl/internal/workspace"
)

//go:generate mockgen -destination=mock_interfaces_test.go -package=controller github.com/vk/loopctl/internal/controller ConfigLoader,SaveSource,Recorder

// ConfigLoader resolves the project configuration of a directory.
type ConfigLoader interface {
	Load(ctx context.Context, dir string) (*workspace.Config, error)
}

// Evaluator turns unit text into runnable objects.
type Evaluator interface {
	Project(ctx context.Context, src, file string) (program.Factory, error)
	Live(ctx context.Context, src, file string, project *program.Project) (program.Reloader, error)
	Locate(err error, src, file string) *evaluator.Error
}

// Logger is the user-facing log channel.
type Logger interface {
	Log(msg string)
	Success(msg string)
	Warn(msg string)
	Error(msg string)
	Clear()
}

// SaveSource delivers save notifications keyed by file title.
type SaveSource interface {
	OnSave(fn func(title string)) watch.Disposable
}

// Unit names the unit a build attempt was for.
type Unit string

const (
	UnitProject  Unit = "project"
	UnitLive     Unit = "live"
	UnitFallback Unit = "fallback"
)

// Attempt is one build attempt as seen by a Recorder.
type Attempt struct {
	Time    time.Time `json:"time"`
	Unit    Unit      `json:"unit"`
	File    string    `json:"file"`
	OK      bool      `json:"ok"`
	Kind    string    `json:"kind,omitempty"`
	Message string    `json:"message,omitempty"`
	Line    int       `json:"line,omitempty"`
}

// Recorder keeps a history of build attempts.
type Recorder interface {
	Record(ctx context.Context, a Attempt) error
}
