package runner

import (
	"context"

	"github.com/bartekus/civerify/internal/process"
)

// Executor runs one external command to completion.
// Implemented by process.Runner.
type Executor interface {
	Run(ctx context.Context, argv []string, cwd string) (*process.Result, error)
}

// Reporter narrates the run for an operator. It carries no control-flow
// meaning; implementations only print.
type Reporter interface {
	StageStarted(st Stage)
	StageFinished(sr StageResult)
	Summary(rr RunResult)
}

var _ Executor = (*process.Runner)(nil)

// NopReporter discards all narration.
type NopReporter struct{}

func (NopReporter) StageStarted(Stage)        {}
func (NopReporter) StageFinished(StageResult) {}
func (NopReporter) Summary(RunResult)         {}
