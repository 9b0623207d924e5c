// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

import (
	"context"
	"fmt"
)

// Runner executes a fixed, ordered table of stages.
type Runner struct {
	stages   []Stage
	exec     Executor
	reporter Reporter
}

// NewRunner creates a runner over stages. A nil reporter discards narration.
func NewRunner(stages []Stage, exec Executor, reporter Reporter) *Runner {
	if reporter == nil {
		reporter = NopReporter{}
	}
	return &Runner{
		stages:   stages,
		exec:     exec,
		reporter: reporter,
	}
}

// Stages returns the stage table in execution order.
func (r *Runner) Stages() []Stage {
	return r.stages
}

// RunAll executes every stage in order, starting from an empty RunResult.
// A failing stage never stops later stages from running.
func (r *Runner) RunAll(ctx context.Context) RunResult {
	var acc RunResult
	for _, st := range r.stages {
		acc = r.RunStage(ctx, acc, st)
	}
	r.reporter.Summary(acc)
	return acc
}

// RunStage executes st's invocations one after another, classifies the
// stage per its policy and returns acc with the stage recorded.
func (r *Runner) RunStage(ctx context.Context, acc RunResult, st Stage) RunResult {
	r.reporter.StageStarted(st)

	results := make([]InvocationResult, 0, len(st.Invocations))
	failed := false
	for _, inv := range st.Invocations {
		res := r.invoke(ctx, inv)
		if res.Failed() {
			failed = true
		}
		results = append(results, res)
	}

	sr := StageResult{
		Stage:       st.Label,
		Policy:      st.Policy,
		Outcome:     Classify(st.Policy, failed),
		Invocations: results,
	}
	r.reporter.StageFinished(sr)
	return acc.Record(sr)
}

func (r *Runner) invoke(ctx context.Context, inv Invocation) InvocationResult {
	ir := InvocationResult{
		Label: inv.Label,
		Argv:  inv.Argv,
	}

	res, err := r.exec.Run(ctx, inv.Argv, inv.Dir)
	if err != nil {
		ir.ExitCode = 1
		ir.StartErr = fmt.Errorf("invoking %s: %w", inv.Label, err)
		return ir
	}

	ir.ExitCode = res.ExitCode
	ir.Output = string(res.Output)
	ir.StartErr = res.StartErr
	return ir
}
