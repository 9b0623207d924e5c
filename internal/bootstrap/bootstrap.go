// SPDX-License-Identifier: AGPL-3.0-or-later

// Package bootstrap makes sure the tools the verification stages call are
// available and that repository hooks are registered. Every step is best
// effort: results are returned for the caller to report, never used to
// stop the run.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bartekus/civerify/internal/precommit"
	"github.com/bartekus/civerify/internal/runner"
)

// Action describes what a setup step did.
type Action string

const (
	ActionPresent   Action = "present"   // nothing to do
	ActionInstalled Action = "installed" // side effect ran and exited zero
	ActionFailed    Action = "failed"    // side effect could not be performed
	ActionSkipped   Action = "skipped"   // step not applicable
	ActionAdvisory  Action = "advisory"  // finished, with something worth reading
)

// SetupResult is the outcome of one setup step.
type SetupResult struct {
	Step   string
	Action Action
	Detail string
	Output string
	Err    error
}

// OK reports whether the step left things in a usable state.
func (r SetupResult) OK() bool {
	return r.Action != ActionFailed
}

// Tool is an external program a stage depends on.
type Tool struct {
	Name    string   // binary looked up on PATH
	Install []string // fallback install argv
}

// Hooks describes the one-time hook registration.
type Hooks struct {
	Marker  string   // file whose presence means hooks are registered
	Install []string // registration argv
	Checks  []string // hook ids the hook stage runs
}

// Bootstrapper performs the setup steps. Exec runs install commands;
// LookPath defaults to exec.LookPath.
type Bootstrapper struct {
	Root     string
	Tools    []Tool
	Hooks    Hooks
	Exec     runner.Executor
	LookPath func(file string) (string, error)
}

// Run performs every setup step in order and returns their results.
func (b *Bootstrapper) Run(ctx context.Context) []SetupResult {
	results := make([]SetupResult, 0, len(b.Tools)+2)
	for _, t := range b.Tools {
		results = append(results, b.EnsureTool(ctx, t))
	}
	results = append(results, b.EnsureHooks(ctx))
	results = append(results, b.InspectHookConfig())
	return results
}

// EnsureTool probes t on PATH and runs its install command when absent.
// Success of the install is taken from its exit status only; the tool is
// not probed again.
func (b *Bootstrapper) EnsureTool(ctx context.Context, t Tool) SetupResult {
	res := SetupResult{Step: "tool " + t.Name}

	lookPath := b.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	if _, err := lookPath(t.Name); err == nil {
		res.Action = ActionPresent
		return res
	}

	if len(t.Install) == 0 {
		res.Action = ActionFailed
		res.Err = fmt.Errorf("%s not found and no install command configured", t.Name)
		return res
	}
	return b.runSideEffect(ctx, res, t.Install)
}

// EnsureHooks registers repository hooks unless the marker already exists.
func (b *Bootstrapper) EnsureHooks(ctx context.Context) SetupResult {
	res := SetupResult{Step: "hook registration"}

	if b.Hooks.Marker == "" {
		res.Action = ActionSkipped
		res.Detail = "no hook marker configured"
		return res
	}
	if _, err := os.Stat(b.Hooks.Marker); err == nil {
		res.Action = ActionPresent
		return res
	} else if !errors.Is(err, os.ErrNotExist) {
		res.Action = ActionFailed
		res.Err = fmt.Errorf("checking hook marker: %w", err)
		return res
	}

	if len(b.Hooks.Install) == 0 {
		res.Action = ActionFailed
		res.Err = errors.New("hook marker missing and no install command configured")
		return res
	}
	return b.runSideEffect(ctx, res, b.Hooks.Install)
}

// InspectHookConfig reports hook checks the pre-commit config does not
// declare. It never runs anything.
func (b *Bootstrapper) InspectHookConfig() SetupResult {
	res := SetupResult{Step: "hook config"}

	cfg, err := precommit.Load(b.Root)
	if errors.Is(err, precommit.ErrNoConfig) {
		res.Action = ActionSkipped
		res.Detail = precommit.FileName + " not found"
		return res
	}
	if err != nil {
		res.Action = ActionFailed
		res.Err = err
		return res
	}

	if missing := cfg.Undeclared(b.Hooks.Checks); len(missing) > 0 {
		res.Action = ActionAdvisory
		res.Detail = "not declared in " + precommit.FileName + ": " + strings.Join(missing, ", ")
		return res
	}
	res.Action = ActionPresent
	return res
}

func (b *Bootstrapper) runSideEffect(ctx context.Context, res SetupResult, argv []string) SetupResult {
	res.Detail = strings.Join(argv, " ")

	out, err := b.Exec.Run(ctx, argv, "")
	if err != nil {
		res.Action = ActionFailed
		res.Err = fmt.Errorf("running %s: %w", argv[0], err)
		return res
	}

	res.Output = string(out.Output)
	if out.ExitCode != 0 {
		res.Action = ActionFailed
		res.Err = fmt.Errorf("%s exited %d", argv[0], out.ExitCode)
		if out.StartErr != nil {
			res.Err = out.StartErr
		}
		return res
	}
	res.Action = ActionInstalled
	return res
}

// Failures returns the results whose step could not be performed.
func Failures(results []SetupResult) []SetupResult {
	var out []SetupResult
	for _, r := range results {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
