// SPDX-License-Identifier: AGPL-3.0-or-later
package commands

import (
	"context"
	"io"
	"log"

	"github.com/google/uuid"

	"github.com/bartekus/civerify/cmd/civerify/internal/clierr"
	"github.com/bartekus/civerify/internal/bootstrap"
	"github.com/bartekus/civerify/internal/checks"
	"github.com/bartekus/civerify/internal/config"
	"github.com/bartekus/civerify/internal/console"
	"github.com/bartekus/civerify/internal/gitrepo"
	"github.com/bartekus/civerify/internal/process"
	"github.com/bartekus/civerify/internal/projectroot"
	"github.com/bartekus/civerify/internal/runner"
)

// hookMarker is the hook script pre-commit install writes.
const hookMarker = "pre-commit"

// runVerify bootstraps tools and hooks, runs the stage table and turns the
// aggregate into an exit code.
func runVerify(ctx context.Context, out io.Writer, wd string) error {
	root, err := projectroot.Find(wd)
	if err != nil {
		return clierr.Wrap(clierr.ExitUsage, "locating repository", err)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return clierr.Wrap(clierr.ExitUsage, "loading config", err)
	}

	exec := &process.Runner{
		Workspace: root,
		MaxOutput: cfg.MaxOutputBytes(),
	}
	rep := console.New(out)
	rep.Begin(uuid.NewString())

	b := &bootstrap.Bootstrapper{
		Root:  root,
		Tools: checks.Tools(cfg),
		Hooks: bootstrap.Hooks{
			Marker:  gitrepo.New(root).HookPath(ctx, hookMarker),
			Install: cfg.Hooks.Install,
			Checks:  cfg.Hooks.Checks,
		},
		Exec: exec,
	}
	for _, res := range b.Run(ctx) {
		rep.Setup(res)
		if !res.OK() {
			log.Printf("bootstrap: %s: %v", res.Step, res.Err)
		}
	}

	rr := runner.NewRunner(checks.Registry(cfg), exec, rep).RunAll(ctx)
	if rr.Failed {
		return clierr.Silent(clierr.ExitFailure)
	}
	return nil
}
