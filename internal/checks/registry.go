// SPDX-License-Identifier: AGPL-3.0-or-later

// Package checks declares the verification stage table and the tools it
// depends on. Adding a stage means adding a row here, not a new branch in
// the runner.
package checks

import (
	"strings"

	"github.com/bartekus/civerify/internal/bootstrap"
	"github.com/bartekus/civerify/internal/config"
	"github.com/bartekus/civerify/internal/runner"
)

// Stage labels, in execution order.
const (
	StageHooks        = "Hook checks"
	StageLint         = "Lint"
	StageTypecheck    = "Type check"
	StageSecurity     = "Security scan"
	StageDependencies = "Dependency scan"
)

// Registry returns the fixed stage table. Commands come from cfg; the order
// and the policy of each stage do not.
//
// The security scan is HardFail while the dependency scan is SoftWarn.
func Registry(cfg *config.Config) []runner.Stage {
	return []runner.Stage{
		{Label: StageHooks, Invocations: hookInvocations(cfg.Hooks), Policy: runner.HardFail},
		single(StageLint, cfg.Lint, runner.HardFail),
		single(StageTypecheck, cfg.Typecheck, runner.HardFail),
		single(StageSecurity, cfg.Security, runner.HardFail),
		single(StageDependencies, cfg.Dependencies, runner.SoftWarn),
	}
}

// Tools returns every distinct program the stage table and hook
// registration call, in first-use order, each with its install fallback.
func Tools(cfg *config.Config) []bootstrap.Tool {
	var names []string
	seen := make(map[string]bool)
	add := func(argv []string) {
		if len(argv) == 0 || seen[argv[0]] {
			return
		}
		seen[argv[0]] = true
		names = append(names, argv[0])
	}

	add(cfg.Hooks.Install)
	for _, st := range Registry(cfg) {
		for _, inv := range st.Invocations {
			add(inv.Argv)
		}
	}

	tools := make([]bootstrap.Tool, 0, len(names))
	for _, n := range names {
		var install []string
		if len(cfg.Tools.Installer) > 0 {
			install = append(append([]string{}, cfg.Tools.Installer...), n)
		}
		tools = append(tools, bootstrap.Tool{Name: n, Install: install})
	}
	return tools
}

func hookInvocations(h config.HooksConfig) []runner.Invocation {
	invs := make([]runner.Invocation, 0, len(h.Checks))
	for _, id := range h.Checks {
		argv := append(append([]string{}, h.Command...), id)
		invs = append(invs, runner.Invocation{Label: "hook " + id, Argv: argv})
	}
	return invs
}

func single(label string, c config.CommandConfig, p runner.Policy) runner.Stage {
	return runner.Stage{
		Label: label,
		Invocations: []runner.Invocation{
			{Label: strings.Join(c.Command, " "), Argv: c.Command, Dir: c.Dir},
		},
		Policy: p,
	}
}
