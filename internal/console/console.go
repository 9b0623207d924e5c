// SPDX-License-Identifier: AGPL-3.0-or-later

// Package console prints the verification transcript an operator reads in
// a terminal.
package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/bartekus/civerify/internal/bootstrap"
	"github.com/bartekus/civerify/internal/process"
	"github.com/bartekus/civerify/internal/runner"
)

// tailLines is how much failing tool output is echoed.
const tailLines = 20

var (
	rule        = strings.Repeat("━", 40)
	bannerStyle = lipgloss.NewStyle().Bold(true)

	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// Reporter writes the transcript to w. It implements runner.Reporter.
type Reporter struct {
	w io.Writer
}

// New creates a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

var _ runner.Reporter = (*Reporter)(nil)

// Begin announces a run.
func (r *Reporter) Begin(runID string) {
	fmt.Fprintf(r.w, "civerify run %s\n\n", runID)
}

// Setup prints one bootstrap step result.
func (r *Reporter) Setup(res bootstrap.SetupResult) {
	switch res.Action {
	case bootstrap.ActionPresent:
		r.status(green, "✓", fmt.Sprintf("%s: present", res.Step))
	case bootstrap.ActionInstalled:
		r.status(green, "✓", fmt.Sprintf("%s: installed (%s)", res.Step, res.Detail))
	case bootstrap.ActionSkipped:
		r.status(yellow, "-", fmt.Sprintf("%s: skipped (%s)", res.Step, res.Detail))
	case bootstrap.ActionAdvisory:
		r.status(yellow, "⚠", fmt.Sprintf("%s: %s", res.Step, res.Detail))
	case bootstrap.ActionFailed:
		msg := fmt.Sprintf("%s: failed", res.Step)
		if res.Err != nil {
			msg += ": " + res.Err.Error()
		}
		r.status(red, "✗", msg)
		r.indent(process.Tail(res.Output, tailLines))
	}
}

// StageStarted prints the stage banner.
func (r *Reporter) StageStarted(st runner.Stage) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w, bannerStyle.Render(fmt.Sprintf("STAGE: %s (%s)", st.Label, st.Policy)))
	fmt.Fprintln(r.w, rule)
	fmt.Fprintln(r.w)
}

// StageFinished prints the stage outcome and, for failures, the tail of
// each failing invocation's output.
func (r *Reporter) StageFinished(sr runner.StageResult) {
	for _, inv := range sr.Invocations {
		if inv.Failed() {
			r.status(red, "  ✗", fmt.Sprintf("%s (exit %d)", inv.Label, inv.ExitCode))
		} else {
			r.status(green, "  ✓", inv.Label)
		}
	}

	switch sr.Outcome {
	case runner.OutcomePass:
		green.Fprintf(r.w, "PASS: %s\n", sr.Stage)
	case runner.OutcomeHardFailure:
		red.Fprintf(r.w, "FAIL: %s\n", sr.Stage)
		r.failureDetail(sr)
	case runner.OutcomeSoftWarning:
		yellow.Fprintf(r.w, "WARN: %s reported problems (advisory, does not fail the run)\n", sr.Stage)
		r.failureDetail(sr)
	}
}

// Summary prints the final decision line.
func (r *Reporter) Summary(rr runner.RunResult) {
	fmt.Fprintln(r.w)
	fmt.Fprintln(r.w, rule)

	if warnings := rr.Warnings(); len(warnings) > 0 {
		yellow.Fprintf(r.w, "⚠ %d advisory warning(s): %s\n", len(warnings), stageNames(warnings))
	}
	if rr.Failed {
		red.Fprintf(r.w, "✗ Some checks failed: %s\n", stageNames(rr.HardFailures()))
		return
	}
	green.Fprintln(r.w, "✓ All checks passed")
}

func (r *Reporter) failureDetail(sr runner.StageResult) {
	for _, inv := range sr.FailedInvocations() {
		if inv.StartErr != nil {
			r.indent(inv.StartErr.Error())
		}
		r.indent(process.Tail(inv.Output, tailLines))
	}
}

func (r *Reporter) status(c *color.Color, symbol, message string) {
	fmt.Fprintf(r.w, "%s %s\n", c.Sprint(symbol), message)
}

func (r *Reporter) indent(text string) {
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(r.w, "    %s\n", line)
	}
}

func stageNames(stages []runner.StageResult) string {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.Stage)
	}
	return strings.Join(names, ", ")
}
