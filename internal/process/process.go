// SPDX-License-Identifier: AGPL-3.0-or-later

// Package process runs external commands to completion within a workspace
// and reports their exit status and captured output.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// NotFoundExitCode is reported when a command cannot be started, matching
// the shell convention for "command not found".
const NotFoundExitCode = 127

// DefaultMaxOutput caps captured output when Runner.MaxOutput is unset.
const DefaultMaxOutput = 1 << 20 // 1 MB

// Result holds the outcome of a command execution.
type Result struct {
	ExitCode  int    // process exit code; NotFoundExitCode if it never started
	Output    []byte // combined stdout and stderr (may be truncated)
	Truncated bool   // true if output exceeded the size cap
	StartErr  error  // why the process could not be started, if it wasn't
}

// Runner executes commands inside a workspace boundary. It never applies a
// timeout: a command runs until it exits.
type Runner struct {
	Workspace string
	MaxOutput int // bytes
}

// Run executes argv and waits for it to exit. argv[0] is resolved via PATH.
// cwd is resolved relative to the workspace root and must remain within it.
//
// A command that exits non-zero or cannot be started is not an error: it is
// reported through Result.ExitCode. Run only returns an error for invalid
// input.
func (r *Runner) Run(ctx context.Context, argv []string, cwd string) (*Result, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty argv")
	}

	dir, err := r.resolveDir(cwd)
	if err != nil {
		return nil, err
	}

	maxOutput := r.MaxOutput
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	var out bytes.Buffer
	w := &limitWriter{buf: &out, limit: maxOutput}
	cmd.Stdout = w
	cmd.Stderr = w

	runErr := cmd.Run()

	res := &Result{
		Output:    out.Bytes(),
		Truncated: w.dropped,
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			if res.ExitCode <= 0 {
				// Terminated by a signal.
				res.ExitCode = 1
			}
		} else {
			res.ExitCode = NotFoundExitCode
			res.StartErr = fmt.Errorf("starting %s: %w", argv[0], runErr)
		}
	}
	return res, nil
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}

	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("cwd %q is outside workspace %q", cwd, r.Workspace)
	}
	return dir, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		w.dropped = w.dropped || len(p) > 0
		return len(p), nil
	}
	if len(p) > remaining {
		// Report all bytes as consumed to avoid short write errors.
		w.buf.Write(p[:remaining])
		w.dropped = true
		return len(p), nil
	}
	return w.buf.Write(p)
}

// Tail returns the last n lines of output, prefixed with a marker when
// lines were cut.
func Tail(output string, n int) string {
	output = strings.TrimRight(output, "\n")
	if output == "" {
		return ""
	}
	lines := strings.Split(output, "\n")
	if len(lines) <= n {
		return output
	}
	return "...(truncated)...\n" + strings.Join(lines[len(lines)-n:], "\n")
}
