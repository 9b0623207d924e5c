// SPDX-License-Identifier: AGPL-3.0-or-later
package runner

// Policy decides how a stage's non-zero exit affects the run.
type Policy int

const (
	// HardFail stages mark the whole run failed on any non-zero exit.
	HardFail Policy = iota
	// SoftWarn stages only surface an advisory on non-zero exit.
	SoftWarn
)

func (p Policy) String() string {
	switch p {
	case HardFail:
		return "hard-fail"
	case SoftWarn:
		return "soft-warn"
	default:
		return "unknown"
	}
}

// Outcome is the classification of a finished stage.
type Outcome string

const (
	OutcomePass        Outcome = "pass"
	OutcomeHardFailure Outcome = "hard-failure"
	OutcomeSoftWarning Outcome = "soft-warning"
)

// Classify maps a stage's policy and its failed state onto an Outcome.
func Classify(p Policy, failed bool) Outcome {
	if !failed {
		return OutcomePass
	}
	if p == SoftWarn {
		return OutcomeSoftWarning
	}
	return OutcomeHardFailure
}

// Invocation is one external process a stage runs.
type Invocation struct {
	Label string
	Argv  []string
	Dir   string // relative to the repository root; empty means the root
}

// Stage is one named step of the verification run.
type Stage struct {
	Label       string
	Invocations []Invocation
	Policy      Policy
}

// InvocationResult records how a single invocation finished.
type InvocationResult struct {
	Label    string
	Argv     []string
	ExitCode int
	Output   string
	StartErr error // set when the process could not be started at all
}

// Failed reports whether the invocation exited non-zero.
func (r InvocationResult) Failed() bool {
	return r.ExitCode != 0
}

// StageResult records how a stage finished.
type StageResult struct {
	Stage       string
	Policy      Policy
	Outcome     Outcome
	Invocations []InvocationResult
}

// Failed reports whether any invocation in the stage exited non-zero,
// regardless of the stage policy.
func (r StageResult) Failed() bool {
	return r.Outcome != OutcomePass
}

// FailedInvocations returns the invocations that exited non-zero, in order.
func (r StageResult) FailedInvocations() []InvocationResult {
	var out []InvocationResult
	for _, inv := range r.Invocations {
		if inv.Failed() {
			out = append(out, inv)
		}
	}
	return out
}

// RunResult is the accumulator threaded through every stage.
// Failed only ever goes from false to true.
type RunResult struct {
	Failed bool
	Stages []StageResult
}

// Record returns a new RunResult with sr appended. The receiver is not
// modified.
func (r RunResult) Record(sr StageResult) RunResult {
	stages := make([]StageResult, len(r.Stages), len(r.Stages)+1)
	copy(stages, r.Stages)
	return RunResult{
		Failed: r.Failed || sr.Outcome == OutcomeHardFailure,
		Stages: append(stages, sr),
	}
}

// Warnings returns the stages that ended as soft warnings.
func (r RunResult) Warnings() []StageResult {
	return r.filter(OutcomeSoftWarning)
}

// HardFailures returns the stages that ended as hard failures.
func (r RunResult) HardFailures() []StageResult {
	return r.filter(OutcomeHardFailure)
}

func (r RunResult) filter(o Outcome) []StageResult {
	var out []StageResult
	for _, s := range r.Stages {
		if s.Outcome == o {
			out = append(out, s)
		}
	}
	return out
}
