// Package execx runs external programs for the provisioning pipeline: full
// capture runs, line-streamed runs, and search-path probes, all launched
// through an explicit environment overlay.
package execx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	proverrors "github.com/mindcraft-ce/provisioner/pkg/errors"
)

// Sink receives human-readable progress lines as they are produced.
type Sink func(text string)

// Spec describes a single child-process invocation.
type Spec struct {
	Name string
	Args []string
	Dir  string
}

func (s Spec) String() string {
	if len(s.Args) == 0 {
		return s.Name
	}
	return s.Name + " " + strings.Join(s.Args, " ")
}

// Result captures the output of a completed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes child processes with output capture and status
// classification.
type Runner struct {
	env  *Overlay
	sink Sink
}

// NewRunner creates a Runner that launches through the given overlay and
// reports progress to sink. A nil sink discards progress lines.
func NewRunner(env *Overlay, sink Sink) *Runner {
	if env == nil {
		env = NewOverlay()
	}
	if sink == nil {
		sink = func(string) {}
	}
	return &Runner{env: env, sink: sink}
}

// Env exposes the runner's environment overlay.
func (r *Runner) Env() *Overlay {
	return r.env
}

// Run executes the command to completion and captures stdout and stderr
// separately. A nonzero exit yields a CommandError carrying the captured
// output; an unresolvable executable yields a CommandNotFoundError. Captured
// output is forwarded to the sink even on success, since some tools write
// diagnostics to stderr.
func (r *Runner) Run(ctx context.Context, spec Spec) (Result, error) {
	path, err := r.env.LookPath(spec.Name)
	if err != nil {
		return Result{}, proverrors.NewCommandNotFoundError(spec.Name, err)
	}

	r.sink(fmt.Sprintf("Running: %s (cwd: %s)", spec.String(), displayDir(spec.Dir)))

	cmd := exec.CommandContext(ctx, path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = r.env.Environ()
	cmd.SysProcAttr = sysProcAttr()

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	res := Result{
		Stdout: strings.TrimSpace(stdout.String()),
		Stderr: strings.TrimSpace(stderr.String()),
	}
	if res.Stdout != "" {
		r.sink("stdout: " + res.Stdout)
	}
	if res.Stderr != "" {
		r.sink("stderr: " + res.Stderr)
	}

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, proverrors.NewCommandError(spec.String(), res.ExitCode, res.Stdout, res.Stderr)
		}
		if errors.Is(runErr, exec.ErrNotFound) {
			return res, proverrors.NewCommandNotFoundError(spec.Name, runErr)
		}
		return res, runErr
	}

	return res, nil
}

func displayDir(dir string) string {
	if dir == "" {
		return "."
	}
	return dir
}
