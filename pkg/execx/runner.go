// Package execx wraps subprocess execution behind an interface so that
// package managers and tasks can be tested without touching the system.
// The OS-backed runner supports dry-run (log, don't execute) and bounds
// every invocation with a timeout.
package execx

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/logging"
)

// DefaultTimeout bounds a single subprocess invocation. Package installs
// can legitimately take a long time.
const DefaultTimeout = 15 * time.Minute

// Result captures the outcome of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Success reports whether the command exited zero.
func (r Result) Success() bool { return r.ExitCode == 0 }

// Runner executes external commands.
type Runner interface {
	// Run executes a mutating command and waits for it. Under dry-run the
	// command is logged and reported successful without executing. A
	// non-zero exit is returned as both a populated Result and an
	// ErrCommandFailed error.
	Run(ctx context.Context, name string, args ...string) (Result, error)

	// Query executes a read-only command (an availability probe, an
	// installed-check). Queries run even under dry-run, because planning
	// needs real answers.
	Query(ctx context.Context, name string, args ...string) (Result, error)

	// LookPath reports whether an executable is on PATH.
	LookPath(name string) bool

	// DryRun reports whether this runner only plans mutating commands.
	DryRun() bool
}

type osRunner struct {
	dryRun  bool
	timeout time.Duration
}

// NewRunner returns a Runner backed by os/exec.
func NewRunner(dryRun bool) Runner {
	return &osRunner{dryRun: dryRun, timeout: DefaultTimeout}
}

// NewRunnerWithTimeout returns a Runner with a custom per-command timeout.
func NewRunnerWithTimeout(dryRun bool, timeout time.Duration) Runner {
	return &osRunner{dryRun: dryRun, timeout: timeout}
}

func (r *osRunner) DryRun() bool { return r.dryRun }

func (r *osRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	logger := logging.GetLogger("execx")
	logging.LogCommand(name, args)

	if r.dryRun {
		logger.Info().Str("command", commandLine(name, args)).Msg("[dry-run] would run")
		return Result{ExitCode: 0}, nil
	}

	return r.exec(ctx, name, args...)
}

func (r *osRunner) Query(ctx context.Context, name string, args ...string) (Result, error) {
	logging.LogCommand(name, args)
	return r.exec(ctx, name, args...)
}

func (r *osRunner) exec(ctx context.Context, name string, args ...string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode(err),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return result, errors.Newf(errors.ErrCommandTimeout, "command timed out after %s: %s", r.timeout, commandLine(name, args))
	}
	if err != nil {
		return result, errors.Wrapf(err, errors.ErrCommandFailed, "command failed: %s", commandLine(name, args)).
			WithDetail("stderr", result.Stderr)
	}
	return result, nil
}

func (r *osRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode()
	}
	return -1
}

func commandLine(name string, args []string) string {
	return strings.Join(append([]string{name}, args...), " ")
}
