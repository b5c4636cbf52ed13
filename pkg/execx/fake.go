package execx

import (
	"context"
	"strings"
	"sync"

	"github.com/sysforge/sysforge/pkg/errors"
)

// FakeRunner is a scripted Runner for tests. Responses are keyed by the
// full command line; unscripted commands succeed with empty output.
type FakeRunner struct {
	mu        sync.Mutex
	responses map[string]Result
	errs      map[string]error
	available map[string]bool
	dryRun    bool

	// Calls records every command line passed to Run or Query, in order.
	Calls []string

	// MutatingCalls records only the command lines passed to Run, so tests
	// can assert that dry-run and skip paths issue no mutations.
	MutatingCalls []string
}

// NewFakeRunner returns an empty scripted runner.
func NewFakeRunner() *FakeRunner {
	return &FakeRunner{
		responses: make(map[string]Result),
		errs:      make(map[string]error),
		available: make(map[string]bool),
	}
}

// Script sets the result returned for a command line.
func (f *FakeRunner) Script(commandLine string, result Result) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[commandLine] = result
	return f
}

// ScriptError makes a command line fail with the given error.
func (f *FakeRunner) ScriptError(commandLine string, err error) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[commandLine] = err
	return f
}

// ScriptFailure makes a command line exit non-zero.
func (f *FakeRunner) ScriptFailure(commandLine string, stderr string) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[commandLine] = Result{Stderr: stderr, ExitCode: 1}
	f.errs[commandLine] = errors.Newf(errors.ErrCommandFailed, "command failed: %s", commandLine)
	return f
}

// SetAvailable controls LookPath answers for an executable name.
func (f *FakeRunner) SetAvailable(name string, available bool) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.available[name] = available
	return f
}

// SetDryRun flips the DryRun answer.
func (f *FakeRunner) SetDryRun(dryRun bool) *FakeRunner {
	f.dryRun = dryRun
	return f
}

func (f *FakeRunner) DryRun() bool { return f.dryRun }

func (f *FakeRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	return f.dispatch(name, args, true)
}

func (f *FakeRunner) Query(ctx context.Context, name string, args ...string) (Result, error) {
	return f.dispatch(name, args, false)
}

func (f *FakeRunner) dispatch(name string, args []string, mutating bool) (Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, line)
	if mutating {
		f.MutatingCalls = append(f.MutatingCalls, line)
	}

	if err, ok := f.errs[line]; ok {
		return f.responses[line], err
	}
	if result, ok := f.responses[line]; ok {
		return result, nil
	}
	return Result{ExitCode: 0}, nil
}

func (f *FakeRunner) LookPath(name string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available[name]
}

// CalledWith reports whether any recorded command line contains the substring.
func (f *FakeRunner) CalledWith(substring string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, call := range f.Calls {
		if strings.Contains(call, substring) {
			return true
		}
	}
	return false
}
