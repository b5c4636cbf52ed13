// Package tasks defines the four provisioning units — packages, dotfiles,
// settings, shell — behind a common contract. Tasks never touch the state
// store; the orchestrator owns completion bookkeeping.
package tasks

import (
	"context"

	"github.com/sysforge/sysforge/pkg/config"
	"github.com/sysforge/sysforge/pkg/execx"
	"github.com/sysforge/sysforge/pkg/pkgmgr"
	"github.com/sysforge/sysforge/pkg/platform"
)

// Task is one provisioning unit.
type Task interface {
	// Name is the stable task identifier used in --only filters.
	Name() string

	// Description is the human-readable task title.
	Description() string

	// StateKey is the idempotency key recorded in the state store.
	// Defaults to the task name.
	StateKey() string

	// Plan describes the actions Execute would take, without mutating
	// anything. Used for dry-run and verbose output.
	Plan(ctx context.Context, tc *Context) ([]string, error)

	// Execute performs the task.
	Execute(ctx context.Context, tc *Context) error
}

// Context carries the per-run collaborators every task needs. Built once
// by the CLI and shared read-only across tasks.
type Context struct {
	Config  *config.Config
	Profile *platform.Profile
	Runner  execx.Runner

	// Manager is the selected package manager; nil when selection failed.
	// ManagerErr carries the selection failure so that only the packages
	// task reports it.
	Manager    pkgmgr.Manager
	ManagerErr error

	DryRun   bool
	AutoYes  bool
	Prompter Prompter

	// HomeDir overrides the merge target for tests. Empty means the real
	// home directory.
	HomeDir string

	// StagingDir overrides the download/extract staging area for tests.
	// Empty means the sysforge cache directory.
	StagingDir string
}

// All returns the task list in its fixed execution order.
func All() []Task {
	return []Task{
		NewPackagesTask(),
		NewDotfilesTask(),
		NewSettingsTask(),
		NewShellTask(),
	}
}

// Names returns the ordered task names.
func Names() []string {
	all := All()
	names := make([]string, len(all))
	for i, t := range all {
		names[i] = t.Name()
	}
	return names
}
