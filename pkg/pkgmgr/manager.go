// Package pkgmgr abstracts system package managers behind a single
// capability contract. Each manager is an independent implementation
// registered in a per-platform priority table; selection probes the table
// in order and picks the first manager that is actually present.
package pkgmgr

import (
	"context"

	"github.com/sysforge/sysforge/pkg/execx"
	"github.com/sysforge/sysforge/pkg/registry"
)

// InstallResult reports what an Install call actually did.
type InstallResult struct {
	// Installed are the packages that were newly installed.
	Installed []string

	// Skipped are the packages that were already present.
	Skipped []string
}

// Changed reports whether any package was actually installed.
func (r InstallResult) Changed() bool { return len(r.Installed) > 0 }

// Manager is the package-manager capability contract.
type Manager interface {
	// Name identifies the manager (pacman, homebrew, ...).
	Name() string

	// Available probes whether the manager is usable on this system.
	Available() bool

	// Update refreshes the manager's metadata. Must be idempotent and
	// safely re-runnable.
	Update(ctx context.Context) error

	// Install installs the named packages, skipping ones already present.
	// Under dry-run the mutating commands are planned, not executed.
	Install(ctx context.Context, names []string) (InstallResult, error)

	// IsInstalled reports whether a single package is present.
	IsInstalled(ctx context.Context, name string) bool
}

// Bootstrapper is implemented by managers that can install themselves
// using another manager already on the system (paru via pacman). Bootstrap
// never triggers automatically; it is an explicit opt-in.
type Bootstrapper interface {
	CanBootstrap() bool
	Bootstrap(ctx context.Context) error
}

// Factory builds a manager on top of a command runner.
type Factory func(runner execx.Runner) Manager

var factories = registry.New[Factory]()

// Register adds a manager factory under its name. Called from init().
func Register(name string, factory Factory) {
	registry.MustRegister(factories, name, factory)
}

// Known returns the names of all registered managers.
func Known() []string {
	return factories.List()
}

// build instantiates a registered manager by name.
func build(name string, runner execx.Runner) (Manager, error) {
	factory, err := factories.Get(name)
	if err != nil {
		return nil, err
	}
	return factory(runner), nil
}

// partition splits names into the ones still missing and the ones already
// installed, preserving order. Shared by all Install implementations.
func partition(ctx context.Context, m Manager, names []string) (missing, present []string) {
	for _, name := range names {
		if m.IsInstalled(ctx, name) {
			present = append(present, name)
		} else {
			missing = append(missing, name)
		}
	}
	return missing, present
}
