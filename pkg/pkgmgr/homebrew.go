package pkgmgr

import (
	"context"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
)

func init() {
	Register("homebrew", func(runner execx.Runner) Manager {
		return &homebrewManager{runner: runner}
	})
}

// homebrewManager drives Homebrew on macOS.
type homebrewManager struct {
	runner execx.Runner
}

func (m *homebrewManager) Name() string { return "homebrew" }

func (m *homebrewManager) Available() bool {
	return m.runner.LookPath("brew")
}

func (m *homebrewManager) Update(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "brew", "update"); err != nil {
		return errors.Wrap(err, errors.ErrPackageUpdate, "brew update failed")
	}
	return nil
}

func (m *homebrewManager) Install(ctx context.Context, names []string) (InstallResult, error) {
	missing, present := partition(ctx, m, names)
	result := InstallResult{Skipped: present}
	if len(missing) == 0 {
		return result, nil
	}

	args := append([]string{"install"}, missing...)
	if _, err := m.runner.Run(ctx, "brew", args...); err != nil {
		return result, errors.Wrap(err, errors.ErrPackageInstall, "brew install failed")
	}
	result.Installed = missing
	return result, nil
}

func (m *homebrewManager) IsInstalled(ctx context.Context, name string) bool {
	result, err := m.runner.Query(ctx, "brew", "list", "--versions", name)
	return err == nil && result.Success()
}
