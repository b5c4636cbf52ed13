package pkgmgr

import (
	"context"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
)

func init() {
	Register("pacman", func(runner execx.Runner) Manager {
		return &pacmanManager{runner: runner}
	})
}

// pacmanManager drives pacman on Arch-family distributions.
type pacmanManager struct {
	runner execx.Runner
}

func (m *pacmanManager) Name() string { return "pacman" }

func (m *pacmanManager) Available() bool {
	return m.runner.LookPath("pacman")
}

func (m *pacmanManager) Update(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "sudo", "pacman", "-Sy"); err != nil {
		return errors.Wrap(err, errors.ErrPackageUpdate, "pacman database sync failed")
	}
	return nil
}

func (m *pacmanManager) Install(ctx context.Context, names []string) (InstallResult, error) {
	missing, present := partition(ctx, m, names)
	result := InstallResult{Skipped: present}
	if len(missing) == 0 {
		return result, nil
	}

	args := append([]string{"pacman", "-S", "--noconfirm", "--needed"}, missing...)
	if _, err := m.runner.Run(ctx, "sudo", args...); err != nil {
		return result, errors.Wrap(err, errors.ErrPackageInstall, "pacman install failed")
	}
	result.Installed = missing
	return result, nil
}

func (m *pacmanManager) IsInstalled(ctx context.Context, name string) bool {
	result, err := m.runner.Query(ctx, "pacman", "-Q", name)
	return err == nil && result.Success()
}
