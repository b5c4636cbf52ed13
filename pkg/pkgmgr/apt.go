package pkgmgr

import (
	"context"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
)

func init() {
	Register("apt", func(runner execx.Runner) Manager {
		return &aptManager{runner: runner}
	})
}

// aptManager drives apt-get on Debian-family distributions.
type aptManager struct {
	runner execx.Runner
}

func (m *aptManager) Name() string { return "apt" }

func (m *aptManager) Available() bool {
	return m.runner.LookPath("apt-get")
}

func (m *aptManager) Update(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "sudo", "apt-get", "update"); err != nil {
		return errors.Wrap(err, errors.ErrPackageUpdate, "apt-get update failed")
	}
	return nil
}

func (m *aptManager) Install(ctx context.Context, names []string) (InstallResult, error) {
	missing, present := partition(ctx, m, names)
	result := InstallResult{Skipped: present}
	if len(missing) == 0 {
		return result, nil
	}

	args := append([]string{"apt-get", "install", "-y"}, missing...)
	if _, err := m.runner.Run(ctx, "sudo", args...); err != nil {
		return result, errors.Wrap(err, errors.ErrPackageInstall, "apt-get install failed")
	}
	result.Installed = missing
	return result, nil
}

func (m *aptManager) IsInstalled(ctx context.Context, name string) bool {
	result, err := m.runner.Query(ctx, "dpkg", "-s", name)
	return err == nil && result.Success()
}
