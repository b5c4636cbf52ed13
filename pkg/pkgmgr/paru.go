package pkgmgr

import (
	"context"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
)

func init() {
	Register("paru", func(runner execx.Runner) Manager {
		return &paruManager{runner: runner}
	})
}

// paruManager drives paru, the AUR helper. It covers both official repos
// and the AUR, which is why it outranks plain pacman in the priority table.
type paruManager struct {
	runner execx.Runner
}

func (m *paruManager) Name() string { return "paru" }

func (m *paruManager) Available() bool {
	return m.runner.LookPath("paru")
}

func (m *paruManager) Update(ctx context.Context) error {
	// paru runs unprivileged and escalates internally
	if _, err := m.runner.Run(ctx, "paru", "-Sy"); err != nil {
		return errors.Wrap(err, errors.ErrPackageUpdate, "paru database sync failed")
	}
	return nil
}

func (m *paruManager) Install(ctx context.Context, names []string) (InstallResult, error) {
	missing, present := partition(ctx, m, names)
	result := InstallResult{Skipped: present}
	if len(missing) == 0 {
		return result, nil
	}

	args := append([]string{"-S", "--noconfirm", "--needed"}, missing...)
	if _, err := m.runner.Run(ctx, "paru", args...); err != nil {
		return result, errors.Wrap(err, errors.ErrPackageInstall, "paru install failed")
	}
	result.Installed = missing
	return result, nil
}

func (m *paruManager) IsInstalled(ctx context.Context, name string) bool {
	result, err := m.runner.Query(ctx, "paru", "-Q", name)
	return err == nil && result.Success()
}

// CanBootstrap reports whether paru can be built from the AUR here:
// it needs pacman for the build dependencies.
func (m *paruManager) CanBootstrap() bool {
	return m.runner.LookPath("pacman") && !m.Available()
}

// Bootstrap builds paru from the AUR. Explicit opt-in only.
func (m *paruManager) Bootstrap(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "sudo", "pacman", "-S", "--noconfirm", "--needed", "base-devel", "git"); err != nil {
		return errors.Wrap(err, errors.ErrPackageInstall, "failed to install paru build dependencies")
	}
	if _, err := m.runner.Run(ctx, "sh", "-c",
		"rm -rf /tmp/paru-build && git clone https://aur.archlinux.org/paru.git /tmp/paru-build && cd /tmp/paru-build && makepkg -si --noconfirm"); err != nil {
		return errors.Wrap(err, errors.ErrPackageInstall, "failed to build paru from the AUR")
	}
	return nil
}
