package pkgmgr

import (
	"context"
	"strings"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
)

func init() {
	Register("winget", func(runner execx.Runner) Manager {
		return &wingetManager{runner: runner}
	})
	Register("chocolatey", func(runner execx.Runner) Manager {
		return &chocolateyManager{runner: runner}
	})
	Register("scoop", func(runner execx.Runner) Manager {
		return &scoopManager{runner: runner}
	})
}

// wingetManager drives winget. Package names are winget IDs
// (publisher.product), installed one at a time since winget has no
// multi-package install.
type wingetManager struct {
	runner execx.Runner
}

func (m *wingetManager) Name() string { return "winget" }

func (m *wingetManager) Available() bool {
	return m.runner.LookPath("winget")
}

func (m *wingetManager) Update(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "winget", "source", "update"); err != nil {
		return errors.Wrap(err, errors.ErrPackageUpdate, "winget source update failed")
	}
	return nil
}

func (m *wingetManager) Install(ctx context.Context, names []string) (InstallResult, error) {
	missing, present := partition(ctx, m, names)
	result := InstallResult{Skipped: present}

	for _, name := range missing {
		if _, err := m.runner.Run(ctx, "winget", "install", "-e", "--id", name,
			"--accept-package-agreements", "--accept-source-agreements"); err != nil {
			return result, errors.Wrapf(err, errors.ErrPackageInstall, "winget install failed for %s", name)
		}
		result.Installed = append(result.Installed, name)
	}
	return result, nil
}

func (m *wingetManager) IsInstalled(ctx context.Context, name string) bool {
	result, err := m.runner.Query(ctx, "winget", "list", "--id", name)
	return err == nil && result.Success() && strings.Contains(result.Stdout, name)
}

// chocolateyManager drives choco.
type chocolateyManager struct {
	runner execx.Runner
}

func (m *chocolateyManager) Name() string { return "chocolatey" }

func (m *chocolateyManager) Available() bool {
	return m.runner.LookPath("choco")
}

func (m *chocolateyManager) Update(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "choco", "upgrade", "chocolatey", "-y"); err != nil {
		return errors.Wrap(err, errors.ErrPackageUpdate, "choco self-upgrade failed")
	}
	return nil
}

func (m *chocolateyManager) Install(ctx context.Context, names []string) (InstallResult, error) {
	missing, present := partition(ctx, m, names)
	result := InstallResult{Skipped: present}
	if len(missing) == 0 {
		return result, nil
	}

	args := append([]string{"install", "-y"}, missing...)
	if _, err := m.runner.Run(ctx, "choco", args...); err != nil {
		return result, errors.Wrap(err, errors.ErrPackageInstall, "choco install failed")
	}
	result.Installed = missing
	return result, nil
}

func (m *chocolateyManager) IsInstalled(ctx context.Context, name string) bool {
	result, err := m.runner.Query(ctx, "choco", "list", "--local-only", name)
	return err == nil && result.Success() && strings.Contains(result.Stdout, name)
}

// scoopManager drives scoop, the lowest-priority Windows fallback.
type scoopManager struct {
	runner execx.Runner
}

func (m *scoopManager) Name() string { return "scoop" }

func (m *scoopManager) Available() bool {
	return m.runner.LookPath("scoop")
}

func (m *scoopManager) Update(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "scoop", "update"); err != nil {
		return errors.Wrap(err, errors.ErrPackageUpdate, "scoop update failed")
	}
	return nil
}

func (m *scoopManager) Install(ctx context.Context, names []string) (InstallResult, error) {
	missing, present := partition(ctx, m, names)
	result := InstallResult{Skipped: present}
	if len(missing) == 0 {
		return result, nil
	}

	args := append([]string{"install"}, missing...)
	if _, err := m.runner.Run(ctx, "scoop", args...); err != nil {
		return result, errors.Wrap(err, errors.ErrPackageInstall, "scoop install failed")
	}
	result.Installed = missing
	return result, nil
}

func (m *scoopManager) IsInstalled(ctx context.Context, name string) bool {
	result, err := m.runner.Query(ctx, "scoop", "list", name)
	return err == nil && result.Success() && strings.Contains(result.Stdout, name)
}
