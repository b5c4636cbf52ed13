package pkgmgr

import (
	"context"
	"strings"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
	"github.com/sysforge/sysforge/pkg/logging"
	"github.com/sysforge/sysforge/pkg/platform"
)

// PriorityFor returns the ordered candidate managers for a platform.
// The first available one wins.
func PriorityFor(profile *platform.Profile) []string {
	switch {
	case profile.IsMacOS():
		return []string{"homebrew"}
	case profile.IsWindows():
		return []string{"winget", "chocolatey", "scoop"}
	case profile.IsArchLike():
		// paru handles both AUR and official repos, so it outranks pacman
		return []string{"paru", "pacman"}
	case profile.IsDebianLike():
		return []string{"apt"}
	case profile.IsLinux():
		return []string{"pacman", "apt"}
	default:
		return nil
	}
}

// Select probes the platform's priority list and returns the first
// available manager. Exhausting the list fails with ErrNoPackageManager;
// the caller reports this against the packages task only.
func Select(profile *platform.Profile, runner execx.Runner) (Manager, error) {
	logger := logging.GetLogger("pkgmgr")

	candidates := PriorityFor(profile)
	for _, name := range candidates {
		manager, err := build(name, runner)
		if err != nil {
			return nil, err
		}
		if manager.Available() {
			logger.Debug().Str("manager", name).Msg("Selected package manager")
			return manager, nil
		}
		logger.Debug().Str("manager", name).Msg("Package manager not available")
	}

	return nil, errors.Newf(errors.ErrNoPackageManager,
		"no package manager found for %s (tried: %s)", profile, strings.Join(candidates, ", "))
}

// BootstrapPreferred installs the platform's preferred manager when it can
// bootstrap itself through one already present (paru via pacman). This is
// an explicit opt-in; Select never triggers it. Returns the bootstrapped
// manager name, or empty when nothing was bootstrapped.
func BootstrapPreferred(ctx context.Context, profile *platform.Profile, runner execx.Runner) (string, error) {
	logger := logging.GetLogger("pkgmgr")

	for _, name := range PriorityFor(profile) {
		manager, err := build(name, runner)
		if err != nil {
			return "", err
		}
		if manager.Available() {
			return "", nil
		}
		b, ok := manager.(Bootstrapper)
		if !ok || !b.CanBootstrap() {
			continue
		}
		logger.Info().Str("manager", name).Msg("Bootstrapping package manager")
		if err := b.Bootstrap(ctx); err != nil {
			return "", err
		}
		return name, nil
	}
	return "", nil
}
