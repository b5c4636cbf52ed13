package pkgmgr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
	"github.com/sysforge/sysforge/pkg/platform"
)

func archProfile() *platform.Profile {
	return &platform.Profile{OS: platform.Linux, Distro: "arch", Arch: platform.AMD64}
}

func TestSelectPrefersHigherPriority(t *testing.T) {
	// Both paru and pacman available: paru wins, deterministically.
	fake := execx.NewFakeRunner().
		SetAvailable("paru", true).
		SetAvailable("pacman", true)

	m, err := Select(archProfile(), fake)
	require.NoError(t, err)
	assert.Equal(t, "paru", m.Name())
}

func TestSelectFallsBackDownTheList(t *testing.T) {
	fake := execx.NewFakeRunner().SetAvailable("pacman", true)

	m, err := Select(archProfile(), fake)
	require.NoError(t, err)
	assert.Equal(t, "pacman", m.Name())
}

func TestSelectExhaustedListFails(t *testing.T) {
	fake := execx.NewFakeRunner()

	_, err := Select(archProfile(), fake)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrNoPackageManager))
}

func TestSelectWindowsPriority(t *testing.T) {
	profile := &platform.Profile{OS: platform.Windows, Arch: platform.AMD64}

	// Only the lowest-priority manager present
	fake := execx.NewFakeRunner().SetAvailable("scoop", true)
	m, err := Select(profile, fake)
	require.NoError(t, err)
	assert.Equal(t, "scoop", m.Name())

	// winget outranks it as soon as it shows up
	fake.SetAvailable("winget", true)
	m, err = Select(profile, fake)
	require.NoError(t, err)
	assert.Equal(t, "winget", m.Name())
}

func TestSelectMacOSIsHomebrewOnly(t *testing.T) {
	profile := &platform.Profile{OS: platform.MacOS, Arch: platform.ARM64}

	fake := execx.NewFakeRunner().SetAvailable("brew", true)
	m, err := Select(profile, fake)
	require.NoError(t, err)
	assert.Equal(t, "homebrew", m.Name())
}

func TestInstallSkipsAlreadyInstalled(t *testing.T) {
	fake := execx.NewFakeRunner().
		SetAvailable("pacman", true).
		Script("pacman -Q git", execx.Result{ExitCode: 0}).
		ScriptFailure("pacman -Q ripgrep", "package 'ripgrep' was not found")

	m, err := Select(archProfile(), fake)
	require.NoError(t, err)

	result, err := m.Install(context.Background(), []string{"git", "ripgrep"})
	require.NoError(t, err)

	assert.Equal(t, []string{"ripgrep"}, result.Installed)
	assert.Equal(t, []string{"git"}, result.Skipped)
	assert.True(t, result.Changed())

	// The install command only names the missing package
	assert.True(t, fake.CalledWith("sudo pacman -S --noconfirm --needed ripgrep"))
	assert.False(t, fake.CalledWith("--needed git"))
}

func TestInstallAllPresentIssuesNoMutations(t *testing.T) {
	fake := execx.NewFakeRunner().
		SetAvailable("pacman", true).
		Script("pacman -Q git", execx.Result{ExitCode: 0})

	m, err := Select(archProfile(), fake)
	require.NoError(t, err)

	result, err := m.Install(context.Background(), []string{"git"})
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Equal(t, []string{"git"}, result.Skipped)
	assert.Empty(t, fake.MutatingCalls)
}

func TestInstallFailureReportsPackageInstallError(t *testing.T) {
	fake := execx.NewFakeRunner().
		SetAvailable("apt-get", true).
		ScriptFailure("dpkg -s cowsay", "not installed").
		ScriptFailure("sudo apt-get install -y cowsay", "unable to locate package")

	profile := &platform.Profile{OS: platform.Linux, Distro: "ubuntu"}
	m, err := Select(profile, fake)
	require.NoError(t, err)
	assert.Equal(t, "apt", m.Name())

	_, err = m.Install(context.Background(), []string{"cowsay"})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPackageInstall))
}

func TestUpdateWrapsFailures(t *testing.T) {
	fake := execx.NewFakeRunner().
		SetAvailable("brew", true).
		ScriptFailure("brew update", "network unreachable")

	profile := &platform.Profile{OS: platform.MacOS}
	m, err := Select(profile, fake)
	require.NoError(t, err)

	err = m.Update(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrPackageUpdate))
}

func TestParuBootstrapGating(t *testing.T) {
	// pacman present, paru absent: bootstrap is possible
	fake := execx.NewFakeRunner().SetAvailable("pacman", true)
	m, err := build("paru", fake)
	require.NoError(t, err)

	b, ok := m.(Bootstrapper)
	require.True(t, ok)
	assert.True(t, b.CanBootstrap())

	// paru already present: nothing to bootstrap
	fake.SetAvailable("paru", true)
	assert.False(t, b.CanBootstrap())
}

func TestKnownManagersRegistered(t *testing.T) {
	known := Known()
	for _, name := range []string{"apt", "chocolatey", "homebrew", "pacman", "paru", "scoop", "winget"} {
		assert.Contains(t, known, name)
	}
}
