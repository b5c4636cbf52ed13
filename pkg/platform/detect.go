package platform

import (
	"bufio"
	"os"
	"runtime"
	"strings"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/logging"
)

// Detect inspects the running environment and returns the platform profile.
// It is a local, synchronous check with no retries. An OS that cannot be
// classified into a known family fails with ErrUnsupportedPlatform.
func Detect() (*Profile, error) {
	return detect(runtime.GOOS, runtime.GOARCH, "/etc/os-release")
}

// detect is the testable core of Detect.
func detect(goos, goarch, osReleasePath string) (*Profile, error) {
	logger := logging.GetLogger("platform")

	profile := &Profile{Arch: normalizeArch(goarch)}

	switch goos {
	case "darwin":
		profile.OS = MacOS
	case "linux":
		profile.OS = Linux
		profile.Distro = readDistroID(osReleasePath)
	case "windows":
		profile.OS = Windows
	default:
		return nil, errors.Newf(errors.ErrUnsupportedPlatform, "unsupported platform: %s", goos)
	}

	profile.DefaultShell = detectShell(profile.OS)

	logger.Debug().
		Str("os", string(profile.OS)).
		Str("distro", profile.Distro).
		Str("arch", string(profile.Arch)).
		Str("shell", profile.DefaultShell).
		Msg("Platform detected")

	return profile, nil
}

func normalizeArch(goarch string) Arch {
	switch goarch {
	case "amd64":
		return AMD64
	case "arm64":
		return ARM64
	case "386":
		return I386
	default:
		return UnknownArch
	}
}

// readDistroID parses the ID field from an os-release file.
// Returns an empty string when the file is absent or has no ID.
func readDistroID(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "ID=") {
			continue
		}
		id := strings.TrimPrefix(line, "ID=")
		return strings.ToLower(strings.Trim(id, `"`))
	}
	return ""
}

// detectShell returns the user's login shell, falling back to the platform
// default when $SHELL is not set.
func detectShell(os_ OS) string {
	if shell := os.Getenv("SHELL"); shell != "" {
		return shell
	}
	switch os_ {
	case MacOS:
		return "/bin/zsh"
	case Windows:
		return "powershell.exe"
	default:
		return "/bin/bash"
	}
}
