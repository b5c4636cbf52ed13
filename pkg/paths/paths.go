// Package paths provides centralized path handling for sysforge.
// It implements XDG Base Directory compliance via adrg/xdg and is the
// single place that knows where state, config and cache files live.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"

	"github.com/sysforge/sysforge/pkg/errors"
)

const (
	// AppDirName is the directory name used under the XDG base dirs
	AppDirName = "sysforge"

	// ConfigFileName is the name of the user configuration file
	ConfigFileName = "sysforge.toml"

	// StateFileName is the name of the persisted run-state file
	StateFileName = "state.json"

	// LogFileName is the name of the log file
	LogFileName = "sysforge.log"
)

// StateFilePath returns the default location of the persisted state file.
func StateFilePath() string {
	return filepath.Join(xdg.StateHome, AppDirName, StateFileName)
}

// CacheDir returns the directory used for downloaded archives and staging.
func CacheDir() string {
	return filepath.Join(xdg.CacheHome, AppDirName)
}

// LogFilePath returns the default log file location.
func LogFilePath() string {
	return filepath.Join(xdg.StateHome, AppDirName, LogFileName)
}

// ConfigCandidates returns the ordered list of configuration file paths
// that are searched when no explicit --config is given. The first existing
// file wins.
func ConfigCandidates() []string {
	candidates := []string{
		ConfigFileName, // ./sysforge.toml
	}
	if home, err := GetHomeDirectory(); err == nil {
		candidates = append(candidates, filepath.Join(home, "."+ConfigFileName))
	}
	candidates = append(candidates, filepath.Join(xdg.ConfigHome, AppDirName, ConfigFileName))
	return candidates
}

// GetHomeDirectory returns the user's home directory.
// It first tries os.UserHomeDir(), then falls back to the HOME environment
// variable. If both fail, it returns an error rather than using dangerous
// defaults.
func GetHomeDirectory() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err == nil && homeDir != "" {
		return homeDir, nil
	}

	homeDir = os.Getenv("HOME")
	if homeDir != "" {
		return homeDir, nil
	}

	return "", errors.New(errors.ErrNotFound, "unable to determine home directory: neither os.UserHomeDir() nor HOME environment variable are available")
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := GetHomeDirectory()
		if err != nil {
			return "", err
		}
		if path == "~" {
			return home, nil
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}
