// Package config loads sysforge configuration. Values are layered:
// embedded defaults, then the first existing user config file, then
// SYSFORGE_* environment variables (highest precedence). Environment
// overrides are driven by a fixed table of known dotted paths so the
// override surface stays enumerable.
package config

import (
	"github.com/sysforge/sysforge/pkg/platform"
)

// ChecksumPolicy says how the dotfiles archive checksum is enforced.
type ChecksumPolicy int

const (
	// ChecksumRequired fails the dotfiles task on any mismatch or when no
	// hash is configured.
	ChecksumRequired ChecksumPolicy = iota

	// ChecksumOptional verifies when a hash is configured and downgrades a
	// mismatch to a warning.
	ChecksumOptional

	// ChecksumSkip bypasses verification entirely.
	ChecksumSkip
)

func (p ChecksumPolicy) String() string {
	switch p {
	case ChecksumRequired:
		return "required"
	case ChecksumOptional:
		return "optional"
	default:
		return "skip"
	}
}

// Security profiles.
const (
	ProfileNormal  = "normal"
	ProfileStrict  = "strict"
	ProfileReduced = "reduced"
)

// Config is the effective configuration for a run.
type Config struct {
	Packages PackagesConfig `koanf:"packages" toml:"packages"`
	Security SecurityConfig `koanf:"security" toml:"security"`
	Dotfiles DotfilesConfig `koanf:"dotfiles" toml:"dotfiles"`
	State    StateConfig    `koanf:"state" toml:"state"`
	Shell    ShellConfig    `koanf:"shell" toml:"shell"`
}

// PackagesConfig configures the packages task.
type PackagesConfig struct {
	// AdditionalPackages is unioned with the platform default set.
	AdditionalPackages []string `koanf:"additional_packages" toml:"additional_packages"`

	// Defaults maps a platform family (macos, arch, debian, linux,
	// windows) to its default package set.
	Defaults map[string][]string `koanf:"defaults" toml:"defaults"`
}

// SecurityConfig selects the security profile.
type SecurityConfig struct {
	Profile string `koanf:"profile" toml:"profile"`
}

// DotfilesConfig configures the dotfiles task.
type DotfilesConfig struct {
	GdriveID         string `koanf:"gdrive_id" toml:"gdrive_id"`
	Checksum         string `koanf:"checksum" toml:"checksum"`
	ChecksumRequired bool   `koanf:"checksum_required" toml:"checksum_required"`
}

// StateConfig overrides the state file location.
type StateConfig struct {
	File string `koanf:"file" toml:"file"`
}

// ShellConfig overrides the shell the shell task configures.
type ShellConfig struct {
	Default string `koanf:"default" toml:"default"`
}

// DefaultPackagesFor returns the default package set for a platform,
// choosing the most specific family entry available.
func (c *Config) DefaultPackagesFor(profile *platform.Profile) []string {
	switch {
	case profile.IsMacOS():
		return c.Packages.Defaults["macos"]
	case profile.IsWindows():
		return c.Packages.Defaults["windows"]
	case profile.IsArchLike():
		return c.Packages.Defaults["arch"]
	case profile.IsDebianLike():
		return c.Packages.Defaults["debian"]
	default:
		return c.Packages.Defaults["linux"]
	}
}

// PackageSet returns the platform default set unioned with the user's
// additional packages, preserving order and dropping duplicates.
func (c *Config) PackageSet(profile *platform.Profile) []string {
	seen := make(map[string]bool)
	var out []string
	for _, name := range append(append([]string{}, c.DefaultPackagesFor(profile)...), c.Packages.AdditionalPackages...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ChecksumPolicy derives the effective verification policy from the
// dotfiles settings and the security profile.
//
//   - checksum == "skip"                  -> skip
//   - security.profile == reduced         -> skip when no hash, else optional
//   - security.profile == strict          -> required
//   - checksum_required == true           -> required
//   - hash configured, not required       -> optional
//   - no hash, not required               -> skip (verification bypassed)
func (c *Config) ChecksumPolicy() ChecksumPolicy {
	if c.Dotfiles.Checksum == "skip" {
		return ChecksumSkip
	}
	switch c.Security.Profile {
	case ProfileStrict:
		return ChecksumRequired
	case ProfileReduced:
		if c.Dotfiles.Checksum == "" {
			return ChecksumSkip
		}
		return ChecksumOptional
	}
	if c.Dotfiles.ChecksumRequired {
		return ChecksumRequired
	}
	if c.Dotfiles.Checksum == "" {
		return ChecksumSkip
	}
	return ChecksumOptional
}
