// Package platform identifies the machine being provisioned: OS family,
// Linux distribution, CPU architecture and the user's default shell.
// The profile is detected once per run and never mutated afterwards.
package platform

import "fmt"

// OS is the operating system family.
type OS string

const (
	MacOS   OS = "macos"
	Linux   OS = "linux"
	Windows OS = "windows"
)

// Arch is the CPU architecture, normalized from runtime.GOARCH.
type Arch string

const (
	AMD64       Arch = "x86_64"
	ARM64       Arch = "arm64"
	I386        Arch = "i386"
	UnknownArch Arch = "unknown"
)

// Profile describes the detected platform. Immutable once detected.
type Profile struct {
	OS           OS
	Distro       string // Linux distribution ID from /etc/os-release, empty elsewhere
	Arch         Arch
	DefaultShell string // login shell, e.g. /bin/zsh
}

// IsMacOS reports whether the profile is a macOS machine.
func (p *Profile) IsMacOS() bool { return p.OS == MacOS }

// IsLinux reports whether the profile is a Linux machine.
func (p *Profile) IsLinux() bool { return p.OS == Linux }

// IsWindows reports whether the profile is a Windows machine.
func (p *Profile) IsWindows() bool { return p.OS == Windows }

// IsArchLike reports whether the distro uses pacman-style packaging.
func (p *Profile) IsArchLike() bool {
	switch p.Distro {
	case "arch", "manjaro", "endeavouros", "artix":
		return true
	}
	return false
}

// IsDebianLike reports whether the distro uses apt-style packaging.
func (p *Profile) IsDebianLike() bool {
	switch p.Distro {
	case "debian", "ubuntu", "pop", "linuxmint", "raspbian":
		return true
	}
	return false
}

func (p *Profile) String() string {
	if p.Distro != "" {
		return fmt.Sprintf("%s (%s), %s", p.OS, p.Distro, p.Arch)
	}
	return fmt.Sprintf("%s, %s", p.OS, p.Arch)
}
