package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/logging"
	"github.com/sysforge/sysforge/pkg/paths"
)

const (
	snippetBegin = "# >>> sysforge managed block >>>"
	snippetEnd   = "# <<< sysforge managed block <<<"
)

// ShellTask makes the configured shell the login shell and appends a
// marker-guarded initialization block to its rc file. Both steps are
// idempotent: an already-default shell is left alone and an existing
// managed block is never duplicated.
type ShellTask struct {
	// EtcShells is the list of permitted login shells. Overridable for tests.
	EtcShells string
}

// NewShellTask returns the shell task.
func NewShellTask() *ShellTask {
	return &ShellTask{EtcShells: "/etc/shells"}
}

func (t *ShellTask) Name() string        { return "shell" }
func (t *ShellTask) Description() string { return "Shell configuration" }
func (t *ShellTask) StateKey() string    { return t.Name() }

func (t *ShellTask) Plan(ctx context.Context, tc *Context) ([]string, error) {
	if tc.Profile.IsWindows() {
		return []string{"shell configuration is not supported on windows, nothing to do"}, nil
	}

	desired := t.desiredShell(tc)
	var plan []string
	if !t.isRegistered(desired) {
		plan = append(plan, fmt.Sprintf("register %s in %s", desired, t.EtcShells))
	}
	if tc.Profile.DefaultShell != desired {
		plan = append(plan, fmt.Sprintf("change login shell to %s", desired))
	} else {
		plan = append(plan, fmt.Sprintf("login shell already %s", desired))
	}
	plan = append(plan, fmt.Sprintf("ensure managed block in %s", t.rcFileName(desired)))
	return plan, nil
}

func (t *ShellTask) Execute(ctx context.Context, tc *Context) error {
	logger := logging.GetLogger("tasks.shell")

	if tc.Profile.IsWindows() {
		logger.Info().Msg("Shell configuration is not supported on windows, skipping")
		return nil
	}

	desired := t.desiredShell(tc)
	if !tc.Runner.LookPath(filepath.Base(desired)) {
		return errors.Newf(errors.ErrShellChange, "shell %s is not installed", desired)
	}

	if !t.isRegistered(desired) {
		cmd := fmt.Sprintf("echo %s >> %s", desired, t.EtcShells)
		if _, err := tc.Runner.Run(ctx, "sudo", "sh", "-c", cmd); err != nil {
			return errors.Wrapf(err, errors.ErrShellChange, "failed to register %s", desired)
		}
		logger.Info().Str("shell", desired).Msg("Registered shell")
	}

	if tc.Profile.DefaultShell != desired {
		if _, err := tc.Runner.Run(ctx, "chsh", "-s", desired); err != nil {
			return errors.Wrapf(err, errors.ErrShellChange, "failed to change login shell to %s", desired)
		}
		logger.Info().Str("shell", desired).Msg("Login shell changed")
	} else {
		logger.Debug().Str("shell", desired).Msg("Login shell already set")
	}

	home, err := t.homeDir(tc)
	if err != nil {
		return err
	}
	rcFile := filepath.Join(home, t.rcFileName(desired))
	if err := ensureManagedBlock(rcFile, t.snippet()); err != nil {
		return errors.Wrapf(err, errors.ErrShellChange, "failed to update %s", rcFile)
	}
	return nil
}

// desiredShell returns the configured shell, falling back to the platform
// zsh location.
func (t *ShellTask) desiredShell(tc *Context) string {
	if tc.Config.Shell.Default != "" {
		return tc.Config.Shell.Default
	}
	if tc.Profile.IsMacOS() {
		return "/bin/zsh"
	}
	return "/usr/bin/zsh"
}

// isRegistered reports whether the shell appears in /etc/shells. A missing
// or unreadable file counts as unregistered.
func (t *ShellTask) isRegistered(shell string) bool {
	data, err := os.ReadFile(t.EtcShells)
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == shell {
			return true
		}
	}
	return false
}

// rcFileName returns the rc file for a shell binary.
func (t *ShellTask) rcFileName(shell string) string {
	switch filepath.Base(shell) {
	case "bash":
		return ".bashrc"
	case "fish":
		return ".config/fish/config.fish"
	default:
		return ".zshrc"
	}
}

func (t *ShellTask) snippet() string {
	return strings.Join([]string{
		"export PATH=\"$HOME/.local/bin:$PATH\"",
		"export EDITOR=\"${EDITOR:-vim}\"",
	}, "\n")
}

func (t *ShellTask) homeDir(tc *Context) (string, error) {
	if tc.HomeDir != "" {
		return tc.HomeDir, nil
	}
	return paths.GetHomeDirectory()
}

// ensureManagedBlock appends the marker-guarded snippet to rcFile unless a
// managed block already exists.
func ensureManagedBlock(rcFile, snippet string) error {
	data, err := os.ReadFile(rcFile)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	if strings.Contains(string(data), snippetBegin) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(rcFile), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(rcFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	block := "\n" + snippetBegin + "\n" + snippet + "\n" + snippetEnd + "\n"
	_, err = f.WriteString(block)
	return err
}
