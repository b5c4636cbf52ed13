package tasks

import (
	"context"
	"fmt"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/logging"
)

// settingGroup is a named batch of idempotent configuration commands.
type settingGroup struct {
	Name     string
	Commands [][]string
}

// SettingsTask applies OS-level preferences. Each setting is applied
// independently; a failing setting is logged and skipped so one bad
// command cannot abort the rest of the group.
type SettingsTask struct{}

// NewSettingsTask returns the settings task.
func NewSettingsTask() *SettingsTask { return &SettingsTask{} }

func (t *SettingsTask) Name() string        { return "settings" }
func (t *SettingsTask) Description() string { return "System settings" }
func (t *SettingsTask) StateKey() string    { return t.Name() }

func (t *SettingsTask) Plan(ctx context.Context, tc *Context) ([]string, error) {
	groups := t.groupsFor(ctx, tc)
	if len(groups) == 0 {
		return []string{fmt.Sprintf("no settings defined for %s", tc.Profile.OS)}, nil
	}

	var plan []string
	for _, group := range groups {
		plan = append(plan, fmt.Sprintf("apply %s settings (%d commands)", group.Name, len(group.Commands)))
	}
	return plan, nil
}

func (t *SettingsTask) Execute(ctx context.Context, tc *Context) error {
	logger := logging.GetLogger("tasks.settings")

	groups := t.groupsFor(ctx, tc)
	if len(groups) == 0 {
		logger.Info().Str("os", string(tc.Profile.OS)).Msg("No settings defined for this platform")
		return nil
	}

	applied, failed := 0, 0
	for _, group := range groups {
		for _, cmd := range group.Commands {
			if _, err := tc.Runner.Run(ctx, cmd[0], cmd[1:]...); err != nil {
				failed++
				wrapped := errors.Wrapf(err, errors.ErrSettingsApply,
					"failed to apply %s setting", group.Name)
				logger.Warn().Err(wrapped).Strs("command", cmd).Msg("Setting failed, continuing")
				continue
			}
			applied++
		}
		logger.Info().Str("group", group.Name).Msg("Settings group applied")
	}

	logger.Info().Int("applied", applied).Int("failed", failed).Msg("Settings done")
	return nil
}

// groupsFor returns the setting groups for the current platform. Linux
// settings need gsettings; without it the task has nothing to do.
func (t *SettingsTask) groupsFor(ctx context.Context, tc *Context) []settingGroup {
	switch {
	case tc.Profile.IsMacOS():
		return macosSettings()
	case tc.Profile.IsLinux():
		if !tc.Runner.LookPath("gsettings") {
			return nil
		}
		return linuxSettings()
	default:
		return nil
	}
}

func macosSettings() []settingGroup {
	return []settingGroup{
		{
			Name: "Dock",
			Commands: [][]string{
				{"defaults", "write", "com.apple.dock", "autohide", "-bool", "true"},
				{"defaults", "write", "com.apple.dock", "tilesize", "-int", "48"},
				{"defaults", "write", "com.apple.dock", "show-recents", "-bool", "false"},
				{"killall", "Dock"},
			},
		},
		{
			Name: "Finder",
			Commands: [][]string{
				{"defaults", "write", "com.apple.finder", "AppleShowAllFiles", "-bool", "true"},
				{"defaults", "write", "com.apple.finder", "ShowPathbar", "-bool", "true"},
				{"defaults", "write", "NSGlobalDomain", "AppleShowAllExtensions", "-bool", "true"},
				{"killall", "Finder"},
			},
		},
		{
			Name: "General",
			Commands: [][]string{
				{"defaults", "write", "NSGlobalDomain", "KeyRepeat", "-int", "2"},
				{"defaults", "write", "NSGlobalDomain", "InitialKeyRepeat", "-int", "15"},
				{"defaults", "write", "NSGlobalDomain", "NSAutomaticSpellingCorrectionEnabled", "-bool", "false"},
			},
		},
	}
}

func linuxSettings() []settingGroup {
	return []settingGroup{
		{
			Name: "Desktop",
			Commands: [][]string{
				{"gsettings", "set", "org.gnome.desktop.interface", "enable-animations", "false"},
				{"gsettings", "set", "org.gnome.desktop.interface", "clock-show-seconds", "true"},
			},
		},
		{
			Name: "Keyboard",
			Commands: [][]string{
				{"gsettings", "set", "org.gnome.desktop.peripherals.keyboard", "repeat-interval", "30"},
				{"gsettings", "set", "org.gnome.desktop.peripherals.keyboard", "delay", "250"},
			},
		},
	}
}
