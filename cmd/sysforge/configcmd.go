package main

import (
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/adrg/xdg"

	"github.com/sysforge/sysforge/pkg/config"
	"github.com/sysforge/sysforge/pkg/paths"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage sysforge configuration",
	}

	var output string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file with the defaults spelled out",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := output
			if path == "" {
				path = filepath.Join(xdg.ConfigHome, paths.AppDirName, paths.ConfigFileName)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			pterm.Success.Printfln("Wrote %s", path)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&output, "output", "o", "", "Where to write the file (default $XDG_CONFIG_HOME/sysforge/sysforge.toml)")

	configCmd.AddCommand(initCmd)
	return configCmd
}
