package main

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/sysforge/sysforge/pkg/config"
	"github.com/sysforge/sysforge/pkg/paths"
	"github.com/sysforge/sysforge/pkg/state"
	"github.com/sysforge/sysforge/pkg/tasks"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks and their recorded completion",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		statePath := cfg.State.File
		if statePath == "" {
			statePath = paths.StateFilePath()
		}
		statePath, err = paths.ExpandHome(statePath)
		if err != nil {
			return err
		}
		store := state.NewFileStore(statePath)

		rows := pterm.TableData{{"TASK", "DESCRIPTION", "COMPLETED"}}
		for _, task := range tasks.All() {
			completed := "-"
			if ts, ok := store.CompletionTime(task.StateKey()); ok {
				completed = time.Unix(int64(ts), 0).Format("2006-01-02 15:04:05")
			}
			rows = append(rows, []string{task.Name(), task.Description(), completed})
		}
		return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	},
}
