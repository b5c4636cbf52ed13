package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/sysforge/sysforge/internal/version"
	"github.com/sysforge/sysforge/pkg/config"
	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
	"github.com/sysforge/sysforge/pkg/logging"
	"github.com/sysforge/sysforge/pkg/orchestrator"
	"github.com/sysforge/sysforge/pkg/paths"
	"github.com/sysforge/sysforge/pkg/pkgmgr"
	"github.com/sysforge/sysforge/pkg/platform"
	"github.com/sysforge/sysforge/pkg/state"
	"github.com/sysforge/sysforge/pkg/tasks"
)

var (
	verbosity int
	quiet     bool
	logFile   string
	cfgFile   string

	autoYes    bool
	dryRun     bool
	resume     bool
	resetState bool
	bootstrap  bool
	only       []string

	rootCmd = &cobra.Command{
		Use:   "sysforge",
		Short: "Resumable workstation provisioning",
		Long: `sysforge provisions a workstation in one resumable run: it installs
packages through the platform's package manager, merges your dotfiles from
a remote archive, applies system settings and configures your shell.

Completed tasks are recorded, so re-running after a failure or interrupt
picks up where the last run stopped.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(logging.Options{
				Verbosity: verbosity,
				Quiet:     quiet,
				LogFile:   logFile,
			})
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE:          runProvision,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute runs the CLI. Called once from main.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil && !errors.IsErrorCode(err, errors.ErrInternal) {
		// Task failures are already rendered in the summary table;
		// everything else needs to be shown here.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	rootCmd.Version = version.Version

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress console log output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default $XDG_STATE_HOME/sysforge/sysforge.log)")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default searches ./sysforge.toml, ~/.sysforge.toml, $XDG_CONFIG_HOME/sysforge/sysforge.toml)")

	rootCmd.Flags().BoolVarP(&autoYes, "yes", "y", false, "Answer yes to all prompts")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without doing it")
	rootCmd.Flags().BoolVar(&resume, "resume", false, "Continue an interrupted run")
	rootCmd.Flags().BoolVar(&resetState, "reset", false, "Forget recorded completions and run everything again")
	rootCmd.Flags().BoolVar(&bootstrap, "bootstrap", false, "Install the preferred package manager first if it is missing (e.g. paru via pacman)")
	rootCmd.Flags().StringSliceVar(&only, "only", nil, "Run only the named tasks (comma-separated: packages,dotfiles,settings,shell)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(completionCmd)
}

// errTasksFailed signals a non-zero exit after the summary has been shown.
var errTasksFailed = errors.New(errors.ErrInternal, "one or more tasks failed")

// validateOnly rejects unknown task names up front; a typo must fail the
// run, not silently skip everything.
func validateOnly(names []string) error {
	valid := make(map[string]bool)
	for _, name := range tasks.Names() {
		valid[name] = true
	}
	for _, name := range names {
		if !valid[name] {
			return errors.Newf(errors.ErrInvalidInput,
				"unknown task %q (valid tasks: %s)", name, strings.Join(tasks.Names(), ", "))
		}
	}
	return nil
}

func runProvision(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := validateOnly(only); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	profile, err := platform.Detect()
	if err != nil {
		return err
	}
	log.Info().Str("platform", profile.String()).Msg("Platform detected")

	statePath := cfg.State.File
	if statePath == "" {
		statePath = paths.StateFilePath()
	}
	statePath, err = paths.ExpandHome(statePath)
	if err != nil {
		return err
	}
	store := state.NewFileStore(statePath)
	if resetState {
		if err := store.Reset(); err != nil {
			return err
		}
		log.Info().Str("path", statePath).Msg("Run state cleared")
	}

	runner := execx.NewRunner(dryRun)

	if bootstrap && !dryRun {
		if name, err := pkgmgr.BootstrapPreferred(ctx, profile, runner); err != nil {
			return err
		} else if name != "" {
			log.Info().Str("manager", name).Msg("Package manager bootstrapped")
		}
	}
	manager, managerErr := pkgmgr.Select(profile, runner)

	home, err := paths.GetHomeDirectory()
	if err != nil {
		return err
	}

	tc := &tasks.Context{
		Config:     cfg,
		Profile:    profile,
		Runner:     runner,
		Manager:    manager,
		ManagerErr: managerErr,
		DryRun:     dryRun,
		AutoYes:    autoYes,
		Prompter:   tasks.NewPrompter(autoYes),
		HomeDir:    home,
	}

	mode := orchestrator.ModeFresh
	switch {
	case dryRun:
		mode = orchestrator.ModeDryRun
	case resume:
		mode = orchestrator.ModeResume
	}

	summary := orchestrator.New(store, tasks.All(), orchestrator.Options{
		Mode: mode,
		Only: only,
	}).Run(ctx, tc)

	renderSummary(summary)
	if summary.Failed() {
		return errTasksFailed
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("sysforge version %s\n", version.Version)
		fmt.Printf("  commit: %s\n", version.Commit)
		fmt.Printf("  built:  %s\n", version.Date)
	},
}

var completionCmd = &cobra.Command{
	Use:                   "completion [bash|zsh|fish|powershell]",
	Short:                 "Generate shell completion script",
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		default:
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
	},
}
