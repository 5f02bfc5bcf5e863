package main

import (
	"context"
	"os"
	"runtime/debug"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/annotree/cmd/annotree/diagnose"
	"github.com/walteh/annotree/cmd/annotree/merge"
	"github.com/walteh/annotree/cmd/annotree/query"
	serve_lsp "github.com/walteh/annotree/cmd/annotree/serve-lsp"
	"github.com/walteh/annotree/cmd/annotree/stats"
	"github.com/walteh/annotree/pkg/config"
	logging "github.com/walteh/annotree/pkg/debug"
)

func main() {
	if err := run(); err != nil {
		println(err.Error())
		os.Exit(1)
	}
}

type rootFlags struct {
	config   string
	logLevel string
	noColor  bool
	jobs     int
	caller   bool
}

func run() error {
	rootCmd, _ := newRootCommand(afero.NewOsFs())

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		return errors.Errorf("failed to execute command: %w", err)
	}

	return nil
}

// newRootCommand reads config files from fs; sub-commands use their own filesystem.
func newRootCommand(fs afero.Fs) (*cobra.Command, *rootFlags) {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:           "annotree",
		Short:         "Query and combine semantic annotation dumps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&flags.config, "config", "", "config file (default "+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable colored log output")
	rootCmd.PersistentFlags().IntVar(&flags.jobs, "jobs", 0, "parallel dump loads (0 means one per CPU)")
	rootCmd.PersistentFlags().BoolVar(&flags.caller, "log-caller", false, "include the caller in log lines")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(fs, flags, cmd)
		if err != nil {
			return err
		}

		ctx := logging.WithLogger(cmd.Context(), cmd.ErrOrStderr(), logging.LoggerOptions{
			Level:  cfg.Level(),
			Color:  cfg.UseColor(),
			Caller: flags.caller,
		})
		cmd.SetContext(config.WithContext(ctx, cfg))
		return nil
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		rootCmd.Version = "unknown"
	} else {
		rootCmd.Version = info.Main.Version
	}

	cmdVersion := &cobra.Command{
		Use: "raw-version",
		Run: func(cmdz *cobra.Command, args []string) {
			cmdz.Println(rootCmd.Version)
		},
		Hidden: true,
	}

	rootCmd.AddCommand(cmdVersion)

	rootCmd.AddCommand(query.NewQueryCommand())
	rootCmd.AddCommand(merge.NewMergeCommand())
	rootCmd.AddCommand(stats.NewStatsCommand())
	rootCmd.AddCommand(diagnose.NewDiagnoseCommand())
	rootCmd.AddCommand(serve_lsp.NewServeLSPCommand())

	return rootCmd, flags
}

// loadConfig reads the config file, then lets explicitly set flags win.
func loadConfig(fs afero.Fs, flags *rootFlags, cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()

	path := flags.config
	if path == "" {
		if ok, _ := afero.Exists(fs, config.DefaultFile); ok {
			path = config.DefaultFile
		}
	}
	if path != "" {
		loaded, err := config.Load(fs, path)
		if err != nil {
			return nil, errors.Errorf("loading %s: %w", path, err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = flags.logLevel
	}
	if cmd.Flags().Changed("no-color") {
		color := !flags.noColor
		cfg.Color = &color
	}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = flags.jobs
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
