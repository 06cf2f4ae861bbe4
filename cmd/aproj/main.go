// Package main provides the aproj CLI tool for working with analysis projects.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jaspreet-dot-casa/aproj/pkg/globalconfig"
	"github.com/jaspreet-dot-casa/aproj/pkg/logging"
	"github.com/jaspreet-dot-casa/aproj/pkg/project"
)

// version is set via -ldflags during build
var version = "dev"

// globalOptions holds the persistent flags shared by all subcommands.
type globalOptions struct {
	dir        string
	marker     string
	configPath string
	logLevel   string
}

func main() {
	rootCmd := newRootCmd()

	// Cobra handles error printing
	rootCmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd creates the root command for aproj
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "aproj",
		Short: "Analysis project helper",
		Long: `aproj finds the analysis project containing a directory and works with
its configuration, its files and its scripts.

A project root is the nearest directory, from the start directory upward,
holding a project.yaml marker file. The marker doubles as the project's
YAML configuration.

Files are addressed by attribute names: every character that is not a
letter, digit or underscore becomes "_", and names starting with a digit
get a "d__" prefix. "raw-data/2024.csv" is reached as raw_data d__2024_csv.`,
		Version: version,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.dir, "dir", "C", "", "Start directory for the project search (defaults to the working directory)")
	flags.StringVar(&opts.marker, "marker", "", "Marker file name (defaults to project.yaml)")
	flags.StringVar(&opts.configPath, "config", "", "Settings file (defaults to ~/.config/aproj/config.yaml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newRootPathCmd(opts),
		newInfoCmd(opts),
		newLsCmd(opts),
		newAttrsCmd(opts),
		newCompleteCmd(opts),
		newPathCmd(opts),
		newImportCmd(opts),
		newRunCmd(opts),
		newInitCmd(opts),
		newBrowseCmd(opts),
	)

	return rootCmd
}

// loadSettings reads user settings and applies flag overrides.
func loadSettings(opts *globalOptions) (*globalconfig.Config, error) {
	path := opts.configPath
	if path == "" {
		var err error
		if path, err = globalconfig.GetConfigPath(); err != nil {
			return nil, fmt.Errorf("failed to locate settings: %w", err)
		}
	}

	cfg, err := globalconfig.Load(path)
	if err != nil {
		return nil, err
	}

	if opts.marker != "" {
		cfg.Marker = opts.marker
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the logger for cmd from the loaded settings.
func newLogger(cmd *cobra.Command, cfg *globalconfig.Config) (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, nil
}

// loadProject locates the project containing the start directory.
func loadProject(cmd *cobra.Command, opts *globalOptions) (*project.Project, error) {
	cfg, err := loadSettings(opts)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}

	projectOpts := append(cfg.ProjectOptions(), project.WithLogger(logger))
	p, err := project.Locate(opts.dir, projectOpts...)
	if err != nil {
		return nil, fmt.Errorf("could not find project: %w", err)
	}
	return p, nil
}
