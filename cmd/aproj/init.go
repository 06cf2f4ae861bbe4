package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errMarkerExists = errors.New("project marker already exists")

func newInitCmd(opts *globalOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a project marker",
		Long: `Create the project marker file in a directory, making it a project root.

An existing marker is never overwritten.

Examples:
  aproj init                     # Use current directory
  aproj init ~/work/survey       # Use absolute path
  aproj init . --name survey     # Set the project name`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, opts, dir, name)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Project name written to the marker")

	return cmd
}

func runInit(cmd *cobra.Command, opts *globalOptions, dir, name string) error {
	cfg, err := loadSettings(opts)
	if err != nil {
		return err
	}

	dir, err = filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	config := map[string]any{}
	if name != "" {
		config["name"] = name
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to encode marker: %w", err)
	}

	marker := filepath.Join(dir, cfg.Marker)
	f, err := os.OpenFile(marker, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", errMarkerExists, marker)
		}
		return fmt.Errorf("failed to create marker: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write marker: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write marker: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized project at: %s\n", dir)
	fmt.Fprintf(cmd.OutOrStdout(), "Marker written to: %s\n", marker)
	return nil
}
