package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jaspreet-dot-casa/aproj/pkg/pathwrap"
	"github.com/jaspreet-dot-casa/aproj/pkg/project"
)

// newRootPathCmd creates the root subcommand
func newRootPathCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "root",
		Short: "Print the project root",
		Long:  `Print the absolute path of the project root containing the start directory.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, opts)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.RootPath())
			return nil
		},
	}
}

// projectInfo is the YAML document printed by info.
type projectInfo struct {
	Name       string         `yaml:"name,omitempty"`
	Root       string         `yaml:"root"`
	ConfigFile string         `yaml:"config_file,omitempty"`
	Config     map[string]any `yaml:"config"`
}

// newInfoCmd creates the info subcommand
func newInfoCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show project details",
		Long:  `Show the project name, root, config file and configuration as YAML.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, opts)
			if err != nil {
				return err
			}

			name, _ := p.Name()
			return writeYAML(cmd, projectInfo{
				Name:       name,
				Root:       p.RootPath(),
				ConfigFile: p.ConfigFile(),
				Config:     p.Config(),
			})
		},
	}
}

// newLsCmd creates the ls subcommand
func newLsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ls [attr...]",
		Short: "List a project directory",
		Long: `List the children of a project directory with the attribute name each
resolves from. The directory is reached from the root by attribute names.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := walk(cmd, opts, args)
			if err != nil {
				return err
			}

			names, err := w.Completions()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range names {
				suffix := ""
				if w.Child(name).IsDir() {
					suffix = "/"
				}
				fmt.Fprintf(out, "%-32s %s\n", name+suffix, pathwrap.Sanitize(name))
			}
			return nil
		},
	}
}

// newAttrsCmd creates the attrs subcommand
func newAttrsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attrs [attr...]",
		Short: "List attribute names",
		Long:  `List every attribute name available on a project directory, including wrapper methods.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := walk(cmd, opts, args)
			if err != nil {
				return err
			}

			attrs, err := w.Attributes()
			if err != nil {
				return err
			}
			return printLines(cmd, attrs)
		},
	}
}

// newCompleteCmd creates the complete subcommand
func newCompleteCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "complete [attr...]",
		Short: "List child names for completion",
		Long:  `List the raw child names of a project directory, sorted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := walk(cmd, opts, args)
			if err != nil {
				return err
			}

			names, err := w.Completions()
			if err != nil {
				return err
			}
			return printLines(cmd, names)
		},
	}
}

// newPathCmd creates the path subcommand
func newPathCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "path [attr...]",
		Short: "Resolve attribute names to a path",
		Long: `Resolve a chain of attribute names from the project root and print the path.

Examples:
  aproj path data raw_data d__2024_csv
  aproj path scripts`,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := walk(cmd, opts, args)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), w.Path())
			return nil
		},
	}
}

// walk resolves attrs from the project root.
func walk(cmd *cobra.Command, opts *globalOptions, attrs []string) (pathwrap.Wrapper, error) {
	p, err := loadProject(cmd, opts)
	if err != nil {
		return pathwrap.Wrapper{}, err
	}
	return rootWalk(p, attrs)
}

func rootWalk(p *project.Project, attrs []string) (pathwrap.Wrapper, error) {
	w, err := p.RootPathW().Walk(attrs...)
	if err != nil {
		return pathwrap.Wrapper{}, fmt.Errorf("failed to resolve %v: %w", attrs, err)
	}
	return w, nil
}

func printLines(cmd *cobra.Command, lines []string) error {
	out := cmd.OutOrStdout()
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write YAML: %w", err)
	}
	return enc.Close()
}
