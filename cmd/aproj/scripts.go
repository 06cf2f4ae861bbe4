package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/aproj/pkg/project"
	"github.com/jaspreet-dot-casa/aproj/pkg/script"
)

// newImportCmd creates the import subcommand
func newImportCmd(opts *globalOptions) *cobra.Command {
	var reload, watch bool

	cmd := &cobra.Command{
		Use:   "import <script> [name...]",
		Short: "Import a project script",
		Long: `Import an HCL script, given relative to the project root, and print its
values as YAML. With names, print only those values, in the order given.

With --watch the script is evaluated again each time it changes, until
interrupted.

Examples:
  aproj import scripts/script.hcl
  aproj import scripts/script.hcl foo bar
  aproj import scripts/script.hcl --watch`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, opts)
			if err != nil {
				return err
			}

			if watch {
				return runWatch(cmd, p, args[0], args[1:])
			}

			mod, err := p.Import(args[0], reload)
			if err != nil {
				return err
			}
			return printModule(cmd, mod, args[1:])
		},
	}

	cmd.Flags().BoolVar(&reload, "reload", false, "Re-evaluate the script even if it is cached")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-evaluate and print the script whenever it changes")

	return cmd
}

// newRunCmd creates the run subcommand
func newRunCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>",
		Short: "Evaluate a project script",
		Long:  `Evaluate an HCL script as the main script, without caching, and print its values as YAML.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(cmd, opts)
			if err != nil {
				return err
			}

			values, err := p.Run(args[0])
			if err != nil {
				return err
			}
			return writeYAML(cmd, values)
		},
	}
}

// printModule writes the module's values, or only names in order, as YAML.
func printModule(cmd *cobra.Command, mod *script.Module, names []string) error {
	if len(names) == 0 {
		return writeYAML(cmd, mod.Values())
	}

	values, err := mod.Lookup(names...)
	if err != nil {
		return err
	}
	return writeYAML(cmd, values)
}

// runWatch prints every evaluation of the script until the command's context
// is cancelled. Failed evaluations are reported and the watch continues.
func runWatch(cmd *cobra.Command, p *project.Project, rel string, names []string) error {
	return p.Watch(cmd.Context(), rel, func(mod *script.Module, err error) {
		fmt.Fprintln(cmd.OutOrStdout(), "---")
		if err == nil {
			err = printModule(cmd, mod, names)
		}
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
	})
}
