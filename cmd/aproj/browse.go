package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jaspreet-dot-casa/aproj/pkg/browse"
)

func newBrowseCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the project interactively",
		Long: `Launch the interactive browser over the project tree. Each entry shows the
attribute name it resolves from. The last selected file is printed on exit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := loadProject(cmd, opts)
			if err != nil {
				return err
			}

			selected, err := browse.Run(p)
			if err != nil {
				return err
			}
			if selected != "" {
				fmt.Fprintln(cmd.OutOrStdout(), selected)
			}
			return nil
		},
	}
}
