package main

import (
	"fmt"

	"github.com/odvcencio/patchwork/pkg/workspace"
	"github.com/spf13/cobra"
)

func newReplaceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace <src> <dest-dir>",
		Short: "Copy files over every same-named file under a directory",
		Long: "Copy src, or every file directly inside src when it is a directory, over\n" +
			"each file with the same name anywhere under dest-dir.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := workspace.ReplaceSources(args[0])
			if err != nil {
				return err
			}
			n, err := workspace.ReplaceFiles(cmd.OutOrStdout(), sources, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replaced %d files.\n", n)
			return nil
		},
	}
}
