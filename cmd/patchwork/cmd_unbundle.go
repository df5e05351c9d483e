package main

import (
	"fmt"

	"github.com/odvcencio/patchwork/pkg/bundle"
	"github.com/spf13/cobra"
)

func newUnbundleCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "unbundle <in" + bundle.Ext + ">",
		Short: "Extract a patch archive into the workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.root()
			if err != nil {
				return err
			}
			names, err := bundle.UnpackFile(args[0], root)
			if err != nil {
				return err
			}
			if g.verbose >= 2 {
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), " * %s\n", name)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unpacked %d files\n", len(names))
			return nil
		},
	}
}
