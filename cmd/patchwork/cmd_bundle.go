package main

import (
	"fmt"

	"github.com/odvcencio/patchwork/pkg/bundle"
	"github.com/spf13/cobra"
)

func newBundleCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "bundle <out" + bundle.Ext + ">",
		Short: "Pack every patch in the workspace into one archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _, opts, err := g.load()
			if err != nil {
				return err
			}
			names, err := bundle.Collect(root, opts.PatchExts())
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no patches to bundle")
				return nil
			}
			if err := bundle.PackFile(args[0], root, names); err != nil {
				return err
			}
			if opts.Verbose >= 2 {
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), " * %s\n", name)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "bundled %d patches into %s\n", len(names), args[0])
			return nil
		},
	}
}
