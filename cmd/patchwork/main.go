package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "patchwork",
		Short:         "Apply, create and distribute translation patches for BinJ/E text containers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	g.bind(root)

	root.AddCommand(newVersionCmd())
	root.AddCommand(newInitCmd(g))
	root.AddCommand(newApplyCmd(g))
	root.AddCommand(newCreateCmd(g))
	root.AddCommand(newDistributeCmd(g))
	root.AddCommand(newDiffCmd(g))
	root.AddCommand(newExportCmd(g))
	root.AddCommand(newBundleCmd(g))
	root.AddCommand(newUnbundleCmd(g))
	root.AddCommand(newReplaceCmd())
	root.AddCommand(newUpdateTableCmd(g))
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "patchwork 0.1.0-dev")
		},
	}
}
