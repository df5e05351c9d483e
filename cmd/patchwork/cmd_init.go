package main

import (
	"fmt"
	"os"

	"github.com/odvcencio/patchwork/pkg/workspace"
	"github.com/spf13/cobra"
)

func newInitCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := g.root()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(root, 0o755); err != nil {
				return fmt.Errorf("init: %w", err)
			}
			path := g.configPath(root)
			if _, err := os.Stat(path); err == nil && !g.force {
				return fmt.Errorf("init: %s already exists (use --force to overwrite)", path)
			} else if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("init: %w", err)
			}
			if err := workspace.WriteConfig(path, workspace.DefaultConfig()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	}
}
