package main

import "github.com/spf13/cobra"

func newApplyCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Rebuild edited containers, saves and assets from patches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, opts, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			sum, err := p.Apply(cmd.Context())
			return report(cmd, sum, "files", opts.Verbose, err)
		},
	}
}
