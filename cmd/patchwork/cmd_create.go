package main

import "github.com/spf13/cobra"

func newCreateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Write patches from saves, edited containers and edited assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, opts, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			sum, err := p.Create(cmd.Context())
			return report(cmd, sum, "patches", opts.Verbose, err)
		},
	}
}
