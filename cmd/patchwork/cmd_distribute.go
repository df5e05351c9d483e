package main

import (
	"github.com/odvcencio/patchwork/pkg/patcher"
	"github.com/spf13/cobra"
)

func newDistributeCmd(g *globals) *cobra.Command {
	var d patcher.DistributeOptions

	cmd := &cobra.Command{
		Use:   "distribute",
		Short: "Merge edits across languages into a distributable tree",
		Long: "Merge every text container across the given languages, highest priority\n" +
			"first, and copy edited assets into the destination directory laid out\n" +
			"under each category's parent path.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, opts, err := g.open(cmd)
			if err != nil {
				return err
			}
			defer p.Close()

			sum, err := p.Distribute(d)
			return report(cmd, sum, "files", opts.Verbose, err)
		},
	}

	cmd.Flags().StringSliceVar(&d.Languages, "lang", nil, "languages in priority order, e.g. EN,DE")
	cmd.Flags().StringVar(&d.Version, "version", "", "game update version to include, e.g. v1.1")
	cmd.Flags().StringVar(&d.Dest, "dest", patcher.DefaultDest, "output directory, relative to the workspace root")
	_ = cmd.MarkFlagRequired("lang")
	return cmd
}
