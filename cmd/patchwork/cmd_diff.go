package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/diff"
	"github.com/odvcencio/patchwork/pkg/workspace"
	"github.com/spf13/cobra"
)

func newDiffCmd(g *globals) *cobra.Command {
	var (
		category string
		stat     bool
	)

	cmd := &cobra.Command{
		Use:   "diff <original> <edited>",
		Short: "Show record changes between two containers",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, opts, err := g.load()
			if err != nil {
				return err
			}
			cat, err := pickCategory(opts, category, args[0])
			if err != nil {
				return err
			}
			orig, err := decodeContainer(cat, args[0])
			if err != nil {
				return err
			}
			edit, err := decodeContainer(cat, args[1])
			if err != nil {
				return err
			}

			d := diff.Containers(filepath.ToSlash(args[1]), orig, edit)
			out := cmd.OutOrStdout()
			fmt.Fprint(out, diff.FormatSummary(d))
			if !stat {
				fmt.Fprint(out, diff.FormatRecords(d, opts.Table.Display))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "text category (default: inferred from the file extension)")
	cmd.Flags().BoolVar(&stat, "stat", false, "print only the summary")
	return cmd
}

// pickCategory returns the named text category, or the one whose
// extensions include the extension of path.
func pickCategory(opts workspace.Options, name, path string) (workspace.TextCategory, error) {
	if name != "" {
		cat, ok := opts.Text[name]
		if !ok {
			return workspace.TextCategory{}, fmt.Errorf("unknown text category %q", name)
		}
		return cat, nil
	}
	cat, ok := opts.TextByExt(filepath.Ext(path))
	if !ok {
		return workspace.TextCategory{}, fmt.Errorf("%s: no text category uses extension %q (use --category)", path, filepath.Ext(path))
	}
	return cat, nil
}

func decodeContainer(cat workspace.TextCategory, path string) (*container.Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := cat.Codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
