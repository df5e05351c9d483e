package main

import (
	"fmt"
	"path/filepath"

	"github.com/odvcencio/patchwork/pkg/save"
	"github.com/spf13/cobra"
)

func newExportCmd(g *globals) *cobra.Command {
	var (
		category string
		edit     bool
	)

	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Print the records of a container or save package as DatJ text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, opts, err := g.load()
			if err != nil {
				return err
			}
			path := args[0]
			cat, err := pickCategory(opts, category, path)
			if err != nil {
				return err
			}

			var records [][]byte
			if filepath.Ext(path) == cat.Save {
				pkg, err := save.Read(path, opts.Table)
				if err != nil {
					return err
				}
				records = pkg.Original
				if edit {
					records = pkg.Edit
				}
			} else {
				if edit {
					return fmt.Errorf("export: --edit needs a save package")
				}
				c, err := decodeContainer(cat, path)
				if err != nil {
					return err
				}
				records = c.Records
			}
			fmt.Fprint(cmd.OutOrStdout(), opts.Table.ToText(records))
			return nil
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "text category (default: inferred from the file extension)")
	cmd.Flags().BoolVar(&edit, "edit", false, "print the edit layer of a save package instead of its original records")
	return cmd
}
