package main

import (
	"fmt"
	"path/filepath"

	"github.com/odvcencio/patchwork/pkg/datj"
	"github.com/odvcencio/patchwork/pkg/save"
	"github.com/odvcencio/patchwork/pkg/workspace"
	"github.com/spf13/cobra"
)

func newUpdateTableCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "update-table <save-dir> <table.ini>",
		Short: "Replace the character tables stored in every save package",
		Long: "Load a decoding table from an INI file and write it as the special,\n" +
			"decode and encode tables of every save package under save-dir. Record\n" +
			"data is carried over unchanged.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, opts, err := g.load()
			if err != nil {
				return err
			}
			cs, err := datj.Charset(cfg.Charset)
			if err != nil {
				return err
			}
			table, err := datj.LoadINI(args[1], cs)
			if err != nil {
				return err
			}
			special, decode, encode := table.Sidecars()

			var exts []string
			for _, cat := range opts.TextCategories() {
				exts = append(exts, cat.Save)
			}
			files, err := workspace.Files(args[0], exts...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, rel := range files {
				path := filepath.Join(args[0], rel)
				if opts.Verbose >= 1 {
					fmt.Fprintln(out, path)
				}
				pkg, err := save.Read(path, opts.Table)
				if err != nil {
					return err
				}
				pkg.SpecialTab, pkg.DecodeTab, pkg.EncodeTab = special, decode, encode
				data, err := pkg.Encode(opts.Table)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				if err := workspace.WriteFileAtomic(path, data); err != nil {
					return fmt.Errorf("update %s: %w", path, err)
				}
			}
			if opts.Verbose >= 1 {
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "Updated %d files.\n", len(files))
			return nil
		},
	}
}
