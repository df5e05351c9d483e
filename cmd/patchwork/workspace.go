package main

import (
	"fmt"
	"path/filepath"

	"github.com/odvcencio/patchwork/pkg/patcher"
	"github.com/odvcencio/patchwork/pkg/tool"
	"github.com/odvcencio/patchwork/pkg/workspace"
	"github.com/spf13/cobra"
)

// globals holds the persistent flags shared by every workspace command.
type globals struct {
	dir     string
	config  string
	verbose int
	force   bool
}

func (g *globals) bind(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.StringVar(&g.dir, "dir", ".", "workspace root")
	flags.StringVar(&g.config, "config", "", "config file (default <dir>/"+workspace.ConfigFile+")")
	flags.IntVarP(&g.verbose, "verbose", "v", -1, "verbosity 0-2 (default from config)")
	flags.BoolVar(&g.force, "force", false, "rewrite outputs even when their content is unchanged")
}

func (g *globals) root() (string, error) {
	root, err := filepath.Abs(g.dir)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return root, nil
}

func (g *globals) configPath(root string) string {
	if g.config == "" {
		return filepath.Join(root, workspace.ConfigFile)
	}
	if filepath.IsAbs(g.config) {
		return g.config
	}
	return filepath.Join(root, g.config)
}

// load reads and validates the workspace configuration and applies the
// flag overrides.
func (g *globals) load() (string, *workspace.Config, workspace.Options, error) {
	root, err := g.root()
	if err != nil {
		return "", nil, workspace.Options{}, err
	}
	cfg, err := workspace.LoadConfig(g.configPath(root))
	if err != nil {
		return "", nil, workspace.Options{}, err
	}
	if g.verbose >= 0 {
		cfg.Verbose = g.verbose
	}
	if g.force {
		cfg.Force = true
	}
	opts, err := cfg.Resolve(root)
	if err != nil {
		return "", nil, workspace.Options{}, err
	}
	return root, cfg, opts, nil
}

// open prepares a patcher writing progress to the command's output. The
// caller must Close it.
func (g *globals) open(cmd *cobra.Command) (*patcher.Patcher, workspace.Options, error) {
	root, _, opts, err := g.load()
	if err != nil {
		return nil, opts, err
	}
	delta, err := tool.NewDelta(opts.DeltaTool, opts.DeltaBinary, tool.ExecRunner{})
	if err != nil {
		return nil, opts, err
	}
	p, err := patcher.New(root, opts, delta, cmd.OutOrStdout())
	if err != nil {
		return nil, opts, err
	}
	return p, opts, nil
}

// report prints the run summary. A run that ended early still reports what
// it did before the error is returned.
func report(cmd *cobra.Command, sum *patcher.Summary, noun string, verbosity int, runErr error) error {
	if sum != nil {
		out := cmd.OutOrStdout()
		if verbosity > 0 {
			fmt.Fprintln(out)
		}
		sum.Format(out, noun, verbosity)
	}
	return runErr
}
