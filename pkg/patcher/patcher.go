// Package patcher walks a workspace of Asset Folders and applies, creates
// and distributes translation patches. Every output goes through the same
// cycle: generate into a staging directory, compare with the existing file
// by content hash, then create, replace or discard.
package patcher

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/datj"
	"github.com/odvcencio/patchwork/pkg/tool"
	"github.com/odvcencio/patchwork/pkg/workspace"
)

// MissingOriginalError reports an edited or patch file whose original
// counterpart does not exist.
type MissingOriginalError struct {
	Path string
}

func (e *MissingOriginalError) Error() string {
	return fmt.Sprintf("original file not found: %s", e.Path)
}

// Patcher runs operations over one workspace.
type Patcher struct {
	root  string
	opts  workspace.Options
	delta tool.Delta
	log   *Logger

	stage string
	seq   int
}

// New prepares a run over the workspace at root. Progress is written to w
// at opts.Verbose. The caller must Close the patcher.
func New(root string, opts workspace.Options, delta tool.Delta, w io.Writer) (*Patcher, error) {
	stage, err := os.MkdirTemp(root, ".patchwork-tmp-*")
	if err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	return &Patcher{
		root:  root,
		opts:  opts,
		delta: delta,
		log:   NewLogger(w, opts.Verbose),
		stage: stage,
	}, nil
}

// Close removes the staging directory and anything left in it.
func (p *Patcher) Close() error {
	if p.stage == "" {
		return nil
	}
	err := os.RemoveAll(p.stage)
	p.stage = ""
	return err
}

func (p *Patcher) folderPath(f workspace.Folder) string {
	return filepath.Join(p.root, f.Name())
}

// settle records the result of producing one output. Per-file failures
// are logged and counted; any other error is returned and ends the run.
func (p *Patcher) settle(sum *Summary, name string, o Outcome, err error) error {
	if err != nil {
		var missing *MissingOriginalError
		switch {
		case errors.As(err, &missing):
			p.log.Warn("%v", err)
			o = Skipped
		case recoverable(err):
			p.log.Warn("%s: %v", name, err)
			o = Errors
		default:
			return err
		}
	}
	sum.Record(o)
	p.log.File(name, o)
	return nil
}

func recoverable(err error) bool {
	var (
		parseErr  *container.ParseError
		syntaxErr *datj.SyntaxError
		exitErr   *tool.ExitError
	)
	return errors.As(err, &parseErr) ||
		errors.As(err, &syntaxErr) ||
		errors.As(err, &exitErr) ||
		errors.Is(err, container.ErrSeparatorInRecord) ||
		errors.Is(err, container.ErrPrefixLength)
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// requireOriginal returns a MissingOriginalError naming the path relative
// to the workspace root when path does not exist.
func (p *Patcher) requireOriginal(path string) error {
	ok, err := exists(path)
	if err != nil {
		return err
	}
	if !ok {
		rel, relErr := filepath.Rel(p.root, path)
		if relErr != nil {
			rel = path
		}
		return &MissingOriginalError{Path: rel}
	}
	return nil
}
