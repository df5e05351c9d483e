package patcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/datj"
	"github.com/odvcencio/patchwork/pkg/save"
	"github.com/odvcencio/patchwork/pkg/workspace"
)

func (p *Patcher) decodeFile(cat workspace.TextCategory, path string) (*container.Container, error) {
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

// readPatch parses a DatJ file. name is used in syntax errors.
func (p *Patcher) readPatch(path, name string) ([][]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	records, err := p.opts.Table.FromText(string(data))
	if err != nil {
		var se *datj.SyntaxError
		if errors.As(err, &se) {
			se.Source = name
		}
		return nil, err
	}
	return records, nil
}

func (p *Patcher) readSave(path string) (*save.Package, error) {
	return save.Read(path, p.opts.Table)
}

// editRecords reads the edit layer of a save, patch or container file.
func (p *Patcher) editRecords(cat workspace.TextCategory, path, name string) ([][]byte, error) {
	switch filepath.Ext(path) {
	case cat.Save:
		pkg, err := p.readSave(path)
		if err != nil {
			return nil, err
		}
		return pkg.Edit, nil
	case cat.Patch:
		return p.readPatch(path, name)
	default:
		c, err := p.decodeFile(cat, path)
		if err != nil {
			return nil, err
		}
		return c.Records, nil
	}
}

// baseline reads the original records and metadata held by a save or
// container file.
func (p *Patcher) baseline(cat workspace.TextCategory, path string) (*container.Container, error) {
	if filepath.Ext(path) == cat.Save {
		pkg, err := p.readSave(path)
		if err != nil {
			return nil, err
		}
		return pkg.Container(), nil
	}
	return p.decodeFile(cat, path)
}
