package patcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/odvcencio/patchwork/pkg/digest"
	"github.com/odvcencio/patchwork/pkg/workspace"
)

// stagePath returns an unused path inside the staging directory. The file
// is not created, so external tools that refuse to overwrite can write it.
func (p *Patcher) stagePath(ext string) string {
	p.seq++
	return filepath.Join(p.stage, fmt.Sprintf("%06d%s", p.seq, ext))
}

// commit moves staged to dest unless dest already holds the same content.
func (p *Patcher) commit(staged, dest string, hash func(string) (digest.Sum, error)) (Outcome, error) {
	present, err := exists(dest)
	if err != nil {
		return Errors, err
	}
	if !present {
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return Errors, fmt.Errorf("commit %s: %w", dest, err)
		}
		if err := move(staged, dest); err != nil {
			return Errors, fmt.Errorf("commit %s: %w", dest, err)
		}
		return Created, nil
	}

	if !p.opts.Force {
		same, err := digest.Equal(dest, staged, hash)
		if err != nil {
			return Errors, fmt.Errorf("compare %s: %w", dest, err)
		}
		if same {
			os.Remove(staged)
			return Kept, nil
		}
	}
	if err := move(staged, dest); err != nil {
		return Errors, fmt.Errorf("commit %s: %w", dest, err)
	}
	return Updated, nil
}

// commitBytes stages data and commits it to dest.
func (p *Patcher) commitBytes(dest string, data []byte, hash func(string) (digest.Sum, error)) (Outcome, error) {
	staged := p.stagePath(filepath.Ext(dest))
	defer os.Remove(staged)
	if err := os.WriteFile(staged, data, 0o644); err != nil {
		return Errors, fmt.Errorf("stage %s: %w", dest, err)
	}
	return p.commit(staged, dest, hash)
}

// commitCopy copies src to dest unless dest already matches it.
func (p *Patcher) commitCopy(src, dest string) (Outcome, error) {
	staged := p.stagePath(filepath.Ext(dest))
	defer os.Remove(staged)
	if err := workspace.CopyFile(src, staged); err != nil {
		return Errors, fmt.Errorf("stage %s: %w", dest, err)
	}
	return p.commit(staged, dest, digest.File)
}

// move renames src to dst, copying when they are on different file systems.
func move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) {
		return err
	}
	if err := workspace.CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}
