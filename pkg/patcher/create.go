package patcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/patchwork/pkg/diff"
	"github.com/odvcencio/patchwork/pkg/digest"
	"github.com/odvcencio/patchwork/pkg/merge"
	"github.com/odvcencio/patchwork/pkg/workspace"
)

// Create writes patches from edited files: a DatJ patch for every save
// package, a DatJ patch for every edited container that has no save
// beside it, and a delta patch for every edited asset of a byte-delta
// category. Patches whose edit no longer differs from the original are
// deleted.
func (p *Patcher) Create(ctx context.Context) (*Summary, error) {
	sum := &Summary{}
	folders, err := workspace.ListFolders(p.root)
	if err != nil {
		return sum, err
	}

	for _, cat := range p.opts.TextCategories() {
		for _, f := range folders {
			if f.Category != cat.Name {
				continue
			}
			dir := p.folderPath(f)
			files, err := workspace.Files(dir, cat.Save)
			if err != nil {
				return sum, err
			}
			p.log.Folder(f.Name(), len(files))
			for _, rel := range files {
				patchRel := workspace.SwapExt(rel, cat.Patch)
				o, err := p.createFromSave(filepath.Join(dir, rel), filepath.Join(dir, patchRel))
				if err := p.settle(sum, patchRel, o, err); err != nil {
					return sum, err
				}
			}
		}

		for _, pair := range workspace.Pairs(folders, cat.Name, p.opts.OriginalLanguage) {
			editDir, origDir := p.folderPath(pair[0]), p.folderPath(pair[1])
			files, err := p.unsavedContainers(cat, editDir)
			if err != nil {
				return sum, err
			}
			p.log.Folder(pair[0].Name(), len(files))
			for _, rel := range files {
				patchRel := workspace.SwapExt(rel, cat.Patch)
				o, err := p.createFromPair(cat, filepath.Join(origDir, rel), filepath.Join(editDir, rel), filepath.Join(editDir, patchRel), rel)
				if err := p.settle(sum, patchRel, o, err); err != nil {
					return sum, err
				}
			}
		}
	}

	for _, name := range p.opts.DeltaCategories() {
		exts := p.opts.Delta[name]
		for _, pair := range workspace.Pairs(folders, name, p.opts.OriginalLanguage) {
			editDir, origDir := p.folderPath(pair[0]), p.folderPath(pair[1])
			files, err := workspace.Files(editDir, exts...)
			if err != nil {
				return sum, err
			}
			p.log.Folder(pair[0].Name(), len(files))
			for _, rel := range files {
				patchRel := rel + workspace.DeltaExt
				o, err := p.createDelta(ctx, filepath.Join(origDir, rel), filepath.Join(editDir, rel), filepath.Join(editDir, patchRel))
				if err := p.settle(sum, patchRel, o, err); err != nil {
					return sum, err
				}
			}
		}
	}
	return sum, nil
}

// unsavedContainers lists the containers in dir that have no save package
// beside them.
func (p *Patcher) unsavedContainers(cat workspace.TextCategory, dir string) ([]string, error) {
	files, err := workspace.Files(dir, cat.Original)
	if err != nil {
		return nil, err
	}
	saves, err := workspace.Shortnames(dir, cat.Save)
	if err != nil {
		return nil, err
	}
	out := files[:0]
	for _, rel := range files {
		if !saves[workspace.TrimExt(rel)] {
			out = append(out, rel)
		}
	}
	return out, nil
}

// createFromSave renders the edit layer of a save as a patch.
func (p *Patcher) createFromSave(savePath, patchPath string) (Outcome, error) {
	pkg, err := p.readSave(savePath)
	if err != nil {
		return Errors, err
	}
	text := p.opts.Table.ToText(pkg.Edit)
	return p.commitBytes(patchPath, []byte(text), digest.File)
}

// createFromPair diffs an edited container against its original. A patch
// modified after the container was last written holds edits the container
// does not have yet, so it is left alone.
func (p *Patcher) createFromPair(cat workspace.TextCategory, origPath, editPath, patchPath, name string) (Outcome, error) {
	if err := p.requireOriginal(origPath); err != nil {
		return Skipped, err
	}
	newer, err := newerThan(patchPath, editPath)
	if err != nil {
		return Errors, err
	}
	if newer {
		p.log.Warn("%s: patch changed after the container was built, apply it first", name)
		return Skipped, nil
	}
	orig, err := p.decodeFile(cat, origPath)
	if err != nil {
		return Errors, err
	}
	edit, err := p.decodeFile(cat, editPath)
	if err != nil {
		return Errors, err
	}

	d := diff.Containers(name, orig, edit)
	if len(d.Meta) > 0 {
		p.log.Warn("%s: metadata differs from original: %s", name, strings.Join(d.Meta, ", "))
	}
	if d.Edited != d.Original {
		p.log.Warn("%v", &merge.LengthMismatch{Source: name, Got: d.Edited, Want: d.Original})
	}
	if lossy := d.Lossy(); len(lossy) > 0 {
		p.log.Warn("%s: %d records emptied, a patch cannot express this (first at %d)", name, len(lossy), lossy[0])
	}

	patch := d.Patch()
	if allEmpty(patch) {
		return p.removeStale(patchPath)
	}
	o, err := p.commitBytes(patchPath, []byte(p.opts.Table.ToText(patch)), digest.File)
	if err != nil {
		return o, err
	}
	return o, touchAfter(editPath, patchPath)
}

// createDelta writes a delta patch for an edited asset, or removes a stale
// one when the asset matches its original again.
func (p *Patcher) createDelta(ctx context.Context, origPath, editPath, patchPath string) (Outcome, error) {
	if err := p.requireOriginal(origPath); err != nil {
		return Skipped, err
	}
	same, err := digest.Equal(origPath, editPath, digest.File)
	if err != nil {
		return Errors, err
	}
	if same {
		return p.removeStale(patchPath)
	}

	staged := p.stagePath(workspace.DeltaExt)
	defer os.Remove(staged)
	if err := p.delta.Create(ctx, origPath, editPath, staged); err != nil {
		return Errors, err
	}
	return p.commit(staged, patchPath, digest.File)
}

// removeStale deletes a patch that no longer carries any change.
func (p *Patcher) removeStale(patchPath string) (Outcome, error) {
	present, err := exists(patchPath)
	if err != nil {
		return Errors, err
	}
	if !present {
		return Skipped, nil
	}
	if err := os.Remove(patchPath); err != nil {
		return Errors, fmt.Errorf("delete stale patch: %w", err)
	}
	return Deleted, nil
}

func allEmpty(records [][]byte) bool {
	for _, r := range records {
		if len(r) > 0 {
			return false
		}
	}
	return true
}

// newerThan reports whether path exists and was modified after ref.
func newerThan(path, ref string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	refInfo, err := os.Stat(ref)
	if err != nil {
		return false, err
	}
	return info.ModTime().After(refInfo.ModTime()), nil
}

// touchAfter moves the modification time of path forward to that of ref
// when ref is newer.
func touchAfter(path, ref string) error {
	info, err := os.Stat(ref)
	if err != nil {
		return err
	}
	pathInfo, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.ModTime().After(pathInfo.ModTime()) {
		return nil
	}
	if err := os.Chtimes(path, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("touch %s: %w", path, err)
	}
	return nil
}
