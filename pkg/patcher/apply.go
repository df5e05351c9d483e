package patcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/digest"
	"github.com/odvcencio/patchwork/pkg/merge"
	"github.com/odvcencio/patchwork/pkg/workspace"
)

// Apply regenerates edited files from patches. For every patch in a
// non-original-language folder it rebuilds the container beside the patch
// and refreshes an existing save package; for byte-delta categories it
// reconstructs each asset from its .xdelta patch.
func (p *Patcher) Apply(ctx context.Context) (*Summary, error) {
	sum := &Summary{}
	folders, err := workspace.ListFolders(p.root)
	if err != nil {
		return sum, err
	}

	for _, cat := range p.opts.TextCategories() {
		for _, pair := range workspace.Pairs(folders, cat.Name, p.opts.OriginalLanguage) {
			editDir, origDir := p.folderPath(pair[0]), p.folderPath(pair[1])
			files, err := workspace.Files(editDir, cat.Patch)
			if err != nil {
				return sum, err
			}
			p.log.Folder(pair[0].Name(), len(files))
			for _, rel := range files {
				if err := p.applyText(cat, editDir, origDir, rel, sum); err != nil {
					return sum, err
				}
			}
		}
	}

	for _, name := range p.opts.DeltaCategories() {
		for _, pair := range workspace.Pairs(folders, name, p.opts.OriginalLanguage) {
			editDir, origDir := p.folderPath(pair[0]), p.folderPath(pair[1])
			files, err := workspace.Files(editDir, workspace.DeltaExt)
			if err != nil {
				return sum, err
			}
			p.log.Folder(pair[0].Name(), len(files))
			for _, rel := range files {
				out := strings.TrimSuffix(rel, workspace.DeltaExt)
				o, err := p.applyDelta(ctx, filepath.Join(origDir, out), filepath.Join(editDir, rel), filepath.Join(editDir, out))
				if err := p.settle(sum, out, o, err); err != nil {
					return sum, err
				}
			}
		}
	}
	return sum, nil
}

func (p *Patcher) applyText(cat workspace.TextCategory, editDir, origDir, rel string, sum *Summary) error {
	outRel := workspace.SwapExt(rel, cat.Original)
	origPath := filepath.Join(origDir, outRel)
	patchPath := filepath.Join(editDir, rel)

	patch, o, applyErr := p.applyContainer(cat, origPath, patchPath, filepath.Join(editDir, outRel), rel)
	if err := p.settle(sum, outRel, o, applyErr); err != nil {
		return err
	}
	if applyErr != nil && patch == nil {
		// Missing original or unreadable patch, already reported.
		return nil
	}

	saveRel := workspace.SwapExt(rel, cat.Save)
	savePath := filepath.Join(editDir, saveRel)
	present, statErr := exists(savePath)
	if statErr != nil {
		return statErr
	}
	if !present {
		return nil
	}
	o, err := p.applySave(savePath, rel, patch)
	return p.settle(sum, saveRel, o, err)
}

// applyContainer rebuilds one container from its original and a patch. It
// returns the parsed patch for reuse by the save step. On error the patch
// is nil if the original is missing or the patch could not be read.
func (p *Patcher) applyContainer(cat workspace.TextCategory, origPath, patchPath, outPath, name string) ([][]byte, Outcome, error) {
	if err := p.requireOriginal(origPath); err != nil {
		return nil, Skipped, err
	}
	patch, err := p.readPatch(patchPath, name)
	if err != nil {
		return nil, Errors, err
	}
	orig, err := p.decodeFile(cat, origPath)
	if err != nil {
		return patch, Errors, err
	}

	res := merge.Overlay(orig.Records, patch, name)
	for _, w := range res.Warnings {
		p.log.Warn("%v", w)
	}
	data, err := cat.Codec.Encode(&container.Container{Records: res.Records, Meta: orig.Meta})
	if err != nil {
		return patch, Errors, err
	}
	o, err := p.commitBytes(outPath, data, digest.File)
	if err != nil {
		return patch, o, err
	}
	return patch, o, touchAfter(outPath, patchPath)
}

// applySave replaces the edit layer of an existing save package with the
// patch, fitted to the save's original length.
func (p *Patcher) applySave(savePath, name string, patch [][]byte) (Outcome, error) {
	pkg, err := p.readSave(savePath)
	if err != nil {
		return Errors, err
	}
	edit, warn := merge.Reconcile(patch, len(pkg.Original))
	if warn != nil {
		warn.Source = name
		p.log.Warn("%v", warn)
	}
	pkg.Edit = edit

	data, err := pkg.Encode(p.opts.Table)
	if err != nil {
		return Errors, err
	}
	return p.commitBytes(savePath, data, digest.Zip)
}

// applyDelta reconstructs one asset from its original and a delta patch.
func (p *Patcher) applyDelta(ctx context.Context, origPath, patchPath, outPath string) (Outcome, error) {
	if err := p.requireOriginal(origPath); err != nil {
		return Skipped, err
	}
	staged := p.stagePath(filepath.Ext(outPath))
	defer os.Remove(staged)
	if err := p.delta.Apply(ctx, origPath, patchPath, staged); err != nil {
		return Errors, err
	}
	return p.commit(staged, outPath, digest.File)
}
