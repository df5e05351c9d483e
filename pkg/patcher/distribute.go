package patcher

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/digest"
	"github.com/odvcencio/patchwork/pkg/merge"
	"github.com/odvcencio/patchwork/pkg/workspace"
)

// DefaultDest is the distribution directory used when none is given.
const DefaultDest = "_dist"

// DistributeOptions select what Distribute emits.
type DistributeOptions struct {
	// Languages in priority order, highest first.
	Languages []string
	// Version of a game update to include; empty or workspace.BaseVersion
	// distributes the base game only.
	Version string
	// Dest is the output directory. Relative paths are resolved against
	// the workspace root.
	Dest string
}

// candidate is one file that can contribute records to a merged output.
type candidate struct {
	lang string
	ext  string
}

// Distribute merges every text container across the requested languages
// and copies every edited byte-delta asset into Dest, laid out under the
// configured parent path of each category.
func (p *Patcher) Distribute(d DistributeOptions) (*Summary, error) {
	sum := &Summary{}
	version := d.Version
	if version == workspace.BaseVersion {
		version = ""
	}
	if version != "" && !workspace.IsVersion(version) {
		return sum, fmt.Errorf("distribute: %q is not a version", version)
	}
	if len(d.Languages) == 0 {
		return sum, fmt.Errorf("distribute: no languages given")
	}
	dest := d.Dest
	if dest == "" {
		dest = DefaultDest
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(p.root, dest)
	}
	versions := []string{""}
	if version != "" {
		versions = append(versions, version)
	}

	for _, cat := range p.opts.TextCategories() {
		for _, ver := range versions {
			plan, err := p.collectText(cat, d.Languages, ver)
			if err != nil {
				return sum, err
			}
			if version != "" && ver == "" {
				updated, err := workspace.Shortnames(p.dir(cat.Name, p.opts.OriginalLanguage, version), cat.Original)
				if err != nil {
					return sum, err
				}
				for short := range updated {
					delete(plan, short)
				}
			}

			shorts := sortedKeys(plan)
			p.log.Folder(workspace.JoinFolder(cat.Name, "", ver), len(shorts))
			outDir := filepath.Join(dest, p.opts.Parents[cat.Name])
			for _, short := range shorts {
				name := short + cat.Original
				o, err := p.distributeText(cat, plan[short], name, filepath.Join(outDir, name))
				if err := p.settle(sum, name, o, err); err != nil {
					return sum, err
				}
			}
		}
	}

	for _, name := range p.opts.DeltaCategories() {
		exts := p.opts.Delta[name]
		for _, ver := range versions {
			files, err := p.collectDelta(name, exts, d.Languages, ver)
			if err != nil {
				return sum, err
			}
			if version != "" && ver == "" {
				updated, err := workspace.Files(p.dir(name, p.opts.OriginalLanguage, version), exts...)
				if err != nil {
					return sum, err
				}
				for _, rel := range updated {
					delete(files, rel)
				}
			}

			rels := sortedKeys(files)
			p.log.Folder(workspace.JoinFolder(name, "", ver), len(rels))
			outDir := filepath.Join(dest, p.opts.Parents[name])
			for _, rel := range rels {
				o, err := p.commitCopy(files[rel], filepath.Join(outDir, rel))
				if err := p.settle(sum, rel, o, err); err != nil {
					return sum, err
				}
			}
		}
	}
	return sum, nil
}

func (p *Patcher) dir(category, lang, version string) string {
	return filepath.Join(p.root, workspace.JoinFolder(category, lang, version))
}

// collectText picks, for every shortname of cat, the files that feed its
// merged output, highest priority first. The last file always carries the
// original records. Shortnames with no edit in any requested language are
// left out.
func (p *Patcher) collectText(cat workspace.TextCategory, languages []string, ver string) (map[string][]string, error) {
	orig := p.opts.OriginalLanguage
	found := make(map[string][]candidate)
	add := func(lang string, exts ...string) error {
		for _, ext := range exts {
			files, err := workspace.Files(p.dir(cat.Name, lang, ver), ext)
			if err != nil {
				return err
			}
			for _, rel := range files {
				short := workspace.TrimExt(rel)
				found[short] = append(found[short], candidate{lang: lang, ext: ext})
			}
		}
		return nil
	}
	for _, lang := range append(append([]string(nil), languages...), "") {
		if err := add(lang, cat.Save, cat.Patch, cat.Original); err != nil {
			return nil, err
		}
	}
	if err := add(orig, cat.Original); err != nil {
		return nil, err
	}

	plan := make(map[string][]string, len(found))
	for short, cands := range found {
		chain := chooseChain(cands, cat, orig)
		if chain == nil {
			continue
		}
		paths := make([]string, len(chain))
		for i, c := range chain {
			paths[i] = filepath.Join(p.dir(cat.Name, c.lang, ver), short+c.ext)
		}
		plan[short] = paths
	}
	return plan, nil
}

// chooseChain reduces the candidates of one shortname, in discovery order,
// to the files merged for it. Candidates are grouped by language; each
// group but the last contributes its best file (save, then patch, then
// container), the last group must hold original records (a save or a
// container), and a group holding only a container ends the chain. A chain
// made only of original-language files yields nil.
func chooseChain(cands []candidate, cat workspace.TextCategory, origLang string) []candidate {
	type group struct {
		lang string
		exts []string
	}
	var groups []group
	for _, c := range cands {
		if n := len(groups); n > 0 && groups[n-1].lang == c.lang {
			groups[n-1].exts = append(groups[n-1].exts, c.ext)
			continue
		}
		groups = append(groups, group{lang: c.lang, exts: []string{c.ext}})
	}

	has := func(g group, ext string) bool {
		for _, e := range g.exts {
			if e == ext {
				return true
			}
		}
		return false
	}
	for len(groups) > 0 {
		last := groups[len(groups)-1]
		if has(last, cat.Save) || has(last, cat.Original) {
			break
		}
		groups = groups[:len(groups)-1]
	}
	if len(groups) == 0 {
		return nil
	}

	// The last group supplies the original records: its save if it has
	// one, otherwise its container.
	last := &groups[len(groups)-1]
	if has(*last, cat.Save) {
		last.exts = []string{cat.Save}
	} else {
		last.exts = []string{cat.Original}
	}
	for i := range groups[:len(groups)-1] {
		groups[i].exts = groups[i].exts[:1]
	}
	for i, g := range groups {
		if len(g.exts) == 1 && g.exts[0] == cat.Original {
			groups = groups[:i+1]
			break
		}
	}

	edited := false
	for _, g := range groups {
		if g.lang != origLang {
			edited = true
		}
	}
	if !edited {
		return nil
	}

	out := make([]candidate, len(groups))
	for i, g := range groups {
		out[i] = candidate{lang: g.lang, ext: g.exts[0]}
	}
	return out
}

// distributeText merges the files of one shortname and writes the result.
func (p *Patcher) distributeText(cat workspace.TextCategory, files []string, name, outPath string) (Outcome, error) {
	base, err := p.baseline(cat, files[len(files)-1])
	if err != nil {
		return Errors, err
	}

	sources := make([]merge.Source, 0, len(files))
	for _, path := range files {
		rel, err := filepath.Rel(p.root, path)
		if err != nil {
			rel = path
		}
		records, err := p.editRecords(cat, path, rel)
		if err != nil {
			return Errors, err
		}
		sources = append(sources, merge.Source{
			Name:          rel,
			Records:       records,
			Authoritative: filepath.Ext(path) == cat.Original,
		})
	}

	res := merge.Merge(base.Records, sources...)
	for _, w := range res.Warnings {
		p.log.Warn("%v", w)
	}
	p.log.Detail("%s: %d of %d records replaced", name, res.Stats.Replaced(), res.Stats.Total)

	data, err := cat.Codec.Encode(&container.Container{Records: res.Records, Meta: base.Meta})
	if err != nil {
		return Errors, err
	}
	return p.commitBytes(outPath, data, digest.File)
}

// collectDelta maps each relative path of a byte-delta category to the
// highest-priority edited file, leaving out files identical to the
// original-language file of the same version.
func (p *Patcher) collectDelta(category string, exts, languages []string, ver string) (map[string]string, error) {
	files := make(map[string]string)
	for _, lang := range append(append([]string(nil), languages...), "") {
		dir := p.dir(category, lang, ver)
		rels, err := workspace.Files(dir, exts...)
		if err != nil {
			return nil, err
		}
		for _, rel := range rels {
			if _, ok := files[rel]; !ok {
				files[rel] = filepath.Join(dir, rel)
			}
		}
	}

	origDir := p.dir(category, p.opts.OriginalLanguage, ver)
	for rel, path := range files {
		origPath := filepath.Join(origDir, rel)
		present, err := exists(origPath)
		if err != nil {
			return nil, err
		}
		if !present {
			continue
		}
		same, err := digest.Equal(origPath, path, digest.File)
		if err != nil {
			return nil, err
		}
		if same {
			delete(files, rel)
		}
	}
	return files, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
