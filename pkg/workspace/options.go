package workspace

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/datj"
)

// Delta tool names.
const (
	DeltaXDelta = "xdelta"
	DeltaBSDiff = "bsdiff"
)

// DeltaExt is the extension of byte-delta patches.
const DeltaExt = ".xdelta"

// Options is a validated configuration, resolved once before a run.
type Options struct {
	OriginalLanguage string
	Separator        container.Separator
	Table            *datj.Table
	DeltaTool        string
	DeltaBinary      string
	Verbose          int
	Force            bool

	Text    map[string]TextCategory
	Delta   map[string][]string
	Parents map[string]string
}

// TextCategory is a resolved text-table category.
type TextCategory struct {
	Name     string
	Codec    container.Codec
	Original string
	Save     string
	Patch    string
}

// Mode returns the container layout of the category.
func (c TextCategory) Mode() container.Mode { return c.Codec.Mode() }

// Resolve validates cfg. A relative table path is resolved against root.
func (cfg *Config) Resolve(root string) (Options, error) {
	opts := Options{
		OriginalLanguage: strings.TrimSpace(cfg.OriginalLanguage),
		DeltaTool:        cfg.DeltaTool,
		DeltaBinary:      cfg.DeltaBinary,
		Verbose:          cfg.Verbose,
		Force:            cfg.Force,
		Text:             make(map[string]TextCategory, len(cfg.Text)),
		Delta:            make(map[string][]string, len(cfg.Delta)),
		Parents:          make(map[string]string, len(cfg.Parents)),
	}
	if opts.OriginalLanguage == "" {
		return Options{}, fmt.Errorf("config: original_language is required")
	}
	if IsVersion(opts.OriginalLanguage) || strings.Contains(opts.OriginalLanguage, "_") {
		return Options{}, fmt.Errorf("config: original_language %q is not a language tag", opts.OriginalLanguage)
	}
	if opts.Verbose < 0 || opts.Verbose > 2 {
		return Options{}, fmt.Errorf("config: verbose must be 0, 1 or 2, got %d", opts.Verbose)
	}

	sep, err := container.ParseSeparator(cfg.Separator)
	if err != nil {
		return Options{}, fmt.Errorf("config: separator: %w", err)
	}
	opts.Separator = sep

	cs, err := datj.Charset(cfg.Charset)
	if err != nil {
		return Options{}, fmt.Errorf("config: %w", err)
	}
	if cfg.Table != "" {
		path := cfg.Table
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		if opts.Table, err = datj.LoadINI(path, cs); err != nil {
			return Options{}, fmt.Errorf("config: %w", err)
		}
	} else if opts.Table, err = datj.NewTable(cs, nil, nil, nil); err != nil {
		return Options{}, fmt.Errorf("config: %w", err)
	}

	switch opts.DeltaTool {
	case DeltaXDelta:
		if strings.TrimSpace(opts.DeltaBinary) == "" {
			return Options{}, fmt.Errorf("config: delta_binary is required for %s", DeltaXDelta)
		}
	case DeltaBSDiff:
	default:
		return Options{}, fmt.Errorf("config: unknown delta_tool %q", opts.DeltaTool)
	}

	for name, parent := range cfg.Parents {
		if strings.TrimSpace(parent) == "" {
			return Options{}, fmt.Errorf("config: parents.%s is empty", name)
		}
		opts.Parents[name] = filepath.FromSlash(parent)
	}

	for name, tc := range cfg.Text {
		if err := checkCategory(name, opts.Parents); err != nil {
			return Options{}, err
		}
		mode, err := container.ParseMode(tc.Mode)
		if err != nil {
			return Options{}, fmt.Errorf("config: text.%s: %w", name, err)
		}
		exts := []string{tc.Original, tc.Save, tc.Patch}
		for i, ext := range exts {
			if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
				return Options{}, fmt.Errorf("config: text.%s: extension %q must start with a dot", name, ext)
			}
			for _, prev := range exts[:i] {
				if prev == ext {
					return Options{}, fmt.Errorf("config: text.%s: extension %q used twice", name, ext)
				}
			}
		}
		codec, err := container.NewCodec(mode, container.Options{Separator: sep, PrefixLen: tc.PrefixLen})
		if err != nil {
			return Options{}, fmt.Errorf("config: text.%s: %w", name, err)
		}
		opts.Text[name] = TextCategory{
			Name:     name,
			Codec:    codec,
			Original: tc.Original,
			Save:     tc.Save,
			Patch:    tc.Patch,
		}
	}

	for name, exts := range cfg.Delta {
		if err := checkCategory(name, opts.Parents); err != nil {
			return Options{}, err
		}
		if len(exts) == 0 {
			return Options{}, fmt.Errorf("config: delta.%s has no extensions", name)
		}
		for _, ext := range exts {
			if !strings.HasPrefix(ext, ".") || ext == DeltaExt {
				return Options{}, fmt.Errorf("config: delta.%s: invalid extension %q", name, ext)
			}
		}
		opts.Delta[name] = append([]string(nil), exts...)
	}
	return opts, nil
}

func checkCategory(name string, parents map[string]string) error {
	if name == "" || strings.Contains(name, "_") {
		return fmt.Errorf("config: category %q must be non-empty and contain no underscore", name)
	}
	if _, ok := parents[name]; !ok {
		return fmt.Errorf("config: category %s has no entry in [parents]", name)
	}
	return nil
}

// TextCategories returns the text-table categories sorted by name.
func (o Options) TextCategories() []TextCategory {
	out := make([]TextCategory, 0, len(o.Text))
	for _, c := range o.Text {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DeltaCategories returns the byte-delta category names, sorted.
func (o Options) DeltaCategories() []string {
	out := make([]string, 0, len(o.Delta))
	for name := range o.Delta {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// TextByExt finds the text category whose original, save or patch
// extension is ext. Categories are searched in name order.
func (o Options) TextByExt(ext string) (TextCategory, bool) {
	for _, c := range o.TextCategories() {
		if ext == c.Original || ext == c.Save || ext == c.Patch {
			return c, true
		}
	}
	return TextCategory{}, false
}

// PatchExts returns every patch-artifact extension: each text category's
// patch extension and the byte-delta extension.
func (o Options) PatchExts() []string {
	seen := map[string]bool{DeltaExt: true}
	out := []string{DeltaExt}
	for _, c := range o.TextCategories() {
		if !seen[c.Patch] {
			seen[c.Patch] = true
			out = append(out, c.Patch)
		}
	}
	sort.Strings(out)
	return out
}
