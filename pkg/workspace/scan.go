package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"
	"sort"
	"strings"
)

// Files returns the paths, relative to dir, of every regular file under dir
// whose extension is one of exts. The result is sorted. A missing dir yields
// no files.
func Files(dir string, exts ...string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}
		if !slices.Contains(exts, filepath.Ext(path)) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		out = append(out, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// Shortnames returns Files with the extension stripped, as a set.
func Shortnames(dir string, exts ...string) (map[string]bool, error) {
	files, err := Files(dir, exts...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(files))
	for _, f := range files {
		out[TrimExt(f)] = true
	}
	return out, nil
}

// TrimExt strips the extension of path.
func TrimExt(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path))
}

// SwapExt replaces the extension of path.
func SwapExt(path, ext string) string {
	return TrimExt(path) + ext
}
