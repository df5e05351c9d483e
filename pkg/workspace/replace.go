package workspace

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// ReplaceSources expands src into the files to copy: the regular files
// directly inside src if it is a directory, src itself otherwise.
func ReplaceSources(src string) ([]string, error) {
	info, err := os.Stat(src)
	if err != nil {
		return nil, fmt.Errorf("replace: %w", err)
	}
	if !info.IsDir() {
		return []string{src}, nil
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return nil, fmt.Errorf("replace: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			out = append(out, filepath.Join(src, e.Name()))
		}
	}
	return out, nil
}

// ReplaceFiles copies every source over each file under destDir that has
// the same base name, printing one "name -> path" line per copy to w. It
// returns the number of files replaced.
func ReplaceFiles(w io.Writer, sources []string, destDir string) (int, error) {
	byName := make(map[string]string, len(sources))
	for _, src := range sources {
		byName[filepath.Base(src)] = src
	}

	var targets []string
	err := filepath.WalkDir(destDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			if _, ok := byName[d.Name()]; ok {
				targets = append(targets, path)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("replace: %w", err)
	}

	n := 0
	for _, target := range targets {
		src := byName[filepath.Base(target)]
		if same(src, target) {
			continue
		}
		if err := copyFile(src, target); err != nil {
			return n, fmt.Errorf("replace %s: %w", target, err)
		}
		fmt.Fprintf(w, "%s -> %s\n", filepath.Base(src), target)
		n++
	}
	return n, nil
}

// CopyFile copies src to dst, creating dst's parent directories.
func CopyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return copyFile(src, dst)
}

func same(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false
	}
	return os.SameFile(ai, bi)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
