// Package bundle packs the patch artifacts of a workspace into a single
// zstd-compressed tar stream and unpacks such streams into a workspace.
package bundle

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/odvcencio/patchwork/pkg/workspace"
)

// Ext is the conventional file extension of a bundle.
const Ext = ".tar.zst"

var entryTime = time.Unix(0, 0)

// Collect lists the files under the Asset Folders of root whose extension
// is one of exts, as slash-separated paths relative to root, sorted.
func Collect(root string, exts []string) ([]string, error) {
	folders, err := workspace.ListFolders(root)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, f := range folders {
		files, err := workspace.Files(filepath.Join(root, f.Name()), exts...)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			out = append(out, path.Join(f.Name(), filepath.ToSlash(rel)))
		}
	}
	return out, nil
}

// Pack writes the named files, relative to root, to w.
func Pack(w io.Writer, root string, names []string) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return err
	}
	tw := tar.NewWriter(enc)
	for _, name := range names {
		if err := addFile(tw, root, name); err != nil {
			tw.Close()
			enc.Close()
			return fmt.Errorf("pack %s: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		enc.Close()
		return fmt.Errorf("pack: %w", err)
	}
	return enc.Close()
}

func addFile(tw *tar.Writer, root, name string) error {
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(name)))
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     name,
		Mode:     0o644,
		Size:     info.Size(),
		ModTime:  entryTime,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}

// PackFile writes a bundle of the named files to dst.
func PackFile(dst, root string, names []string) error {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	if err := Pack(f, root, names); err != nil {
		f.Close()
		os.Remove(dst)
		return err
	}
	return f.Close()
}

// Unpack extracts a bundle into root and returns the extracted paths.
// Entries with absolute paths or paths leaving root are rejected before
// anything is written for them.
func Unpack(r io.Reader, root string) ([]string, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	defer dec.Close()

	var out []string
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("unpack: %w", err)
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			continue
		case tar.TypeReg:
		default:
			return out, fmt.Errorf("unpack %s: unsupported entry type %q", hdr.Name, hdr.Typeflag)
		}
		name := filepath.FromSlash(hdr.Name)
		if !filepath.IsLocal(name) {
			return out, fmt.Errorf("unpack %s: path escapes the workspace", hdr.Name)
		}
		if err := extract(tr, filepath.Join(root, name)); err != nil {
			return out, fmt.Errorf("unpack %s: %w", hdr.Name, err)
		}
		out = append(out, hdr.Name)
	}
}

func extract(r io.Reader, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// UnpackFile extracts the bundle at src into root.
func UnpackFile(src, root string) ([]string, error) {
	f, err := os.Open(src)
	if err != nil {
		return nil, fmt.Errorf("unpack: %w", err)
	}
	defer f.Close()
	return Unpack(f, root)
}
