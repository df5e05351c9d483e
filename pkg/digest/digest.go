// Package digest computes the content hashes used for change detection.
package digest

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/klauspost/compress/zip"
	"golang.org/x/crypto/blake2b"
)

// Sum is a lowercase hex-encoded BLAKE2b-256 digest.
type Sum string

// Bytes hashes data.
func Bytes(data []byte) Sum {
	sum := blake2b.Sum256(data)
	return Sum(hex.EncodeToString(sum[:]))
}

// File hashes the contents of the file at path.
func File(path string) (Sum, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h, _ := blake2b.New256(nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return Sum(hex.EncodeToString(h.Sum(nil))), nil
}

// Zip hashes a zip archive by its member names and contents, visited in
// name order. Timestamps, compression and member order do not affect it.
func Zip(path string) (Sum, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("hash zip %s: %w", path, err)
	}
	defer zr.Close()

	files := append([]*zip.File(nil), zr.File...)
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	h, _ := blake2b.New256(nil)
	for _, f := range files {
		io.WriteString(h, f.Name)
		h.Write([]byte{0})
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("hash zip %s: open %s: %w", path, f.Name, err)
		}
		_, err = io.Copy(h, rc)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("hash zip %s: read %s: %w", path, f.Name, err)
		}
	}
	return Sum(hex.EncodeToString(h.Sum(nil))), nil
}

// Equal reports whether two files have the same content hash under hash.
func Equal(a, b string, hash func(string) (Sum, error)) (bool, error) {
	ha, err := hash(a)
	if err != nil {
		return false, err
	}
	hb, err := hash(b)
	if err != nil {
		return false, err
	}
	return ha == hb, nil
}
