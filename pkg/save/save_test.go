package save

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/datj"
)

func recs(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		if s != "" {
			out[i] = []byte(s)
		}
	}
	return out
}

func TestEncodeDecodeBinJ(t *testing.T) {
	table := datj.DefaultTable()
	c := &container.Container{Records: recs("A", "B", "C"), Meta: container.Meta{Prefix: []byte{1, 2}}}
	p := New(container.ModeBinJ, c, container.DefaultSeparator, table)
	p.Edit = recs("", "X", "")

	data, err := p.Encode(table)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, table)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Mode != container.ModeBinJ {
		t.Fatalf("Mode = %v, want %v", got.Mode, container.ModeBinJ)
	}
	if len(got.Original) != 3 || string(got.Original[1]) != "B" {
		t.Fatalf("Original = %q", got.Original)
	}
	if len(got.Edit) != 3 || string(got.Edit[1]) != "X" || got.Edit[0] != nil {
		t.Fatalf("Edit = %q", got.Edit)
	}
	if !bytes.Equal(got.Separator, container.DefaultSeparator) {
		t.Fatalf("Separator = %v", got.Separator)
	}
	if !bytes.Equal(got.Meta.Prefix, []byte{1, 2}) {
		t.Fatalf("Prefix = %v", got.Meta.Prefix)
	}
}

func TestEncodeDecodeE(t *testing.T) {
	table := datj.DefaultTable()
	c := &container.Container{
		Records: recs("hello", "world"),
		Meta: container.Meta{
			Header:  []uint32{0xDEADBEEF, 7},
			Scripts: []uint32{0, 12},
			Links:   []container.Link{{From: 1, To: 0}},
		},
	}
	p := New(container.ModeE, c, container.DefaultSeparator, table)
	data, err := p.Encode(table)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, table)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Mode != container.ModeE {
		t.Fatalf("Mode = %v, want %v", got.Mode, container.ModeE)
	}
	if len(got.Meta.Header) != 2 || got.Meta.Header[0] != 0xDEADBEEF {
		t.Fatalf("Header = %v", got.Meta.Header)
	}
	if len(got.Meta.Links) != 1 || got.Meta.Links[0] != (container.Link{From: 1, To: 0}) {
		t.Fatalf("Links = %v", got.Meta.Links)
	}
	if len(got.Edit) != 2 || got.Edit[0] != nil || got.Edit[1] != nil {
		t.Fatalf("Edit = %q, want two empty records", got.Edit)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	table := datj.DefaultTable()
	c := &container.Container{Records: recs("A", "B")}
	p := New(container.ModeBinJ, c, container.DefaultSeparator, table)
	a, err := p.Encode(table)
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Encode(table)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("two encodings of the same package differ")
	}
}

func TestExtraMembersPreserved(t *testing.T) {
	table := datj.DefaultTable()
	p := New(container.ModeBinJ, &container.Container{Records: recs("A")}, container.DefaultSeparator, table)
	p.Extra = map[string][]byte{"notes.txt": []byte("keep me")}
	data, err := p.Encode(table)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(data, table)
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Extra["notes.txt"]) != "keep me" {
		t.Fatalf("Extra = %q", got.Extra)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	if last := zr.File[len(zr.File)-1].Name; last != "notes.txt" {
		t.Fatalf("last member = %q, want notes.txt", last)
	}
	if first := zr.File[0].Name; first != OrigMember {
		t.Fatalf("first member = %q, want %q", first, OrigMember)
	}
}

func TestDecodeMissingMember(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(OrigMember)
	if err != nil {
		t.Fatal(err)
	}
	w.Write([]byte("A\nB"))
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	_, err = Decode(buf.Bytes(), datj.DefaultTable())
	var pe *container.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("Decode error = %v, want ParseError", err)
	}
}

func TestDecodeNotZip(t *testing.T) {
	_, err := Decode([]byte("definitely not a zip"), datj.DefaultTable())
	if !container.IsParseError(err) {
		t.Fatalf("Decode error = %v, want ParseError", err)
	}
}

func TestReadFile(t *testing.T) {
	table := datj.DefaultTable()
	p := New(container.ModeBinJ, &container.Container{Records: recs("A")}, container.DefaultSeparator, table)
	data, err := p.Encode(table)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "a.savJ")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := Read(path, table)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got.Container().Records[0]) != "A" {
		t.Fatalf("records = %q", got.Container().Records)
	}
	if _, err := Read(filepath.Join(t.TempDir(), "missing.savJ"), table); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Read missing error = %v, want ErrNotExist", err)
	}
}

func TestEncodeDecodeCarriesTables(t *testing.T) {
	table, err := datj.NewTable(nil,
		map[string]string{"E31C": "NL"},
		map[string]string{"8140": "~"},
		map[string]string{"8141": "ab", "8142": "abc"},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	orig := [][]byte{[]byte("\x81Ac"), []byte("A\x81@B"), {0xE3, 0x1C}}
	p := New(container.ModeBinJ, &container.Container{Records: orig}, container.DefaultSeparator, table)
	p.Edit = [][]byte{nil, []byte("ab"), nil}

	data, err := p.Encode(table)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(data, table)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i := range orig {
		if !bytes.Equal(got.Original[i], orig[i]) {
			t.Fatalf("Original[%d] = %q, want %q", i, got.Original[i], orig[i])
		}
	}
	if string(got.Edit[1]) != "ab" {
		t.Fatalf("Edit[1] = %q, want %q", got.Edit[1], "ab")
	}

	special, decode, encode := table.Sidecars()
	if !bytes.Equal(got.SpecialTab, special) || !bytes.Equal(got.DecodeTab, decode) || !bytes.Equal(got.EncodeTab, encode) {
		t.Fatalf("tables = %q %q %q, want %q %q %q", got.SpecialTab, got.DecodeTab, got.EncodeTab, special, decode, encode)
	}
}
