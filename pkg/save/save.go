// Package save reads and writes save packages: zip archives bundling the
// original and edited records of one container together with the separator,
// the character tables and the container metadata, so editing can resume
// without the original file.
package save

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/datj"
)

// Member names.
const (
	OrigMember   = "orig.datJ"
	EditMember   = "edit.datJ"
	SepMember    = "SEP.bin"
	PrefixMember = "prefix.bin"
)

// memberTime is stamped on every member so that equal content produces
// equal archives.
var memberTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Package is a decoded save package.
type Package struct {
	Mode      container.Mode
	Original  [][]byte
	Edit      [][]byte
	Separator container.Separator
	Meta      container.Meta

	// Raw tabJ sidecars, carried verbatim.
	SpecialTab, DecodeTab, EncodeTab []byte

	// Members this package does not know about, preserved on rewrite.
	Extra map[string][]byte
}

// New starts a package for a freshly decoded container with no edits.
func New(mode container.Mode, c *container.Container, sep container.Separator, table *datj.Table) *Package {
	special, decode, encode := table.Sidecars()
	return &Package{
		Mode:       mode,
		Original:   c.Records,
		Edit:       make([][]byte, len(c.Records)),
		Separator:  sep,
		Meta:       c.Meta,
		SpecialTab: special,
		DecodeTab:  decode,
		EncodeTab:  encode,
	}
}

// Container returns the original records and metadata as a container.
func (p *Package) Container() *container.Container {
	return &container.Container{Records: p.Original, Meta: p.Meta}
}

// Read opens and decodes the package at path. Record text is parsed with
// table.
func Read(path string, table *datj.Table) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read save: %w", err)
	}
	p, err := Decode(data, table)
	if err != nil {
		return nil, fmt.Errorf("read save %s: %w", path, err)
	}
	return p, nil
}

// Decode parses package bytes.
func Decode(data []byte, table *datj.Table) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &container.ParseError{Format: "save", Offset: -1, Reason: "not a zip archive", Err: err}
	}
	members := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, &container.ParseError{Format: "save", Offset: -1, Reason: "open " + f.Name, Err: err}
		}
		b, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &container.ParseError{Format: "save", Offset: -1, Reason: "read " + f.Name, Err: err}
		}
		members[f.Name] = b
	}

	take := func(name string, required bool) ([]byte, error) {
		b, ok := members[name]
		if !ok && required {
			return nil, &container.ParseError{Format: "save", Offset: -1, Reason: "missing member " + name}
		}
		delete(members, name)
		return b, nil
	}

	p := &Package{Mode: container.ModeBinJ}
	orig, err := take(OrigMember, true)
	if err != nil {
		return nil, err
	}
	edit, err := take(EditMember, true)
	if err != nil {
		return nil, err
	}
	sep, err := take(SepMember, true)
	if err != nil {
		return nil, err
	}
	p.Separator = container.Separator(sep)
	if p.SpecialTab, err = take(datj.SpecialSidecar, false); err != nil {
		return nil, err
	}
	if p.DecodeTab, err = take(datj.DecodeSidecar, false); err != nil {
		return nil, err
	}
	if p.EncodeTab, err = take(datj.EncodeSidecar, false); err != nil {
		return nil, err
	}
	if p.Meta.Prefix, err = take(PrefixMember, false); err != nil {
		return nil, err
	}

	if header, ok := members[container.HeaderSidecar]; ok {
		p.Mode = container.ModeE
		if p.Meta.Header, err = container.ParseHeader(header); err != nil {
			return nil, err
		}
		delete(members, container.HeaderSidecar)
		scripts, err := take(container.ScriptsSidecar, true)
		if err != nil {
			return nil, err
		}
		if p.Meta.Scripts, err = container.ParseScripts(scripts); err != nil {
			return nil, err
		}
		links, err := take(container.LinksSidecar, true)
		if err != nil {
			return nil, err
		}
		if p.Meta.Links, err = container.ParseLinks(links); err != nil {
			return nil, err
		}
	}

	if p.Original, err = table.FromText(string(orig)); err != nil {
		return nil, fmt.Errorf("%s: %w", OrigMember, err)
	}
	if p.Edit, err = table.FromText(string(edit)); err != nil {
		return nil, fmt.Errorf("%s: %w", EditMember, err)
	}
	if len(members) > 0 {
		p.Extra = members
	}
	return p, nil
}

// Encode serializes the package. Known members come first in a fixed
// order, unknown members follow sorted by name.
func (p *Package) Encode(table *datj.Table) ([]byte, error) {
	type member struct {
		name string
		data []byte
	}
	members := []member{
		{OrigMember, []byte(table.ToText(p.Original))},
		{EditMember, []byte(table.ToText(p.Edit))},
		{SepMember, p.Separator},
		{datj.SpecialSidecar, p.SpecialTab},
		{datj.DecodeSidecar, p.DecodeTab},
		{datj.EncodeSidecar, p.EncodeTab},
		{PrefixMember, p.Meta.Prefix},
	}
	if p.Mode == container.ModeE {
		members = append(members,
			member{container.HeaderSidecar, container.FormatHeader(p.Meta.Header)},
			member{container.ScriptsSidecar, container.FormatScripts(p.Meta.Scripts)},
			member{container.LinksSidecar, container.FormatLinks(p.Meta.Links)},
		)
	}
	extra := make([]string, 0, len(p.Extra))
	for name := range p.Extra {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		members = append(members, member{name, p.Extra[name]})
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     m.name,
			Method:   zip.Deflate,
			Modified: memberTime,
		})
		if err != nil {
			return nil, fmt.Errorf("encode save: %s: %w", m.name, err)
		}
		if _, err := w.Write(m.data); err != nil {
			return nil, fmt.Errorf("encode save: %s: %w", m.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("encode save: %w", err)
	}
	return buf.Bytes(), nil
}
