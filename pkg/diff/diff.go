package diff

import (
	"bytes"
	"slices"

	"github.com/odvcencio/patchwork/pkg/container"
)

// ChangeType classifies what happened to a record between two containers.
type ChangeType int

const (
	Added    ChangeType = iota // Record exists only in the edited container.
	Removed                    // Record exists only in the original container.
	Modified                   // Record exists in both but its bytes changed.
)

// RecordChange records a single positional change.
type RecordChange struct {
	Type   ChangeType
	Index  int
	Before []byte // nil for Added.
	After  []byte // nil for Removed.
}

// ContainerDiff holds the positional diff of two decoded containers.
type ContainerDiff struct {
	Path     string
	Original int // record count of the original
	Edited   int // record count of the edited container
	Changes  []RecordChange
	Meta     []string // names of metadata fields that differ
}

// Records compares original and edited by index. Records are matched only by
// position; there is no alignment of inserted or deleted records.
func Records(path string, original, edited [][]byte) *ContainerDiff {
	d := &ContainerDiff{Path: path, Original: len(original), Edited: len(edited)}
	n := max(len(original), len(edited))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(original):
			d.Changes = append(d.Changes, RecordChange{Type: Added, Index: i, After: edited[i]})
		case i >= len(edited):
			d.Changes = append(d.Changes, RecordChange{Type: Removed, Index: i, Before: original[i]})
		case !bytes.Equal(original[i], edited[i]):
			d.Changes = append(d.Changes, RecordChange{Type: Modified, Index: i, Before: original[i], After: edited[i]})
		}
	}
	return d
}

// Containers diffs records and metadata of two decoded containers.
func Containers(path string, original, edited *container.Container) *ContainerDiff {
	d := Records(path, original.Records, edited.Records)
	d.Meta = MetaFields(original.Meta, edited.Meta)
	return d
}

// MetaFields returns the names of the metadata fields that differ.
func MetaFields(a, b container.Meta) []string {
	var out []string
	if !bytes.Equal(a.Prefix, b.Prefix) {
		out = append(out, "prefix")
	}
	if !slices.Equal(a.Header, b.Header) {
		out = append(out, "header")
	}
	if !slices.Equal(a.Scripts, b.Scripts) {
		out = append(out, "scripts")
	}
	if !slices.Equal(a.Links, b.Links) {
		out = append(out, "links")
	}
	return out
}

// Empty reports whether the containers' records are identical.
func (d *ContainerDiff) Empty() bool {
	return len(d.Changes) == 0
}

// Patch returns the patch record sequence: one entry per original record,
// empty where the record is unchanged. Records past the original's length
// cannot be expressed in a patch and are dropped; removed records stay empty.
func (d *ContainerDiff) Patch() [][]byte {
	out := make([][]byte, d.Original)
	for _, c := range d.Changes {
		if c.Type == Modified {
			out[c.Index] = c.After
		}
	}
	return out
}

// Lossy returns the indexes of records that were changed to empty. A patch
// renders them as blank lines, which means "unchanged".
func (d *ContainerDiff) Lossy() []int {
	var out []int
	for _, c := range d.Changes {
		if c.Type == Modified && len(c.After) == 0 {
			out = append(out, c.Index)
		}
	}
	return out
}
