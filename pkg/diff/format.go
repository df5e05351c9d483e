package diff

import (
	"fmt"
	"strings"
)

// Renderer turns record bytes into a display line, e.g. (*datj.Table).Display.
type Renderer func([]byte) string

// FormatSummary produces a one-block overview of a container diff.
//
// Output format:
//
//	path: 3 modified, 1 added, 0 removed (12 -> 13 records)
//	  ! metadata differs: header, links
func FormatSummary(d *ContainerDiff) string {
	var added, removed, modified int
	for _, c := range d.Changes {
		switch c.Type {
		case Added:
			added++
		case Removed:
			removed++
		case Modified:
			modified++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d modified, %d added, %d removed (%d -> %d records)\n",
		d.Path, modified, added, removed, d.Original, d.Edited)
	if len(d.Meta) > 0 {
		fmt.Fprintf(&b, "  ! metadata differs: %s\n", strings.Join(d.Meta, ", "))
	}
	return b.String()
}

// FormatRecords produces a line-per-change listing.
//
// Output format:
//
//	--- a/path
//	+++ b/path
//	@@ 4 @@
//	-old text
//	+new text
func FormatRecords(d *ContainerDiff, render Renderer) string {
	if len(d.Changes) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n", d.Path)
	fmt.Fprintf(&b, "+++ b/%s\n", d.Path)
	for _, c := range d.Changes {
		fmt.Fprintf(&b, "@@ %d @@\n", c.Index)
		switch c.Type {
		case Modified:
			fmt.Fprintf(&b, "-%s\n", render(c.Before))
			fmt.Fprintf(&b, "+%s\n", render(c.After))
		case Added:
			fmt.Fprintf(&b, "+%s\n", render(c.After))
		case Removed:
			fmt.Fprintf(&b, "-%s\n", render(c.Before))
		}
	}
	return b.String()
}
