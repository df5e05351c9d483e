// Package merge reconciles an original record sequence with any number of
// edit layers (saves, patches, other original variants) by index priority.
package merge

import "fmt"

// Source is one candidate edit layer for a merge.
type Source struct {
	Name    string   // shown in warnings, e.g. the file path
	Records [][]byte // one entry per original record; empty means "no value"

	// Authoritative marks a complete record set such as a decoded original
	// container. Its empty records are real values, so no lower-priority
	// source is consulted once an authoritative source is reached.
	Authoritative bool
}

// LengthMismatch is the warning emitted when a source's record count differs
// from the original's. The source is truncated or padded to fit.
type LengthMismatch struct {
	Source string
	Got    int
	Want   int
}

func (w LengthMismatch) Error() string {
	return fmt.Sprintf("%s: %d records, original has %d", w.Source, w.Got, w.Want)
}

// Stats counts where each output record came from.
type Stats struct {
	Total      int
	Unchanged  int   // taken from the original
	FromSource []int // per source, in priority order
}

// Replaced returns the number of records taken from any source.
func (s Stats) Replaced() int {
	return s.Total - s.Unchanged
}

// Result holds the output of Merge.
type Result struct {
	Records  [][]byte
	Warnings []LengthMismatch
	Stats    Stats
}

// Merge overlays sources onto original. Sources are ordered highest priority
// first. For each index the first non-empty candidate value wins; if none
// has one, the original value is kept. The output always has len(original)
// records.
func Merge(original [][]byte, sources ...Source) *Result {
	n := len(original)
	res := &Result{
		Records: make([][]byte, n),
		Stats:   Stats{Total: n, FromSource: make([]int, len(sources))},
	}

	fitted := make([][][]byte, len(sources))
	for i, src := range sources {
		recs, warn := Reconcile(src.Records, n)
		if warn != nil {
			warn.Source = src.Name
			res.Warnings = append(res.Warnings, *warn)
		}
		fitted[i] = recs
	}

	for idx := 0; idx < n; idx++ {
		picked := -1
		for si, src := range sources {
			if len(fitted[si][idx]) > 0 || src.Authoritative {
				picked = si
				break
			}
		}
		if picked < 0 {
			res.Records[idx] = original[idx]
			res.Stats.Unchanged++
			continue
		}
		res.Records[idx] = fitted[picked][idx]
		res.Stats.FromSource[picked]++
	}
	return res
}

// Overlay applies a single patch to original: non-empty patch records win.
// It is Merge with one non-authoritative source.
func Overlay(original, patch [][]byte, name string) *Result {
	return Merge(original, Source{Name: name, Records: patch})
}

// Reconcile fits records to length n: longer inputs are truncated, shorter
// ones padded with empty records. A non-nil warning is returned whenever the
// length had to change.
func Reconcile(records [][]byte, n int) ([][]byte, *LengthMismatch) {
	if len(records) == n {
		return records, nil
	}
	warn := &LengthMismatch{Got: len(records), Want: n}
	if len(records) > n {
		return records[:n], warn
	}
	out := make([][]byte, n)
	copy(out, records)
	return out, warn
}
