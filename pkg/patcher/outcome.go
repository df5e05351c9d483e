package patcher

import (
	"fmt"
	"io"
)

// Outcome classifies what happened to one output file.
type Outcome int

const (
	Created Outcome = iota
	Updated
	Kept
	Skipped
	Deleted
	Errors

	numOutcomes
)

var outcomeNames = [numOutcomes]string{"create", "update", "keep", "skip", "delete", "error"}

func (o Outcome) String() string {
	if o < 0 || o >= numOutcomes {
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
	return outcomeNames[o]
}

// Summary counts outcomes over a run.
type Summary struct {
	counts [numOutcomes]int
}

// Record counts one outcome.
func (s *Summary) Record(o Outcome) {
	s.counts[o]++
}

// Count returns how often o was recorded.
func (s *Summary) Count(o Outcome) int {
	return s.counts[o]
}

// Total returns the number of recorded outcomes.
func (s *Summary) Total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Merge adds the counts of other.
func (s *Summary) Merge(other *Summary) {
	if other == nil {
		return
	}
	for i, c := range other.counts {
		s.counts[i] += c
	}
}

var summaryVerbs = [numOutcomes]string{"Created", "Updated", "Kept", "Skipped", "Deleted", "Errors in"}

// Format writes one line per outcome, e.g. "Updated 2 files.". Non-zero
// counts are always shown except Kept, which like every zero count needs
// verbosity 2. Updated and Errors are shown from verbosity 1 on.
func (s *Summary) Format(w io.Writer, noun string, verbosity int) {
	for o := Outcome(0); o < numOutcomes; o++ {
		n := s.counts[o]
		show := verbosity >= 2 ||
			(n > 0 && o != Kept) ||
			(verbosity >= 1 && (o == Updated || o == Errors))
		if show {
			fmt.Fprintf(w, "%s %d %s.\n", summaryVerbs[o], n, noun)
		}
	}
}
