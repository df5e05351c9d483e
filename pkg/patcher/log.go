package patcher

import (
	"fmt"
	"io"
)

// Logger writes progress lines at a verbosity level: 0 prints nothing, 1
// prints changes and warnings, 2 adds unchanged and skipped files.
type Logger struct {
	w     io.Writer
	level int
}

// NewLogger returns a logger writing to w. A nil w discards everything.
func NewLogger(w io.Writer, level int) *Logger {
	if w == nil {
		w = io.Discard
	}
	return &Logger{w: w, level: level}
}

// Level returns the verbosity.
func (l *Logger) Level() int { return l.level }

// Folder announces a folder and the number of files found in it. Empty
// folders are only announced at level 2.
func (l *Logger) Folder(name string, n int) {
	if l.level >= 2 || l.level >= 1 && n > 0 {
		fmt.Fprintf(l.w, "%s [%d]\n", name, n)
	}
}

// File reports the outcome for one output.
func (l *Logger) File(name string, o Outcome) {
	need := 1
	if o == Kept || o == Skipped {
		need = 2
	}
	if l.level >= need {
		fmt.Fprintf(l.w, " * %s: %s\n", name, o)
	}
}

// Warn reports a recoverable problem.
func (l *Logger) Warn(format string, args ...any) {
	if l.level >= 1 {
		fmt.Fprintf(l.w, " ! "+format+"\n", args...)
	}
}

// Detail prints extra information at level 2.
func (l *Logger) Detail(format string, args ...any) {
	if l.level >= 2 {
		fmt.Fprintf(l.w, "   "+format+"\n", args...)
	}
}
