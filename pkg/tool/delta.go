package tool

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/kr/binarydist"
)

// Delta creates and applies byte-level patches between two files.
type Delta interface {
	// Create writes to patch the delta turning original into edited.
	Create(ctx context.Context, original, edited, patch string) error
	// Apply writes to output the result of applying patch to original.
	Apply(ctx context.Context, original, patch, output string) error
}

// NewDelta returns the delta engine named kind: "xdelta" runs binary
// through runner, "bsdiff" runs in process.
func NewDelta(kind, binary string, runner Runner) (Delta, error) {
	switch kind {
	case "xdelta":
		if runner == nil {
			runner = ExecRunner{}
		}
		return &XDelta{Binary: binary, Runner: runner}, nil
	case "bsdiff":
		return BSDiff{}, nil
	}
	return nil, fmt.Errorf("unknown delta tool %q", kind)
}

// XDelta drives an xdelta3-compatible executable.
type XDelta struct {
	Binary string
	Runner Runner
}

// Create runs "binary -s original edited patch".
func (x *XDelta) Create(ctx context.Context, original, edited, patch string) error {
	_, err := x.Runner.Run(ctx, Command{Path: x.Binary, Args: []string{"-s", original, edited, patch}})
	return err
}

// Apply runs "binary -d -s original patch output".
func (x *XDelta) Apply(ctx context.Context, original, patch, output string) error {
	_, err := x.Runner.Run(ctx, Command{Path: x.Binary, Args: []string{"-d", "-s", original, patch, output}})
	return err
}

// BSDiff produces bsdiff 4.x patches without an external program.
type BSDiff struct{}

// Create implements Delta.
func (BSDiff) Create(_ context.Context, original, edited, patch string) error {
	return bsdiff("create", []string{original, edited, patch}, func() error {
		old, err := os.Open(original)
		if err != nil {
			return err
		}
		defer old.Close()
		edit, err := os.Open(edited)
		if err != nil {
			return err
		}
		defer edit.Close()
		return writeFile(patch, func(w *bufio.Writer) error {
			return binarydist.Diff(old, edit, w)
		})
	})
}

// Apply implements Delta.
func (BSDiff) Apply(_ context.Context, original, patch, output string) error {
	return bsdiff("apply", []string{original, patch, output}, func() error {
		old, err := os.Open(original)
		if err != nil {
			return err
		}
		defer old.Close()
		p, err := os.Open(patch)
		if err != nil {
			return err
		}
		defer p.Close()
		return writeFile(output, func(w *bufio.Writer) error {
			return binarydist.Patch(old, w, p)
		})
	})
}

func bsdiff(op string, args []string, fn func() error) error {
	if err := fn(); err != nil {
		return &ExitError{
			Command:  Command{Path: "bsdiff", Args: append([]string{op}, args...)},
			ExitCode: -1,
			Err:      err,
		}
	}
	return nil
}

func writeFile(path string, fn func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := fn(w); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
