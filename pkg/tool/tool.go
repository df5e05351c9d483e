// Package tool runs external programs by argument list and wraps the
// byte-delta engines used for assets outside the text-table formats.
package tool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Command is one program invocation. Args are passed to the program as
// they are; nothing is interpreted by a shell.
type Command struct {
	Path string
	Args []string
	Dir  string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// ExitError reports a tool that failed: a non-zero exit, a program that
// could not be started, or an in-process engine error. ExitCode is -1 when
// there was no exit status.
type ExitError struct {
	Command  Command
	ExitCode int
	Output   string
	Err      error
}

func (e *ExitError) Error() string {
	msg := strings.TrimSpace(e.Output)
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.ExitCode >= 0 {
		return fmt.Sprintf("%s: exit status %d: %s", e.Command.Path, e.ExitCode, msg)
	}
	return fmt.Sprintf("%s: %s", e.Command.Path, msg)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Runner executes commands. It returns the combined output.
type Runner interface {
	Run(ctx context.Context, c Command) ([]byte, error)
}

// ExecRunner runs commands as subprocesses and waits for them.
type ExecRunner struct{}

// Run implements Runner. Failures are returned as *ExitError.
func (ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		e := &ExitError{Command: c, ExitCode: -1, Output: out.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			e.ExitCode = exitErr.ExitCode()
		}
		return out.Bytes(), e
	}
	return out.Bytes(), nil
}
