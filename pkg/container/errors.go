package container

import (
	"errors"
	"fmt"
)

// ErrSeparatorInRecord is returned by Encode when a record would introduce
// an extra separator occurrence into the serialized container.
var ErrSeparatorInRecord = errors.New("record contains separator")

// ErrPrefixLength is returned by Encode when the prefix does not have the
// length the codec was configured with.
var ErrPrefixLength = errors.New("prefix length mismatch")

// ParseError reports bytes that do not match the expected container
// structure. Callers treat it as "file is not in the expected format" and
// skip the file.
type ParseError struct {
	Format string // "binJ", "e", "gzip", or a sidecar name
	Offset int    // byte offset or line number, -1 when unknown
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parse %s", e.Format)
	if e.Offset >= 0 {
		msg += fmt.Sprintf(" at %d", e.Offset)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Unwrap() error { return e.Err }

func parseErrorf(format string, offset int, reason string, args ...any) *ParseError {
	return &ParseError{Format: format, Offset: offset, Reason: fmt.Sprintf(reason, args...)}
}

// IsParseError reports whether err is, or wraps, a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
