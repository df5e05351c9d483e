// Package container parses and rebuilds separator-delimited text-table
// containers. Two layouts exist: the plain BinJ layout (a fixed-size
// prefix followed by records) and the gzip-wrapped E layout, which carries a
// structured header, a script-offset table and a link table ahead of the
// records.
//
// Decoding never loses bytes: Encode(Decode(data)) reproduces data exactly
// for every input Decode accepts (for E, every input this package encoded).
package container

import (
	"fmt"
	"strings"
)

// Mode names a container layout.
type Mode string

const (
	ModeBinJ Mode = "binJ"
	ModeE    Mode = "e"
)

// ParseMode accepts the mode names used in configuration files.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "binj":
		return ModeBinJ, nil
	case "e":
		return ModeE, nil
	}
	return "", fmt.Errorf("unknown container mode %q", s)
}

// Container is one decoded asset file: its records plus everything needed to
// rebuild the surrounding bytes.
type Container struct {
	Records [][]byte
	Meta    Meta
}

// Codec converts between container bytes and decoded containers.
type Codec interface {
	Mode() Mode
	Decode(data []byte) (*Container, error)
	Encode(c *Container) ([]byte, error)
}

// Options configure a codec.
type Options struct {
	Separator Separator
	PrefixLen int // BinJ only
}

// NewCodec returns the codec for mode.
func NewCodec(mode Mode, opts Options) (Codec, error) {
	if opts.Separator == nil {
		opts.Separator = DefaultSeparator
	}
	if err := opts.Separator.Validate(); err != nil {
		return nil, err
	}
	if opts.PrefixLen < 0 {
		return nil, fmt.Errorf("prefix length %d is negative", opts.PrefixLen)
	}
	switch mode {
	case ModeBinJ:
		return &BinJCodec{sep: opts.Separator, prefixLen: opts.PrefixLen}, nil
	case ModeE:
		return &ECodec{sep: opts.Separator}, nil
	}
	return nil, fmt.Errorf("unknown container mode %q", mode)
}
