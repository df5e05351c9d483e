package container

import (
	"bytes"
	"fmt"
)

// BinJCodec handles the plain layout:
//
//	prefix (prefixLen bytes) || rec0 || SEP || rec1 || ... || recN-1
type BinJCodec struct {
	sep       Separator
	prefixLen int
}

func (c *BinJCodec) Mode() Mode { return ModeBinJ }

// Decode splits data into its prefix and records.
func (c *BinJCodec) Decode(data []byte) (*Container, error) {
	if len(data) < c.prefixLen {
		return nil, parseErrorf(string(ModeBinJ), len(data), "input is %d bytes, shorter than the %d byte prefix", len(data), c.prefixLen)
	}
	if at := c.straddle(data); at >= 0 {
		return nil, parseErrorf(string(ModeBinJ), at, "separator straddles the %d byte prefix boundary", c.prefixLen)
	}

	return &Container{
		Records: c.sep.Split(data[c.prefixLen:]),
		Meta:    Meta{Prefix: append([]byte(nil), data[:c.prefixLen]...)},
	}, nil
}

// Encode writes the prefix followed by the separator-joined records.
func (c *BinJCodec) Encode(ct *Container) ([]byte, error) {
	if len(ct.Meta.Prefix) != c.prefixLen {
		return nil, fmt.Errorf("encode binJ: %w: %d bytes, want %d", ErrPrefixLength, len(ct.Meta.Prefix), c.prefixLen)
	}
	body, err := c.sep.Join(ct.Records)
	if err != nil {
		return nil, fmt.Errorf("encode binJ: %w", err)
	}
	out := make([]byte, 0, len(ct.Meta.Prefix)+len(body))
	out = append(out, ct.Meta.Prefix...)
	out = append(out, body...)
	if c.straddle(out) >= 0 {
		return nil, fmt.Errorf("encode binJ: separator formed across prefix boundary: %w", ErrSeparatorInRecord)
	}
	return out, nil
}

// straddle returns the offset of a separator that starts inside the prefix
// and ends in the body, or -1. Such a separator means the prefix length does
// not line up with the record layout.
func (c *BinJCodec) straddle(data []byte) int {
	if c.prefixLen == 0 {
		return -1
	}
	lo := max(c.prefixLen-len(c.sep)+1, 0)
	hi := min(c.prefixLen+len(c.sep)-1, len(data))
	if lo >= hi {
		return -1
	}
	if idx := bytes.Index(data[lo:hi], c.sep); idx >= 0 {
		return lo + idx
	}
	return -1
}
