package container

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// MaxSeparatorLen bounds the separator token length.
const MaxSeparatorLen = 8

// Separator is the byte token delimiting records inside a container.
type Separator []byte

// DefaultSeparator is the two-byte token used by the default project layout.
var DefaultSeparator = Separator{0xE3, 0x1B}

// ParseSeparator decodes a hex string such as "E31B" or "0xe31b".
func ParseSeparator(s string) (Separator, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("parse separator %q: %w", s, err)
	}
	sep := Separator(raw)
	if err := sep.Validate(); err != nil {
		return nil, err
	}
	return sep, nil
}

// Validate checks the token length.
func (s Separator) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("separator is empty")
	}
	if len(s) > MaxSeparatorLen {
		return fmt.Errorf("separator is %d bytes, at most %d allowed", len(s), MaxSeparatorLen)
	}
	return nil
}

// String returns the upper-case hex form used in configuration files.
func (s Separator) String() string {
	return strings.ToUpper(hex.EncodeToString(s))
}

// Split cuts body at every occurrence of the separator. An empty body has
// no records.
func (s Separator) Split(body []byte) [][]byte {
	if len(body) == 0 {
		return nil
	}
	parts := bytes.Split(body, s)
	records := make([][]byte, len(parts))
	for i, p := range parts {
		records[i] = append([]byte(nil), p...)
	}
	return records
}

// Join concatenates records with the separator between them. It fails with
// ErrSeparatorInRecord when the result would not split back into the same
// records.
func (s Separator) Join(records [][]byte) ([]byte, error) {
	for i, rec := range records {
		if bytes.Contains(rec, s) {
			return nil, fmt.Errorf("record %d: %w", i, ErrSeparatorInRecord)
		}
	}
	body := bytes.Join(records, s)
	if len(body) == 0 {
		return body, nil
	}
	parts := bytes.Split(body, s)
	if len(parts) != len(records) {
		return nil, fmt.Errorf("separator formed across record boundary: %w", ErrSeparatorInRecord)
	}
	for i := range parts {
		if !bytes.Equal(parts[i], records[i]) {
			return nil, fmt.Errorf("record %d: separator formed across record boundary: %w", i, ErrSeparatorInRecord)
		}
	}
	return body, nil
}
