package datj

import (
	"fmt"
	"os"

	"golang.org/x/text/encoding/charmap"
	"gopkg.in/ini.v1"
)

// INI section names of a decoding table file.
const (
	sectionSpecial = "special"
	sectionDecode  = "decode"
	sectionEncode  = "encode"
)

// LoadINI reads a decoding table file:
//
//	[special]
//	E31B = SEP
//	[decode]
//	8140 = ~
//	[encode]
//	8141 = ×
//
// Decode entries whose byte sequence also appears under [encode] are
// dropped; encode entries are already bidirectional.
func LoadINI(path string, cs *charmap.Charmap) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load table: %w", err)
	}
	return ReadINI(data, cs)
}

// ReadINI is LoadINI over in-memory contents.
func ReadINI(data []byte, cs *charmap.Charmap) (*Table, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		KeyValueDelimiters:      "=",
		PreserveSurroundedQuote: true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}

	section := func(name string) map[string]string {
		if !f.HasSection(name) {
			return nil
		}
		return f.Section(name).KeysHash()
	}
	special := section(sectionSpecial)
	encode := section(sectionEncode)
	decode := normalizeKeys(section(sectionDecode))
	for k := range normalizeKeys(encode) {
		delete(decode, k)
	}
	return NewTable(cs, special, decode, encode)
}
