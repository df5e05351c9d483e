package datj

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/ianaindex"
)

// Sidecar names of the three character tables inside a save package.
const (
	SpecialSidecar = "special.tabJ"
	DecodeSidecar  = "decode.tabJ"
	EncodeSidecar  = "encode.tabJ"
)

// DefaultCharset is the single-byte encoding used when none is configured.
const DefaultCharset = "windows-1252"

// Charset looks up a single-byte charset by IANA name.
func Charset(name string) (*charmap.Charmap, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultCharset
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("charset %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("charset %q: not supported", name)
	}
	cm, ok := enc.(*charmap.Charmap)
	if !ok {
		return nil, fmt.Errorf("charset %q: not a single-byte charset", name)
	}
	return cm, nil
}

type entry struct {
	raw  []byte
	text string
}

// Table maps record bytes to DatJ text. Three maps extend the charset:
//
//   - special: bytes rendered as "{name}", parsed back from "{name}"
//   - encode: bytes rendered as text and parsed back (bidirectional)
//   - decode: bytes rendered as text by Display only
//
// ToText and Format use only the special and encode maps, so their output
// always parses back to the same bytes.
//
// All maps are keyed by the upper-case hex form of the byte sequence.
type Table struct {
	charset *charmap.Charmap

	special map[string]string
	decode  map[string]string
	encode  map[string]string

	render    []entry           // special and encode, longest byte sequence first
	display   []entry           // render plus decode entries
	parseText []entry           // encode entries, longest text first
	maxText   int               // length of the longest encode text
	byName    map[string][]byte // special name -> bytes
}

// DefaultTable returns a table with the default charset and no extra
// mappings.
func DefaultTable() *Table {
	t, err := NewTable(charmap.Windows1252, nil, nil, nil)
	if err != nil {
		panic(err)
	}
	return t
}

// NewTable builds a table. A nil charset selects the default.
func NewTable(cs *charmap.Charmap, special, decode, encode map[string]string) (*Table, error) {
	if cs == nil {
		cs = charmap.Windows1252
	}
	t := &Table{
		charset: cs,
		special: normalizeKeys(special),
		decode:  normalizeKeys(decode),
		encode:  normalizeKeys(encode),
		byName:  make(map[string][]byte),
	}

	type ranked struct {
		entry
		rank int
	}
	var all []ranked

	for _, key := range sortedKeys(t.special) {
		name := t.special[key]
		raw, err := hexKey(SpecialSidecar, key)
		if err != nil {
			return nil, err
		}
		if name == "" || strings.ContainsAny(name, "{}\n") {
			return nil, fmt.Errorf("%s: invalid name %q for %s", SpecialSidecar, name, key)
		}
		if _, dup := t.byName[name]; dup {
			return nil, fmt.Errorf("%s: duplicate name %q", SpecialSidecar, name)
		}
		t.byName[name] = raw
		all = append(all, ranked{entry{raw, "{" + name + "}"}, 0})
	}

	seenText := make(map[string]string)
	for _, key := range sortedKeys(t.encode) {
		text := t.encode[key]
		raw, err := hexKey(EncodeSidecar, key)
		if err != nil {
			return nil, err
		}
		if text == "" || strings.ContainsAny(text, "\\{\n\r") {
			return nil, fmt.Errorf("%s: invalid text %q for %s", EncodeSidecar, text, key)
		}
		if other, dup := seenText[text]; dup {
			return nil, fmt.Errorf("%s: text %q mapped by both %s and %s", EncodeSidecar, text, other, key)
		}
		seenText[text] = key
		e := entry{raw, text}
		all = append(all, ranked{e, 1})
		t.parseText = append(t.parseText, e)
		t.maxText = max(t.maxText, len(text))
	}

	for _, key := range sortedKeys(t.decode) {
		if _, bidi := t.encode[key]; bidi {
			continue
		}
		raw, err := hexKey(DecodeSidecar, key)
		if err != nil {
			return nil, err
		}
		if text := t.decode[key]; text == "" || strings.ContainsAny(text, "\n\r") {
			return nil, fmt.Errorf("%s: invalid text %q for %s", DecodeSidecar, text, key)
		}
		all = append(all, ranked{entry{raw, t.decode[key]}, 2})
	}

	sort.SliceStable(all, func(i, j int) bool {
		if len(all[i].raw) != len(all[j].raw) {
			return len(all[i].raw) > len(all[j].raw)
		}
		return all[i].rank < all[j].rank
	})
	for _, r := range all {
		if r.rank < 2 {
			t.render = append(t.render, r.entry)
		}
		t.display = append(t.display, r.entry)
	}
	sort.SliceStable(t.parseText, func(i, j int) bool {
		return len(t.parseText[i].text) > len(t.parseText[j].text)
	})
	return t, nil
}

// Sidecars renders the three tables in tabJ form.
func (t *Table) Sidecars() (special, decode, encode []byte) {
	return FormatTab(t.special), FormatTab(t.decode), FormatTab(t.encode)
}

// FromSidecars builds a table from tabJ sidecar contents.
func FromSidecars(cs *charmap.Charmap, special, decode, encode []byte) (*Table, error) {
	sp, err := ParseTab(SpecialSidecar, special)
	if err != nil {
		return nil, err
	}
	dec, err := ParseTab(DecodeSidecar, decode)
	if err != nil {
		return nil, err
	}
	enc, err := ParseTab(EncodeSidecar, encode)
	if err != nil {
		return nil, err
	}
	return NewTable(cs, sp, dec, enc)
}

// FormatTab renders a table as sorted "HEX=text" lines.
func FormatTab(m map[string]string) []byte {
	var b bytes.Buffer
	for _, k := range sortedKeys(m) {
		fmt.Fprintf(&b, "%s=%s\n", k, m[k])
	}
	return b.Bytes()
}

// ParseTab reads "HEX=text" lines. Blank lines are skipped.
func ParseTab(name string, data []byte) (map[string]string, error) {
	m := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, text, ok := strings.Cut(line, "=")
		if !ok {
			return nil, &SyntaxError{Source: name, Line: lineNo, Column: 1, Reason: "missing '='"}
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		if _, err := hexKey(name, key); err != nil {
			return nil, &SyntaxError{Source: name, Line: lineNo, Column: 1, Reason: err.Error()}
		}
		m[key] = text
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return m, nil
}

func hexKey(table, key string) ([]byte, error) {
	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) == 0 {
		return nil, fmt.Errorf("%s: invalid byte sequence %q", table, key)
	}
	return raw, nil
}

func normalizeKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
