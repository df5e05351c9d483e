// Package datj implements the DatJ patch text format: one line per record,
// in record order, lines separated by "\n". A blank line means "unchanged";
// any other line is the escaped rendering of the record's new bytes.
//
// An empty record and an unchanged record render identically, so a record
// whose real value is empty cannot be set explicitly through a patch.
package datj

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// SyntaxError reports a line that cannot be parsed back into bytes.
type SyntaxError struct {
	Source string
	Line   int // 1-based
	Column int // 1-based byte column
	Reason string
}

func (e *SyntaxError) Error() string {
	src := e.Source
	if src == "" {
		src = "datJ"
	}
	return fmt.Sprintf("%s:%d:%d: %s", src, e.Line, e.Column, e.Reason)
}

// ToText renders records with the table.
func (t *Table) ToText(records [][]byte) string {
	var b strings.Builder
	for i, rec := range records {
		if i > 0 {
			b.WriteByte('\n')
		}
		t.writeRecord(&b, rec)
	}
	return b.String()
}

// FromText parses DatJ text. A trailing "\r" on any line is dropped. Empty
// text has no records.
func (t *Table) FromText(text string) ([][]byte, error) {
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	records := make([][]byte, len(lines))
	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		rec, err := t.parseLine(line)
		if err != nil {
			err.Line = i + 1
			return nil, err
		}
		records[i] = rec
	}
	return records, nil
}

// Format renders a single record.
func (t *Table) Format(rec []byte) string {
	var b strings.Builder
	t.writeRecord(&b, rec)
	return b.String()
}

// Display renders a single record for reading, also applying the decode
// map. The result is not guaranteed to parse back.
func (t *Table) Display(rec []byte) string {
	var b strings.Builder
	for _, p := range t.pieces(rec, t.display) {
		b.WriteString(p.text)
	}
	return b.String()
}

// Parse parses a single line.
func (t *Table) Parse(line string) ([]byte, error) {
	rec, err := t.parseLine(line)
	if err != nil {
		err.Line = 1
		return nil, err
	}
	return rec, nil
}

// piece is one rendered unit and the bytes it stands for.
type piece struct {
	text    string
	raw     []byte
	plain   bool // not introduced by '\\' or '{'
	encoded bool // text comes from the encode map
}

func (t *Table) pieces(rec []byte, entries []entry) []piece {
	out := make([]piece, 0, len(rec))
	for i := 0; i < len(rec); {
		if e, ok := matchBytes(entries, rec[i:]); ok {
			special := strings.HasPrefix(e.text, "{")
			out = append(out, piece{text: e.text, raw: e.raw, plain: !special, encoded: !special})
			i += len(e.raw)
			continue
		}
		text, plain := t.byteText(rec[i])
		out = append(out, piece{text: text, raw: rec[i : i+1], plain: plain})
		i++
	}
	return out
}

// writeRecord renders rec so that parseLine returns it unchanged. The parser
// takes the longest encode text at each position, so a plain piece that
// would be read as part of a longer encode text together with what follows
// it is escaped instead.
func (t *Table) writeRecord(b *strings.Builder, rec []byte) {
	ps := t.pieces(rec, t.render)
	if t.maxText > 0 {
		next := ""
		for k := len(ps) - 1; k >= 0; k-- {
			p := &ps[k]
			if p.plain && !t.readsBack(*p, next) {
				p.text = escapeBytes(p.raw)
			}
			next = p.text + next
			if len(next) > t.maxText {
				next = next[:t.maxText]
			}
		}
	}
	for _, p := range ps {
		b.WriteString(p.text)
	}
}

// readsBack reports whether the parser, positioned at p with next after
// it, consumes exactly p.
func (t *Table) readsBack(p piece, next string) bool {
	e, ok := t.matchText(p.text + next)
	if !p.encoded {
		return !ok
	}
	return ok && e.text == p.text
}

func matchBytes(entries []entry, rest []byte) (entry, bool) {
	for _, e := range entries {
		if bytes.HasPrefix(rest, e.raw) {
			return e, true
		}
	}
	return entry{}, false
}

func escapeBytes(raw []byte) string {
	var b strings.Builder
	for _, c := range raw {
		fmt.Fprintf(&b, `\x%02X`, c)
	}
	return b.String()
}

// byteText renders one byte that no table entry covers. plain is false
// for escape sequences.
func (t *Table) byteText(c byte) (string, bool) {
	switch c {
	case '\\':
		return `\\`, false
	case '\n':
		return `\n`, false
	case '\r':
		return `\r`, false
	case '\t':
		return `\t`, false
	}
	r := t.charset.DecodeByte(c)
	if r == '{' {
		return `\{`, false
	}
	if t.printable(r, c) {
		return string(r), true
	}
	return fmt.Sprintf(`\x%02X`, c), false
}

// printable reports whether r may appear literally: it must be a graphic
// rune that encodes back to c.
func (t *Table) printable(r rune, c byte) bool {
	if r == utf8.RuneError || !unicode.IsGraphic(r) {
		return false
	}
	back, ok := t.charset.EncodeRune(r)
	return ok && back == c
}

func (t *Table) parseLine(line string) ([]byte, *SyntaxError) {
	out := make([]byte, 0, len(line))
	for i := 0; i < len(line); {
		switch line[i] {
		case '\\':
			c, n, reason := unescape(line[i:])
			if reason != "" {
				return nil, &SyntaxError{Column: i + 1, Reason: reason}
			}
			out = append(out, c)
			i += n
			continue
		case '{':
			end := strings.IndexByte(line[i:], '}')
			if end < 0 {
				return nil, &SyntaxError{Column: i + 1, Reason: "unterminated '{'"}
			}
			name := line[i+1 : i+end]
			raw, ok := t.byName[name]
			if !ok {
				return nil, &SyntaxError{Column: i + 1, Reason: fmt.Sprintf("unknown special %q", name)}
			}
			out = append(out, raw...)
			i += end + 1
			continue
		}

		if e, ok := t.matchText(line[i:]); ok {
			out = append(out, e.raw...)
			i += len(e.text)
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		if r == utf8.RuneError && size <= 1 {
			return nil, &SyntaxError{Column: i + 1, Reason: "invalid UTF-8"}
		}
		c, ok := t.charset.EncodeRune(r)
		if !ok {
			return nil, &SyntaxError{Column: i + 1, Reason: fmt.Sprintf("%q is not representable", r)}
		}
		out = append(out, c)
		i += size
	}
	return out, nil
}

func (t *Table) matchText(rest string) (entry, bool) {
	for _, e := range t.parseText {
		if strings.HasPrefix(rest, e.text) {
			return e, true
		}
	}
	return entry{}, false
}

// unescape decodes the escape sequence at the start of s and returns the
// byte, the number of input bytes consumed, and a failure reason.
func unescape(s string) (byte, int, string) {
	if len(s) < 2 {
		return 0, 0, "dangling '\\'"
	}
	switch s[1] {
	case '\\':
		return '\\', 2, ""
	case 'n':
		return '\n', 2, ""
	case 'r':
		return '\r', 2, ""
	case 't':
		return '\t', 2, ""
	case '{':
		return '{', 2, ""
	case 'x':
		if len(s) < 4 {
			return 0, 0, `truncated \x escape`
		}
		hi, ok1 := fromHex(s[2])
		lo, ok2 := fromHex(s[3])
		if !ok1 || !ok2 {
			return 0, 0, fmt.Sprintf(`bad \x escape %q`, s[:4])
		}
		return hi<<4 | lo, 4, ""
	}
	return 0, 0, fmt.Sprintf("unknown escape %q", s[:2])
}

func fromHex(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}
