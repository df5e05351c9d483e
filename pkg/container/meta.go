package container

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Sidecar member names used when metadata travels as text.
const (
	HeaderSidecar  = "header.datE"
	ScriptsSidecar = "scripts.spt"
	LinksSidecar   = "links.tabE"
)

// Link is one entry of an E container's link table.
type Link struct {
	From, To uint32
}

// Meta holds everything in a container that is not a record. BinJ uses only
// Prefix.
type Meta struct {
	Prefix  []byte
	Header  []uint32
	Scripts []uint32
	Links   []Link
}

// FormatHeader renders header words one per line as 8 hex digits.
func FormatHeader(words []uint32) []byte {
	var b bytes.Buffer
	for _, w := range words {
		fmt.Fprintf(&b, "%08X\n", w)
	}
	return b.Bytes()
}

// ParseHeader is the inverse of FormatHeader.
func ParseHeader(data []byte) ([]uint32, error) {
	var words []uint32
	err := eachLine(HeaderSidecar, data, func(line string) error {
		v, err := strconv.ParseUint(line, 16, 32)
		if err != nil {
			return err
		}
		words = append(words, uint32(v))
		return nil
	})
	return words, err
}

// FormatScripts renders script offsets one decimal per line.
func FormatScripts(offsets []uint32) []byte {
	var b bytes.Buffer
	for _, off := range offsets {
		fmt.Fprintf(&b, "%d\n", off)
	}
	return b.Bytes()
}

// ParseScripts is the inverse of FormatScripts.
func ParseScripts(data []byte) ([]uint32, error) {
	var offsets []uint32
	err := eachLine(ScriptsSidecar, data, func(line string) error {
		v, err := strconv.ParseUint(line, 10, 32)
		if err != nil {
			return err
		}
		offsets = append(offsets, uint32(v))
		return nil
	})
	return offsets, err
}

// FormatLinks renders links as "from=to" lines.
func FormatLinks(links []Link) []byte {
	var b bytes.Buffer
	for _, l := range links {
		fmt.Fprintf(&b, "%d=%d\n", l.From, l.To)
	}
	return b.Bytes()
}

// ParseLinks is the inverse of FormatLinks.
func ParseLinks(data []byte) ([]Link, error) {
	var links []Link
	err := eachLine(LinksSidecar, data, func(line string) error {
		from, to, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("missing '='")
		}
		f, err := strconv.ParseUint(strings.TrimSpace(from), 10, 32)
		if err != nil {
			return err
		}
		t, err := strconv.ParseUint(strings.TrimSpace(to), 10, 32)
		if err != nil {
			return err
		}
		links = append(links, Link{From: uint32(f), To: uint32(t)})
		return nil
	})
	return links, err
}

// eachLine calls fn for every non-blank line. Only trailing blank lines are
// tolerated; a blank line followed by content is malformed.
func eachLine(name string, data []byte, fn func(string) error) error {
	sc := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	blankAt := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			if blankAt == 0 {
				blankAt = lineNo
			}
			continue
		}
		if blankAt != 0 {
			return parseErrorf(name, blankAt, "blank line inside table")
		}
		if err := fn(line); err != nil {
			return &ParseError{Format: name, Offset: lineNo, Reason: fmt.Sprintf("malformed line %q", line), Err: err}
		}
	}
	if err := sc.Err(); err != nil {
		return &ParseError{Format: name, Offset: lineNo, Reason: "read", Err: err}
	}
	return nil
}
