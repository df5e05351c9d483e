package container

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ECodec handles gzip-wrapped containers. The decompressed payload is, in
// little-endian order:
//
//	u32 headerWords, headerWords × u32
//	u32 scriptCount, scriptCount × u32
//	u32 linkCount,   linkCount × (u32 from, u32 to)
//	u32 prefixLen,   prefixLen bytes
//	records joined by SEP until the end of the payload
type ECodec struct {
	sep Separator
}

func (c *ECodec) Mode() Mode { return ModeE }

// Decode decompresses data and parses the payload.
func (c *ECodec) Decode(data []byte) (*Container, error) {
	payload, err := gunzip(data)
	if err != nil {
		return nil, err
	}
	return c.DecodePayload(payload)
}

// DecodePayload parses an already decompressed payload.
func (c *ECodec) DecodePayload(payload []byte) (*Container, error) {
	r := &payloadReader{buf: payload}

	var meta Meta
	meta.Header = r.words("header")
	meta.Scripts = r.words("script table")

	linkCount := r.u32("link count")
	if r.err == nil && int(linkCount) > r.remaining()/8 {
		r.fail("link table", "%d links exceed remaining %d bytes", linkCount, r.remaining())
	}
	if r.err == nil && linkCount > 0 {
		meta.Links = make([]Link, linkCount)
		for i := range meta.Links {
			meta.Links[i] = Link{From: r.u32("link"), To: r.u32("link")}
		}
	}

	prefixLen := r.u32("prefix length")
	if r.err == nil {
		meta.Prefix = r.bytes("prefix", int(prefixLen))
	}
	if r.err != nil {
		return nil, r.err
	}

	return &Container{
		Records: c.sep.Split(payload[r.off:]),
		Meta:    meta,
	}, nil
}

// Encode serializes the payload and gzips it with a fixed header so equal
// content always yields equal bytes.
func (c *ECodec) Encode(ct *Container) ([]byte, error) {
	payload, err := c.EncodePayload(ct)
	if err != nil {
		return nil, err
	}
	return gzipDeterministic(payload)
}

// EncodePayload serializes ct without compression.
func (c *ECodec) EncodePayload(ct *Container) ([]byte, error) {
	body, err := c.sep.Join(ct.Records)
	if err != nil {
		return nil, fmt.Errorf("encode e: %w", err)
	}

	m := ct.Meta
	var b bytes.Buffer
	b.Grow(16 + 4*len(m.Header) + 4*len(m.Scripts) + 8*len(m.Links) + len(m.Prefix) + len(body))

	putU32(&b, uint32(len(m.Header)))
	for _, w := range m.Header {
		putU32(&b, w)
	}
	putU32(&b, uint32(len(m.Scripts)))
	for _, s := range m.Scripts {
		putU32(&b, s)
	}
	putU32(&b, uint32(len(m.Links)))
	for _, l := range m.Links {
		putU32(&b, l.From)
		putU32(&b, l.To)
	}
	putU32(&b, uint32(len(m.Prefix)))
	b.Write(m.Prefix)
	b.Write(body)
	return b.Bytes(), nil
}

func putU32(b *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.Write(tmp[:])
}

func gunzip(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Format: "gzip", Offset: 0, Reason: "bad gzip header", Err: err}
	}
	defer zr.Close()
	payload, err := io.ReadAll(zr)
	if err != nil {
		return nil, &ParseError{Format: "gzip", Offset: -1, Reason: "corrupt gzip stream", Err: err}
	}
	return payload, nil
}

func gzipDeterministic(payload []byte) ([]byte, error) {
	var out bytes.Buffer
	zw, err := gzip.NewWriterLevel(&out, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("gzip writer: %w", err)
	}
	// Zero ModTime and empty Name keep the header independent of when and
	// where the file was written.
	zw.Name = ""
	zw.Comment = ""
	zw.Extra = nil
	zw.OS = 255
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		return nil, fmt.Errorf("gzip write: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("gzip close: %w", err)
	}
	return out.Bytes(), nil
}

// payloadReader is a cursor over an E payload that records the first
// structural error and turns every later read into a no-op.
type payloadReader struct {
	buf []byte
	off int
	err error
}

func (r *payloadReader) remaining() int { return len(r.buf) - r.off }

func (r *payloadReader) fail(what, reason string, args ...any) {
	if r.err == nil {
		r.err = parseErrorf(string(ModeE), r.off, what+": "+reason, args...)
	}
}

func (r *payloadReader) u32(what string) uint32 {
	if r.err != nil {
		return 0
	}
	if r.remaining() < 4 {
		r.fail(what, "truncated, %d bytes left", r.remaining())
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *payloadReader) words(what string) []uint32 {
	n := r.u32(what + " count")
	if r.err != nil || n == 0 {
		return nil
	}
	if int(n) > r.remaining()/4 {
		r.fail(what, "%d entries exceed remaining %d bytes", n, r.remaining())
		return nil
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = r.u32(what)
	}
	return out
}

func (r *payloadReader) bytes(what string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n > r.remaining() {
		r.fail(what, "%d bytes exceed remaining %d", n, r.remaining())
		return nil
	}
	out := append([]byte{}, r.buf[r.off:r.off+n]...)
	r.off += n
	return out
}
