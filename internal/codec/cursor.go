// Package codec implements the little-endian wire format shared with the
// guest: fixed-width integers, UEFI GUIDs, EFI_TIME, length-prefixed
// UTF-16LE strings, and the variable record layout. Every read goes
// through Cursor so a hostile page can never push a slice index out of
// bounds.
package codec

import (
	"encoding/binary"
	"errors"
)

// ErrTruncated is returned when a field would read past the end of the
// buffer.
var ErrTruncated = errors.New("codec: truncated")

// ErrTooLarge is returned when a length-prefixed field exceeds its
// per-field maximum.
var ErrTooLarge = errors.New("codec: field exceeds maximum size")

// Cursor reads little-endian primitives from a byte slice, failing
// closed on any out-of-bounds access. It never panics and never
// advances past end on error.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for sequential reads starting at offset 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current read offset.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the number of unread bytes remaining.
func (c *Cursor) Len() int { return len(c.buf) - c.pos }

// Remaining returns the unread tail of the buffer without advancing.
func (c *Cursor) Remaining() []byte { return c.buf[c.pos:] }

func (c *Cursor) need(n int) error {
	if n < 0 || n > c.Len() {
		return ErrTruncated
	}
	return nil
}

// Bytes reads n raw bytes and advances the cursor.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances n bytes without returning them.
func (c *Cursor) Skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// U8 reads a single byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.Bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// U64 reads a little-endian uint64.
func (c *Cursor) U64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// LenBytes reads a u64 byte-count followed by that many raw bytes,
// rejecting counts over max.
func (c *Cursor) LenBytes(max uint64) ([]byte, error) {
	n, err := c.U64()
	if err != nil {
		return nil, err
	}
	if n > max {
		return nil, ErrTooLarge
	}
	return c.Bytes(int(n))
}

// Writer accumulates a little-endian response buffer. Unlike Cursor it
// has no fixed bound; copying its bytes into the 64 KiB guest page with
// copy (as protocol.writeResponse does) stops at the end of the page.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the accumulated buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// U8 appends a single byte.
func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// LenBytes appends a u64 byte-count followed by b.
func (w *Writer) LenBytes(b []byte) {
	w.U64(uint64(len(b)))
	w.Raw(b)
}
