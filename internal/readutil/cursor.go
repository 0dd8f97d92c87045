package readutil

import "bytes"

// Cursor walks a byte slice position by position without recursion.
// It exists so KVLM and index parsing can advance through a payload
// with a loop instead of the recursive-descent style the reference
// implementation uses, which would otherwise grow the stack by one
// frame per header line / per index entry.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor returns a Cursor positioned at the start of buf
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Pos returns the current offset
func (c *Cursor) Pos() int {
	return c.pos
}

// Len returns the number of unread bytes
func (c *Cursor) Len() int {
	return len(c.buf) - c.pos
}

// Done returns whether the cursor reached the end of the buffer
func (c *Cursor) Done() bool {
	return c.pos >= len(c.buf)
}

// Rest returns every byte from the current position to the end
func (c *Cursor) Rest() []byte {
	return c.buf[c.pos:]
}

// Peek returns the unread bytes without advancing the cursor
func (c *Cursor) Peek(n int) []byte {
	end := c.pos + n
	if end > len(c.buf) {
		end = len(c.buf)
	}
	return c.buf[c.pos:end]
}

// Advance moves the cursor forward by n bytes
func (c *Cursor) Advance(n int) {
	c.pos += n
}

// Take reads and returns the next n bytes, advancing the cursor
func (c *Cursor) Take(n int) ([]byte, bool) {
	if c.pos+n > len(c.buf) {
		return nil, false
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, true
}

// IndexByte returns the offset (relative to the current position) of
// the next occurrence of b, or -1 if not found
func (c *Cursor) IndexByte(b byte) int {
	return bytes.IndexByte(c.Rest(), b)
}
