package binio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/text/encoding/charmap"
)

// ErrTruncated is returned when a read would run past the end of the stream.
var ErrTruncated = errors.New("truncated data")

// Reader is a random-access cursor over a fixed-size byte source.
//
// It keeps a current byte order and a current position, each of which can be
// saved and restored with a matching Push/Pop pair so a caller can temporarily
// jump elsewhere (a sub-IFD, a HEIC extent) and come back exactly to where it
// was. Pops must mirror pushes in LIFO order within one decode; a Pop without
// a matching Push is a programming error and panics.
type Reader struct {
	src  io.ReaderAt
	size int64
	pos  int64

	order      binary.ByteOrder
	orderStack []binary.ByteOrder
	posStack   []int64

	buf [8]byte
}

// NewReader returns a little-endian cursor over the first size bytes of src.
func NewReader(src io.ReaderAt, size int64) *Reader {
	return &Reader{src: src, size: size, order: binary.LittleEndian}
}

// Order returns the current byte order.
func (r *Reader) Order() binary.ByteOrder { return r.order }

// SetOrder switches the current byte order.
func (r *Reader) SetOrder(order binary.ByteOrder) { r.order = order }

// PushOrder saves the current byte order.
func (r *Reader) PushOrder() {
	r.orderStack = append(r.orderStack, r.order)
}

// PopOrder restores the most recently pushed byte order.
func (r *Reader) PopOrder() {
	if len(r.orderStack) == 0 {
		panic("binio: PopOrder without matching PushOrder")
	}
	r.order = r.orderStack[len(r.orderStack)-1]
	r.orderStack = r.orderStack[:len(r.orderStack)-1]
}

// PushPosition saves the current position and seeks to pos.
func (r *Reader) PushPosition(pos int64) {
	r.posStack = append(r.posStack, r.pos)
	r.pos = pos
}

// PopPosition restores the most recently pushed position.
func (r *Reader) PopPosition() {
	if len(r.posStack) == 0 {
		panic("binio: PopPosition without matching PushPosition")
	}
	r.pos = r.posStack[len(r.posStack)-1]
	r.posStack = r.posStack[:len(r.posStack)-1]
}

// Tell returns the current position.
func (r *Reader) Tell() int64 { return r.pos }

// Seek moves the cursor to an absolute position.
func (r *Reader) Seek(pos int64) { r.pos = pos }

// Skip advances the cursor by n bytes.
func (r *Reader) Skip(n int64) { r.pos += n }

// Len returns the total length of the stream.
func (r *Reader) Len() int64 { return r.size }

// Remaining returns the number of bytes between the cursor and the end.
func (r *Reader) Remaining() int64 { return r.size - r.pos }

// EOF reports whether the cursor is at or past the end of the stream.
func (r *Reader) EOF() bool { return r.pos >= r.size }

func (r *Reader) read(p []byte) error {
	n := int64(len(p))
	if r.pos < 0 || r.pos+n > r.size {
		return fmt.Errorf("read %d bytes at offset %d of %d: %w", n, r.pos, r.size, ErrTruncated)
	}
	if _, err := r.src.ReadAt(p, r.pos); err != nil {
		return fmt.Errorf("read at offset %d: %w", r.pos, err)
	}
	r.pos += n
	return nil
}

// ReadBytes reads the next n bytes. The count is validated against the
// remaining stream before the buffer is allocated, so a malformed length
// field cannot trigger a huge allocation.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || int64(n) > r.Remaining() {
		return nil, fmt.Errorf("read %d bytes at offset %d of %d: %w", n, r.pos, r.size, ErrTruncated)
	}
	p := make([]byte, n)
	if err := r.read(p); err != nil {
		return nil, err
	}
	return p, nil
}

// ReadU8 reads one byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.read(r.buf[:1]); err != nil {
		return 0, err
	}
	return r.buf[0], nil
}

// ReadU16 reads a 16-bit integer in the current byte order.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.read(r.buf[:2]); err != nil {
		return 0, err
	}
	return r.order.Uint16(r.buf[:2]), nil
}

// ReadU24 reads a 24-bit integer in the current byte order.
func (r *Reader) ReadU24() (uint32, error) {
	if err := r.read(r.buf[:3]); err != nil {
		return 0, err
	}
	b := r.buf[:3]
	if r.order == binary.LittleEndian {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2]), nil
}

// ReadU32 reads a 32-bit integer in the current byte order.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.read(r.buf[:4]); err != nil {
		return 0, err
	}
	return r.order.Uint32(r.buf[:4]), nil
}

// ReadU64 reads a 64-bit integer in the current byte order.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.read(r.buf[:8]); err != nil {
		return 0, err
	}
	return r.order.Uint64(r.buf[:8]), nil
}

// ReadString reads n raw bytes and decodes them as Latin-1.
func (r *Reader) ReadString(n int) (string, error) {
	p, err := r.ReadBytes(n)
	if err != nil {
		return "", err
	}
	return decodeLatin1(p)
}

// ReadCString reads bytes up to a NUL terminator and decodes them as Latin-1.
// The terminator is consumed but not included in the result.
func (r *Reader) ReadCString() (string, error) {
	var raw []byte
	for {
		b, err := r.ReadU8()
		if err != nil {
			return "", err
		}
		if b == 0 {
			break
		}
		raw = append(raw, b)
	}
	return decodeLatin1(raw)
}

func decodeLatin1(p []byte) (string, error) {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(p)
	if err != nil {
		return "", fmt.Errorf("decode latin-1: %w", err)
	}
	return string(out), nil
}
