// Package io offers byte-stream primitives for circuit structure payloads.
//
// Gadgets and hint nodes persist themselves as flat sequences of little-endian
// words, in a fixed field order, with no per-field framing. A Writer is an
// append-only buffer that cannot fail; a Reader surfaces typed decoding errors
// so a caller can distinguish truncated or malformed input from programming
// errors.
package io

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	// ErrTruncatedStream is returned when a read runs past the end of the
	// serialized data.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrInvalidEncoding is returned when the data is long enough but its
	// content is not a valid encoding of the expected value.
	ErrInvalidEncoding = errors.New("invalid encoding")
)

// Writer accumulates little-endian words into an in-memory buffer.
// The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity for n bytes.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

func (w *Writer) WriteBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

// Bytes returns the accumulated buffer. The slice is owned by the Writer and
// valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

// Reader consumes a byte slice written by a Writer.
type Reader struct {
	buf []byte
	off int
}

func NewReader(p []byte) *Reader {
	return &Reader{buf: p}
}

func (r *Reader) ReadUint32() (uint32, error) {
	if r.off+4 > len(r.buf) {
		return 0, fmt.Errorf("reading uint32 at offset %d: %w", r.off, ErrTruncatedStream)
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	if r.off+8 > len(r.buf) {
		return 0, fmt.Errorf("reading uint64 at offset %d: %w", r.off, ErrTruncatedStream)
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative length %d: %w", n, ErrInvalidEncoding)
	}
	if r.off+n > len(r.buf) {
		return nil, fmt.Errorf("reading %d bytes at offset %d: %w", n, r.off, ErrTruncatedStream)
	}
	p := r.buf[r.off : r.off+n]
	r.off += n
	return p, nil
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}
