// Package binario provides small, explicit binary encoding helpers for
// simulator state snapshots and relay wire messages: a Writer/Reader pair
// with one typed accessor per field (WriteUint8 / ReadUint8To, and so on),
// errors accumulated and joined at the call site rather than per-call.
package binario

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Writer sequentially encodes fixed- and variable-width fields to an
// underlying io.Writer using a fixed byte order.
type Writer struct {
	w     io.Writer
	order binary.ByteOrder
	err   error
}

// NewWriter wraps w for sequential field writes in the given byte order.
func NewWriter(w io.Writer, order binary.ByteOrder) *Writer {
	return &Writer{w: w, order: order}
}

func (w *Writer) WriteUint8(v uint8) error {
	return w.write([]byte{v})
}

func (w *Writer) WriteUint16(v uint16) error {
	var buf [2]byte
	w.order.PutUint16(buf[:], v)
	return w.write(buf[:])
}

func (w *Writer) WriteUint32(v uint32) error {
	var buf [4]byte
	w.order.PutUint32(buf[:], v)
	return w.write(buf[:])
}

func (w *Writer) WriteUint64(v uint64) error {
	var buf [8]byte
	w.order.PutUint64(buf[:], v)
	return w.write(buf[:])
}

func (w *Writer) WriteBool(v bool) error {
	if v {
		return w.WriteUint8(1)
	}
	return w.WriteUint8(0)
}

// WriteBytes writes a uint32 length prefix followed by b. Used for opaque
// payloads (state snapshots nested inside other snapshots, variable-length
// input batches) whose size isn't known to the reader in advance.
func (w *Writer) WriteBytes(b []byte) error {
	if err := w.WriteUint32(uint32(len(b))); err != nil {
		return err
	}
	return w.write(b)
}

// WriteRaw writes b with no length prefix, for fixed-size fields the
// caller already knows the width of.
func (w *Writer) WriteRaw(b []byte) error {
	return w.write(b)
}

func (w *Writer) write(b []byte) error {
	if w.err != nil {
		return w.err
	}

	if _, err := w.w.Write(b); err != nil {
		w.err = fmt.Errorf("binario: write failed: %w", err)
		return w.err
	}

	return nil
}

// Reader sequentially decodes fields written by a Writer using the same
// byte order.
type Reader struct {
	r     io.Reader
	order binary.ByteOrder
	err   error
}

// NewReader wraps r for sequential field reads in the given byte order.
func NewReader(r io.Reader, order binary.ByteOrder) *Reader {
	return &Reader{r: r, order: order}
}

func (r *Reader) ReadUint8To(dst *uint8) error {
	var buf [1]byte
	if err := r.read(buf[:]); err != nil {
		return err
	}
	*dst = buf[0]
	return nil
}

func (r *Reader) ReadUint16To(dst *uint16) error {
	var buf [2]byte
	if err := r.read(buf[:]); err != nil {
		return err
	}
	*dst = r.order.Uint16(buf[:])
	return nil
}

func (r *Reader) ReadUint32To(dst *uint32) error {
	var buf [4]byte
	if err := r.read(buf[:]); err != nil {
		return err
	}
	*dst = r.order.Uint32(buf[:])
	return nil
}

func (r *Reader) ReadUint64To(dst *uint64) error {
	var buf [8]byte
	if err := r.read(buf[:]); err != nil {
		return err
	}
	*dst = r.order.Uint64(buf[:])
	return nil
}

func (r *Reader) ReadBoolTo(dst *bool) error {
	var v uint8
	if err := r.ReadUint8To(&v); err != nil {
		return err
	}
	*dst = v != 0
	return nil
}

// lenReader is implemented by *bytes.Reader and *bytes.Buffer, letting
// ReadBytes bound an attacker-controlled length prefix against what is
// actually left to read before allocating for it.
type lenReader interface {
	Len() int
}

// ReadBytes reads a uint32 length prefix followed by that many bytes, the
// inverse of WriteBytes. If the underlying reader exposes its remaining
// length, a declared count larger than what remains is rejected before
// any allocation, so a malformed prefix can't force a large allocation
// ahead of the read that would fail anyway.
func (r *Reader) ReadBytes() ([]byte, error) {
	var n uint32
	if err := r.ReadUint32To(&n); err != nil {
		return nil, err
	}

	if lr, ok := r.r.(lenReader); ok && int64(n) > int64(lr.Len()) {
		r.err = fmt.Errorf("binario: declared length %d exceeds %d bytes remaining", n, lr.Len())
		return nil, r.err
	}

	buf := make([]byte, n)
	if err := r.read(buf); err != nil {
		return nil, err
	}

	return buf, nil
}

// ReadRaw reads exactly len(dst) bytes into dst, the inverse of WriteRaw.
func (r *Reader) ReadRaw(dst []byte) error {
	return r.read(dst)
}

// Remaining reports how many bytes are left in the underlying reader, if
// it exposes that (as *bytes.Reader and *bytes.Buffer do). Callers decode
// a count-prefixed sequence of fixed-size records with this to reject an
// attacker-controlled count before allocating for it.
func (r *Reader) Remaining() (n int, ok bool) {
	lr, ok := r.r.(lenReader)
	if !ok {
		return 0, false
	}

	return lr.Len(), true
}

func (r *Reader) read(b []byte) error {
	if r.err != nil {
		return r.err
	}

	if _, err := io.ReadFull(r.r, b); err != nil {
		r.err = fmt.Errorf("binario: read failed: %w", err)
		return r.err
	}

	return nil
}
