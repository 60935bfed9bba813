// Package flatbuf provides a contiguous byte buffer with the same edit
// surface as a rope. It is the baseline the benchmark harness measures the
// rope against: every insert and erase moves the bytes after the edit.
package flatbuf

import (
	"github.com/cockroachdb/errors"

	"github.com/dshills/ropekit/internal/rope"
)

// Buffer is a flat, growable byte buffer.
type Buffer struct {
	data []byte
}

// New creates a buffer holding a copy of s.
func New(s string) *Buffer {
	return &Buffer{data: []byte(s)}
}

// Len returns the byte length.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Index returns the byte at idx.
func (b *Buffer) Index(idx int) (byte, error) {
	if idx < 0 || idx >= len(b.data) {
		return 0, errors.Wrapf(rope.ErrIndexOutOfRange, "index %d, length %d", idx, len(b.data))
	}
	return b.data[idx], nil
}

// Insert inserts text at idx, 0 <= idx <= Len().
func (b *Buffer) Insert(idx int, text string) error {
	if idx < 0 || idx > len(b.data) {
		return errors.Wrapf(rope.ErrIndexOutOfRange, "index %d, length %d", idx, len(b.data))
	}
	if len(text) == 0 {
		return nil
	}
	n := len(b.data)
	b.data = append(b.data, text...)
	copy(b.data[idx+len(text):], b.data[idx:n])
	copy(b.data[idx:], text)
	return nil
}

// Erase removes n bytes at idx, with the same preconditions as rope.Erase.
func (b *Buffer) Erase(idx, n int) error {
	length := len(b.data)
	if idx < 0 || idx >= length {
		return errors.Wrapf(rope.ErrIndexOutOfRange, "index %d, length %d", idx, length)
	}
	if n < 0 || n > length-idx {
		return errors.Wrapf(rope.ErrRangeOutOfBounds, "range [%d, %d+%d), length %d", idx, idx, n, length)
	}
	b.data = append(b.data[:idx], b.data[idx+n:]...)
	return nil
}

// String returns the contents.
func (b *Buffer) String() string {
	return string(b.data)
}
