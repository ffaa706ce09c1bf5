// Package bufseekio implements buffering for an io.ReadSeeker object, keeping
// track of the absolute read position so that seeks within the buffered data
// avoid repositioning the underlying read-seeker.
package bufseekio

import (
	"errors"
	"io"
)

const (
	defaultBufSize    = 4096
	minReadBufferSize = 16
)

// ReadSeeker implements buffering for an io.ReadSeeker object.
type ReadSeeker struct {
	// Underlying read-seeker, positioned at the end of the buffered data.
	rs io.ReadSeeker
	// Buffered data in buf[r:n].
	buf []byte
	r   int
	n   int
	// Absolute offset of buf[0] in the underlying stream.
	off int64
}

// NewReadSeeker returns a new buffered ReadSeeker with the default buffer
// size.
func NewReadSeeker(rs io.ReadSeeker) *ReadSeeker {
	return NewReadSeekerSize(rs, defaultBufSize)
}

// NewReadSeekerSize returns a new buffered ReadSeeker whose buffer has at
// least the given size. If rs is already a ReadSeeker with a large enough
// buffer, it is returned directly.
func NewReadSeekerSize(rs io.ReadSeeker, size int) *ReadSeeker {
	if b, ok := rs.(*ReadSeeker); ok && len(b.buf) >= size {
		return b
	}
	if size < minReadBufferSize {
		size = minReadBufferSize
	}
	return &ReadSeeker{rs: rs, buf: make([]byte, size)}
}

// pos returns the absolute read position of the buffered stream.
func (b *ReadSeeker) pos() int64 {
	return b.off + int64(b.r)
}

// Read reads data into p, from the buffer when possible.
func (b *ReadSeeker) Read(p []byte) (int, error) {
	if b.r == b.n {
		b.off += int64(b.n)
		b.r, b.n = 0, 0
		if len(p) >= len(b.buf) {
			// Large reads bypass the buffer.
			n, err := b.rs.Read(p)
			b.off += int64(n)
			return n, err
		}
		n, err := b.rs.Read(b.buf)
		if n == 0 {
			return 0, err
		}
		b.n = n
	}
	n := copy(p, b.buf[b.r:b.n])
	b.r += n
	return n, nil
}

// Seek repositions the stream at the given offset. Seeking to a position
// within the buffered data, including the current position, does not
// reposition the underlying read-seeker.
func (b *ReadSeeker) Seek(offset int64, whence int) (int64, error) {
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = b.pos() + offset
	case io.SeekEnd:
		pos, err := b.rs.Seek(offset, whence)
		if err != nil {
			return 0, err
		}
		b.off, b.r, b.n = pos, 0, 0
		return pos, nil
	default:
		return 0, errors.New("bufseekio.ReadSeeker.Seek: invalid whence")
	}
	if target < 0 {
		return 0, errors.New("bufseekio.ReadSeeker.Seek: negative position")
	}
	if target >= b.off && target <= b.off+int64(b.n) {
		b.r = int(target - b.off)
		return target, nil
	}
	pos, err := b.rs.Seek(target, io.SeekStart)
	if err != nil {
		return 0, err
	}
	b.off, b.r, b.n = pos, 0, 0
	return pos, nil
}
