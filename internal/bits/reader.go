// Package bits provides bit access operations and binary decoding algorithms
// used by the FLAC audio format.
package bits

import (
	"io"

	"github.com/pkg/errors"
)

// A Reader provides bit-level reading of an io.Reader, most significant bit
// first.
//
// The reader consumes one byte at a time from the underlying io.Reader and
// never reads ahead of the bits requested. This matters for frame decoding,
// where the underlying reader accumulates a running CRC; a buffered bit
// reader would checksum bytes beyond the end of the frame and lose the byte
// position required to resynchronize on the next frame.
type Reader struct {
	// Underlying io.Reader.
	r io.Reader
	// Pending bits of the current byte, left-aligned.
	x uint8
	// Number of pending bits.
	n uint
	// Single byte scratch buffer.
	buf [1]byte
}

// NewReader returns a new Reader that reads bits from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: r}
}

// Read reads and returns the n next bits, most significant bit first, where
// 0 <= n <= 64. A read of zero bits returns 0 without accessing the
// underlying io.Reader.
func (br *Reader) Read(n uint) (x uint64, err error) {
	if n > 64 {
		return 0, errors.Errorf("bits.Reader.Read: invalid number of bits; expected <= 64, got %d", n)
	}
	for n > 0 {
		if br.n == 0 {
			if _, err := io.ReadFull(br.r, br.buf[:]); err != nil {
				return 0, err
			}
			br.x = br.buf[0]
			br.n = 8
		}
		k := n
		if k > br.n {
			k = br.n
		}
		x = x<<k | uint64(br.x>>(8-k))
		br.x <<= k
		br.n -= k
		n -= k
	}
	return x, nil
}
