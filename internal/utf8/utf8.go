// Package utf8 implements encoding and decoding of "UTF-8" coded numbers, as
// used by frame headers to store block and sample sequence numbers.
//
// The coding scheme borrows the multi-byte structure of UTF-8 text encoding,
// but extends it to 7 byte sequences in order to represent up to 36-bit
// integer values; it has nothing to do with the audio payload itself.
package utf8

import (
	"io"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

const (
	tx = 0x80 // 1000 0000
	t2 = 0xC0 // 1100 0000
	t3 = 0xE0 // 1110 0000
	t4 = 0xF0 // 1111 0000
	t5 = 0xF8 // 1111 1000
	t6 = 0xFC // 1111 1100
	t7 = 0xFE // 1111 1110

	maskx = 0x3F // 0011 1111
	mask2 = 0x1F // 0001 1111
	mask3 = 0x0F // 0000 1111
	mask4 = 0x07 // 0000 0111
	mask5 = 0x03 // 0000 0011
	mask6 = 0x01 // 0000 0001

	rune1Max = 1<<7 - 1
	rune2Max = 1<<11 - 1
	rune3Max = 1<<16 - 1
	rune4Max = 1<<21 - 1
	rune5Max = 1<<26 - 1
	rune6Max = 1<<31 - 1
	rune7Max = 1<<36 - 1
)

// Decode decodes and returns a "UTF-8" coded number, reading between 1 and 7
// bytes from r.
func Decode(r io.Reader) (x uint64, err error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	c0 := buf[0]

	// Determine the number of continuation bytes from the leading one bits of
	// c0, and extract the value bits of c0.
	var l int
	switch {
	case c0&tx == 0:
		// 0xxxxxxx; 1-byte sequence.
		return uint64(c0), nil
	case c0&t3 == t2:
		// 110xxxxx; 2-byte sequence.
		l = 1
		x = uint64(c0 & mask2)
	case c0&t4 == t3:
		// 1110xxxx; 3-byte sequence.
		l = 2
		x = uint64(c0 & mask3)
	case c0&t5 == t4:
		// 11110xxx; 4-byte sequence.
		l = 3
		x = uint64(c0 & mask4)
	case c0&t6 == t5:
		// 111110xx; 5-byte sequence.
		l = 4
		x = uint64(c0 & mask5)
	case c0&t7 == t6:
		// 1111110x; 6-byte sequence.
		l = 5
		x = uint64(c0 & mask6)
	case c0 == t7:
		// 11111110; 7-byte sequence.
		l = 6
		x = 0
	default:
		// 10xxxxxx; continuation byte with no preceding start byte.
		return 0, errors.Errorf("utf8.Decode: invalid leading byte 0x%02X", c0)
	}

	// Decode continuation bytes, each contributing 6 value bits.
	for i := 0; i < l; i++ {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		c := buf[0]
		if c&t2 != tx {
			return 0, errors.Errorf("utf8.Decode: invalid continuation byte 0x%02X", c)
		}
		x = x<<6 | uint64(c&maskx)
	}
	return x, nil
}

// Encode encodes x as a "UTF-8" coded number, writing between 1 and 7 bytes
// to bw.
func Encode(bw *bitio.Writer, x uint64) error {
	// 1-byte, 7-bit sequence?
	if x <= rune1Max {
		if err := bw.WriteBits(x, 8); err != nil {
			return errors.WithStack(err)
		}
		return nil
	}

	// Get the number of continuation bytes and the bits of the start byte.
	var (
		// Number of continuation bytes.
		l int
		// Bits of c0.
		bits uint64
	)
	switch {
	case x <= rune2Max:
		// 110xxxxx; total: 11 bits (5 + 6).
		l = 1
		bits = uint64(t2 | (x>>6)&mask2)
	case x <= rune3Max:
		// 1110xxxx; total: 16 bits (4 + 6 + 6).
		l = 2
		bits = uint64(t3 | (x>>(6*2))&mask3)
	case x <= rune4Max:
		// 11110xxx; total: 21 bits (3 + 6 + 6 + 6).
		l = 3
		bits = uint64(t4 | (x>>(6*3))&mask4)
	case x <= rune5Max:
		// 111110xx; total: 26 bits (2 + 6 + 6 + 6 + 6).
		l = 4
		bits = uint64(t5 | (x>>(6*4))&mask5)
	case x <= rune6Max:
		// 1111110x; total: 31 bits (1 + 6 + 6 + 6 + 6 + 6).
		l = 5
		bits = uint64(t6 | (x>>(6*5))&mask6)
	case x <= rune7Max:
		// 11111110; total: 36 bits (0 + 6 + 6 + 6 + 6 + 6 + 6).
		l = 6
		bits = t7
	default:
		return errors.Errorf("utf8.Encode: value %d exceeds 36 bits", x)
	}
	// Store the start byte.
	if err := bw.WriteBits(bits, 8); err != nil {
		return errors.WithStack(err)
	}

	// Store continuation bytes.
	for i := l - 1; i >= 0; i-- {
		bits := uint64(tx | (x>>uint(6*i))&maskx)
		if err := bw.WriteBits(bits, 8); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
