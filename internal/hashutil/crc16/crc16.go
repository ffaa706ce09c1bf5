// Package crc16 implements the 16-bit cyclic redundancy check, or CRC-16,
// checksum.
package crc16

import "github.com/karlek/flac/internal/hashutil"

// Size of a CRC-16 checksum in bytes.
const Size = 2

// IBM is the polynomial of the CRC-16-IBM algorithm, which protects the frame
// checksum of FLAC streams. The bits are processed most significant first,
// without reflection.
//
//	x^16 + x^15 + x^2 + 1
const IBM = 0x8005

// Table is a 256-entry table representing the polynomial for efficient
// processing.
type Table [256]uint16

// ibmTable is the table of the IBM polynomial.
var ibmTable = makeTable(IBM)

// makeTable returns the Table constructed from the specified polynomial.
func makeTable(poly uint16) *Table {
	t := new(Table)
	for i := range t {
		crc := uint16(i) << 8
		for j := 0; j < 8; j++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return t
}

// digest represents the partial evaluation of a checksum.
type digest struct {
	crc uint16
	tab *Table
}

// New creates a new hashutil.Hash16 computing the CRC-16 checksum using the
// polynomial represented by the Table.
func New(tab *Table) hashutil.Hash16 {
	return &digest{tab: tab}
}

// NewIBM creates a new hashutil.Hash16 computing the CRC-16 checksum using
// the IBM polynomial.
func NewIBM() hashutil.Hash16 {
	return New(ibmTable)
}

func (d *digest) Size() int {
	return Size
}

func (d *digest) BlockSize() int {
	return 1
}

func (d *digest) Reset() {
	d.crc = 0
}

// Update returns the result of adding the bytes in p to the crc.
func Update(crc uint16, tab *Table, p []byte) uint16 {
	for _, v := range p {
		crc = crc<<8 ^ tab[uint8(crc>>8)^v]
	}
	return crc
}

func (d *digest) Write(p []byte) (int, error) {
	d.crc = Update(d.crc, d.tab, p)
	return len(p), nil
}

// Sum16 returns the 16-bit checksum of the hash.
func (d *digest) Sum16() uint16 {
	return d.crc
}

func (d *digest) Sum(in []byte) []byte {
	return append(in, byte(d.crc>>8), byte(d.crc))
}

// ChecksumIBM returns the CRC-16 checksum of data using the IBM polynomial.
func ChecksumIBM(data []byte) uint16 {
	return Update(0, ibmTable, data)
}
