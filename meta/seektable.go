package meta

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// PlaceholderPoint is the sample number used to mark a seek point as a
// placeholder.
const PlaceholderPoint = 0xFFFFFFFFFFFFFFFF

// A SeekTable metadata block contains one or more pre-calculated audio frame
// seek points.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_seektable
type SeekTable struct {
	// One or more seek points.
	Points []SeekPoint
}

// A SeekPoint specifies the byte offset and initial sample number of a given
// target frame.
//
// ref: https://www.xiph.org/flac/format.html#seekpoint
type SeekPoint struct {
	// Sample number of the first sample in the target frame, or
	// PlaceholderPoint for a placeholder point.
	SampleNum uint64
	// Offset in bytes from the first byte of the first frame header to the
	// first byte of the target frame's header.
	Offset uint64
	// Number of samples in the target frame.
	NSamples uint16
}

// parseSeekTable reads and parses the body of a SeekTable metadata block.
//
// Seek table format (pseudo code):
//
//	type METADATA_BLOCK_SEEKTABLE struct {
//	   // The number of seek points is derived from the header length,
//	   // divided by the size of a SeekPoint; which is 18 bytes.
//	   points []SeekPoint
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_seektable
func (block *Block) parseSeekTable() error {
	if block.Length%18 != 0 {
		return errors.Errorf("meta.Block.parseSeekTable: invalid block length; expected a multiple of 18, got %d", block.Length)
	}
	n := block.Length / 18
	if n < 1 {
		return errors.New("meta.Block.parseSeekTable: at least one seek point is required")
	}
	table := &SeekTable{Points: make([]SeekPoint, n)}
	block.Body = table
	var prev uint64
	for i := range table.Points {
		if err := binary.Read(block.lr, binary.BigEndian, &table.Points[i]); err != nil {
			return errors.WithStack(err)
		}
		// Seek points must be sorted in ascending order by sample number.
		// Placeholder points occupy the end of the table.
		sampleNum := table.Points[i].SampleNum
		if i > 0 && sampleNum != PlaceholderPoint && sampleNum <= prev {
			return errors.Errorf("meta.Block.parseSeekTable: invalid seek point order; sample number %d not greater than %d", sampleNum, prev)
		}
		prev = sampleNum
	}
	return nil
}
