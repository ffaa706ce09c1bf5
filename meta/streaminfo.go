package meta

import (
	"io"

	"github.com/eaburns/bit"
	"github.com/pkg/errors"
)

// StreamInfo contains the basic properties of a FLAC audio stream, such as its
// sample rate and channel count. It is the only mandatory metadata block and
// must be present as the first metadata block of a FLAC stream.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
type StreamInfo struct {
	// Minimum block size (in samples) used in the stream; between 16 and 65535
	// samples.
	BlockSizeMin uint16
	// Maximum block size (in samples) used in the stream; between 16 and 65535
	// samples. A fixed-blocksize stream has the same minimum and maximum block
	// size.
	BlockSizeMax uint16
	// Minimum frame size in bytes; a 0 value implies unknown.
	FrameSizeMin uint32
	// Maximum frame size in bytes; a 0 value implies unknown.
	FrameSizeMax uint32
	// Sample rate in Hz; between 1 and 655350 Hz.
	SampleRate uint32
	// Number of channels; between 1 and 8 channels.
	NChannels uint8
	// Sample size in bits-per-sample; between 4 and 32 bits.
	BitsPerSample uint8
	// Total number of inter-channel samples in the stream. One inter-channel
	// sample is one sample for each channel. A 0 value implies unknown.
	NSamples uint64
	// MD5 checksum of the unencoded audio data. All zero if unset.
	MD5sum [16]byte
}

// parseStreamInfo reads and parses the body of a StreamInfo metadata block.
//
// StreamInfo format (pseudo code):
//
//	type METADATA_BLOCK_STREAMINFO struct {
//	   block_size_min  uint16
//	   block_size_max  uint16
//	   frame_size_min  uint24
//	   frame_size_max  uint24
//	   sample_rate     uint20
//	   nchannels       uint3 // (number of channels)-1.
//	   bits_per_sample uint5 // (bits-per-sample)-1.
//	   nsamples        uint36
//	   md5sum          [16]byte
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_streaminfo
func (block *Block) parseStreamInfo() error {
	si := new(StreamInfo)
	block.Body = si

	br := bit.NewReader(block.lr)
	fields, err := br.ReadFields(16, 16, 24, 24, 20, 3, 5, 36)
	if err != nil {
		return errors.WithStack(err)
	}

	// 16 bits: BlockSizeMin.
	si.BlockSizeMin = uint16(fields[0])
	if si.BlockSizeMin < 16 {
		return errors.Errorf("meta.Block.parseStreamInfo: invalid minimum block size; expected >= 16, got %d", si.BlockSizeMin)
	}

	// 16 bits: BlockSizeMax.
	si.BlockSizeMax = uint16(fields[1])
	if si.BlockSizeMax < 16 {
		return errors.Errorf("meta.Block.parseStreamInfo: invalid maximum block size; expected >= 16, got %d", si.BlockSizeMax)
	}

	// 24 bits: FrameSizeMin.
	si.FrameSizeMin = uint32(fields[2])

	// 24 bits: FrameSizeMax.
	si.FrameSizeMax = uint32(fields[3])

	// 20 bits: SampleRate.
	si.SampleRate = uint32(fields[4])
	if si.SampleRate == 0 {
		return errors.New("meta.Block.parseStreamInfo: invalid sample rate 0")
	}

	// 3 bits: NChannels; stored as (number of channels) - 1.
	si.NChannels = uint8(fields[5]) + 1

	// 5 bits: BitsPerSample; stored as (bits-per-sample) - 1.
	si.BitsPerSample = uint8(fields[6]) + 1

	// 36 bits: NSamples.
	si.NSamples = fields[7]

	// 16 bytes: MD5sum.
	if _, err := io.ReadFull(block.lr, si.MD5sum[:]); err != nil {
		return errors.WithStack(err)
	}

	return nil
}
