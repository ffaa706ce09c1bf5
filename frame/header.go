package frame

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/karlek/flac/internal/hashutil/crc8"
	"github.com/karlek/flac/internal/utf8"
	"github.com/pkg/errors"
)

// A Header contains the basic properties of an audio frame, such as its sample
// rate and channel count. To facilitate random access decoding, each frame
// header starts with a sync code.
type Header struct {
	// Specifies if the block size is fixed or variable.
	HasFixedBlockSize bool
	// Block size in inter-channel samples, i.e. the number of audio samples in
	// each subframe.
	BlockSize uint16
	// Sample rate in Hz; a 0 value implies unknown, get sample rate from
	// StreamInfo.
	SampleRate uint32
	// Specifies the number of channels (subframes) that exist in the frame,
	// their order and possible inter-channel decorrelation.
	Channels Channels
	// Sample size in bits-per-sample; a 0 value implies unknown, get sample
	// size from StreamInfo.
	BitsPerSample uint8
	// Specifies the frame number if the block size is fixed, and the first
	// sample number in the frame otherwise. When using fixed block size, the
	// first sample number in the frame can be derived by multiplying the frame
	// number with the block size (in samples).
	Num uint64
}

// SampleNumber returns the first sample number contained within the frame.
func (hdr *Header) SampleNumber() uint64 {
	if hdr.HasFixedBlockSize {
		return hdr.Num * uint64(hdr.BlockSize)
	}
	return hdr.Num
}

// Channels specifies the number of channels (subframes) that exist in a frame,
// their order and possible inter-channel decorrelation.
type Channels uint8

// Channel assignments. The following abbreviations are used:
//
//	C:   center (directly in front)
//	R:   right (standard stereo)
//	Sr:  side right (directly to the right)
//	Rs:  right surround (back right)
//	Cs:  center surround (rear center)
//	Ls:  left surround (back left)
//	Sl:  side left (directly to the left)
//	L:   left (standard stereo)
//	Lfe: low-frequency effect (placed according to room acoustics)
//
// The first 8 channel constants follow the SMPTE/ITU-R channel order:
//
//	L R C Lfe Ls Rs Sl Sr
const (
	ChannelsMono           Channels = iota // 1 channel: mono.
	ChannelsLR                             // 2 channels: left, right.
	ChannelsLRC                            // 3 channels: left, right, center.
	ChannelsLRLsRs                         // 4 channels: left, right, left surround, right surround.
	ChannelsLRCLsRs                        // 5 channels: left, right, center, left surround, right surround.
	ChannelsLRCLfeLsRs                     // 6 channels: left, right, center, LFE, left surround, right surround.
	ChannelsLRCLfeCsSlSr                   // 7 channels: left, right, center, LFE, center surround, side left, side right.
	ChannelsLRCLfeLsRsSlSr                 // 8 channels: left, right, center, LFE, left surround, right surround, side left, side right.
	ChannelsLeftSide                       // 2 channels: left, side; using inter-channel decorrelation.
	ChannelsSideRight                      // 2 channels: side, right; using inter-channel decorrelation.
	ChannelsMidSide                        // 2 channels: mid, side; using inter-channel decorrelation.
)

// nChannels specifies the number of channels used by each channel assignment.
var nChannels = [...]int{
	ChannelsMono:           1,
	ChannelsLR:             2,
	ChannelsLRC:            3,
	ChannelsLRLsRs:         4,
	ChannelsLRCLsRs:        5,
	ChannelsLRCLfeLsRs:     6,
	ChannelsLRCLfeCsSlSr:   7,
	ChannelsLRCLfeLsRsSlSr: 8,
	ChannelsLeftSide:       2,
	ChannelsSideRight:      2,
	ChannelsMidSide:        2,
}

// Count returns the number of channels (subframes) used by the provided
// channel assignment.
func (channels Channels) Count() int {
	return nChannels[channels]
}

func (channels Channels) String() string {
	switch channels {
	case ChannelsMono:
		return "mono"
	case ChannelsLR:
		return "left, right"
	case ChannelsLRC:
		return "left, right, center"
	case ChannelsLRLsRs:
		return "left, right, left surround, right surround"
	case ChannelsLRCLsRs:
		return "left, right, center, left surround, right surround"
	case ChannelsLRCLfeLsRs:
		return "left, right, center, LFE, left surround, right surround"
	case ChannelsLRCLfeCsSlSr:
		return "left, right, center, LFE, center surround, side left, side right"
	case ChannelsLRCLfeLsRsSlSr:
		return "left, right, center, LFE, left surround, right surround, side left, side right"
	case ChannelsLeftSide:
		return "left, side"
	case ChannelsSideRight:
		return "side, right"
	case ChannelsMidSide:
		return "mid, side"
	}
	return "<unknown channel assignment>"
}

// Frame header sync code, guaranteed not to occur in valid subframe data.
//
// Bit representation: 11111111111110
const syncCode = 0x3FFE

// parseHeader reads and parses the header of an audio frame.
//
// Frame header format (pseudo code):
//
//	type FRAME_HEADER struct {
//	   sync_code            uint14
//	   _                    uint1
//	   has_fixed_block_size bool
//	   block_size_spec      uint4
//	   sample_rate_spec     uint4
//	   channels_spec        uint4
//	   sample_size_spec     uint3
//	   _                    uint1
//	   // "UTF-8" coded sample number or frame number, from 1 to 7 bytes.
//	   num                  uint64
//	   switch block_size_spec {
//	   case 0110:
//	      block_size        uint8  // block_size - 1
//	   case 0111:
//	      block_size        uint16 // block_size - 1
//	   }
//	   switch sample_rate_spec {
//	   case 1100:
//	      sample_rate       uint8  // sample rate in Hz.
//	   case 1101:
//	      sample_rate       uint16 // sample rate in Hz.
//	   case 1110:
//	      sample_rate       uint16 // sample rate in daHz (tens of Hz).
//	   }
//	   crc8                 uint8
//	}
//
// ref: https://www.xiph.org/flac/format.html#frame_header
func (frame *Frame) parseHeader() error {
	// Create a new CRC-8 hash reader which adds the data from all read
	// operations to a running hash.
	h := crc8.NewATM()
	hr := io.TeeReader(frame.hr, h)

	// Synchronize to the frame boundary. Frames are byte aligned, so the scan
	// advances two bytes at a time. Both CRC accumulators are reset on every
	// failed attempt, so that only the bytes of the synced frame contribute to
	// the running checksums.
	var window uint16
	for {
		frame.crc.Reset()
		h.Reset()
		if err := binary.Read(hr, binary.BigEndian, &window); err != nil {
			return err
		}
		// The 14-bit sync code occupies the high bits of the 16-bit window; the
		// low two bits hold a reserved bit and the blocking strategy.
		if window&0xFFFC == syncCode<<2 {
			break
		}
	}

	// 1 bit: HasFixedBlockSize.
	//    0: fixed block size stream; the coded number is a frame number.
	//    1: variable block size stream; the coded number is a sample number.
	frame.HasFixedBlockSize = window&0x1 == 0

	// Read the 16-bit descriptor word holding the block size, sample rate,
	// channel assignment and sample size specifications.
	var desc uint16
	if err := binary.Read(hr, binary.BigEndian, &desc); err != nil {
		return err
	}

	// 4 bits: channel assignment.
	//    0000-0111: (number of independent channels)-1.
	//    1000: left/side stereo.
	//    1001: side/right stereo.
	//    1010: mid/side stereo.
	//    1011-1111: reserved.
	n := desc >> 4 & 0xF
	switch {
	case n <= 10:
		frame.Channels = Channels(n)
	default:
		return errors.Errorf("frame.Frame.parseHeader: reserved channel assignment bit pattern (%04b)", n)
	}

	// 3 bits: sample size.
	//    000: get from StreamInfo metadata block.
	//    001: 8 bits-per-sample.
	//    010: 12 bits-per-sample.
	//    011: reserved.
	//    100: 16 bits-per-sample.
	//    101: 20 bits-per-sample.
	//    110: 24 bits-per-sample.
	//    111: reserved.
	n = desc >> 1 & 0x7
	switch n {
	case 0x0:
		// 000: get from StreamInfo metadata block.
		frame.BitsPerSample = 0
	case 0x1:
		frame.BitsPerSample = 8
	case 0x2:
		frame.BitsPerSample = 12
	case 0x4:
		frame.BitsPerSample = 16
	case 0x5:
		frame.BitsPerSample = 20
	case 0x6:
		frame.BitsPerSample = 24
	default:
		return errors.Errorf("frame.Frame.parseHeader: reserved sample size bit pattern (%03b)", n)
	}

	// 8-56 bits: sample number or frame number, "UTF-8" coded.
	num, err := utf8.Decode(hr)
	if err != nil {
		return err
	}
	if frame.HasFixedBlockSize && num > math.MaxInt32 {
		// The frame number of a fixed block size stream is limited to 31 bits.
		return errors.Errorf("frame.Frame.parseHeader: frame number (%d) exceeds 31 bits", num)
	}
	frame.Num = num

	// 4 bits: block size.
	//    0000: reserved.
	//    0001: 192 samples.
	//    0010-0101: 576 * 2^(n-2) samples.
	//    0110: get 8 bit (block size)-1 from the end of the header.
	//    0111: get 16 bit (block size)-1 from the end of the header.
	//    1000-1111: 256 * 2^(n-8) samples.
	n = desc >> 12 & 0xF
	switch {
	case n == 0x0:
		return errors.New("frame.Frame.parseHeader: reserved block size bit pattern")
	case n == 0x1:
		frame.BlockSize = 192
	case n >= 0x2 && n <= 0x5:
		frame.BlockSize = 576 << (n - 2)
	case n == 0x6:
		var x uint8
		if err := binary.Read(hr, binary.BigEndian, &x); err != nil {
			return err
		}
		frame.BlockSize = uint16(x) + 1
	case n == 0x7:
		var x uint16
		if err := binary.Read(hr, binary.BigEndian, &x); err != nil {
			return err
		}
		frame.BlockSize = x + 1
	default:
		// 1000-1111
		frame.BlockSize = 256 << (n - 8)
	}

	// 4 bits: sample rate.
	//    0000: get from StreamInfo metadata block.
	//    0001-1011: fixed table of common rates.
	//    1100: get 8 bit sample rate (in Hz) from the end of the header.
	//    1101: get 16 bit sample rate (in Hz) from the end of the header.
	//    1110: get 16 bit sample rate (in daHz) from the end of the header.
	//    1111: invalid, to prevent sync-fooling string of 1s.
	n = desc >> 8 & 0xF
	switch n {
	case 0x0:
		// 0000: get from StreamInfo metadata block.
		frame.SampleRate = 0
	case 0x1:
		frame.SampleRate = 88200
	case 0x2:
		frame.SampleRate = 176400
	case 0x3:
		frame.SampleRate = 192000
	case 0x4:
		frame.SampleRate = 8000
	case 0x5:
		frame.SampleRate = 16000
	case 0x6:
		frame.SampleRate = 22050
	case 0x7:
		frame.SampleRate = 24000
	case 0x8:
		frame.SampleRate = 32000
	case 0x9:
		frame.SampleRate = 44100
	case 0xA:
		frame.SampleRate = 48000
	case 0xB:
		frame.SampleRate = 96000
	case 0xC:
		var x uint8
		if err := binary.Read(hr, binary.BigEndian, &x); err != nil {
			return err
		}
		frame.SampleRate = uint32(x)
	case 0xD:
		var x uint16
		if err := binary.Read(hr, binary.BigEndian, &x); err != nil {
			return err
		}
		frame.SampleRate = uint32(x)
	case 0xE:
		var x uint16
		if err := binary.Read(hr, binary.BigEndian, &x); err != nil {
			return err
		}
		frame.SampleRate = uint32(x) * 10
	default:
		return errors.Errorf("frame.Frame.parseHeader: invalid sample rate bit pattern (%04b)", n)
	}
	if n >= 0xC && !validSampleRate(frame.SampleRate) {
		return errors.Errorf("frame.Frame.parseHeader: sample rate (%d Hz) out of range", frame.SampleRate)
	}

	// 8 bits: CRC-8 checksum of the frame header, including the sync code. The
	// checksum byte itself is excluded from the CRC-8 computation but part of
	// the frame CRC-16.
	var want uint8
	if err := binary.Read(frame.hr, binary.BigEndian, &want); err != nil {
		return err
	}
	got := h.Sum8()
	if want != got {
		return errors.Errorf("frame.Frame.parseHeader: CRC-8 checksum mismatch; expected 0x%02X, got 0x%02X", want, got)
	}

	return nil
}

// validSampleRate reports whether the given explicitly coded sample rate lies
// within the valid range of the frame header.
func validSampleRate(rate uint32) bool {
	return 1 <= rate && rate <= 655350
}
