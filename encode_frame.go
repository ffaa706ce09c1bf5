package flac

import (
	"encoding/binary"
	"io"

	"github.com/icza/bitio"
	"github.com/karlek/flac/frame"
	"github.com/karlek/flac/internal/hashutil/crc16"
	"github.com/karlek/flac/internal/hashutil/crc8"
	"github.com/karlek/flac/internal/utf8"
	"github.com/mewkiz/pkg/errutil"
)

// Write encodes the given interleaved audio samples as a single FLAC frame,
// writing to the output stream of the encoder. The number of samples must be
// evenly divisible by the number of channels of the stream.
func (enc *Encoder) Write(samples []int32) error {
	nchannels := int(enc.Info.NChannels)
	if len(samples) == 0 || len(samples)%nchannels != 0 {
		return errutil.Newf("invalid number of samples; expected an even multiple of %d channels, got %d samples", nchannels, len(samples))
	}
	nsamples := len(samples) / nchannels
	hdr := &frame.Header{
		// Frames of an encoded stream always use variable block size, as the
		// block size of the last frame is not known in advance.
		HasFixedBlockSize: false,
		BlockSize:         uint16(nsamples),
		SampleRate:        enc.Info.SampleRate,
		Channels:          frame.Channels(nchannels - 1),
		BitsPerSample:     enc.Info.BitsPerSample,
		Num:               enc.curNum,
	}
	enc.curNum += uint64(nsamples)
	enc.nsamples += uint64(nsamples)

	// Update the running MD5 hash with the unencoded audio samples.
	enc.hashSamples(samples)

	// Create a CRC-16 hash writer which adds the data from all write operations
	// of the frame to a running hash.
	h := crc16.NewIBM()
	hw := io.MultiWriter(h, enc.w)

	// Encode frame header.
	if err := encodeFrameHeader(hw, hdr); err != nil {
		return errutil.Err(err)
	}

	// Encode subframes, one per channel.
	bw := bitio.NewWriter(hw)
	for ch := 0; ch < nchannels; ch++ {
		subframe := &frame.Subframe{
			SubHeader: frame.SubHeader{
				Pred: frame.PredVerbatim,
			},
			Samples:  make([]int32, nsamples),
			NSamples: nsamples,
		}
		for i := range subframe.Samples {
			subframe.Samples[i] = samples[i*nchannels+ch]
		}
		analyzeSubframe(subframe, uint(hdr.BitsPerSample))
		if err := encodeSubframe(bw, hdr, subframe); err != nil {
			return errutil.Err(err)
		}
	}

	// Zero-padding to byte alignment.
	if _, err := bw.Align(); err != nil {
		return errutil.Err(err)
	}

	// CRC-16 (polynomial = x^16 + x^15 + x^2 + x^0, initialized with 0) of
	// everything before the crc, back to and including the frame header sync
	// code.
	return binary.Write(enc.w, binary.BigEndian, h.Sum16())
}

// hashSamples updates the running MD5 hash of the encoder with the given
// interleaved audio samples, stored in little-endian byte order using the
// smallest whole number of bytes capable of holding the sample size of the
// stream.
func (enc *Encoder) hashSamples(samples []int32) {
	var buf [4]byte
	nbytes := (int(enc.Info.BitsPerSample) + 7) / 8
	for _, sample := range samples {
		for i := 0; i < nbytes; i++ {
			buf[i] = byte(sample >> uint(8*i))
		}
		enc.md5sum.Write(buf[:nbytes])
	}
}

// encodeFrameHeader encodes the given frame header, writing to w.
func encodeFrameHeader(w io.Writer, hdr *frame.Header) error {
	// Create a CRC-8 hash writer which adds the data from all write operations
	// of the frame header to a running hash.
	h := crc8.NewATM()
	hw := io.MultiWriter(h, w)
	bw := bitio.NewWriter(hw)

	// 14 bits: sync code, 11111111111110.
	if err := bw.WriteBits(0x3FFE, 14); err != nil {
		return errutil.Err(err)
	}

	// 1 bit: reserved.
	if err := bw.WriteBits(0x0, 1); err != nil {
		return errutil.Err(err)
	}

	// 1 bit: HasFixedBlockSize.
	if err := bw.WriteBool(!hdr.HasFixedBlockSize); err != nil {
		return errutil.Err(err)
	}

	// 4 bits: BlockSize. The following block sizes are encoded in-line, and any
	// other block size is stored after the frame header as either an 8-bit or a
	// 16-bit value of (block size)-1.
	//
	//    0001:      192 samples.
	//    0010-0101: 576 * 2^(n-2) samples.
	//    1000-1111: 256 * 2^(n-8) samples.
	var (
		bits uint64
		// Number of bits used to store the block size after the frame header.
		nblockSizeSuffixBits uint8
	)
	switch hdr.BlockSize {
	case 192:
		bits = 0x1
	case 576, 1152, 2304, 4608:
		bits = 0x2
		for n := hdr.BlockSize / 576; n > 1; n >>= 1 {
			bits++
		}
	case 256, 512, 1024, 2048, 4096, 8192, 16384, 32768:
		bits = 0x8
		for n := hdr.BlockSize / 256; n > 1; n >>= 1 {
			bits++
		}
	default:
		if hdr.BlockSize <= 256 {
			// 0110: 8-bit (block size)-1 stored after the frame header.
			bits = 0x6
			nblockSizeSuffixBits = 8
		} else {
			// 0111: 16-bit (block size)-1 stored after the frame header.
			bits = 0x7
			nblockSizeSuffixBits = 16
		}
	}
	if err := bw.WriteBits(bits, 4); err != nil {
		return errutil.Err(err)
	}

	// 4 bits: SampleRate. Common sample rates use a dedicated bit pattern, a
	// zero sample rate defers to the StreamInfo metadata block, and any other
	// sample rate is stored after the frame header as a 16-bit value in either
	// Hz or tens of Hz.
	var (
		// Sample rate value stored after the frame header.
		sampleRateSuffix uint64
		// Number of bits used to store the sample rate after the frame header.
		nsampleRateSuffixBits uint8
	)
	switch hdr.SampleRate {
	case 0:
		bits = 0x0
	case 88200:
		bits = 0x1
	case 176400:
		bits = 0x2
	case 192000:
		bits = 0x3
	case 8000:
		bits = 0x4
	case 16000:
		bits = 0x5
	case 22050:
		bits = 0x6
	case 24000:
		bits = 0x7
	case 32000:
		bits = 0x8
	case 44100:
		bits = 0x9
	case 48000:
		bits = 0xA
	case 96000:
		bits = 0xB
	default:
		switch {
		case hdr.SampleRate <= 65535:
			// 1101: 16-bit sample rate in Hz stored after the frame header.
			bits = 0xD
			sampleRateSuffix = uint64(hdr.SampleRate)
			nsampleRateSuffixBits = 16
		case hdr.SampleRate <= 655350 && hdr.SampleRate%10 == 0:
			// 1110: 16-bit sample rate in tens of Hz stored after the frame
			// header.
			bits = 0xE
			sampleRateSuffix = uint64(hdr.SampleRate / 10)
			nsampleRateSuffixBits = 16
		default:
			return errutil.Newf("unable to encode sample rate %v Hz", hdr.SampleRate)
		}
	}
	if err := bw.WriteBits(bits, 4); err != nil {
		return errutil.Err(err)
	}

	// 4 bits: Channels.
	switch hdr.Channels {
	case frame.ChannelsMono, frame.ChannelsLR, frame.ChannelsLRC, frame.ChannelsLRLsRs, frame.ChannelsLRCLsRs, frame.ChannelsLRCLfeLsRs, frame.ChannelsLRCLfeCsSlSr, frame.ChannelsLRCLfeLsRsSlSr:
		// 0000-0111: (number of independent channels)-1.
		bits = uint64(hdr.Channels.Count() - 1)
	case frame.ChannelsLeftSide:
		// 1000: left/side stereo.
		bits = 0x8
	case frame.ChannelsSideRight:
		// 1001: side/right stereo.
		bits = 0x9
	case frame.ChannelsMidSide:
		// 1010: mid/side stereo.
		bits = 0xA
	default:
		return errutil.Newf("support for channel assignment %v not yet implemented", hdr.Channels)
	}
	if err := bw.WriteBits(bits, 4); err != nil {
		return errutil.Err(err)
	}

	// 3 bits: BitsPerSample. A zero sample size defers to the StreamInfo
	// metadata block.
	switch hdr.BitsPerSample {
	case 0:
		bits = 0x0
	case 8:
		bits = 0x1
	case 12:
		bits = 0x2
	case 16:
		bits = 0x4
	case 20:
		bits = 0x5
	case 24:
		bits = 0x6
	default:
		return errutil.Newf("support for sample size %v not yet implemented", hdr.BitsPerSample)
	}
	if err := bw.WriteBits(bits, 3); err != nil {
		return errutil.Err(err)
	}

	// 1 bit: reserved.
	if err := bw.WriteBits(0x0, 1); err != nil {
		return errutil.Err(err)
	}

	// 8-56 bits: UTF-8 coded frame number if the block size is fixed, and the
	// UTF-8 coded sample number of the first sample in the frame otherwise.
	if err := utf8.Encode(bw, hdr.Num); err != nil {
		return errutil.Err(err)
	}

	// 8 or 16 bits: (block size)-1, for uncommon block sizes.
	if nblockSizeSuffixBits > 0 {
		if err := bw.WriteBits(uint64(hdr.BlockSize-1), nblockSizeSuffixBits); err != nil {
			return errutil.Err(err)
		}
	}

	// 16 bits: sample rate, for uncommon sample rates.
	if nsampleRateSuffixBits > 0 {
		if err := bw.WriteBits(sampleRateSuffix, nsampleRateSuffixBits); err != nil {
			return errutil.Err(err)
		}
	}

	// Flush pending writes of the frame header.
	if _, err := bw.Align(); err != nil {
		return errutil.Err(err)
	}

	// 8 bits: CRC-8 (polynomial = x^8 + x^2 + x^1 + x^0, initialized with 0) of
	// everything before the crc, back to and including the sync code. The crc
	// byte itself is written past the CRC-8 hash writer, as it is covered by
	// the CRC-16 of the frame but not by its own hash.
	var buf [1]byte
	buf[0] = h.Sum8()
	if _, err := w.Write(buf[:]); err != nil {
		return errutil.Err(err)
	}
	return nil
}
