// Package frame implements access to FLAC audio frames.
//
// A brief introduction of the FLAC audio format [1] follows. FLAC encoders
// divide the audio stream into blocks through a process called blocking. A
// block contains the unencoded audio samples from all channels during a short
// period of time. Each audio block is divided into subblocks, one per channel.
//
// There is often a correlation between the left and right channel of stereo
// audio, which can be used to improve the compression ratio through a process
// called inter-channel decorrelation. In the case of stereo audio, a block may
// be stored using one of the following four different channel assignments:
//
//	left/right:  The channels are stored uncorrelated.
//	left/side:   The left channel and the side channel (difference between the
//	             left and right channel) are stored.
//	side/right:  The side channel and the right channel are stored.
//	mid/side:    The mid channel (average of the left and right channel) and
//	             the side channel are stored.
//
// The blocks are encoded using a variety of prediction methods and stored in
// frames. Blocks and subblocks contain unencoded audio samples, while frames
// and subframes contain encoded audio samples.
//
// [1]: https://www.xiph.org/flac/format.html
package frame

import (
	"encoding/binary"
	"hash"
	"io"

	"github.com/karlek/flac/internal/bits"
	"github.com/karlek/flac/internal/hashutil"
	"github.com/karlek/flac/internal/hashutil/crc16"
	"github.com/pkg/errors"
)

// A Frame contains the header and subframes of an audio frame. It holds the
// encoded samples from a block (a part) of the audio stream. Each subframe
// holds the encoded samples from a subblock (a part) of a channel.
//
// ref: https://www.xiph.org/flac/format.html#frame
type Frame struct {
	// Audio frame header. The header fields with a 0 "unknown" encoding are
	// resolved against the stream configuration during Parse, so after a
	// successful Parse the SampleRate and BitsPerSample fields always hold the
	// effective values.
	Header
	// One subframe per channel, decoded into 32-bit containers. The samples of
	// a subframe are left-shifted by 32 minus the frame bits-per-sample, so
	// samples of different bit depths share a common scale.
	Subframes []*Subframe
	// Stream defaults used to resolve the SampleRate and BitsPerSample header
	// fields when the frame header leaves them unspecified.
	cfg StreamConfig
	// CRC-16 hash sum of the frame, excluding the 16-bit footer.
	crc hashutil.Hash16
	// Underlying io.Reader; used to read the frame footer, which is excluded
	// from the CRC-16 computation.
	raw io.Reader
	// Reader tee which updates the running CRC-16 on every read.
	hr io.Reader
}

// A StreamConfig holds the stream-level default properties of the audio
// frames, as recorded by the StreamInfo metadata block.
type StreamConfig struct {
	// Default sample rate in Hz; 0 if unknown.
	SampleRate uint32
	// Default sample size in bits-per-sample; 0 if unknown.
	BitsPerSample uint8
}

// New creates a new Frame for accessing the audio samples of r. It reads and
// parses an audio frame header, synchronizing to the frame boundary if needed.
// It returns io.EOF to signal a graceful end of FLAC stream.
//
// Call Frame.Parse to parse the audio samples of its subframes.
func New(r io.Reader, cfg StreamConfig) (frame *Frame, err error) {
	crc := crc16.NewIBM()
	frame = &Frame{cfg: cfg, crc: crc, raw: r, hr: io.TeeReader(r, crc)}
	if err := frame.parseHeader(); err != nil {
		return nil, err
	}
	return frame, nil
}

// Parse reads and parses the header and subframes of an audio frame, verifying
// its CRC-16 checksum. It returns io.EOF to signal a graceful end of FLAC
// stream. The samples written to md5sum are hashed at the native bit depth of
// the stream; pass nil to skip stream validation.
func Parse(r io.Reader, cfg StreamConfig, md5sum hash.Hash) (frame *Frame, err error) {
	frame, err = New(r, cfg)
	if err != nil {
		return nil, err
	}
	if err := frame.Parse(md5sum); err != nil {
		return nil, err
	}
	return frame, nil
}

// Parse reads and parses the subframes of the audio frame, verifying its
// CRC-16 checksum. The samples written to md5sum are hashed at the native bit
// depth of the stream; pass nil to skip stream validation.
func (frame *Frame) Parse(md5sum hash.Hash) error {
	// Resolve the sample rate and sample size against the stream defaults.
	if frame.BitsPerSample == 0 {
		if frame.cfg.BitsPerSample == 0 {
			return errors.New("frame.Frame.Parse: sample size not present in frame header or stream configuration")
		}
		frame.BitsPerSample = frame.cfg.BitsPerSample
	}
	if frame.SampleRate == 0 {
		if frame.cfg.SampleRate == 0 {
			return errors.New("frame.Frame.Parse: sample rate not present in frame header or stream configuration")
		}
		frame.SampleRate = frame.cfg.SampleRate
	}

	// Parse subframes.
	br := bits.NewReader(frame.hr)
	frame.Subframes = make([]*Subframe, 0, frame.Channels.Count())
	for channel := 0; channel < frame.Channels.Count(); channel++ {
		// The side channel of an inter-channel decorrelated subframe holds
		// differences between samples, which require one extra bit to store.
		bps := uint(frame.BitsPerSample)
		switch frame.Channels {
		case ChannelsLeftSide, ChannelsMidSide:
			if channel == 1 {
				bps++
			}
		case ChannelsSideRight:
			if channel == 0 {
				bps++
			}
		}
		subframe, err := frame.parseSubframe(br, bps)
		if err != nil {
			return err
		}
		frame.Subframes = append(frame.Subframes, subframe)
	}

	// The subframe bit stream is padded with zero bits up to the next byte
	// boundary; the padding bits have already been consumed and added to the
	// running CRC-16 by the byte oriented bit reader.

	// Reconstruct the left/right channels of inter-channel decorrelated
	// subframes.
	frame.decorrelate()

	// Feed the stream validator with the decoded samples at the native bit
	// depth, before normalization to 32-bit containers.
	if md5sum != nil {
		frame.hash(md5sum)
	}

	// Left-shift each sample to a 32-bit container, so samples of different bit
	// depths share a common scale.
	shift := 32 - uint(frame.BitsPerSample)
	for _, subframe := range frame.Subframes {
		for i := range subframe.Samples {
			subframe.Samples[i] <<= shift
		}
	}

	// 16 bits: CRC-16 checksum of the entire frame, excluding the footer
	// itself.
	var want uint16
	if err := binary.Read(frame.raw, binary.BigEndian, &want); err != nil {
		return unexpected(err)
	}
	got := frame.crc.Sum16()
	if want != got {
		return errors.Errorf("frame.Frame.Parse: CRC-16 checksum mismatch; expected 0x%04X, got 0x%04X", want, got)
	}

	return nil
}

// decorrelate reconstructs the left and right channels of an inter-channel
// decorrelated frame, in place.
//
// ref: https://www.xiph.org/flac/format.html#interchannel
func (frame *Frame) decorrelate() {
	switch frame.Channels {
	case ChannelsLeftSide:
		// channel 0 holds the left channel, channel 1 the side channel, storing
		// the difference between the left and right samples.
		left := frame.Subframes[0].Samples
		side := frame.Subframes[1].Samples
		for i := range side {
			side[i] = left[i] - side[i]
		}
	case ChannelsSideRight:
		// channel 0 holds the side channel, channel 1 the right channel.
		side := frame.Subframes[0].Samples
		right := frame.Subframes[1].Samples
		for i := range side {
			side[i] = right[i] + side[i]
		}
	case ChannelsMidSide:
		// channel 0 holds the mid channel, storing the average of the left and
		// right samples, channel 1 the side channel. The mid channel drops the
		// least significant bit of the sum; it is recovered from the side
		// channel, whose parity matches that of the sum.
		mid := frame.Subframes[0].Samples
		side := frame.Subframes[1].Samples
		for i := range mid {
			m := mid[i]<<1 | side[i]&1
			mid[i] = (m + side[i]) >> 1
			side[i] = (m - side[i]) >> 1
		}
	}
}

// hash adds the decoded audio samples of the frame to the running hash. The
// samples are interleaved and stored in little-endian byte order at the native
// byte size of the frame bits-per-sample, matching the sample layout hashed by
// the reference encoder.
func (frame *Frame) hash(md5sum hash.Hash) {
	var buf [4]byte
	nbytes := (int(frame.BitsPerSample) + 7) / 8
	for i := 0; i < int(frame.BlockSize); i++ {
		for _, subframe := range frame.Subframes {
			sample := subframe.Samples[i]
			for j := 0; j < nbytes; j++ {
				buf[j] = byte(sample >> uint(8*j))
			}
			md5sum.Write(buf[:nbytes])
		}
	}
}

// unexpected returns io.ErrUnexpectedEOF if the given error is io.EOF, and the
// error otherwise. The end of a frame body is never a graceful end of stream.
func unexpected(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return errors.WithStack(err)
}
