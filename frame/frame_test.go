package frame_test

import (
	"bytes"
	"crypto/md5"
	"testing"

	"github.com/icza/bitio"
	"github.com/karlek/flac/frame"
	"github.com/karlek/flac/internal/hashutil/crc16"
	"github.com/karlek/flac/internal/hashutil/crc8"
	"github.com/karlek/flac/internal/utf8"
)

// buildHeader returns an encoded frame header. The blocking bit selects the
// blocking strategy, desc holds the 16-bit descriptor word with the block
// size, sample rate, channel assignment and sample size fields, num the coded
// frame or sample number, and suffix any explicit block size and sample rate
// fields. The trailing CRC-8 is computed over the header bytes.
func buildHeader(blocking byte, desc uint16, num []byte, suffix []byte) []byte {
	hdr := []byte{0xFF, 0xF8 | blocking}
	hdr = append(hdr, byte(desc>>8), byte(desc))
	hdr = append(hdr, num...)
	hdr = append(hdr, suffix...)
	return append(hdr, crc8.ChecksumATM(hdr))
}

// utf8Num returns the "UTF-8" coded representation of x.
func utf8Num(t *testing.T, x uint64) []byte {
	buf := new(bytes.Buffer)
	bw := bitio.NewWriter(buf)
	if err := utf8.Encode(bw, x); err != nil {
		t.Fatalf("unable to encode number %d; %v", x, err)
	}
	if err := bw.Close(); err != nil {
		t.Fatalf("unable to encode number %d; %v", x, err)
	}
	return buf.Bytes()
}

// desc packs the 16-bit descriptor word of a frame header.
func desc(blockSize, sampleRate, channels, sampleSize uint16) uint16 {
	return blockSize<<12 | sampleRate<<8 | channels<<4 | sampleSize<<1
}

func TestParseHeader(t *testing.T) {
	golden := []struct {
		blocking byte
		desc     uint16
		num      []byte
		suffix   []byte
		want     frame.Header
		err      bool
	}{
		// Block size code table.
		{desc: desc(0x1, 0x9, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x2, 0x9, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 576, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x5, 0x9, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 4608, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x8, 0x9, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 256, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x9, 0x9, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 512, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0xF, 0x9, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 32768, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x6, 0x9, 0x0, 0x4), suffix: []byte{0x2A}, want: frame.Header{HasFixedBlockSize: true, BlockSize: 43, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x7, 0x9, 0x0, 0x4), suffix: []byte{0x12, 0x34}, want: frame.Header{HasFixedBlockSize: true, BlockSize: 4661, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x0, 0x9, 0x0, 0x4), err: true}, // reserved block size.

		// Sample rate code table.
		{desc: desc(0x1, 0x0, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 0, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0x1, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 88200, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0xA, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 48000, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0xB, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 96000, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0xC, 0x0, 0x4), suffix: []byte{0xFA}, want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 250, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0xD, 0x0, 0x4), suffix: []byte{0xAC, 0x44}, want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0xE, 0x0, 0x4), suffix: []byte{0x11, 0x3A}, want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0xF, 0x0, 0x4), err: true}, // invalid sample rate.
		{desc: desc(0x1, 0xD, 0x0, 0x4), suffix: []byte{0x00, 0x00}, err: true}, // out of range.

		// Sample size code table.
		{desc: desc(0x1, 0x9, 0x0, 0x0), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 0}},
		{desc: desc(0x1, 0x9, 0x0, 0x1), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 8}},
		{desc: desc(0x1, 0x9, 0x0, 0x2), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 12}},
		{desc: desc(0x1, 0x9, 0x0, 0x5), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 20}},
		{desc: desc(0x1, 0x9, 0x0, 0x6), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 24}},
		{desc: desc(0x1, 0x9, 0x0, 0x3), err: true}, // reserved sample size.
		{desc: desc(0x1, 0x9, 0x0, 0x7), err: true}, // reserved sample size.

		// Channel assignments.
		{desc: desc(0x1, 0x9, 0x7, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsLRCLfeLsRsSlSr, BitsPerSample: 16}},
		{desc: desc(0x1, 0x9, 0x8, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsLeftSide, BitsPerSample: 16}},
		{desc: desc(0x1, 0x9, 0xA, 0x4), want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMidSide, BitsPerSample: 16}},
		{desc: desc(0x1, 0x9, 0xB, 0x4), err: true}, // reserved channel assignment.

		// Blocking strategy and coded numbers.
		{blocking: 1, desc: desc(0x1, 0x9, 0x0, 0x4), want: frame.Header{HasFixedBlockSize: false, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16}},
		{desc: desc(0x1, 0x9, 0x0, 0x4), num: []byte{0x7F}, want: frame.Header{HasFixedBlockSize: true, BlockSize: 192, SampleRate: 44100, Channels: frame.ChannelsMono, BitsPerSample: 16, Num: 127}},
	}
	for i, g := range golden {
		num := g.num
		if num == nil {
			num = []byte{0x00}
		}
		buf := buildHeader(g.blocking, g.desc, num, g.suffix)
		f, err := frame.New(bytes.NewReader(buf), frame.StreamConfig{})
		if g.err {
			if err == nil {
				t.Errorf("i=%d: expected error when parsing frame header, got nil", i)
			}
			continue
		}
		if err != nil {
			t.Errorf("i=%d: unable to parse frame header; %v", i, err)
			continue
		}
		if f.Header != g.want {
			t.Errorf("i=%d: frame header mismatch; expected %+v, got %+v", i, g.want, f.Header)
		}
	}
}

func TestParseHeaderFrameNumberRange(t *testing.T) {
	// A frame number of a fixed block size stream is limited to 31 bits; the
	// same value is valid as a sample number of a variable block size stream.
	num := utf8Num(t, 1<<31)
	buf := buildHeader(0, desc(0x1, 0x9, 0x0, 0x4), num, nil)
	if _, err := frame.New(bytes.NewReader(buf), frame.StreamConfig{}); err == nil {
		t.Errorf("expected error when parsing frame number exceeding 31 bits, got nil")
	}
	buf = buildHeader(1, desc(0x1, 0x9, 0x0, 0x4), num, nil)
	f, err := frame.New(bytes.NewReader(buf), frame.StreamConfig{})
	if err != nil {
		t.Fatalf("unable to parse frame header; %v", err)
	}
	if f.Num != 1<<31 {
		t.Errorf("sample number mismatch; expected %d, got %d", uint64(1)<<31, f.Num)
	}
	if f.SampleNumber() != 1<<31 {
		t.Errorf("first sample number mismatch; expected %d, got %d", uint64(1)<<31, f.SampleNumber())
	}
}

// buildConstantFrame returns an encoded mono frame with block size 192,
// explicit sample rate 44100 Hz and a 16 bits-per-sample constant subframe
// holding the given sample.
func buildConstantFrame(sampleSize uint16, sample int16) []byte {
	data := buildHeader(0, desc(0x1, 0xD, 0x0, sampleSize), []byte{0x00}, []byte{0xAC, 0x44})
	// Subframe header: padding 0, type 000000 (constant), no wasted bits.
	data = append(data, 0x00)
	// 16-bit constant sample.
	data = append(data, byte(uint16(sample)>>8), byte(uint16(sample)))
	crc := crc16.ChecksumIBM(data)
	return append(data, byte(crc>>8), byte(crc))
}

func TestParseConstantFrame(t *testing.T) {
	md5sum := md5.New()
	buf := buildConstantFrame(0x4, 42)
	f, err := frame.Parse(bytes.NewReader(buf), frame.StreamConfig{}, md5sum)
	if err != nil {
		t.Fatalf("unable to parse frame; %v", err)
	}
	want := frame.Header{
		HasFixedBlockSize: true,
		BlockSize:         192,
		SampleRate:        44100,
		Channels:          frame.ChannelsMono,
		BitsPerSample:     16,
	}
	if f.Header != want {
		t.Errorf("frame header mismatch; expected %+v, got %+v", want, f.Header)
	}
	if len(f.Subframes) != 1 {
		t.Fatalf("subframe count mismatch; expected 1, got %d", len(f.Subframes))
	}
	subframe := f.Subframes[0]
	if subframe.Pred != frame.PredConstant {
		t.Errorf("prediction method mismatch; expected %v, got %v", frame.PredConstant, subframe.Pred)
	}
	if len(subframe.Samples) != 192 {
		t.Fatalf("sample count mismatch; expected 192, got %d", len(subframe.Samples))
	}
	for i, sample := range subframe.Samples {
		// Samples are left-shifted to 32-bit containers.
		if sample != 42<<16 {
			t.Fatalf("sample %d mismatch; expected %d, got %d", i, 42<<16, sample)
		}
	}

	// The stream validator is fed the samples at the native bit depth, in
	// little-endian byte order.
	native := bytes.Repeat([]byte{42, 0}, 192)
	if got, want := md5sum.Sum(nil), md5.Sum(native); !bytes.Equal(got, want[:]) {
		t.Errorf("MD5 mismatch; expected %032x, got %032x", want, got)
	}
}

func TestParseFrameSync(t *testing.T) {
	// Garbage before the frame is skipped by the sync scan, and excluded from
	// both CRC computations.
	buf := append([]byte{0x12, 0x34, 0x56, 0x78}, buildConstantFrame(0x4, -7)...)
	f, err := frame.Parse(bytes.NewReader(buf), frame.StreamConfig{}, nil)
	if err != nil {
		t.Fatalf("unable to parse frame; %v", err)
	}
	for i, sample := range f.Subframes[0].Samples {
		if sample != -7<<16 {
			t.Fatalf("sample %d mismatch; expected %d, got %d", i, -7<<16, sample)
		}
	}
}

func TestParseFrameCorrupt(t *testing.T) {
	// Corrupting a header byte fails the header CRC-8.
	buf := buildConstantFrame(0x4, 42)
	buf[4] ^= 0x01 // coded frame number.
	if _, err := frame.Parse(bytes.NewReader(buf), frame.StreamConfig{}, nil); err == nil {
		t.Errorf("expected error when parsing frame with corrupt header, got nil")
	}

	// Corrupting the footer fails the frame CRC-16.
	buf = buildConstantFrame(0x4, 42)
	buf[len(buf)-1] ^= 0x80
	if _, err := frame.Parse(bytes.NewReader(buf), frame.StreamConfig{}, nil); err == nil {
		t.Errorf("expected error when parsing frame with corrupt footer, got nil")
	}
}

func TestParseFrameStreamConfig(t *testing.T) {
	// Sample size code 0; the effective sample size comes from the stream
	// configuration.
	buf := buildConstantFrame(0x0, 42)
	f, err := frame.Parse(bytes.NewReader(buf), frame.StreamConfig{BitsPerSample: 16}, nil)
	if err != nil {
		t.Fatalf("unable to parse frame; %v", err)
	}
	if f.BitsPerSample != 16 {
		t.Errorf("sample size mismatch; expected 16, got %d", f.BitsPerSample)
	}
	for i, sample := range f.Subframes[0].Samples {
		if sample != 42<<16 {
			t.Fatalf("sample %d mismatch; expected %d, got %d", i, 42<<16, sample)
		}
	}

	// Sample size missing from both the frame header and the stream
	// configuration.
	if _, err := frame.Parse(bytes.NewReader(buf), frame.StreamConfig{}, nil); err == nil {
		t.Errorf("expected error when sample size is missing from frame header and stream configuration, got nil")
	}
}
