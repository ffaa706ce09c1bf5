package flac_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/karlek/flac"
	"github.com/karlek/flac/meta"
)

// encodeStream returns an encoded FLAC stream of nframes frames, each holding
// blockSize samples per channel.
func encodeStream(t *testing.T, nframes, blockSize int) []byte {
	t.Helper()
	out := new(seekBuffer)
	info := &meta.StreamInfo{
		BlockSizeMin:  uint16(blockSize),
		BlockSizeMax:  uint16(blockSize),
		SampleRate:    44100,
		NChannels:     2,
		BitsPerSample: 16,
	}
	enc, err := flac.NewEncoder(out, info)
	if err != nil {
		t.Fatalf("unable to create encoder; %v", err)
	}
	for _, samples := range genSamples(nframes, blockSize, 2, 16) {
		if err := enc.Write(samples); err != nil {
			t.Fatalf("unable to encode frame; %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("unable to close encoder; %v", err)
	}
	return out.buf
}

func TestSeek(t *testing.T) {
	const (
		nframes   = 10
		blockSize = 576
	)
	buf := encodeStream(t, nframes, blockSize)
	stream, err := flac.NewSeek(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse stream; %v", err)
	}
	defer stream.Close()

	golden := []struct {
		sampleNum uint64
		want      uint64
	}{
		{sampleNum: 0, want: 0},
		{sampleNum: 1, want: 0},
		{sampleNum: 575, want: 0},
		{sampleNum: 576, want: 576},
		{sampleNum: 2000, want: 3 * 576},
		{sampleNum: nframes*blockSize - 1, want: (nframes - 1) * 576},
		// Seeking backwards.
		{sampleNum: 577, want: 576},
	}
	for _, g := range golden {
		got, err := stream.Seek(g.sampleNum)
		if err != nil {
			t.Errorf("sample %d: unable to seek; %v", g.sampleNum, err)
			continue
		}
		if got != g.want {
			t.Errorf("sample %d: first sample number mismatch; expected %d, got %d", g.sampleNum, g.want, got)
			continue
		}
		f, err := stream.ParseNext()
		if err != nil {
			t.Errorf("sample %d: unable to parse frame; %v", g.sampleNum, err)
			continue
		}
		if f.SampleNumber() != g.want {
			t.Errorf("sample %d: frame sample number mismatch; expected %d, got %d", g.sampleNum, g.want, f.SampleNumber())
		}
	}

	if _, err := stream.Seek(nframes * blockSize); err == nil {
		t.Errorf("expected error when seeking past the end of the stream, got nil")
	}
}

func TestSeekNoSeeker(t *testing.T) {
	buf := encodeStream(t, 2, 192)
	stream, err := flac.New(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse stream; %v", err)
	}
	defer stream.Close()
	if _, err := stream.Seek(0); !errors.Is(err, flac.ErrNoSeeker) {
		t.Errorf("expected ErrNoSeeker, got %v", err)
	}
}
