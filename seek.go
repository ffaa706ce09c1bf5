package flac

import (
	"io"

	"github.com/karlek/flac/frame"
	"github.com/karlek/flac/meta"
	"github.com/pkg/errors"
)

// ErrNoSeeker is returned by Seek when the stream was not created from an
// io.ReadSeeker.
var ErrNoSeeker = errors.New("flac.Stream.Seek: stream is not seekable")

// Seek repositions the stream to the audio frame containing the given sample
// number, and returns the first sample number of that frame; a following call
// to ParseNext decodes the frame. Seeking invalidates the running MD5 digest,
// so ParseNext no longer verifies the audio data against the StreamInfo
// digest at the end of the stream.
//
// The seek table of the stream is used when present; otherwise the audio
// frames are scanned from the start of the audio data.
func (stream *Stream) Seek(sampleNum uint64) (uint64, error) {
	if stream.rs == nil {
		return 0, ErrNoSeeker
	}
	if stream.Info.NSamples > 0 && sampleNum >= stream.Info.NSamples {
		return 0, errors.Errorf("flac.Stream.Seek: sample number (%d) not present in stream of %d samples", sampleNum, stream.Info.NSamples)
	}
	stream.md5Valid = false

	// Position at the closest preceding seek point, or the start of the audio
	// data.
	offset := stream.searchSeekTable(sampleNum)
	if _, err := stream.rs.Seek(stream.dataStart+offset, io.SeekStart); err != nil {
		return 0, errors.WithStack(err)
	}

	// Scan frame headers until the frame containing the target sample.
	for {
		pos, err := stream.rs.Seek(0, io.SeekCurrent)
		if err != nil {
			return 0, errors.WithStack(err)
		}
		f, err := frame.New(stream.r, stream.config())
		if err != nil {
			if err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		first := f.SampleNumber()
		if sampleNum < first+uint64(f.BlockSize) {
			// Rewind to the start of the frame, so that ParseNext decodes it.
			if _, err := stream.rs.Seek(pos, io.SeekStart); err != nil {
				return 0, errors.WithStack(err)
			}
			return first, nil
		}
		// Decode past the remainder of the frame.
		if err := f.Parse(nil); err != nil {
			return 0, err
		}
	}
}

// searchSeekTable returns the byte offset, relative to the start of the audio
// data, of the closest seek point preceding or at the given sample number; 0
// if the stream has no seek table or no preceding point.
func (stream *Stream) searchSeekTable(sampleNum uint64) int64 {
	if stream.seekTable == nil {
		return 0
	}
	var offset int64
	for _, point := range stream.seekTable.Points {
		if point.SampleNum == meta.PlaceholderPoint || point.SampleNum > sampleNum {
			break
		}
		offset = int64(point.Offset)
	}
	return offset
}
