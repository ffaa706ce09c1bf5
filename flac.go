// Package flac provides access to FLAC (Free Lossless Audio Codec) streams.
//
// A brief introduction of the FLAC stream format [1] follows. Each FLAC stream
// starts with a 32-bit signature ("fLaC"), followed by one or more metadata
// blocks, and then one or more audio frames. The first metadata block
// (StreamInfo) describes the basic properties of the audio stream and it is
// the only mandatory metadata block. Subsequent metadata blocks may appear in
// an arbitrary order.
//
// Initial invocation to New or NewSeek reads the metadata blocks of a stream,
// after which the audio frames are accessible through repeated calls to
// ParseNext.
//
// [1]: https://www.xiph.org/flac/format.html
package flac

import (
	"bytes"
	"crypto/md5"
	"hash"
	"io"
	"io/ioutil"
	"os"

	"github.com/karlek/flac/frame"
	"github.com/karlek/flac/internal/bufseekio"
	"github.com/karlek/flac/meta"
	"github.com/pkg/errors"
)

var (
	// flacSignature marks the beginning of a FLAC stream.
	flacSignature = []byte("fLaC")
	// id3Signature marks the beginning of an ID3 tag.
	id3Signature = []byte("ID3")
)

// A Stream contains the metadata blocks and provides access to the audio
// frames of a FLAC stream.
//
// ref: https://www.xiph.org/flac/format.html#stream
type Stream struct {
	// The StreamInfo metadata block of the stream.
	Info *meta.StreamInfo
	// Zero or more metadata blocks following the StreamInfo block.
	Blocks []*meta.Block
	// Underlying io.Reader of the stream.
	r io.Reader
	// Underlying io.Seeker of the stream; nil if the stream is not seekable.
	rs io.ReadSeeker
	// Offset of the first audio frame.
	dataStart int64
	// Seek table of the stream; nil if not present.
	seekTable *meta.SeekTable
	// Running MD5 digest of the decoded audio samples.
	md5sum hash.Hash
	// Specifies whether the running digest covers every frame since the start
	// of the audio data; a call to Seek invalidates the digest.
	md5Valid bool
	// Underlying io.Closer of the stream; closed by Close if set.
	c io.Closer
}

// New creates a new Stream for accessing the audio samples of r. It reads and
// parses the FLAC signature and all metadata blocks. An ID3v2 tag preceding
// the FLAC signature is skipped.
//
// Call Stream.ParseNext to parse the frame and audio samples of each audio
// frame in order.
func New(r io.Reader) (stream *Stream, err error) {
	stream = &Stream{r: r, md5sum: md5.New(), md5Valid: true}
	if c, ok := r.(io.Closer); ok {
		stream.c = c
	}
	isLast, err := stream.parseStreamInfo()
	if err != nil {
		return nil, err
	}
	for !isLast {
		block, err := meta.Parse(stream.r)
		if err != nil {
			return nil, err
		}
		if table, ok := block.Body.(*meta.SeekTable); ok {
			stream.seekTable = table
		}
		stream.Blocks = append(stream.Blocks, block)
		isLast = block.IsLast
	}
	return stream, nil
}

// NewSeek creates a Stream for accessing the audio samples of rs, as New does,
// and in addition records the offset of the audio data, making Stream.Seek
// available.
func NewSeek(rs io.ReadSeeker) (stream *Stream, err error) {
	stream, err = New(rs)
	if err != nil {
		return nil, err
	}
	stream.rs = rs
	stream.dataStart, err = rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return stream, nil
}

// Open creates a Stream for accessing the audio samples of path, wrapping the
// file in a buffered io.ReadSeeker.
//
// Call Stream.Close to close the underlying file when done reading from it.
func Open(path string) (stream *Stream, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stream, err = NewSeek(bufseekio.NewReadSeeker(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	stream.c = f
	return stream, nil
}

// Close closes the underlying io.Closer of the stream, if any.
func (stream *Stream) Close() error {
	if stream.c != nil {
		return stream.c.Close()
	}
	return nil
}

// parseStreamInfo validates the FLAC signature, skipping a preceding ID3v2
// tag, and parses the StreamInfo metadata block. It returns a boolean value
// which specifies if the StreamInfo block was the last metadata block of the
// stream.
func (stream *Stream) parseStreamInfo() (isLast bool, err error) {
	var buf [4]byte
	if _, err := io.ReadFull(stream.r, buf[:]); err != nil {
		return false, err
	}
	if bytes.Equal(buf[:3], id3Signature) {
		if err := stream.skipID3v2(); err != nil {
			return false, err
		}
		if _, err := io.ReadFull(stream.r, buf[:]); err != nil {
			return false, err
		}
	}
	if !bytes.Equal(buf[:], flacSignature) {
		return false, errors.Errorf("flac.Stream.parseStreamInfo: invalid signature; expected %q, got %q", flacSignature, buf)
	}
	block, err := meta.Parse(stream.r)
	if err != nil {
		return false, err
	}
	si, ok := block.Body.(*meta.StreamInfo)
	if !ok {
		return false, errors.Errorf("flac.Stream.parseStreamInfo: first metadata block is of type %v; expected stream info", block.Type)
	}
	stream.Info = si
	return block.IsLast, nil
}

// skipID3v2 skips the ID3v2 tag located at the beginning of the stream. The
// "ID3" signature and the major version byte have already been consumed.
func (stream *Stream) skipID3v2() error {
	// Remaining tag header; revision, flags and a 28-bit synchsafe tag size
	// with the high bit of each byte clear.
	var buf [6]byte
	if _, err := io.ReadFull(stream.r, buf[:]); err != nil {
		return err
	}
	size := int64(buf[2])<<21 | int64(buf[3])<<14 | int64(buf[4])<<7 | int64(buf[5])
	_, err := io.CopyN(ioutil.Discard, stream.r, size)
	return err
}

// config returns the stream-level default properties used to resolve frame
// header fields with an unknown encoding.
func (stream *Stream) config() frame.StreamConfig {
	return frame.StreamConfig{
		SampleRate:    stream.Info.SampleRate,
		BitsPerSample: stream.Info.BitsPerSample,
	}
}

// ParseNext parses the frame and audio samples of the next audio frame. It
// returns io.EOF to signal a graceful end of FLAC stream, after verifying the
// MD5 digest recorded by the StreamInfo metadata block against the running
// digest of the decoded audio samples.
func (stream *Stream) ParseNext() (f *frame.Frame, err error) {
	var md5sum hash.Hash
	if stream.md5Valid {
		md5sum = stream.md5sum
	}
	f, err = frame.Parse(stream.r, stream.config(), md5sum)
	if err != nil {
		if err == io.EOF {
			if err := stream.verifyMD5(); err != nil {
				return nil, err
			}
			return nil, io.EOF
		}
		// The running digest no longer corresponds to a prefix of the audio
		// data.
		stream.md5Valid = false
		return nil, err
	}
	return f, nil
}

// verifyMD5 compares the running MD5 digest of the decoded audio samples
// against the digest recorded by the StreamInfo metadata block. Verification
// is skipped if the recorded digest is unset, or if part of the stream was
// skipped by a call to Seek.
func (stream *Stream) verifyMD5() error {
	if !stream.md5Valid {
		return nil
	}
	if stream.Info.MD5sum == [16]byte{} {
		return nil
	}
	got := stream.md5sum.Sum(nil)
	if !bytes.Equal(got, stream.Info.MD5sum[:]) {
		return errors.Errorf("flac.Stream.verifyMD5: MD5 mismatch; expected %032x, got %032x", stream.Info.MD5sum, got)
	}
	return nil
}
