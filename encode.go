package flac

import (
	"crypto/md5"
	"hash"
	"io"

	"github.com/icza/bitio"
	"github.com/karlek/flac/meta"
	"github.com/mewkiz/pkg/errutil"
)

// An Encoder represents a FLAC encoder.
type Encoder struct {
	// FLAC stream of the encoder.
	*Stream
	// Underlying io.Writer to the output stream.
	w io.Writer
	// io.Closer to flush pending writes to the output stream.
	c io.Closer
	// First sample number of the next frame.
	curNum uint64
	// Total number of encoded samples per channel.
	nsamples uint64
	// Running MD5 digest of the unencoded audio samples.
	md5sum hash.Hash
}

// NewEncoder returns a new FLAC encoder for the given StreamInfo metadata
// block and optional metadata blocks. It writes the FLAC signature and the
// metadata blocks to w; encode audio samples with Encoder.Write, one frame per
// call.
func NewEncoder(w io.Writer, info *meta.StreamInfo, blocks ...*meta.Block) (*Encoder, error) {
	enc := &Encoder{
		Stream: &Stream{
			Info:   info,
			Blocks: blocks,
		},
		w:      w,
		md5sum: md5.New(),
	}
	if c, ok := w.(io.Closer); ok {
		enc.c = c
	}
	bw := bitio.NewWriter(w)
	if _, err := bw.Write(flacSignature); err != nil {
		return nil, errutil.Err(err)
	}
	infoHdr := meta.Header{
		IsLast: len(blocks) == 0,
		Type:   meta.TypeStreamInfo,
	}
	if err := writeStreamInfo(bw, infoHdr, info); err != nil {
		return nil, errutil.Err(err)
	}
	for i, block := range blocks {
		hdr := block.Header
		hdr.IsLast = i == len(blocks)-1
		if err := writeBlock(bw, hdr, block.Body); err != nil {
			return nil, errutil.Err(err)
		}
	}
	// Flush pending writes of the metadata blocks.
	if _, err := bw.Align(); err != nil {
		return nil, errutil.Err(err)
	}
	return enc, nil
}

// Close flushes any pending writes and closes the underlying io.Writer of the
// encoder, if it implements io.Closer. If the io.Writer implements io.Seeker,
// the StreamInfo metadata block is rewritten with the MD5 checksum of the
// unencoded audio samples and the total number of samples.
func (enc *Encoder) Close() error {
	if ws, ok := enc.w.(io.WriteSeeker); ok {
		if _, err := ws.Seek(int64(len(flacSignature)), io.SeekStart); err != nil {
			return errutil.Err(err)
		}
		copy(enc.Info.MD5sum[:], enc.md5sum.Sum(nil))
		enc.Info.NSamples = enc.nsamples
		bw := bitio.NewWriter(ws)
		infoHdr := meta.Header{
			IsLast: len(enc.Blocks) == 0,
			Type:   meta.TypeStreamInfo,
		}
		if err := writeStreamInfo(bw, infoHdr, enc.Info); err != nil {
			return errutil.Err(err)
		}
		if _, err := bw.Align(); err != nil {
			return errutil.Err(err)
		}
	}
	if enc.c != nil {
		return enc.c.Close()
	}
	return nil
}
