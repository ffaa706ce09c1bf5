package flac

import (
	"encoding/binary"

	"github.com/icza/bitio"
	"github.com/karlek/flac/meta"
	"github.com/mewkiz/pkg/errutil"
)

// writeBlock writes the header and body of a metadata block.
func writeBlock(bw *bitio.Writer, hdr meta.Header, body interface{}) error {
	switch body := body.(type) {
	case *meta.StreamInfo:
		return writeStreamInfo(bw, hdr, body)
	case *meta.Application:
		return writeApplication(bw, hdr, body)
	case *meta.SeekTable:
		return writeSeekTable(bw, hdr, body)
	case *meta.VorbisComment:
		return writeVorbisComment(bw, hdr, body)
	case *meta.CueSheet:
		return writeCueSheet(bw, hdr, body)
	case *meta.Picture:
		return writePicture(bw, hdr, body)
	case nil:
		// Padding blocks and blocks with a skipped body.
		return writePadding(bw, hdr)
	}
	return errutil.Newf("support for metadata block body type %T not yet implemented", body)
}

// writeBlockHeader writes the header of a metadata block.
func writeBlockHeader(bw *bitio.Writer, hdr meta.Header) error {
	// 1 bit: IsLast.
	if err := bw.WriteBool(hdr.IsLast); err != nil {
		return errutil.Err(err)
	}
	// 7 bits: Type.
	if err := bw.WriteBits(uint64(hdr.Type), 7); err != nil {
		return errutil.Err(err)
	}
	// 24 bits: Length.
	if err := bw.WriteBits(uint64(hdr.Length), 24); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// writeStreamInfo writes the header and body of a StreamInfo metadata block.
func writeStreamInfo(bw *bitio.Writer, hdr meta.Header, si *meta.StreamInfo) error {
	// The StreamInfo block body has a fixed size of 34 bytes.
	hdr.Type = meta.TypeStreamInfo
	hdr.Length = 34
	if err := writeBlockHeader(bw, hdr); err != nil {
		return errutil.Err(err)
	}

	// 16 bits: BlockSizeMin.
	if err := bw.WriteBits(uint64(si.BlockSizeMin), 16); err != nil {
		return errutil.Err(err)
	}
	// 16 bits: BlockSizeMax.
	if err := bw.WriteBits(uint64(si.BlockSizeMax), 16); err != nil {
		return errutil.Err(err)
	}
	// 24 bits: FrameSizeMin.
	if err := bw.WriteBits(uint64(si.FrameSizeMin), 24); err != nil {
		return errutil.Err(err)
	}
	// 24 bits: FrameSizeMax.
	if err := bw.WriteBits(uint64(si.FrameSizeMax), 24); err != nil {
		return errutil.Err(err)
	}
	// 20 bits: SampleRate.
	if err := bw.WriteBits(uint64(si.SampleRate), 20); err != nil {
		return errutil.Err(err)
	}
	// 3 bits: NChannels; stored as (number of channels) - 1.
	if err := bw.WriteBits(uint64(si.NChannels-1), 3); err != nil {
		return errutil.Err(err)
	}
	// 5 bits: BitsPerSample; stored as (bits-per-sample) - 1.
	if err := bw.WriteBits(uint64(si.BitsPerSample-1), 5); err != nil {
		return errutil.Err(err)
	}
	// 36 bits: NSamples.
	if err := bw.WriteBits(si.NSamples, 36); err != nil {
		return errutil.Err(err)
	}
	// 16 bytes: MD5sum.
	if _, err := bw.Write(si.MD5sum[:]); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// writePadding writes the header and zero filled body of a Padding metadata
// block.
func writePadding(bw *bitio.Writer, hdr meta.Header) error {
	if err := writeBlockHeader(bw, hdr); err != nil {
		return errutil.Err(err)
	}
	for i := int64(0); i < hdr.Length; i++ {
		if err := bw.WriteByte(0); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// writeApplication writes the header and body of an Application metadata
// block.
func writeApplication(bw *bitio.Writer, hdr meta.Header, app *meta.Application) error {
	hdr.Length = int64(4 + len(app.Data))
	if err := writeBlockHeader(bw, hdr); err != nil {
		return errutil.Err(err)
	}

	// 32 bits: ID.
	if err := bw.WriteBits(uint64(app.ID), 32); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write(app.Data); err != nil {
		return errutil.Err(err)
	}
	return nil
}

// writeSeekTable writes the header and body of a SeekTable metadata block.
func writeSeekTable(bw *bitio.Writer, hdr meta.Header, table *meta.SeekTable) error {
	// Each seek point occupies 18 bytes.
	hdr.Length = int64(18 * len(table.Points))
	if err := writeBlockHeader(bw, hdr); err != nil {
		return errutil.Err(err)
	}

	for _, point := range table.Points {
		if err := binary.Write(bw, binary.BigEndian, point); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// writeVorbisComment writes the header and body of a VorbisComment metadata
// block.
func writeVorbisComment(bw *bitio.Writer, hdr meta.Header, comment *meta.VorbisComment) error {
	length := int64(4 + len(comment.Vendor) + 4)
	for _, tag := range comment.Tags {
		length += int64(4 + len(tag[0]) + 1 + len(tag[1]))
	}
	hdr.Length = length
	if err := writeBlockHeader(bw, hdr); err != nil {
		return errutil.Err(err)
	}

	// 32 bits: (vendor length), followed by that many bytes of Vendor.
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(comment.Vendor))); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write([]byte(comment.Vendor)); err != nil {
		return errutil.Err(err)
	}

	// 32 bits: (number of tags), followed by each tag in "NAME=value" format.
	if err := binary.Write(bw, binary.LittleEndian, uint32(len(comment.Tags))); err != nil {
		return errutil.Err(err)
	}
	for _, tag := range comment.Tags {
		buf := []byte(tag[0] + "=" + tag[1])
		if err := binary.Write(bw, binary.LittleEndian, uint32(len(buf))); err != nil {
			return errutil.Err(err)
		}
		if _, err := bw.Write(buf); err != nil {
			return errutil.Err(err)
		}
	}
	return nil
}

// writeCueSheet writes the header and body of a CueSheet metadata block.
func writeCueSheet(bw *bitio.Writer, hdr meta.Header, cs *meta.CueSheet) error {
	length := int64(128 + 8 + 1 + 258 + 1)
	for _, track := range cs.Tracks {
		length += 8 + 1 + 12 + 1 + 13 + 1
		length += int64(12 * len(track.Indicies))
	}
	hdr.Length = length
	if err := writeBlockHeader(bw, hdr); err != nil {
		return errutil.Err(err)
	}

	// 128 bytes: MCN, NUL right-padded.
	mcn := make([]byte, 128)
	copy(mcn, cs.MCN)
	if _, err := bw.Write(mcn); err != nil {
		return errutil.Err(err)
	}

	// 64 bits: NLeadInSamples.
	if err := bw.WriteBits(cs.NLeadInSamples, 64); err != nil {
		return errutil.Err(err)
	}

	// 1 bit: IsCompactDisc, followed by 7 bits and 258 bytes of zero-padding.
	if err := bw.WriteBool(cs.IsCompactDisc); err != nil {
		return errutil.Err(err)
	}
	if err := bw.WriteBits(0, 7); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write(make([]byte, 258)); err != nil {
		return errutil.Err(err)
	}

	// 8 bits: (number of tracks).
	if err := bw.WriteBits(uint64(len(cs.Tracks)), 8); err != nil {
		return errutil.Err(err)
	}
	for _, track := range cs.Tracks {
		// 64 bits: Offset.
		if err := bw.WriteBits(track.Offset, 64); err != nil {
			return errutil.Err(err)
		}
		// 8 bits: Num.
		if err := bw.WriteBits(uint64(track.Num), 8); err != nil {
			return errutil.Err(err)
		}
		// 12 bytes: ISRC, NUL right-padded.
		isrc := make([]byte, 12)
		copy(isrc, track.ISRC)
		if _, err := bw.Write(isrc); err != nil {
			return errutil.Err(err)
		}
		// 1 bit: IsAudio, stored inverted.
		if err := bw.WriteBool(!track.IsAudio); err != nil {
			return errutil.Err(err)
		}
		// 1 bit: HasPreEmphasis, followed by 6 bits and 13 bytes of
		// zero-padding.
		if err := bw.WriteBool(track.HasPreEmphasis); err != nil {
			return errutil.Err(err)
		}
		if err := bw.WriteBits(0, 6); err != nil {
			return errutil.Err(err)
		}
		if _, err := bw.Write(make([]byte, 13)); err != nil {
			return errutil.Err(err)
		}
		// 8 bits: (number of index points).
		if err := bw.WriteBits(uint64(len(track.Indicies)), 8); err != nil {
			return errutil.Err(err)
		}
		for _, index := range track.Indicies {
			// 64 bits: Offset.
			if err := bw.WriteBits(index.Offset, 64); err != nil {
				return errutil.Err(err)
			}
			// 8 bits: Num, followed by 3 bytes of zero-padding.
			if err := bw.WriteBits(uint64(index.Num), 8); err != nil {
				return errutil.Err(err)
			}
			if _, err := bw.Write(make([]byte, 3)); err != nil {
				return errutil.Err(err)
			}
		}
	}
	return nil
}

// writePicture writes the header and body of a Picture metadata block.
func writePicture(bw *bitio.Writer, hdr meta.Header, pic *meta.Picture) error {
	hdr.Length = int64(8*4 + len(pic.MIME) + len(pic.Desc) + len(pic.Data))
	if err := writeBlockHeader(bw, hdr); err != nil {
		return errutil.Err(err)
	}

	// 32 bits: Type.
	if err := bw.WriteBits(uint64(pic.Type), 32); err != nil {
		return errutil.Err(err)
	}
	// 32 bits: (MIME type length), followed by that many bytes of MIME.
	if err := bw.WriteBits(uint64(len(pic.MIME)), 32); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write([]byte(pic.MIME)); err != nil {
		return errutil.Err(err)
	}
	// 32 bits: (description length), followed by that many bytes of Desc.
	if err := bw.WriteBits(uint64(len(pic.Desc)), 32); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write([]byte(pic.Desc)); err != nil {
		return errutil.Err(err)
	}
	// 32 bits each: Width, Height, Depth, NPalColors.
	for _, x := range []uint32{pic.Width, pic.Height, pic.Depth, pic.NPalColors} {
		if err := bw.WriteBits(uint64(x), 32); err != nil {
			return errutil.Err(err)
		}
	}
	// 32 bits: (data length), followed by that many bytes of Data.
	if err := bw.WriteBits(uint64(len(pic.Data)), 32); err != nil {
		return errutil.Err(err)
	}
	if _, err := bw.Write(pic.Data); err != nil {
		return errutil.Err(err)
	}
	return nil
}
