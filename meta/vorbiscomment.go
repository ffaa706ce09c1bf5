package meta

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// A VorbisComment metadata block is for storing a list of human-readable
// name/value pairs. Values are encoded using UTF-8. It is an implementation of
// the Vorbis comment specification (without the framing bit). This is the only
// officially supported tagging mechanism in FLAC. There may be only one
// VorbisComment block in a stream. In some external documentation, Vorbis
// comments are called FLAC tags to lessen confusion.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_vorbis_comment
type VorbisComment struct {
	// Vendor name.
	Vendor string
	// A list of tags, each represented by a name-value pair.
	Tags [][2]string
}

// parseVorbisComment reads and parses the body of a VorbisComment metadata
// block.
//
// Vorbis comment format (pseudo code):
//
//	type METADATA_BLOCK_VORBIS_COMMENT struct {
//	   vendor_length uint32
//	   vendor_string [vendor_length]byte
//	   comment_count uint32
//	   comments      [comment_count]comment
//	}
//
//	type comment struct {
//	   vector_length uint32
//	   // vector_string is a name/value pair. Example: "NAME=value".
//	   vector_string [vector_length]byte
//	}
//
// Note that the integers of Vorbis comments are stored in little-endian byte
// order, unlike the rest of the FLAC format.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_vorbis_comment
func (block *Block) parseVorbisComment() error {
	comment := new(VorbisComment)
	block.Body = comment

	// 32 bits: vendor length.
	var vendorLen uint32
	if err := binary.Read(block.lr, binary.LittleEndian, &vendorLen); err != nil {
		return errors.WithStack(err)
	}

	// (vendor length) bytes: Vendor.
	buf, err := readBytes(block.lr, int(vendorLen))
	if err != nil {
		return errors.WithStack(err)
	}
	comment.Vendor = string(buf)

	// 32 bits: number of tags.
	var tagCount uint32
	if err := binary.Read(block.lr, binary.LittleEndian, &tagCount); err != nil {
		return errors.WithStack(err)
	}
	if tagCount > 0 {
		comment.Tags = make([][2]string, tagCount)
	}

	for i := range comment.Tags {
		// 32 bits: vector length.
		var vectorLen uint32
		if err := binary.Read(block.lr, binary.LittleEndian, &vectorLen); err != nil {
			return errors.WithStack(err)
		}

		// (vector length) bytes: vector, which contains a name/value pair of the
		// format "NAME=value".
		buf, err := readBytes(block.lr, int(vectorLen))
		if err != nil {
			return errors.WithStack(err)
		}
		vector := string(buf)
		pos := strings.IndexByte(vector, '=')
		if pos == -1 {
			return errors.Errorf("meta.Block.parseVorbisComment: unable to locate name/value separator in tag %q", vector)
		}
		comment.Tags[i][0] = vector[:pos]
		comment.Tags[i][1] = vector[pos+1:]
	}

	return nil
}
