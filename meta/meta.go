// Package meta implements access to FLAC metadata blocks.
//
// A metadata block consists of a block header, which describes the type and
// length of the block body, followed by the block body itself.
//
// ref: https://www.xiph.org/flac/format.html#format_overview
package meta

import (
	"encoding/binary"
	"io"
	"io/ioutil"

	"github.com/pkg/errors"
)

// A Block contains the header and body of a metadata block.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block
type Block struct {
	// Metadata block header.
	Header
	// Metadata block body of type *StreamInfo, *Application, *SeekTable,
	// *VorbisComment, *CueSheet or *Picture. Body is nil for padding blocks and
	// blocks which have been skipped.
	Body interface{}
	// Underlying io.Reader, limited to Length bytes of the block body.
	lr io.Reader
}

// New creates a new Block for accessing the metadata of r. It reads and parses
// a metadata block header.
//
// Call Block.Parse to parse the metadata block body, and call Block.Skip to
// ignore it.
func New(r io.Reader) (block *Block, err error) {
	block = new(Block)
	if err = block.parseHeader(r); err != nil {
		return nil, err
	}
	block.lr = io.LimitReader(r, block.Length)
	return block, nil
}

// Parse reads and parses the header and body of a metadata block. Use New for
// additional granularity.
func Parse(r io.Reader) (block *Block, err error) {
	block, err = New(r)
	if err != nil {
		return nil, err
	}
	if err = block.Parse(); err != nil {
		return nil, err
	}
	return block, nil
}

// Parse reads and parses the metadata block body.
func (block *Block) Parse() error {
	switch block.Type {
	case TypeStreamInfo:
		return block.parseStreamInfo()
	case TypePadding:
		return block.verifyPadding()
	case TypeApplication:
		return block.parseApplication()
	case TypeSeekTable:
		return block.parseSeekTable()
	case TypeVorbisComment:
		return block.parseVorbisComment()
	case TypeCueSheet:
		return block.parseCueSheet()
	case TypePicture:
		return block.parsePicture()
	}
	return errors.Errorf("meta.Block.Parse: reserved block type %d", uint8(block.Type))
}

// Skip ignores the contents of the metadata block body.
func (block *Block) Skip() error {
	if _, err := io.Copy(ioutil.Discard, block.lr); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// A Header contains information about the type and length of a metadata block.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_header
type Header struct {
	// Specifies if this block is the last metadata block.
	IsLast bool
	// Block types used to identify the metadata block body.
	Type Type
	// Length of body data in bytes.
	Length int64
}

// parseHeader reads and parses the header of a metadata block.
//
// Metadata block header format (pseudo code):
//
//	type METADATA_BLOCK_HEADER struct {
//	   is_last bool
//	   type    uint7
//	   length  uint24
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_header
func (block *Block) parseHeader(r io.Reader) error {
	var bits uint32
	if err := binary.Read(r, binary.BigEndian, &bits); err != nil {
		return err
	}

	// 1 bit: IsLast.
	block.IsLast = bits&0x80000000 != 0

	// 7 bits: Type.
	block.Type = Type(bits >> 24 & 0x7F)
	if block.Type == 127 {
		// The block type 127 is forbidden, to avoid confusion with the frame
		// sync code.
		return errors.New("meta.Block.parseHeader: invalid block type 127")
	}

	// 24 bits: Length.
	block.Length = int64(bits & 0x00FFFFFF)

	return nil
}

// Type represents the type of a metadata block.
type Type uint8

// Metadata block body types.
const (
	TypeStreamInfo Type = iota
	TypePadding
	TypeApplication
	TypeSeekTable
	TypeVorbisComment
	TypeCueSheet
	TypePicture
)

func (t Type) String() string {
	switch t {
	case TypeStreamInfo:
		return "stream info"
	case TypePadding:
		return "padding"
	case TypeApplication:
		return "application"
	case TypeSeekTable:
		return "seek table"
	case TypeVorbisComment:
		return "vorbis comment"
	case TypeCueSheet:
		return "cue sheet"
	case TypePicture:
		return "picture"
	}
	return "<unknown block type>"
}
