package meta

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// A Picture metadata block stores a picture associated with the audio stream,
// most commonly cover art from CDs.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_picture
type Picture struct {
	// Picture type according to the ID3v2 APIC frame:
	//
	//	 0: Other
	//	 1: 32x32 pixels 'file icon' (PNG only)
	//	 2: Other file icon
	//	 3: Cover (front)
	//	 4: Cover (back)
	//	 5: Leaflet page
	//	 6: Media (e.g. label side of CD)
	//	 7: Lead artist/lead performer/soloist
	//	 8: Artist/performer
	//	 9: Conductor
	//	10: Band/Orchestra
	//	11: Composer
	//	12: Lyricist/text writer
	//	13: Recording Location
	//	14: During recording
	//	15: During performance
	//	16: Movie/video screen capture
	//	17: A bright coloured fish
	//	18: Illustration
	//	19: Band/artist logotype
	//	20: Publisher/Studio logotype
	Type uint32
	// MIME type string. The MIME type "-->" specifies that the picture data is
	// a URL of the picture instead of the picture data itself.
	MIME string
	// Description of the picture.
	Desc string
	// Image dimensions.
	Width, Height uint32
	// Color depth in bits per pixel.
	Depth uint32
	// Number of colors in palette; 0 for non-indexed pictures.
	NPalColors uint32
	// Image data.
	Data []byte
}

// parsePicture reads and parses the body of a Picture metadata block.
//
// Picture format (pseudo code):
//
//	type METADATA_BLOCK_PICTURE struct {
//	   type         uint32
//	   mime_length  uint32
//	   mime         [mime_length]byte
//	   desc_length  uint32
//	   desc         [desc_length]byte
//	   width        uint32
//	   height       uint32
//	   depth        uint32
//	   npal_colors  uint32
//	   data_length  uint32
//	   data         [data_length]byte
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_picture
func (block *Block) parsePicture() error {
	pic := new(Picture)
	block.Body = pic

	// 32 bits: Type.
	if err := binary.Read(block.lr, binary.BigEndian, &pic.Type); err != nil {
		return errors.WithStack(err)
	}
	if pic.Type > 20 {
		return errors.Errorf("meta.Block.parsePicture: reserved picture type (%d)", pic.Type)
	}

	// 32 bits: (MIME type length), followed by that many bytes of MIME.
	var length uint32
	if err := binary.Read(block.lr, binary.BigEndian, &length); err != nil {
		return errors.WithStack(err)
	}
	buf, err := readBytes(block.lr, int(length))
	if err != nil {
		return errors.WithStack(err)
	}
	pic.MIME = string(buf)

	// 32 bits: (description length), followed by that many bytes of Desc.
	if err := binary.Read(block.lr, binary.BigEndian, &length); err != nil {
		return errors.WithStack(err)
	}
	buf, err = readBytes(block.lr, int(length))
	if err != nil {
		return errors.WithStack(err)
	}
	pic.Desc = string(buf)

	// 32 bits each: Width, Height, Depth, NPalColors.
	fields := []*uint32{&pic.Width, &pic.Height, &pic.Depth, &pic.NPalColors}
	for _, field := range fields {
		if err := binary.Read(block.lr, binary.BigEndian, field); err != nil {
			return errors.WithStack(err)
		}
	}

	// 32 bits: (data length), followed by that many bytes of Data.
	if err := binary.Read(block.lr, binary.BigEndian, &length); err != nil {
		return errors.WithStack(err)
	}
	if length > 0 {
		pic.Data = make([]byte, length)
		if _, err := io.ReadFull(block.lr, pic.Data); err != nil {
			return errors.WithStack(err)
		}
	}

	return nil
}
