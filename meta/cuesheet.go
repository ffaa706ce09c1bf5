package meta

import (
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
)

// A CueSheet metadata block stores various information that can be used in a
// cue sheet. It supports track and index points, compatible with Red Book CD
// digital audio discs, as well as other CD-DA metadata such as media catalog
// number and track ISRCs. The CueSheet block is especially useful for backing
// up CD-DA discs, but it can be used as a general purpose cueing mechanism for
// playback.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_cuesheet
type CueSheet struct {
	// Media catalog number, in ASCII printable characters 0x20-0x7e. For CD-DA,
	// this is a thirteen digit number.
	MCN string
	// The number of lead-in samples. This field has meaning only for CD-DA
	// cue sheets; for other uses it should be 0.
	NLeadInSamples uint64
	// Specifies if the cue sheet corresponds to a Compact Disc.
	IsCompactDisc bool
	// One or more tracks. A cue sheet is required to have a lead-out track; it
	// is always the last track of the cue sheet.
	Tracks []CueSheetTrack
}

// A CueSheetTrack contains information about a track within a cue sheet.
type CueSheetTrack struct {
	// Track offset in samples, relative to the beginning of the FLAC audio
	// stream.
	Offset uint64
	// Track number; never 0. For CD-DA, the lead-out track number is 170,
	// otherwise it is 255.
	Num uint8
	// Track ISRC (International Standard Recording Code); empty if not present.
	ISRC string
	// Specifies if the track contains audio or data.
	IsAudio bool
	// Specifies if the track has been recorded with pre-emphasis.
	HasPreEmphasis bool
	// One or more track index points, except for the lead-out track which has
	// zero.
	Indicies []CueSheetTrackIndex
}

// A CueSheetTrackIndex contains information about an index point in a track.
type CueSheetTrackIndex struct {
	// Offset in samples, relative to the track offset, of the index point.
	Offset uint64
	// Index point number; subsequent index points within a track must have
	// strictly increasing numbers.
	Num uint8
}

// parseCueSheet reads and parses the body of a CueSheet metadata block.
//
// Cue sheet format (pseudo code):
//
//	type METADATA_BLOCK_CUESHEET struct {
//	   mcn               [128]byte
//	   nlead_in_samples  uint64
//	   is_compact_disc   bool
//	   _                 uint7
//	   _                 [258]byte
//	   ntracks           uint8
//	   tracks            [ntracks]CueSheetTrack
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_cuesheet
func (block *Block) parseCueSheet() error {
	cs := new(CueSheet)
	block.Body = cs

	// 128 bytes: MCN.
	buf, err := readBytes(block.lr, 128)
	if err != nil {
		return errors.WithStack(err)
	}
	cs.MCN = stringFromSZ(buf)

	// 64 bits: NLeadInSamples.
	if err := binary.Read(block.lr, binary.BigEndian, &cs.NLeadInSamples); err != nil {
		return errors.WithStack(err)
	}

	// 1 bit: IsCompactDisc, followed by 7 bits and 258 bytes of zero-padding.
	buf, err = readBytes(block.lr, 1+258)
	if err != nil {
		return errors.WithStack(err)
	}
	cs.IsCompactDisc = buf[0]&0x80 != 0

	// 8 bits: (number of tracks).
	var ntracks uint8
	if err := binary.Read(block.lr, binary.BigEndian, &ntracks); err != nil {
		return errors.WithStack(err)
	}
	if ntracks < 1 {
		return errors.New("meta.Block.parseCueSheet: at least one track (the lead-out track) is required")
	}
	cs.Tracks = make([]CueSheetTrack, ntracks)

	for i := range cs.Tracks {
		track := &cs.Tracks[i]

		// 64 bits: Offset.
		if err := binary.Read(block.lr, binary.BigEndian, &track.Offset); err != nil {
			return errors.WithStack(err)
		}

		// 8 bits: Num.
		if err := binary.Read(block.lr, binary.BigEndian, &track.Num); err != nil {
			return errors.WithStack(err)
		}
		if track.Num == 0 {
			return errors.New("meta.Block.parseCueSheet: invalid track number 0")
		}

		// 12 bytes: ISRC.
		buf, err = readBytes(block.lr, 12)
		if err != nil {
			return errors.WithStack(err)
		}
		track.ISRC = stringFromSZ(buf)

		// 1 bit: IsAudio (stored inverted), 1 bit: HasPreEmphasis, followed by
		// 6 bits and 13 bytes of zero-padding.
		buf, err = readBytes(block.lr, 1+13)
		if err != nil {
			return errors.WithStack(err)
		}
		track.IsAudio = buf[0]&0x80 == 0
		track.HasPreEmphasis = buf[0]&0x40 != 0

		// 8 bits: (number of index points).
		var nindicies uint8
		if err := binary.Read(block.lr, binary.BigEndian, &nindicies); err != nil {
			return errors.WithStack(err)
		}
		if nindicies > 0 {
			track.Indicies = make([]CueSheetTrackIndex, nindicies)
		}

		for j := range track.Indicies {
			index := &track.Indicies[j]

			// 64 bits: Offset.
			if err := binary.Read(block.lr, binary.BigEndian, &index.Offset); err != nil {
				return errors.WithStack(err)
			}

			// 8 bits: Num, followed by 3 bytes of zero-padding.
			buf, err = readBytes(block.lr, 1+3)
			if err != nil {
				return errors.WithStack(err)
			}
			index.Num = buf[0]
		}
	}

	return nil
}

// stringFromSZ converts the provided NUL right-padded byte slice to a string.
func stringFromSZ(buf []byte) string {
	pos := strings.IndexByte(string(buf), 0)
	if pos == -1 {
		return string(buf)
	}
	return string(buf[:pos])
}
