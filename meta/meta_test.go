package meta_test

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"github.com/icza/bitio"
	"github.com/karlek/flac/meta"
)

// header returns an encoded metadata block header with the given type and body
// length.
func header(last bool, typ meta.Type, length int) []byte {
	bits := uint32(typ)<<24 | uint32(length)
	if last {
		bits |= 0x80000000
	}
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, bits)
	return buf
}

func TestParseStreamInfo(t *testing.T) {
	want := &meta.StreamInfo{
		BlockSizeMin:  4096,
		BlockSizeMax:  4096,
		FrameSizeMin:  1234,
		FrameSizeMax:  5678,
		SampleRate:    44100,
		NChannels:     2,
		BitsPerSample: 16,
		NSamples:      1000000,
		MD5sum:        [16]byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	}
	body := new(bytes.Buffer)
	bw := bitio.NewWriter(body)
	bw.WriteBits(uint64(want.BlockSizeMin), 16)
	bw.WriteBits(uint64(want.BlockSizeMax), 16)
	bw.WriteBits(uint64(want.FrameSizeMin), 24)
	bw.WriteBits(uint64(want.FrameSizeMax), 24)
	bw.WriteBits(uint64(want.SampleRate), 20)
	bw.WriteBits(uint64(want.NChannels-1), 3)
	bw.WriteBits(uint64(want.BitsPerSample-1), 5)
	bw.WriteBits(want.NSamples, 36)
	if err := bw.Close(); err != nil {
		t.Fatalf("unable to encode StreamInfo body; %v", err)
	}
	body.Write(want.MD5sum[:])

	buf := append(header(false, meta.TypeStreamInfo, body.Len()), body.Bytes()...)
	block, err := meta.Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse StreamInfo block; %v", err)
	}
	got, ok := block.Body.(*meta.StreamInfo)
	if !ok {
		t.Fatalf("invalid body type; expected *meta.StreamInfo, got %T", block.Body)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("StreamInfo mismatch; expected %#v, got %#v", want, got)
	}
}

func TestParsePadding(t *testing.T) {
	buf := append(header(true, meta.TypePadding, 8), make([]byte, 8)...)
	block, err := meta.Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse Padding block; %v", err)
	}
	if !block.IsLast {
		t.Errorf("IsLast mismatch; expected true, got false")
	}

	// A padding block containing non-zero bytes is invalid.
	buf = append(header(true, meta.TypePadding, 8), []byte{0, 0, 0, 1, 0, 0, 0, 0}...)
	if _, err := meta.Parse(bytes.NewReader(buf)); err == nil {
		t.Errorf("expected error when parsing padding block with non-zero bytes, got nil")
	}
}

func TestParseApplication(t *testing.T) {
	want := &meta.Application{ID: 0x41544348, Data: []byte("ticket")}
	body := []byte{0x41, 0x54, 0x43, 0x48}
	body = append(body, want.Data...)
	buf := append(header(false, meta.TypeApplication, len(body)), body...)
	block, err := meta.Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse Application block; %v", err)
	}
	got, ok := block.Body.(*meta.Application)
	if !ok {
		t.Fatalf("invalid body type; expected *meta.Application, got %T", block.Body)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Application mismatch; expected %#v, got %#v", want, got)
	}
}

func TestParseSeekTable(t *testing.T) {
	want := &meta.SeekTable{
		Points: []meta.SeekPoint{
			{SampleNum: 0, Offset: 0, NSamples: 4096},
			{SampleNum: 4096, Offset: 7000, NSamples: 4096},
			{SampleNum: meta.PlaceholderPoint},
		},
	}
	body := new(bytes.Buffer)
	for _, point := range want.Points {
		binary.Write(body, binary.BigEndian, point.SampleNum)
		binary.Write(body, binary.BigEndian, point.Offset)
		binary.Write(body, binary.BigEndian, point.NSamples)
	}
	buf := append(header(false, meta.TypeSeekTable, body.Len()), body.Bytes()...)
	block, err := meta.Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse SeekTable block; %v", err)
	}
	got, ok := block.Body.(*meta.SeekTable)
	if !ok {
		t.Fatalf("invalid body type; expected *meta.SeekTable, got %T", block.Body)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SeekTable mismatch; expected %#v, got %#v", want, got)
	}

	// Seek points must be sorted in ascending order by sample number.
	body.Reset()
	for _, point := range []meta.SeekPoint{{SampleNum: 4096}, {SampleNum: 0}} {
		binary.Write(body, binary.BigEndian, point.SampleNum)
		binary.Write(body, binary.BigEndian, point.Offset)
		binary.Write(body, binary.BigEndian, point.NSamples)
	}
	buf = append(header(false, meta.TypeSeekTable, body.Len()), body.Bytes()...)
	if _, err := meta.Parse(bytes.NewReader(buf)); err == nil {
		t.Errorf("expected error when parsing unordered seek table, got nil")
	}
}

func TestParseVorbisComment(t *testing.T) {
	want := &meta.VorbisComment{
		Vendor: "reference libFLAC 1.3.2 20170101",
		Tags: [][2]string{
			{"TITLE", "sine wave"},
			{"ARTIST", "oscillator"},
		},
	}
	body := new(bytes.Buffer)
	binary.Write(body, binary.LittleEndian, uint32(len(want.Vendor)))
	body.WriteString(want.Vendor)
	binary.Write(body, binary.LittleEndian, uint32(len(want.Tags)))
	for _, tag := range want.Tags {
		s := tag[0] + "=" + tag[1]
		binary.Write(body, binary.LittleEndian, uint32(len(s)))
		body.WriteString(s)
	}
	buf := append(header(false, meta.TypeVorbisComment, body.Len()), body.Bytes()...)
	block, err := meta.Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse VorbisComment block; %v", err)
	}
	got, ok := block.Body.(*meta.VorbisComment)
	if !ok {
		t.Fatalf("invalid body type; expected *meta.VorbisComment, got %T", block.Body)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("VorbisComment mismatch; expected %#v, got %#v", want, got)
	}
}

func TestParseCueSheet(t *testing.T) {
	want := &meta.CueSheet{
		MCN:            "1234567890123",
		NLeadInSamples: 88200,
		IsCompactDisc:  true,
		Tracks: []meta.CueSheetTrack{
			{
				Offset:  0,
				Num:     1,
				ISRC:    "USRC17607839",
				IsAudio: true,
				Indicies: []meta.CueSheetTrackIndex{
					{Offset: 0, Num: 1},
				},
			},
			{
				Offset:  88200,
				Num:     170,
				IsAudio: true,
			},
		},
	}
	body := new(bytes.Buffer)
	mcn := make([]byte, 128)
	copy(mcn, want.MCN)
	body.Write(mcn)
	binary.Write(body, binary.BigEndian, want.NLeadInSamples)
	body.WriteByte(0x80) // IsCompactDisc followed by 7 zero bits.
	body.Write(make([]byte, 258))
	body.WriteByte(uint8(len(want.Tracks)))
	for _, track := range want.Tracks {
		binary.Write(body, binary.BigEndian, track.Offset)
		body.WriteByte(track.Num)
		isrc := make([]byte, 12)
		copy(isrc, track.ISRC)
		body.Write(isrc)
		var flags byte
		if !track.IsAudio {
			flags |= 0x80
		}
		if track.HasPreEmphasis {
			flags |= 0x40
		}
		body.WriteByte(flags)
		body.Write(make([]byte, 13))
		body.WriteByte(uint8(len(track.Indicies)))
		for _, index := range track.Indicies {
			binary.Write(body, binary.BigEndian, index.Offset)
			body.WriteByte(index.Num)
			body.Write(make([]byte, 3))
		}
	}
	buf := append(header(false, meta.TypeCueSheet, body.Len()), body.Bytes()...)
	block, err := meta.Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse CueSheet block; %v", err)
	}
	got, ok := block.Body.(*meta.CueSheet)
	if !ok {
		t.Fatalf("invalid body type; expected *meta.CueSheet, got %T", block.Body)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CueSheet mismatch; expected %#v, got %#v", want, got)
	}
}

func TestParsePicture(t *testing.T) {
	want := &meta.Picture{
		Type:   3, // Cover (front)
		MIME:   "image/png",
		Desc:   "album cover",
		Width:  640,
		Height: 480,
		Depth:  24,
		Data:   []byte{0x89, 'P', 'N', 'G'},
	}
	body := new(bytes.Buffer)
	binary.Write(body, binary.BigEndian, want.Type)
	binary.Write(body, binary.BigEndian, uint32(len(want.MIME)))
	body.WriteString(want.MIME)
	binary.Write(body, binary.BigEndian, uint32(len(want.Desc)))
	body.WriteString(want.Desc)
	binary.Write(body, binary.BigEndian, want.Width)
	binary.Write(body, binary.BigEndian, want.Height)
	binary.Write(body, binary.BigEndian, want.Depth)
	binary.Write(body, binary.BigEndian, want.NPalColors)
	binary.Write(body, binary.BigEndian, uint32(len(want.Data)))
	body.Write(want.Data)
	buf := append(header(false, meta.TypePicture, body.Len()), body.Bytes()...)
	block, err := meta.Parse(bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("unable to parse Picture block; %v", err)
	}
	got, ok := block.Body.(*meta.Picture)
	if !ok {
		t.Fatalf("invalid body type; expected *meta.Picture, got %T", block.Body)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Picture mismatch; expected %#v, got %#v", want, got)
	}
}

func TestParseHeaderInvalidType(t *testing.T) {
	buf := header(false, 127, 0)
	if _, err := meta.New(bytes.NewReader(buf)); err == nil {
		t.Errorf("expected error when parsing block header with forbidden type 127, got nil")
	}
}
