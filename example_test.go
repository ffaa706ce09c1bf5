package flac_test

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/karlek/flac"
	"github.com/karlek/flac/meta"
)

func Example() {
	// Encode two frames of mono 16-bit audio; a rising ramp followed by a
	// constant block.
	buf := new(bytes.Buffer)
	info := &meta.StreamInfo{
		BlockSizeMin:  16,
		BlockSizeMax:  16,
		SampleRate:    44100,
		NChannels:     1,
		BitsPerSample: 16,
	}
	enc, err := flac.NewEncoder(buf, info)
	if err != nil {
		log.Fatal(err)
	}
	ramp := make([]int32, 16)
	for i := range ramp {
		ramp[i] = int32(i + 1)
	}
	if err := enc.Write(ramp); err != nil {
		log.Fatal(err)
	}
	constant := make([]int32, 16)
	for i := range constant {
		constant[i] = 42
	}
	if err := enc.Write(constant); err != nil {
		log.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		log.Fatal(err)
	}

	// Decode the stream and print the audio samples of each frame.
	stream, err := flac.New(buf)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()
	for {
		frame, err := stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatal(err)
		}
		fmt.Printf("frame %d:", frame.Num)
		for _, subframe := range frame.Subframes {
			for _, sample := range subframe.Samples {
				// Samples are normalized to the 32-bit range; shift down to
				// recover the original 16-bit values.
				fmt.Printf(" %d", sample>>16)
			}
		}
		fmt.Println()
	}
	// Output:
	// frame 0: 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16
	// frame 16: 42 42 42 42 42 42 42 42 42 42 42 42 42 42 42 42
}

func ExampleNew() {
	// Encode an empty stream with a vorbis comment and a padding block.
	buf := new(bytes.Buffer)
	info := &meta.StreamInfo{
		BlockSizeMin:  192,
		BlockSizeMax:  192,
		SampleRate:    44100,
		NChannels:     2,
		BitsPerSample: 16,
	}
	comment := &meta.Block{
		Header: meta.Header{Type: meta.TypeVorbisComment},
		Body:   &meta.VorbisComment{Vendor: "flac-example"},
	}
	padding := &meta.Block{
		Header: meta.Header{Type: meta.TypePadding, Length: 16},
	}
	enc, err := flac.NewEncoder(buf, info, comment, padding)
	if err != nil {
		log.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		log.Fatal(err)
	}

	// Decode the metadata blocks of the stream.
	stream, err := flac.New(buf)
	if err != nil {
		log.Fatal(err)
	}
	defer stream.Close()
	fmt.Printf("sample rate: %d Hz\n", stream.Info.SampleRate)
	for i, block := range stream.Blocks {
		fmt.Printf("block %d: %v\n", i, block.Type)
	}
	// Output:
	// sample rate: 44100 Hz
	// block 0: vorbis comment
	// block 1: padding
}
