// flacdump pretty-prints the metadata blocks and frame headers of FLAC files.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"

	"github.com/karlek/flac"
	"github.com/kylelemons/godebug/pretty"
)

func main() {
	// Parse command line arguments.
	var (
		// dump decoded audio samples of each subframe.
		samples bool
	)
	flag.BoolVar(&samples, "samples", false, "dump decoded audio samples")
	flag.Parse()
	for _, path := range flag.Args() {
		if err := dump(path, samples); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

// dump pretty-prints the contents of the given FLAC file.
func dump(path string, samples bool) error {
	stream, err := flac.Open(path)
	if err != nil {
		return err
	}
	defer stream.Close()

	fmt.Println("stream info:")
	pretty.Print(stream.Info)
	for _, block := range stream.Blocks {
		fmt.Println("metadata block:")
		pretty.Print(block.Body)
	}
	for {
		f, err := stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			return err
		}
		fmt.Println("frame header:")
		pretty.Print(f.Header)
		if samples {
			for i, subframe := range f.Subframes {
				fmt.Printf("subframe %d samples:\n", i)
				pretty.Print(subframe.Samples)
			}
		}
	}
	return nil
}
