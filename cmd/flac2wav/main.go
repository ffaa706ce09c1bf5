// flac2wav converts FLAC files to WAV files.
package main

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/karlek/flac"
	"github.com/mewkiz/pkg/osutil"
	"github.com/mewkiz/pkg/pathutil"
	"github.com/pkg/errors"
)

func main() {
	// Parse command line arguments.
	var (
		// force overwrite WAV file if already present.
		force bool
	)
	flag.BoolVar(&force, "f", false, "force overwrite")
	flag.Parse()
	for _, flacPath := range flag.Args() {
		if err := flac2wav(flacPath, force); err != nil {
			log.Fatalf("%+v", err)
		}
	}
}

// flac2wav converts the given FLAC file to a WAV file.
func flac2wav(flacPath string, force bool) error {
	// Create FLAC decoder.
	stream, err := flac.Open(flacPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer stream.Close()
	sampleRate, nchannels, bps := int(stream.Info.SampleRate), int(stream.Info.NChannels), int(stream.Info.BitsPerSample)

	// Create WAV encoder.
	wavPath := pathutil.TrimExt(flacPath) + ".wav"
	if !force && osutil.Exists(wavPath) {
		return errors.Errorf("WAV file %q already present; use -f flag to force overwrite", wavPath)
	}
	w, err := os.Create(wavPath)
	if err != nil {
		return errors.WithStack(err)
	}
	defer w.Close()
	const audioFormatPCM = 1
	enc := wav.NewEncoder(w, sampleRate, bps, nchannels, audioFormatPCM)
	defer enc.Close()

	// Decode samples.
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: nchannels,
			SampleRate:  sampleRate,
		},
		SourceBitDepth: bps,
	}
	// Decoded samples occupy the high bits of the 32-bit range; shift down to
	// recover the original values.
	shift := uint(32 - bps)
	for {
		f, err := stream.ParseNext()
		if err != nil {
			if err == io.EOF {
				break
			}
			return errors.WithStack(err)
		}
		buf.Data = buf.Data[:0]
		for i := 0; i < int(f.BlockSize); i++ {
			for _, subframe := range f.Subframes {
				buf.Data = append(buf.Data, int(subframe.Samples[i]>>shift))
			}
		}
		if err := enc.Write(buf); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
