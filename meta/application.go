package meta

import (
	"io/ioutil"

	"github.com/pkg/errors"
)

// An Application metadata block is used by third-party applications. The only
// mandatory field is a 32-bit identifier. This ID is granted upon request to
// an application by the FLAC maintainers. The remainder of the block is
// defined by the registered application.
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_application
type Application struct {
	// Registered application ID.
	ID uint32
	// Application data.
	Data []byte
}

// parseApplication reads and parses the body of an Application metadata
// block.
//
// Application format (pseudo code):
//
//	type METADATA_BLOCK_APPLICATION struct {
//	   id   uint32
//	   data [header.Length-4]byte
//	}
//
// ref: https://www.xiph.org/flac/format.html#metadata_block_application
func (block *Block) parseApplication() error {
	if block.Length < 4 {
		return errors.Errorf("meta.Block.parseApplication: invalid block length; expected >= 4, got %d", block.Length)
	}

	// 32 bits: ID.
	app := new(Application)
	block.Body = app
	buf, err := readBytes(block.lr, 4)
	if err != nil {
		return errors.WithStack(err)
	}
	app.ID = uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3])

	// (block length)-4 bytes: Data.
	app.Data, err = ioutil.ReadAll(block.lr)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}
