package meta

import (
	"io"
)

// buf is reused between calls to readBytes to reduce generation of garbage;
// it grows on demand.
var buf []byte

// readBytes reads and returns exactly n bytes from r. The returned slice
// aliases a shared buffer and is only valid until the next call; it is the
// callers responsibility to make a copy of the data when needed.
func readBytes(r io.Reader, n int) ([]byte, error) {
	if cap(buf) < n {
		buf = make([]byte, n)
	}
	buf = buf[:n]
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
