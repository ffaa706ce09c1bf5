package bufseekio

import (
	"bytes"
	"io"
	"testing"
)

// countSeeker wraps an io.ReadSeeker and counts calls to Seek.
type countSeeker struct {
	io.ReadSeeker
	nseeks int
}

func (c *countSeeker) Seek(offset int64, whence int) (int64, error) {
	c.nseeks++
	return c.ReadSeeker.Seek(offset, whence)
}

func data(n int) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = byte(i)
	}
	return buf
}

func TestRead(t *testing.T) {
	want := data(100)
	b := NewReadSeekerSize(bytes.NewReader(want), 16)
	var got bytes.Buffer
	if _, err := io.Copy(&got, b); err != nil {
		t.Fatalf("unable to read; %v", err)
	}
	if !bytes.Equal(got.Bytes(), want) {
		t.Fatalf("read mismatch; expected % X, got % X", want, got.Bytes())
	}
}

func TestReadLarge(t *testing.T) {
	want := data(100)
	b := NewReadSeekerSize(bytes.NewReader(want), 16)
	// Reads larger than the buffer bypass it.
	got := make([]byte, 64)
	if _, err := io.ReadFull(b, got); err != nil {
		t.Fatalf("unable to read; %v", err)
	}
	if !bytes.Equal(got, want[:64]) {
		t.Fatalf("read mismatch; expected % X, got % X", want[:64], got)
	}
	if pos, err := b.Seek(0, io.SeekCurrent); err != nil || pos != 64 {
		t.Fatalf("position mismatch; expected 64, got %d (err %v)", pos, err)
	}
}

func TestSeek(t *testing.T) {
	want := data(100)
	b := NewReadSeekerSize(bytes.NewReader(want), 16)
	var buf [4]byte
	golden := []struct {
		offset int64
		whence int
		pos    int64
	}{
		{offset: 20, whence: io.SeekStart, pos: 20},
		{offset: -4, whence: io.SeekCurrent, pos: 20},
		{offset: 4, whence: io.SeekCurrent, pos: 28},
		{offset: -1, whence: io.SeekEnd, pos: 99},
		{offset: 0, whence: io.SeekStart, pos: 0},
	}
	for _, g := range golden {
		pos, err := b.Seek(g.offset, g.whence)
		if err != nil {
			t.Fatalf("unable to seek to offset %d (whence %d); %v", g.offset, g.whence, err)
		}
		if pos != g.pos {
			t.Fatalf("position mismatch; expected %d, got %d", g.pos, pos)
		}
		if _, err := io.ReadFull(b, buf[:]); err != nil && g.pos+4 <= 100 {
			t.Fatalf("unable to read at offset %d; %v", pos, err)
		}
		if g.pos+4 <= 100 && !bytes.Equal(buf[:], want[g.pos:g.pos+4]) {
			t.Fatalf("read mismatch at offset %d; expected % X, got % X", g.pos, want[g.pos:g.pos+4], buf)
		}
	}
}

// Seeks within the buffered data must not reposition the underlying
// read-seeker.
func TestSeekBuffered(t *testing.T) {
	cs := &countSeeker{ReadSeeker: bytes.NewReader(data(100))}
	b := NewReadSeekerSize(cs, 16)
	var buf [8]byte
	if _, err := io.ReadFull(b, buf[:]); err != nil {
		t.Fatalf("unable to read; %v", err)
	}
	if pos, err := b.Seek(0, io.SeekCurrent); err != nil || pos != 8 {
		t.Fatalf("position mismatch; expected 8, got %d (err %v)", pos, err)
	}
	if _, err := b.Seek(2, io.SeekStart); err != nil {
		t.Fatalf("unable to seek; %v", err)
	}
	if _, err := io.ReadFull(b, buf[:4]); err != nil {
		t.Fatalf("unable to read; %v", err)
	}
	if !bytes.Equal(buf[:4], []byte{2, 3, 4, 5}) {
		t.Fatalf("read mismatch; expected 02 03 04 05, got % X", buf[:4])
	}
	if cs.nseeks != 0 {
		t.Errorf("underlying seek count mismatch; expected 0, got %d", cs.nseeks)
	}
}
