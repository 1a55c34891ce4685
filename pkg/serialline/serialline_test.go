package serialline

import (
	"errors"
	"testing"
	"time"

	"github.com/roffe/i7565"
)

// fakeDevice hands out one chunk per Read, and times out when none is left.
type fakeDevice struct {
	chunks   [][]byte
	written  []byte
	timeouts []time.Duration
	readErr  error
	closed   bool
}

func (f *fakeDevice) Read(b []byte) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.chunks) == 0 {
		time.Sleep(f.timeouts[len(f.timeouts)-1])
		return 0, nil
	}
	n := copy(b, f.chunks[0])
	if n < len(f.chunks[0]) {
		f.chunks[0] = f.chunks[0][n:]
	} else {
		f.chunks = f.chunks[1:]
	}
	return n, nil
}

func (f *fakeDevice) Write(b []byte) (int, error) {
	f.written = append(f.written, b...)
	return len(b), nil
}

func (f *fakeDevice) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDevice) SetReadTimeout(t time.Duration) error {
	f.timeouts = append(f.timeouts, t)
	return nil
}

func TestReadLinePartial(t *testing.T) {
	dev := &fakeDevice{chunks: [][]byte{
		[]byte("e001AB"),
		[]byte("CDE20AFF\re0000"),
		[]byte("00100\r?3\r"),
	}}
	p := newPort(dev)

	want := []string{"e001ABCDE20AFF", "e000000100", "?3"}
	for _, w := range want {
		got, err := p.ReadLine(10*time.Millisecond, i7565.CR)
		if err != nil {
			t.Fatalf("ReadLine: %v", err)
		}
		if got != w {
			t.Fatalf("got %q, want %q", got, w)
		}
	}
	if p.Buffered() != 0 {
		t.Errorf("%d bytes left buffered", p.Buffered())
	}
	if _, err := p.ReadLine(2*time.Millisecond, i7565.CR); !errors.Is(err, i7565.ErrReadTimeout) {
		t.Fatalf("err = %v, want ErrReadTimeout", err)
	}
}

func TestReadLineTimeoutKeepsPartial(t *testing.T) {
	dev := &fakeDevice{chunks: [][]byte{[]byte("e0000")}}
	p := newPort(dev)
	if _, err := p.ReadLine(2*time.Millisecond, i7565.CR); !errors.Is(err, i7565.ErrReadTimeout) {
		t.Fatalf("err = %v", err)
	}
	if p.Buffered() != 5 {
		t.Fatalf("buffered = %d", p.Buffered())
	}
	dev.chunks = [][]byte{[]byte("00100\r")}
	got, err := p.ReadLine(10*time.Millisecond, i7565.CR)
	if err != nil || got != "e000000100" {
		t.Fatalf("got %q err %v", got, err)
	}
}

func TestReadLineError(t *testing.T) {
	dev := &fakeDevice{readErr: errors.New("device removed")}
	p := newPort(dev)
	_, err := p.ReadLine(5*time.Millisecond, i7565.CR)
	if err == nil || errors.Is(err, i7565.ErrReadTimeout) {
		t.Fatalf("err = %v", err)
	}
}

func TestPortAsLineChannel(t *testing.T) {
	dev := &fakeDevice{chunks: [][]byte{[]byte("?1\r")}}
	var ch i7565.LineChannel = newPort(dev)
	code, err := i7565.NewCommandChannel(ch, 0, 0).SendCommand("RA")
	if err != nil {
		t.Fatal(err)
	}
	if code != i7565.CodeInvalidHeader {
		t.Errorf("code = %d", code)
	}
	if string(dev.written) != "RA\r" {
		t.Errorf("written %q", dev.written)
	}
}
