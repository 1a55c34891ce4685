package i7565

import (
	"errors"
	"strings"
	"time"
)

// fakeLine is an in-memory LineChannel. Every ReadLine pops one queued line,
// an empty queue behaves like a read timeout.
type fakeLine struct {
	written  []string
	lines    []string
	timeouts []time.Duration
	writeErr error
	readErr  error
	closed   bool
}

func (f *fakeLine) Write(b []byte) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, string(b))
	return len(b), nil
}

func (f *fakeLine) ReadLine(timeout time.Duration, terminator byte) (string, error) {
	f.timeouts = append(f.timeouts, timeout)
	if f.readErr != nil {
		return "", f.readErr
	}
	if len(f.lines) == 0 {
		return "", ErrReadTimeout
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return strings.TrimSuffix(line, string(terminator)), nil
}

func (f *fakeLine) Close() error {
	if f.closed {
		return errors.New("already closed")
	}
	f.closed = true
	return nil
}

func (f *fakeLine) push(lines ...string) {
	f.lines = append(f.lines, lines...)
}

type recorder struct {
	ids  []uint32
	data [][]byte
}

func (r *recorder) OnExtendedFrameReceived(fromID uint32, data []byte) {
	r.ids = append(r.ids, fromID)
	r.data = append(r.data, data)
}

type panicker struct {
	calls int
}

func (p *panicker) OnExtendedFrameReceived(uint32, []byte) {
	p.calls++
	panic("listener failure")
}

func quietConfig() *Config {
	return &Config{
		OnMessage: func(string) {},
		OnError:   func(error) {},
	}
}
