package i7565

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestDriver(t *testing.T) (*Driver, *fakeLine) {
	t.Helper()
	fl := &fakeLine{}
	d, err := New(fl, quietConfig())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return d, fl
}

func TestNewResets(t *testing.T) {
	d, fl := newTestDriver(t)
	if len(fl.written) != 1 || fl.written[0] != "RA\r" {
		t.Fatalf("written = %q", fl.written)
	}
	if st := d.Stats(); st.Commands != 1 {
		t.Errorf("commands = %d", st.Commands)
	}
}

func TestNewFailures(t *testing.T) {
	if _, err := New(nil, nil); !errors.Is(err, ErrNilChannel) {
		t.Errorf("nil channel: %v", err)
	}
	fl := &fakeLine{writeErr: errors.New("port closed")}
	if _, err := New(fl, quietConfig()); err == nil || IsRecoverable(err) {
		t.Errorf("reset write failure: %v", err)
	}
}

func TestDriverSendOperations(t *testing.T) {
	d, fl := newTestDriver(t)
	tests := []struct {
		name string
		fn   func() (ErrorCode, error)
		want string
	}{
		{"std", func() (ErrorCode, error) { return d.SendStandardFrame(0x7FF, []byte{1}) }, "t7FF101\r"},
		{"std rtr", func() (ErrorCode, error) { return d.SendStandardRemoteFrame(0x100, 8) }, "T1008\r"},
		{"ext", func() (ErrorCode, error) { return d.SendExtendedFrame(0x1ABCDE, []byte{0x0A, 0xFF}) }, "e001ABCDE20AFF\r"},
		{"ext rtr", func() (ErrorCode, error) { return d.SendExtendedRemoteFrame(0x1ABCDE, 1) }, "e001ABCDE1\r"},
		{"frame", func() (ErrorCode, error) { return d.Send(NewFrame(0x001, nil)) }, "t0010\r"},
		{"baud", func() (ErrorCode, error) { return d.SetCANBaudRate(CB125k) }, "P1\x04\r"},
		{"reset", d.Reset, "RA\r"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fl.written = nil
			code, err := tt.fn()
			if err != nil || code != CodeOK {
				t.Fatalf("code=%d err=%v", code, err)
			}
			if len(fl.written) != 1 || fl.written[0] != tt.want {
				t.Errorf("written = %q, want %q", fl.written, tt.want)
			}
		})
	}
}

func TestDriverPreconditionWritesNothing(t *testing.T) {
	d, fl := newTestDriver(t)
	fl.written = nil
	if _, err := d.SendStandardFrame(0x800, nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("id 0x800: %v", err)
	}
	if _, err := d.SendStandardFrame(0x7FF, make([]byte, 9)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("length 9: %v", err)
	}
	if _, err := d.SendExtendedRemoteFrame(0x20000000, 0); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("ext id: %v", err)
	}
	if _, err := d.SetCANBaudRate(CANBaudRate(12)); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("baud: %v", err)
	}
	if len(fl.written) != 0 {
		t.Errorf("written = %q", fl.written)
	}
}

func TestDriverDeviceError(t *testing.T) {
	d, fl := newTestDriver(t)
	fl.push("?3")
	code, err := d.SendExtendedFrame(0x100, nil)
	if err != nil {
		t.Fatal(err)
	}
	if code != CodeInvalidChecksum || d.GetErrorString(int(code)) != "Invalid checksum" {
		t.Errorf("code = %d (%s)", code, d.GetErrorString(int(code)))
	}
	if d.Stats().DeviceErrors != 1 {
		t.Errorf("device errors = %d", d.Stats().DeviceErrors)
	}
}

func TestPollFairness(t *testing.T) {
	d, fl := newTestDriver(t)
	rec := &recorder{}
	d.AddExtendedFrameListener(rec)
	for i := 0; i < 15; i++ {
		line, _ := EncodeExtendedFrame(uint32(i), []byte{byte(i)})
		fl.push(line)
	}

	n, err := d.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if n != 10 || len(rec.ids) != 10 {
		t.Fatalf("first poll dispatched %d (listener saw %d), want 10", n, len(rec.ids))
	}
	if len(fl.lines) != 5 {
		t.Fatalf("%d lines left, want 5", len(fl.lines))
	}
	n, _ = d.Poll()
	if n != 5 {
		t.Fatalf("second poll dispatched %d, want 5", n)
	}
	for i, id := range rec.ids {
		if id != uint32(i) {
			t.Fatalf("frame %d has id %d, order not preserved", i, id)
		}
	}
}

func TestPollPendingCarryOver(t *testing.T) {
	d, fl := newTestDriver(t)
	rec := &recorder{}
	d.AddExtendedFrameListener(rec)

	fl.push("e000000AA10A")
	code, err := d.SendExtendedFrame(0x55, []byte{1})
	if err != nil || code != CodeOK {
		t.Fatalf("code=%d err=%v", code, err)
	}
	fl.push("e000000BB10B", "e000000CC10C")

	if _, err := d.Poll(); err != nil {
		t.Fatal(err)
	}
	want := []uint32{0xAA, 0xBB, 0xCC}
	if fmt.Sprint(rec.ids) != fmt.Sprint(want) {
		t.Fatalf("ids = %X, want %X", rec.ids, want)
	}
	if !bytes.Equal(rec.data[0], []byte{0x0A}) {
		t.Errorf("data = %X", rec.data[0])
	}
	if d.Stats().ReplyFrames != 1 {
		t.Errorf("reply frames = %d", d.Stats().ReplyFrames)
	}
}

func TestPollListenerIsolation(t *testing.T) {
	var errs []error
	cfg := quietConfig()
	cfg.OnError = func(err error) { errs = append(errs, err) }
	fl := &fakeLine{}
	d, err := New(fl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	p := &panicker{}
	rec := &recorder{}
	d.AddExtendedFrameListener(p)
	d.AddExtendedFrameListener(rec)

	fl.push("e001ABCDE20AFF")
	n, err := d.Poll()
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if p.calls != 1 || len(rec.ids) != 1 || rec.ids[0] != 0x1ABCDE {
		t.Fatalf("panicker=%d recorder=%v", p.calls, rec.ids)
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrListenerPanic) {
		t.Errorf("errors = %v", errs)
	}
	if d.Stats().ListenerPanics != 1 {
		t.Errorf("listener panics = %d", d.Stats().ListenerPanics)
	}
}

func TestPollMixedLines(t *testing.T) {
	var msgs []string
	var errs []error
	cfg := &Config{
		OnMessage: func(s string) { msgs = append(msgs, s) },
		OnError:   func(err error) { errs = append(errs, err) },
	}
	fl := &fakeLine{}
	d, err := New(fl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	d.AddExtendedFrameListener(rec)

	fl.push("t1230", "e001AB", "z", "E001ABCDE4", "e001ABCDE20AFF")
	n, err := d.Poll()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("dispatched %d, want 2", n)
	}
	if len(rec.ids) != 2 || rec.data[0] != nil {
		t.Fatalf("remote frame delivered with data %X", rec.data)
	}
	st := d.Stats()
	if st.Standard != 1 || st.Malformed != 1 || st.Unknown != 1 || st.Dispatched != 2 {
		t.Errorf("stats = %s", st.String())
	}
	if len(errs) != 1 || !errors.Is(errs[0], ErrMalformedLine) {
		t.Errorf("errors = %v", errs)
	}
	if len(msgs) != 1 || msgs[0] != `[WARN] unknown line: "z"` {
		t.Errorf("messages = %q", msgs)
	}
}

func TestPollTransportError(t *testing.T) {
	d, fl := newTestDriver(t)
	fl.readErr = errors.New("device removed")
	if _, err := d.Poll(); err == nil || IsRecoverable(err) {
		t.Fatalf("err = %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := d.PollLoop(ctx, time.Millisecond); err == nil || IsRecoverable(err) {
		t.Fatalf("PollLoop err = %v", err)
	}
}

func TestPollLoopStopsOnCancel(t *testing.T) {
	d, fl := newTestDriver(t)
	rec := &recorder{}
	d.AddExtendedFrameListener(rec)
	fl.push("e000000010")

	ctx, cancel := context.WithCancel(context.Background())
	d.AddExtendedFrameListener(ExtendedFrameListenerFunc(func(uint32, []byte) { cancel() }))
	if err := d.PollLoop(ctx, time.Millisecond); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if len(rec.ids) != 1 {
		t.Fatalf("got %d frames", len(rec.ids))
	}
}

func TestDriverClose(t *testing.T) {
	d, fl := newTestDriver(t)
	if err := d.Close(); err != nil || !fl.closed {
		t.Fatalf("err=%v closed=%v", err, fl.closed)
	}
	if err := d.Close(); err == nil {
		t.Fatal("second close should fail")
	}
}

func TestPollEvents(t *testing.T) {
	var events []Event
	cfg := &Config{
		Debug:   true,
		OnEvent: func(e Event) {
			if e.Line != "" {
				events = append(events, e)
			}
		},
		OnError: func(error) {},
	}
	fl := &fakeLine{}
	d, err := New(fl, cfg)
	if err != nil {
		t.Fatal(err)
	}
	events = nil

	fl.push("t1230", "?x")
	if _, err := d.Poll(); err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("events = %v", events)
	}
	if events[0].Type != EventTypeDebug || events[0].Line != "t1230" {
		t.Errorf("standard frame event = %+v", events[0])
	}
	if events[1].Type != EventTypeWarning || events[1].Line != "?x" {
		t.Errorf("unknown line event = %+v", events[1])
	}
}

func TestEventString(t *testing.T) {
	e := Event{Type: EventTypeInfo, Details: "reset"}
	if got := e.String(); got != "[INFO] reset" {
		t.Errorf("String() = %q", got)
	}
	e = Event{Type: EventTypeWarning, Details: "unknown line", Line: "z1"}
	if got := e.String(); got != `[WARN] unknown line: "z1"` {
		t.Errorf("String() = %q", got)
	}
}
