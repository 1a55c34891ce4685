package i7565

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Driver talks to an i-7565 style converter over a LineChannel. It owns no
// goroutine: the host must call Poll (or PollLoop) often enough to keep the
// transport buffers drained. A Driver must not be used from more than one
// goroutine at a time.
type Driver struct {
	cfg   *Config
	ch    LineChannel
	cmd   *CommandChannel
	disp  *Dispatcher
	stats Stats
}

// New wraps ch and resets the converter. A transport failure during the
// reset aborts construction.
func New(ch LineChannel, cfg *Config) (*Driver, error) {
	if ch == nil {
		return nil, Unrecoverable(ErrNilChannel)
	}
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.setDefaults()

	d := &Driver{
		cfg:  cfg,
		ch:   ch,
		cmd:  NewCommandChannel(ch, cfg.ReplyTimeout, cfg.PollTimeout),
		disp: NewDispatcher(),
	}
	if cfg.Debug {
		d.cmd.OnTraffic = func(s string) { d.event(EventTypeDebug, s, "") }
	}
	d.cmd.OnPending = func(string) { d.stats.ReplyFrames++ }
	d.cmd.OnDropped = func(line string) {
		d.stats.DroppedPending++
		d.cfg.OnError(fmt.Errorf("%w: %q", ErrDroppedLine, line))
	}
	d.disp.OnPanic = func(err error) {
		d.stats.ListenerPanics++
		d.cfg.OnError(err)
	}

	code, err := d.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset failed: %w", err)
	}
	if code != CodeOK {
		d.event(EventTypeWarning, "reset replied: "+code.String(), "")
	}
	return d, nil
}

func (d *Driver) event(t EventType, details, line string) {
	if t == EventTypeDebug && !d.cfg.Debug {
		return
	}
	e := Event{Type: t, Details: details, Line: line}
	if d.cfg.OnEvent != nil {
		d.cfg.OnEvent(e)
		return
	}
	d.cfg.OnMessage(e.String())
}

func (d *Driver) sendCommand(cmd string) (ErrorCode, error) {
	d.stats.Commands++
	code, err := d.cmd.SendCommand(cmd)
	if err != nil {
		return code, err
	}
	if code != CodeOK {
		d.stats.DeviceErrors++
	}
	return code, nil
}

func (d *Driver) Reset() (ErrorCode, error) {
	return d.sendCommand(CmdReset)
}

func (d *Driver) SendStandardFrame(toID uint32, data []byte) (ErrorCode, error) {
	cmd, err := EncodeStandardFrame(toID, data)
	if err != nil {
		return CodeOK, err
	}
	return d.sendCommand(cmd)
}

func (d *Driver) SendStandardRemoteFrame(toID uint32, dlc uint8) (ErrorCode, error) {
	cmd, err := EncodeStandardRemoteFrame(toID, dlc)
	if err != nil {
		return CodeOK, err
	}
	return d.sendCommand(cmd)
}

func (d *Driver) SendExtendedFrame(toID uint32, data []byte) (ErrorCode, error) {
	cmd, err := EncodeExtendedFrame(toID, data)
	if err != nil {
		return CodeOK, err
	}
	return d.sendCommand(cmd)
}

func (d *Driver) SendExtendedRemoteFrame(toID uint32, dlc uint8) (ErrorCode, error) {
	cmd, err := EncodeExtendedRemoteFrame(toID, dlc)
	if err != nil {
		return CodeOK, err
	}
	return d.sendCommand(cmd)
}

// Send encodes f according to its kind.
func (d *Driver) Send(f *CANFrame) (ErrorCode, error) {
	cmd, err := EncodeFrame(f)
	if err != nil {
		return CodeOK, err
	}
	return d.sendCommand(cmd)
}

// SetCANBaudRate stores a new bus rate in the converter, which then reboots
// and resumes communication at that rate.
func (d *Driver) SetCANBaudRate(rate CANBaudRate) (ErrorCode, error) {
	cmd, err := EncodeBaudRate(rate)
	if err != nil {
		return CodeOK, err
	}
	d.event(EventTypeInfo, "setting CAN rate to "+rate.String()+", converter will reboot", "")
	return d.sendCommand(cmd)
}

func (d *Driver) GetErrorString(code int) string {
	return GetErrorString(code)
}

func (d *Driver) AddStandardFrameListener(l StandardFrameListener) {
	d.disp.AddStandardFrameListener(l)
}

func (d *Driver) RemoveStandardFrameListener(l StandardFrameListener) {
	d.disp.RemoveStandardFrameListener(l)
}

func (d *Driver) AddExtendedFrameListener(l ExtendedFrameListener) {
	d.disp.AddExtendedFrameListener(l)
}

func (d *Driver) RemoveExtendedFrameListener(l ExtendedFrameListener) {
	d.disp.RemoveExtendedFrameListener(l)
}

// Poll drains at most MaxFramesPerPoll lines and notifies extended frame
// listeners in arrival order. It returns the number of frames dispatched.
// Only transport failures are returned as errors.
func (d *Driver) Poll() (int, error) {
	lines, err := d.cmd.PollLines(d.cfg.MaxFramesPerPoll)
	dispatched := 0
	for _, line := range lines {
		if d.process(line) {
			dispatched++
		}
	}
	return dispatched, err
}

func (d *Driver) process(line string) bool {
	switch Classify(line) {
	case LineExtended:
		f, err := DecodeExtendedFrame(line)
		if err != nil {
			d.stats.Malformed++
			d.cfg.OnError(fmt.Errorf("failed to decode frame: %w", err))
			return false
		}
		d.stats.Dispatched++
		d.disp.NotifyExtended(f.Identifier, f.Data)
		return true
	case LineStandard:
		// standard frame reports are not dispatched
		d.stats.Standard++
		d.event(EventTypeDebug, "standard frame dropped", line)
	default:
		d.stats.Unknown++
		d.event(EventTypeWarning, "unknown line", line)
	}
	return false
}

// PollLoop calls Poll every interval on the calling goroutine until ctx is
// done or the transport fails.
func (d *Driver) PollLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := d.Poll(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (d *Driver) Stats() Stats {
	return d.stats
}

// Close closes the line channel if it implements io.Closer.
func (d *Driver) Close() error {
	if c, ok := d.ch.(io.Closer); ok {
		if err := c.Close(); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to close line channel: %w", err)
		}
	}
	return nil
}
