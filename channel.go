package i7565

import (
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	CR = 0x0D

	DefaultReplyTimeout = 10 * time.Millisecond
	DefaultPollTimeout  = 3 * time.Millisecond
)

// LineChannel is the CR framed transport to the converter. ReadLine returns
// a line without its terminator, or ErrReadTimeout when none arrived in time.
type LineChannel interface {
	io.Writer
	ReadLine(timeout time.Duration, terminator byte) (string, error)
}

// CommandChannel performs request/reply exchanges and holds at most one
// reply line that turned out to be a frame report.
type CommandChannel struct {
	ch           LineChannel
	replyTimeout time.Duration
	pollTimeout  time.Duration

	pending    string
	hasPending bool

	// OnTraffic is called with every line written (">> ") or read ("<< ").
	OnTraffic func(string)
	// OnPending is called when a reply is kept as the pending line.
	OnPending func(string)
	// OnDropped receives a pending line replaced before it was polled.
	OnDropped func(string)
}

func NewCommandChannel(ch LineChannel, replyTimeout, pollTimeout time.Duration) *CommandChannel {
	if replyTimeout <= 0 {
		replyTimeout = DefaultReplyTimeout
	}
	if pollTimeout <= 0 {
		pollTimeout = DefaultPollTimeout
	}
	return &CommandChannel{
		ch:           ch,
		replyTimeout: replyTimeout,
		pollTimeout:  pollTimeout,
	}
}

// SendCommand writes cmd followed by CR and waits for one reply line. A
// reply timeout counts as success.
func (c *CommandChannel) SendCommand(cmd string) (ErrorCode, error) {
	c.trace(">> " + cmd)
	if _, err := c.ch.Write([]byte(cmd + "\r")); err != nil {
		return CodeOK, Unrecoverable(fmt.Errorf("failed to write command %q: %w", cmd, err))
	}

	reply, err := c.ch.ReadLine(c.replyTimeout, CR)
	if err != nil {
		if errors.Is(err, ErrReadTimeout) {
			return CodeOK, nil
		}
		return CodeOK, Unrecoverable(fmt.Errorf("failed to read reply: %w", err))
	}
	c.trace("<< " + reply)

	if len(reply) > 0 && reply[0] == '?' {
		return parseErrorReply(reply), nil
	}
	if len(reply) > 0 {
		c.setPending(reply)
	}
	return CodeOK, nil
}

func parseErrorReply(reply string) ErrorCode {
	if len(reply) < 2 || reply[1] < '0' || reply[1] > '9' {
		return CodeOutOfRange
	}
	return ErrorCode(reply[1] - '0')
}

func (c *CommandChannel) setPending(line string) {
	if c.hasPending && c.OnDropped != nil {
		c.OnDropped(c.pending)
	}
	c.pending = line
	c.hasPending = true
	if c.OnPending != nil {
		c.OnPending(line)
	}
}

// Pending reports the buffered reply line, if any, without consuming it.
func (c *CommandChannel) Pending() (string, bool) {
	return c.pending, c.hasPending
}

// PollLines returns up to max lines: the pending line first, then whatever
// the transport delivers until a read times out or an empty line is read.
func (c *CommandChannel) PollLines(max int) ([]string, error) {
	if max <= 0 {
		return nil, nil
	}
	lines := make([]string, 0, max)

	timeout := c.replyTimeout
	if c.hasPending {
		lines = append(lines, c.pending)
		c.pending, c.hasPending = "", false
		timeout = c.pollTimeout
	}

	for len(lines) < max {
		line, err := c.ch.ReadLine(timeout, CR)
		if err != nil {
			if errors.Is(err, ErrReadTimeout) {
				return lines, nil
			}
			return lines, Unrecoverable(fmt.Errorf("failed to read line: %w", err))
		}
		if len(line) == 0 {
			return lines, nil
		}
		c.trace("<< " + line)
		lines = append(lines, line)
		timeout = c.pollTimeout
	}
	return lines, nil
}

func (c *CommandChannel) trace(s string) {
	if c.OnTraffic != nil {
		c.OnTraffic(s)
	}
}
