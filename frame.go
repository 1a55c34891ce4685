package i7565

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
)

const (
	MaxStandardID = 0x7FF
	MaxExtendedID = 0x1FFFFFFF
	MaxDataLength = 8
)

// FrameKind tells the frame class (standard/extended) and whether it is a
// data or a remote frame.
type FrameKind uint8

const (
	StandardData FrameKind = iota
	StandardRemote
	ExtendedData
	ExtendedRemote
)

func (k FrameKind) Extended() bool {
	return k == ExtendedData || k == ExtendedRemote
}

func (k FrameKind) Remote() bool {
	return k == StandardRemote || k == ExtendedRemote
}

func (k FrameKind) String() string {
	switch k {
	case StandardData:
		return "std"
	case StandardRemote:
		return "std-rtr"
	case ExtendedData:
		return "ext"
	case ExtendedRemote:
		return "ext-rtr"
	default:
		return "unknown"
	}
}

type CANFrame struct {
	Identifier uint32
	Kind       FrameKind
	DLC        uint8
	Data       []byte
}

// NewFrame creates a standard data frame and copies the data slice
func NewFrame(identifier uint32, data []byte) *CANFrame {
	d := make([]byte, len(data))
	copy(d, data)
	return &CANFrame{
		Identifier: identifier,
		Kind:       StandardData,
		DLC:        uint8(len(d)),
		Data:       d,
	}
}

// NewExtendedFrame creates an extended data frame and copies the data slice
func NewExtendedFrame(identifier uint32, data []byte) *CANFrame {
	frame := NewFrame(identifier, data)
	frame.Kind = ExtendedData
	return frame
}

// NewRemoteFrame creates a remote request, dlc is the requested length.
func NewRemoteFrame(identifier uint32, dlc uint8, extended bool) *CANFrame {
	kind := StandardRemote
	if extended {
		kind = ExtendedRemote
	}
	return &CANFrame{
		Identifier: identifier,
		Kind:       kind,
		DLC:        dlc,
	}
}

// Length returns the number of payload bytes carried by the frame
func (f *CANFrame) Length() int {
	return len(f.Data)
}

// Validate checks identifier width and length against the frame class.
func (f *CANFrame) Validate() error {
	maxID := uint32(MaxStandardID)
	if f.Kind.Extended() {
		maxID = MaxExtendedID
	}
	if f.Identifier > maxID {
		return fmt.Errorf("%w: identifier 0x%X exceeds 0x%X", ErrInvalidArgument, f.Identifier, maxID)
	}
	if f.Kind.Remote() {
		if f.DLC > MaxDataLength {
			return fmt.Errorf("%w: dlc %d exceeds %d", ErrInvalidArgument, f.DLC, MaxDataLength)
		}
		if len(f.Data) != 0 {
			return fmt.Errorf("%w: remote frame carries %d data bytes", ErrInvalidArgument, len(f.Data))
		}
		return nil
	}
	if len(f.Data) > MaxDataLength {
		return fmt.Errorf("%w: data length %d exceeds %d", ErrInvalidArgument, len(f.Data), MaxDataLength)
	}
	return nil
}

var (
	yellow = color.New(color.FgHiBlue).SprintfFunc()
	red    = color.New(color.FgRed).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
)

func (f *CANFrame) idString() string {
	if f.Kind.Extended() {
		return fmt.Sprintf("0x%08X", f.Identifier)
	}
	return fmt.Sprintf("0x%03X", f.Identifier)
}

func (f *CANFrame) hexView() string {
	if f.Kind.Remote() {
		return "RTR"
	}
	var hexView strings.Builder
	for i, b := range f.Data {
		hexView.WriteString(fmt.Sprintf("%02X", b))
		if i != len(f.Data)-1 {
			hexView.WriteString(" ")
		}
	}
	return hexView.String()
}

func (f *CANFrame) String() string {
	var out strings.Builder
	out.WriteString(f.idString() + " || ")
	out.WriteString(strconv.Itoa(int(f.DLC)) + " || ")
	out.WriteString(fmt.Sprintf("%-23s", f.hexView()))
	out.WriteString(" || ")
	out.WriteString(onlyPrintable(f.Data))
	return out.String()
}

func (f *CANFrame) ColorString() string {
	var out strings.Builder
	out.WriteString(green("%s", f.idString()) + " || ")
	out.WriteString(strconv.Itoa(int(f.DLC)) + " || ")
	out.WriteString(red("%-23s", f.hexView()))
	out.WriteString(" || ")
	out.WriteString(yellow("%s", onlyPrintable(f.Data)))
	return out.String()
}

func onlyPrintable(data []byte) string {
	var out strings.Builder
	for _, b := range data {
		if b < 32 || b > 126 {
			out.WriteString(".")
		} else {
			out.WriteByte(b)
		}
	}
	return out.String()
}
