package i7565

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const (
	CmdReset = "RA"
	cmdBaud  = "P1"
)

const hexDigits = "0123456789ABCDEF"

// LineClass is the kind of an inbound line, selected by its first character.
type LineClass int

const (
	LineEmpty LineClass = iota
	LineStandard
	LineExtended
	LineUnknown
)

func (c LineClass) String() string {
	switch c {
	case LineEmpty:
		return "empty"
	case LineStandard:
		return "standard"
	case LineExtended:
		return "extended"
	default:
		return "unknown"
	}
}

func Classify(line string) LineClass {
	if len(line) == 0 {
		return LineEmpty
	}
	switch line[0] {
	case 't', 'T':
		return LineStandard
	case 'e', 'E':
		return LineExtended
	default:
		return LineUnknown
	}
}

func EncodeStandardFrame(identifier uint32, data []byte) (string, error) {
	if err := checkID(identifier, MaxStandardID); err != nil {
		return "", err
	}
	if err := checkLength(len(data)); err != nil {
		return "", err
	}
	var out strings.Builder
	out.Grow(5 + 2*len(data))
	out.WriteByte('t')
	writeStandardID(&out, identifier)
	out.WriteByte(hexDigits[len(data)])
	writeHex(&out, data)
	return out.String(), nil
}

func EncodeStandardRemoteFrame(identifier uint32, dlc uint8) (string, error) {
	if err := checkID(identifier, MaxStandardID); err != nil {
		return "", err
	}
	if err := checkLength(int(dlc)); err != nil {
		return "", err
	}
	var out strings.Builder
	out.WriteByte('T')
	writeStandardID(&out, identifier)
	out.WriteByte(hexDigits[dlc])
	return out.String(), nil
}

func EncodeExtendedFrame(identifier uint32, data []byte) (string, error) {
	if err := checkID(identifier, MaxExtendedID); err != nil {
		return "", err
	}
	if err := checkLength(len(data)); err != nil {
		return "", err
	}
	var out strings.Builder
	out.Grow(10 + 2*len(data))
	out.WriteByte('e')
	writeExtendedID(&out, identifier)
	out.WriteByte(hexDigits[len(data)])
	writeHex(&out, data)
	return out.String(), nil
}

// EncodeExtendedRemoteFrame uses the same 'e' marker as extended data frames,
// the converter only separates them ('e'/'E') on the inbound side.
func EncodeExtendedRemoteFrame(identifier uint32, dlc uint8) (string, error) {
	if err := checkID(identifier, MaxExtendedID); err != nil {
		return "", err
	}
	if err := checkLength(int(dlc)); err != nil {
		return "", err
	}
	var out strings.Builder
	out.WriteByte('e')
	writeExtendedID(&out, identifier)
	out.WriteByte(hexDigits[dlc])
	return out.String(), nil
}

func EncodeFrame(f *CANFrame) (string, error) {
	if f == nil {
		return "", fmt.Errorf("%w: nil frame", ErrInvalidArgument)
	}
	if err := f.Validate(); err != nil {
		return "", err
	}
	switch f.Kind {
	case StandardData:
		return EncodeStandardFrame(f.Identifier, f.Data)
	case StandardRemote:
		return EncodeStandardRemoteFrame(f.Identifier, f.DLC)
	case ExtendedData:
		return EncodeExtendedFrame(f.Identifier, f.Data)
	case ExtendedRemote:
		return EncodeExtendedRemoteFrame(f.Identifier, f.DLC)
	default:
		return "", fmt.Errorf("%w: unknown frame kind %d", ErrInvalidArgument, f.Kind)
	}
}

// EncodeBaudRate builds the configuration command. The rate code follows
// "P1" as a raw byte, not as a hex digit.
func EncodeBaudRate(rate CANBaudRate) (string, error) {
	if rate > CB1000k {
		return "", fmt.Errorf("%w: baud rate code %d", ErrInvalidArgument, rate)
	}
	return cmdBaud + string([]byte{byte(rate)}), nil
}

func checkID(identifier, max uint32) error {
	if identifier > max {
		return fmt.Errorf("%w: identifier 0x%X exceeds 0x%X", ErrInvalidArgument, identifier, max)
	}
	return nil
}

func checkLength(n int) error {
	if n < 0 || n > MaxDataLength {
		return fmt.Errorf("%w: length %d exceeds %d", ErrInvalidArgument, n, MaxDataLength)
	}
	return nil
}

// 11 bits, three nibbles high->low
func writeStandardID(out *strings.Builder, id uint32) {
	out.WriteByte(hexDigits[(id>>8)&0x07])
	out.WriteByte(hexDigits[(id>>4)&0x0F])
	out.WriteByte(hexDigits[id&0x0F])
}

// 29 bits, eight nibbles high->low
func writeExtendedID(out *strings.Builder, id uint32) {
	out.WriteByte(hexDigits[(id>>28)&0x01])
	for shift := 24; shift >= 0; shift -= 4 {
		out.WriteByte(hexDigits[(id>>uint(shift))&0x0F])
	}
}

func writeHex(out *strings.Builder, data []byte) {
	for _, b := range data {
		out.WriteByte(hexDigits[b>>4])
		out.WriteByte(hexDigits[b&0x0F])
	}
}

// DecodeLine decodes a standard or extended frame report.
func DecodeLine(line string) (*CANFrame, error) {
	switch Classify(line) {
	case LineStandard:
		return DecodeStandardFrame(line)
	case LineExtended:
		return DecodeExtendedFrame(line)
	case LineEmpty:
		return nil, fmt.Errorf("%w: empty line", ErrMalformedLine)
	default:
		return nil, fmt.Errorf("%w: unsupported frame %q", ErrMalformedLine, line)
	}
}

// e 1ABCDEFF 2 0AFF
func DecodeExtendedFrame(line string) (*CANFrame, error) {
	if len(line) == 0 || (line[0] != 'e' && line[0] != 'E') {
		return nil, fmt.Errorf("%w: not an extended frame %q", ErrMalformedLine, line)
	}
	return decodeFrame(line, 8, MaxExtendedID, line[0] == 'E', true)
}

// t 123 2 0AFF
func DecodeStandardFrame(line string) (*CANFrame, error) {
	if len(line) == 0 || (line[0] != 't' && line[0] != 'T') {
		return nil, fmt.Errorf("%w: not a standard frame %q", ErrMalformedLine, line)
	}
	return decodeFrame(line, 3, MaxStandardID, line[0] == 'T', false)
}

func decodeFrame(line string, idDigits int, maxID uint32, remote, extended bool) (*CANFrame, error) {
	lenPos := 1 + idDigits
	if len(line) < lenPos+1 {
		return nil, fmt.Errorf("%w: truncated header %q", ErrMalformedLine, line)
	}

	id, err := strconv.ParseUint(line[1:lenPos], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode identifier: %v", ErrMalformedLine, err)
	}
	if uint32(id) > maxID {
		return nil, fmt.Errorf("%w: identifier 0x%X exceeds 0x%X", ErrMalformedLine, id, maxID)
	}

	msgLen, err := strconv.ParseUint(line[lenPos:lenPos+1], 16, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode message length: %v", ErrMalformedLine, err)
	}
	if msgLen > MaxDataLength {
		return nil, fmt.Errorf("%w: message length %d exceeds %d", ErrMalformedLine, msgLen, MaxDataLength)
	}

	f := &CANFrame{
		Identifier: uint32(id),
		DLC:        uint8(msgLen),
	}
	switch {
	case extended && remote:
		f.Kind = ExtendedRemote
	case extended:
		f.Kind = ExtendedData
	case remote:
		f.Kind = StandardRemote
	default:
		f.Kind = StandardData
	}
	if remote {
		return f, nil
	}

	start := lenPos + 1
	end := start + int(msgLen)*2
	if len(line) < end {
		return nil, fmt.Errorf("%w: want %d data bytes, line %q is truncated", ErrMalformedLine, msgLen, line)
	}
	data, err := hex.DecodeString(line[start:end])
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode body: %v", ErrMalformedLine, err)
	}
	f.Data = data
	return f, nil
}
