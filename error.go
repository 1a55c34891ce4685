package i7565

import (
	"errors"
	"fmt"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	var ue unrecoverableError
	return !errors.As(err, &ue)
}

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMalformedLine   = errors.New("malformed line")
	ErrReadTimeout     = errors.New("read timeout")
	ErrNilChannel      = errors.New("line channel is nil")
	ErrListenerPanic   = errors.New("listener panicked")
	ErrDroppedLine     = errors.New("pending line overwritten")
)

// ErrorCode is the result of a single command as reported by the converter
// in a "?<digit>" reply. Zero means no error was reported.
type ErrorCode int

const (
	CodeOK ErrorCode = iota
	CodeInvalidHeader
	CodeInvalidLength
	CodeInvalidChecksum
	CodeReserved
	CodeTimeout

	// CodeOutOfRange is returned for "?" replies without a digit.
	CodeOutOfRange ErrorCode = -1
)

var errorStrings = [...]string{
	"Errno out of range",
	"Invalid header",
	"Invalid length",
	"Invalid checksum",
	"Reserved",
	"Timeout",
}

// GetErrorString translates a code returned by the send operations.
func GetErrorString(code int) string {
	if code < 1 || code >= len(errorStrings) {
		return errorStrings[0]
	}
	return errorStrings[code]
}

func (c ErrorCode) String() string {
	if c == CodeOK {
		return "OK"
	}
	return GetErrorString(int(c))
}

// Err returns nil for CodeOK and a *DeviceError otherwise.
func (c ErrorCode) Err() error {
	if c == CodeOK {
		return nil
	}
	return &DeviceError{Code: c}
}

type DeviceError struct {
	Code ErrorCode
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device error: %s (%d)", e.Code, int(e.Code))
}
