// Package aeronerrors defines the client's error taxonomy so both the
// internal conductor and the public aeron package can report and inspect
// the same typed codes without an import cycle between them.
package aeronerrors

import "fmt"

// Code enumerates the error kinds a client operation can fail with.
type Code int32

const (
	InvalidArgument Code = iota
	InsufficientSpace
	DriverTimeout
	DriverDead
	BroadcastLoss
	DriverError
	Closed
	IO
)

func (c Code) String() string {
	switch c {
	case InvalidArgument:
		return "INVALID_ARGUMENT"
	case InsufficientSpace:
		return "INSUFFICIENT_SPACE"
	case DriverTimeout:
		return "DRIVER_TIMEOUT"
	case DriverDead:
		return "DRIVER_DEAD"
	case BroadcastLoss:
		return "BROADCAST_LOSS"
	case DriverError:
		return "DRIVER_ERROR"
	case Closed:
		return "CLOSED"
	case IO:
		return "IO"
	default:
		return "UNKNOWN"
	}
}

// ClientError is the concrete error type returned by every public
// operation. DriverCode and DriverMessage are only populated for
// Code == DriverError, carrying the driver's own ON_ERROR payload.
type ClientError struct {
	Code          Code
	Message       string
	DriverCode    int32
	DriverMessage string
	Err           error
}

func (e *ClientError) Error() string {
	if e.DriverMessage != "" {
		return fmt.Sprintf("%s: %s (driver code %d: %s)", e.Code, e.Message, e.DriverCode, e.DriverMessage)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code.String()
}

// Unwrap exposes a wrapped lower-level error (for example an I/O failure
// from mapping a log file) so callers can use errors.As/errors.Is through
// a ClientError.
func (e *ClientError) Unwrap() error {
	return e.Err
}

// New constructs a ClientError with no wrapped cause.
func New(code Code, message string) *ClientError {
	return &ClientError{Code: code, Message: message}
}

// Wrap constructs a ClientError wrapping err.
func Wrap(code Code, message string, err error) *ClientError {
	return &ClientError{Code: code, Message: message, Err: err}
}

// FromDriver constructs a DriverError carrying the driver's own numeric
// code and message from an ON_ERROR event.
func FromDriver(driverCode int32, driverMessage string) *ClientError {
	return &ClientError{Code: DriverError, DriverCode: driverCode, DriverMessage: driverMessage}
}
