package aeron

import "github.com/aeron-go-client/aeron/internal/aeronerrors"

// ErrorCode enumerates the kinds a client operation can fail with.
type ErrorCode = aeronerrors.Code

const (
	ErrInvalidArgument   = aeronerrors.InvalidArgument
	ErrInsufficientSpace = aeronerrors.InsufficientSpace
	ErrDriverTimeout     = aeronerrors.DriverTimeout
	ErrDriverDead        = aeronerrors.DriverDead
	ErrBroadcastLoss     = aeronerrors.BroadcastLoss
	ErrDriverError       = aeronerrors.DriverError
	ErrClosed            = aeronerrors.Closed
	ErrIO                = aeronerrors.IO
)

// AeronError is the concrete error type returned by every public operation.
// DriverCode and DriverMessage are only populated for Code == ErrDriverError,
// carrying the driver's own ON_ERROR payload.
type AeronError = aeronerrors.ClientError
