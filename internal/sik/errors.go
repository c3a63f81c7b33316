package sik

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition is matched by every fault caused by calling an
	// operation in the wrong client state.
	ErrPrecondition = errors.New("operation not allowed in current state")

	ErrNotConnected     error = &preconditionError{"serial port not connected"}
	ErrNotInCommandMode error = &preconditionError{"radio not in command mode"}
	ErrStreaming        error = &preconditionError{"telemetry streaming enabled; disable it before issuing commands"}

	// ErrFailed is matched by every *OpError.
	ErrFailed = errors.New("radio operation failed")

	// ErrRawStreaming is returned by SendRaw for AT&T commands.
	ErrRawStreaming = errors.New("AT&T commands change streaming state; use ToggleRssiDebug")

	// ErrUnexpectedReply reports reply content the protocol does not accept.
	ErrUnexpectedReply = errors.New("unexpected reply")
)

type preconditionError struct{ msg string }

func (e *preconditionError) Error() string { return e.msg }

func (e *preconditionError) Is(target error) bool { return target == ErrPrecondition }

// OpError reports a transport or protocol failure of a client operation.
// errors.Is(err, ErrFailed) holds for every OpError; Unwrap returns the cause.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

func (e *OpError) Is(target error) bool { return target == ErrFailed }

func unexpectedReply(reply string) error {
	return fmt.Errorf("%w: %q", ErrUnexpectedReply, reply)
}
