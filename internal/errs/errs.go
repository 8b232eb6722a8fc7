// Package errs holds the sentinel error taxonomy shared by the bridge and
// the client session. Layers wrap these with fmt.Errorf("...: %w", err) and
// callers compare with errors.Is.
package errs

import "errors"

var (
	// ErrTransportUnavailable means the broker was unreachable or rejected
	// authentication during connect.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrNotConnected means an operation was attempted while the transport
	// is not in the connected state.
	ErrNotConnected = errors.New("not connected")

	// ErrMalformedMessage means an envelope failed to decode or was missing
	// required fields.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrUnknownCommand means the command name has no registered handler.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrHandlerFailure means the player capability returned failure or
	// raised while executing a command.
	ErrHandlerFailure = errors.New("handler failure")

	// ErrTimeout means a pending command was not answered within the
	// configured command timeout.
	ErrTimeout = errors.New("timeout")

	// ErrDisconnected means a pending command was rejected because the
	// session closed.
	ErrDisconnected = errors.New("disconnected")

	// ErrInvalidArgument means a parameter was outside its documented
	// domain (e.g. volume not in 0..100).
	ErrInvalidArgument = errors.New("invalid argument")
)
