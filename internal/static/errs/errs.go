package errs

import "errors"

var (
	// ErrConfiguration reports an invalid worker/participant layout or missing settings.
	ErrConfiguration = errors.New("configuration error")
	// ErrLookup reports a message field that is absent.
	ErrLookup = errors.New("message field not found")
	// ErrTypeMismatch reports a message field stored under a different kind.
	ErrTypeMismatch = errors.New("message field type mismatch")
	// ErrTransport reports a failed send or receive.
	ErrTransport = errors.New("transport failure")
	// ErrStrategy reports an error raised by a decision or job strategy.
	ErrStrategy = errors.New("strategy error")
	// ErrProtocol reports a report/command exchange that breaks the coordination protocol.
	ErrProtocol = errors.New("protocol violation")
)

var (
	ErrWorkerStopped   = errors.New("worker already stopped")
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrInvalidToken    = errors.New("invalid worker token")
)
