package defs

import "time"

// Protocol constants
const (
	MagicNumber uint16 = 0x57EE

	// HeaderSize is magic(2) + type(1) + reserved(1) + payload length(4)
	HeaderSize = 8
	// MaxPayloadSize bounds a single frame
	MaxPayloadSize = 16 << 20

	// Message types
	MsgWorkerRegister  byte = 0x01
	MsgRegisterAck     byte = 0x02
	MsgReport          byte = 0x03
	MsgCommand         byte = 0x04
	MsgWorkerHeartbeat byte = 0x05
	MsgError           byte = 0x07

	// Configuration constants
	InitialRegistrationTimeout = 30 * time.Second
	ConnectionRetryDelay       = 1 * time.Second
	DialRetryDelay             = 500 * time.Millisecond
)

// Error codes carried by MsgError frames
const (
	ErrCodeInvalidRegistration = 1001
	ErrCodeUnknownWorker       = 1002
	ErrCodeDuplicateWorker     = 1003
	ErrCodeInvalidToken        = 1004
	ErrCodeNotRegistered       = 1005
	ErrCodeInvalidReport       = 1006
	ErrCodeInvalidHeartbeat    = 1007
	ErrCodeUnknownMessage      = 1016
)
