package domain

import (
	"errors"
)

// Common domain errors
var (
	// ErrInvalidMessage is returned when an inbound message cannot be decoded
	ErrInvalidMessage = errors.New("invalid message")

	// ErrUnknownOp is returned for an op outside the protocol
	ErrUnknownOp = errors.New("unknown op")

	// ErrUnknownCategory is returned for a payload name outside the protocol
	ErrUnknownCategory = errors.New("unknown category")

	// ErrConnectionClosed is returned when trying to use a closed connection
	ErrConnectionClosed = errors.New("connection closed")

	// ErrSessionClosed is returned when a message arrives after teardown
	ErrSessionClosed = errors.New("session closed")

	// ErrDispatcherStopped is returned when broadcasting after shutdown
	ErrDispatcherStopped = errors.New("dispatcher stopped")
)
