package domain

import (
	"context"
)

// ClientID is the stable token identifying one live connection. Two
// references carrying the same ID address the same connection, so all
// registry bookkeeping is keyed on it.
type ClientID string

// Client represents a connected subscriber.
type Client interface {
	// ID returns the unique identifier of the client
	ID() ClientID

	// Send queues a message for delivery to the client
	Send(ctx context.Context, message []byte) error

	// Receive sets up a message handler for incoming messages
	Receive(handler MessageHandler) error

	// Close closes the client connection
	Close() error

	// Context returns the client's context, done once the connection is gone
	Context() context.Context
}

// MessageHandler is a function that handles incoming messages. Returning an
// error marks the connection as unusable; the transport tears it down.
type MessageHandler func(message []byte) error
