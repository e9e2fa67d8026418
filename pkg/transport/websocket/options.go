package websocket

import (
	"time"
)

// ClientOptions represents websocket connection options
type ClientOptions struct {
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	PingInterval   time.Duration
	MaxMessageSize int64
	SendBufferSize int
}

// DefaultClientOptions returns default connection options
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		WriteTimeout:   10 * time.Second,
		ReadTimeout:    60 * time.Second,
		PingInterval:   30 * time.Second,
		MaxMessageSize: 512 * 1024, // 512KB
		SendBufferSize: 256,
	}
}
