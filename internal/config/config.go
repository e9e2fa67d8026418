package config

import (
	"time"

	"github.com/ivankia/aeternal/internal/logging"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Broadcast BroadcastConfig `json:"broadcast" yaml:"broadcast"`
	Logging   logging.Config  `json:"logging" yaml:"logging"`
}

// ServerConfig represents the websocket listener configuration
type ServerConfig struct {
	Host         string        `json:"host" yaml:"host"`
	Port         int           `json:"port" yaml:"port"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// BroadcastConfig represents the outbound delivery pool configuration
type BroadcastConfig struct {
	Workers     int           `json:"workers" yaml:"workers"`
	QueueSize   int           `json:"queue_size" yaml:"queue_size"`
	SendTimeout time.Duration `json:"send_timeout" yaml:"send_timeout"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         3020,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Broadcast: BroadcastConfig{
			Workers:     20,
			QueueSize:   1024,
			SendTimeout: 5 * time.Second,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return NewConfigError("server.port", "invalid port number")
	}

	if c.Server.ReadTimeout < 0 {
		return NewConfigError("server.read_timeout", "timeout cannot be negative")
	}

	if c.Server.WriteTimeout < 0 {
		return NewConfigError("server.write_timeout", "timeout cannot be negative")
	}

	if c.Broadcast.Workers <= 0 {
		return NewConfigError("broadcast.workers", "worker count must be positive")
	}

	if c.Broadcast.QueueSize <= 0 {
		return NewConfigError("broadcast.queue_size", "queue size must be positive")
	}

	if c.Broadcast.SendTimeout <= 0 {
		return NewConfigError("broadcast.send_timeout", "timeout must be positive")
	}

	return nil
}
