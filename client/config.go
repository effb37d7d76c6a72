package client

import "time"

// Config is the ask client configuration.
type Config struct {
	// BaseURL of the QueryBot server (e.g., "http://127.0.0.1:5000")
	BaseURL string

	// Timeout bounds a single /ask round trip. Zero means DefaultTimeout.
	Timeout time.Duration
}

// DefaultTimeout is used when Config.Timeout is unset.
const DefaultTimeout = 60 * time.Second
