package config

import "time"

// TLSMode selects how a session's transport is secured.
type TLSMode int

const (
	TLSOff TLSMode = iota
	TLSOn
	TLSOnWithCustomCA
)

// ProtocolMode selects which data-stream processor a session uses.
type ProtocolMode int

const (
	ProtocolAuto ProtocolMode = iota
	ProtocolTN5250
	ProtocolTN3270
	ProtocolNVT
)

// SessionConfig is the already-parsed configuration struct the core
// consumes. The UI layer (cmd/tn5250) is responsible for reading/writing
// this from whatever persisted form it chooses.
type SessionConfig struct {
	Host string
	Port int

	TLSMode     TLSMode
	CustomCAPEM []byte // optional PEM bundle, max 10 MB

	Protocol ProtocolMode

	IdleTimeout          time.Duration
	KeepaliveInterval    time.Duration
	ConnectTimeout       time.Duration
	MaxReconnectAttempts int
	BackoffMultiplier    float64

	Username string
	Password string
}

// Default returns a SessionConfig with the standard defaults for
// everything timing-related.
func Default() SessionConfig {
	return SessionConfig{
		Protocol:             ProtocolAuto,
		IdleTimeout:          5 * time.Minute,
		KeepaliveInterval:    30 * time.Second,
		ConnectTimeout:       10 * time.Second,
		MaxReconnectAttempts: 5,
		BackoffMultiplier:    2.0,
	}
}
