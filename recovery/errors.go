// Package recovery implements the error/recovery engine: a sanitizer,
// rate limiter, circuit breaker, retry policy, protocol-violation
// tracker, sequence validator, and DSNR generator.
package recovery

// Kind is an error taxonomy value. Kinds, not concrete Go
// error types, are what the rest of the system reasons about; a Kind
// carries no message of its own.
type Kind string

const (
	// Network
	KindConnectRefused Kind = "ConnectRefused"
	KindConnectTimeout Kind = "ConnectTimeout"
	KindUnreachable    Kind = "Unreachable"
	KindDropped        Kind = "Dropped"
	KindIdleTimeout    Kind = "IdleTimeout"

	// Security
	KindTlsHandshake     Kind = "TlsHandshake"
	KindCertInvalid      Kind = "CertInvalid"
	KindCertExpired      Kind = "CertExpired"
	KindHostnameMismatch Kind = "HostnameMismatch"

	// Protocol
	KindMalformedPacket        Kind = "MalformedPacket"
	KindInvalidCommand         Kind = "InvalidCommand"
	KindInvalidOrder           Kind = "InvalidOrder"
	KindInvalidAddress         Kind = "InvalidAddress"
	KindInvalidFieldDefinition Kind = "InvalidFieldDefinition"
	KindOutOfOrderSequence     Kind = "OutOfOrderSequence"
	KindSubnegUnterminated     Kind = "SubnegUnterminated"

	// Input
	KindKeyboardLocked  Kind = "KeyboardLocked"
	KindProtectedCell   Kind = "ProtectedCell"
	KindNumericRequired Kind = "NumericRequired"
	KindMandatoryEntry  Kind = "MandatoryEntry"
	KindMandatoryFill   Kind = "MandatoryFill"
	KindNoActiveField   Kind = "NoActiveField"

	// Session
	KindCancelled    Kind = "Cancelled"
	KindBusy         Kind = "Busy"
	KindNotConnected Kind = "NotConnected"

	// Internal
	KindBug Kind = "Bug"
)

// codes maps each Kind to the stable user-facing code. Grouped by taxonomy section, numbered in declaration order.
var codes = map[Kind]string{
	KindConnectRefused: "NET001",
	KindConnectTimeout: "NET002",
	KindUnreachable:    "NET003",
	KindDropped:        "NET004",
	KindIdleTimeout:    "NET005",

	KindTlsHandshake:     "SEC001",
	KindCertInvalid:      "SEC002",
	KindCertExpired:      "SEC003",
	KindHostnameMismatch: "SEC004",

	KindMalformedPacket:        "PROTO001",
	KindInvalidCommand:         "PROTO002",
	KindInvalidOrder:           "PROTO003",
	KindInvalidAddress:         "PROTO004",
	KindInvalidFieldDefinition: "PROTO005",
	KindOutOfOrderSequence:     "PROTO006",
	KindSubnegUnterminated:     "PROTO007",

	KindKeyboardLocked:  "INPUT001",
	KindProtectedCell:   "INPUT002",
	KindNumericRequired: "INPUT003",
	KindMandatoryEntry:  "INPUT004",
	KindMandatoryFill:   "INPUT005",
	KindNoActiveField:   "INPUT006",

	KindCancelled:    "SESS001",
	KindBusy:         "SESS002",
	KindNotConnected: "SESS003",

	KindBug: "INT001",
}

// Code returns the stable code for a Kind, or "UNK000" for an
// unrecognized one; never panics on bad input.
func Code(k Kind) string {
	if c, ok := codes[k]; ok {
		return c
	}
	return "UNK000"
}
