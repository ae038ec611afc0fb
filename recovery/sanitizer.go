package recovery

import (
	"net"
	"regexp"
	"strings"
)

// SanitizedError is what the controller façade returns from
// take_last_error: a stable code plus a scrubbed message, with no file
// paths, hostnames, or ports.
type SanitizedError struct {
	Code        string
	UserMessage string
}

// DebugRecord keeps the full, unsanitized context alongside a
// SanitizedError, for internal logs only.
type DebugRecord struct {
	Kind   Kind
	Detail string
	Err    error
}

var (
	hostPortPattern = regexp.MustCompile(`\b[a-zA-Z0-9.-]+:[0-9]{1,5}\b`)
	pathPattern     = regexp.MustCompile(`(/[^\s]+)+`)
)

// Sanitizer scrubs raw error detail into a user-facing SanitizedError
// and keeps the full detail as a parallel DebugRecord.
type Sanitizer struct{}

// Sanitize produces the user-facing/debug pair for one error
// occurrence. message is the raw (potentially sensitive) detail; err,
// if non-nil, is folded into the debug record only.
func (Sanitizer) Sanitize(kind Kind, message string, err error) (SanitizedError, DebugRecord) {
	clean := scrub(message)
	return SanitizedError{
			Code:        Code(kind),
			UserMessage: clean,
		}, DebugRecord{
			Kind:   kind,
			Detail: message,
			Err:    err,
		}
}

// scrub removes IP/hostname:port pairs and filesystem paths from a
// message, replacing them with a neutral placeholder. It never panics
// on malformed input — a no-match message passes through unchanged.
func scrub(message string) string {
	out := hostPortPattern.ReplaceAllString(message, "<redacted-endpoint>")
	out = pathPattern.ReplaceAllString(out, "<redacted-path>")
	return out
}

// ScrubHost is a narrower helper for call sites that only have a
// host/IP (no port) to scrub, e.g. a resolved net.IP from a DNS
// lookup failure.
func ScrubHost(host string) string {
	if net.ParseIP(host) != nil {
		return "<redacted-endpoint>"
	}
	if strings.Contains(host, ".") {
		return "<redacted-endpoint>"
	}
	return host
}
