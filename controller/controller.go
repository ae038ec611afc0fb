// Package controller is the single façade the UI layer talks to: every
// operation is non-blocking except connect (which itself respects the
// configured connect timeout), fallible, and returns cheaply copyable
// values. Connect and SetSessionConfig try-lock the façade's own
// pending-config mutex and return ErrBusy on contention; every other
// call passes straight through to the underlying session.Session,
// which try-locks its own state mutex the same way and falls back to
// a cached snapshot (reads) or session.InputError{Kind: KindBusy}
// (edits) rather than ever blocking behind the network goroutine.
package controller

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/drake/tn5250/config"
	"github.com/drake/tn5250/proto3270"
	"github.com/drake/tn5250/proto5250"
	"github.com/drake/tn5250/recovery"
	"github.com/drake/tn5250/session"
)

// ErrBusy is returned by any operation that could not acquire the
// façade's try-lock because another call is already in flight.
var ErrBusy = errors.New("controller: busy")

// FunctionKey names one of the AID-triggering keys the operation table
// accepts.
type FunctionKey string

const (
	Enter     FunctionKey = "Enter"
	FieldExit FunctionKey = "FieldExit"
	SysReq    FunctionKey = "SysReq"
	Attn      FunctionKey = "Attn"
)

// PF returns the function key name for PF1-PF24; PF(0) and PF(25+) are
// not valid keys and map to no AID.
func PF(n int) FunctionKey {
	switch {
	case n >= 1 && n <= 24:
		return FunctionKey("F" + itoa(n))
	default:
		return ""
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// TLSOptions is the connect-time subset of config.SessionConfig's TLS
// fields.
type TLSOptions struct {
	Mode        config.TLSMode
	CustomCAPEM []byte
}

// FieldInfo is the per-field content/attribute snapshot fields()
// returns.
type FieldInfo = session.FieldSnapshot

// Controller is the UI-facing façade over one Session.
type Controller struct {
	mu      sync.Mutex
	sess    *session.Session
	pending config.SessionConfig
}

// New creates a Controller with a fresh, disconnected Session and the
// library's stated defaults as the pending config.
func New() *Controller {
	return &Controller{
		sess:    session.New(),
		pending: config.Default(),
	}
}

// Connect merges host/port/TLS options into the pending session config
// and connects. This is the one operation allowed
// to block, up to the configured connect timeout.
func (c *Controller) Connect(host string, port int, tls TLSOptions) error {
	if !c.mu.TryLock() {
		return ErrBusy
	}
	defer c.mu.Unlock()

	cfg := c.pending
	cfg.Host = host
	cfg.Port = port
	cfg.TLSMode = tls.Mode
	cfg.CustomCAPEM = tls.CustomCAPEM
	c.pending = cfg
	return c.sess.Connect(cfg)
}

// CancelConnect requests that an in-flight Connect abort. Deliberately not try-locked: a caller that just
// invoked a blocking Connect from another goroutine needs this call to
// go through while that goroutine still holds the façade's lock.
func (c *Controller) CancelConnect() {
	c.sess.CancelConnect()
}

// Disconnect tears the session down without blocking the caller. Not try-locked for the same reason as
// CancelConnect.
func (c *Controller) Disconnect() {
	c.sess.Disconnect()
}

// SessionID returns the stable UUID of the underlying session, used by
// the CLI layer as the history store's per-session key. Immutable for
// the Controller's lifetime, so this never contends with the façade's
// try-lock.
func (c *Controller) SessionID() uuid.UUID {
	return c.sess.ID
}

// IsConnected reports whether the session is in the Connected state.
func (c *Controller) IsConnected() bool {
	return c.sess.State() == session.Connected
}

// ConnectionState reports the session's coarse connection state.
func (c *Controller) ConnectionState() session.ConnectionState {
	return c.sess.State()
}

// TakeLastError consumes and returns the session's last sanitized
// error, if any.
func (c *Controller) TakeLastError() (recovery.SanitizedError, bool) {
	return c.sess.TakeLastError()
}

// TerminalContent renders the display buffer as newline-joined rows.
func (c *Controller) TerminalContent() string {
	return c.sess.TerminalContent()
}

// Cursor returns the current (row, col).
func (c *Controller) Cursor() (int, int) {
	return c.sess.Cursor()
}

// Fields returns a content snapshot of every field in the active field
// table.
func (c *Controller) Fields() []FieldInfo {
	return c.sess.Fields()
}

// TypeChar validates and writes one character at the cursor.
func (c *Controller) TypeChar(ch rune) error {
	return c.sess.TypeChar(ch)
}

// Backspace moves the cursor back and blanks the character there.
func (c *Controller) Backspace() error {
	return c.sess.Backspace()
}

// Delete blanks the character at the cursor.
func (c *Controller) Delete() error {
	return c.sess.Delete()
}

// NextField moves the cursor to the next unprotected field.
func (c *Controller) NextField() error {
	return c.sess.NextField()
}

// PrevField moves the cursor to the previous unprotected field.
func (c *Controller) PrevField() error {
	return c.sess.PrevField()
}

// ClickAt moves the cursor to (row, col) and activates the field there
//: with this buffer model "activate" is simply
// landing the cursor inside the field, since every subsequent edit
// call re-derives the active field from the cursor position itself.
func (c *Controller) ClickAt(row, col int) error {
	return c.sess.ClickAt(row, col)
}

// FunctionKey triggers the AID response for key, choosing the AID byte
// from whichever protocol the active session negotiated.
func (c *Controller) FunctionKey(key FunctionKey) error {
	aid, ok := aidFor(key, c.sess.Protocol())
	if !ok {
		return &session.InputError{Kind: recovery.KindInvalidCommand}
	}
	return c.sess.TriggerAID(aid)
}

// SetCredentials stores the username/password used by the negotiator's
// NEW-ENVIRON answer and by the next Connect.
func (c *Controller) SetCredentials(username, password string) {
	c.sess.SetCredentials(username, password)
}

// SetSessionConfig replaces the pending session config applied by the
// next Connect. Connect still merges in
// the host/port/TLS arguments passed to it directly, so a caller can
// set everything else here and supply the endpoint separately.
func (c *Controller) SetSessionConfig(cfg config.SessionConfig) error {
	if !c.mu.TryLock() {
		return ErrBusy
	}
	defer c.mu.Unlock()
	c.pending = cfg
	return nil
}

// aidFor resolves a FunctionKey to the wire AID byte for the given
// protocol. 3270 has no FieldExit key of its own (that is a 5250-only
// field-advance/validate concept); it is mapped to Enter's AID, the
// nearest 3270 equivalent for "submit current input." 3270's Attn maps
// to PA1, the conventional Program-Attention substitute for a 5250
// System Request/Attention interrupt.
func aidFor(key FunctionKey, proto config.ProtocolMode) (byte, bool) {
	if proto == config.ProtocolTN3270 {
		switch key {
		case Enter:
			return proto3270.AIDEnter, true
		case FieldExit:
			return proto3270.AIDEnter, true
		case SysReq:
			return proto3270.AIDSysReq, true
		case Attn:
			return proto3270.AIDPA1, true
		}
		if pf, ok := pfAID3270(key); ok {
			return pf, true
		}
		return 0, false
	}

	switch key {
	case Enter:
		return proto5250.AIDEnter, true
	case FieldExit:
		return proto5250.AIDFieldExit, true
	case SysReq:
		return proto5250.AIDSysReq, true
	case Attn:
		return proto5250.AIDAttn, true
	}
	return pfAID5250(key)
}

func pfAID5250(key FunctionKey) (byte, bool) {
	n, ok := pfNumber(key)
	if !ok {
		return 0, false
	}
	table := []byte{
		proto5250.AIDPF1, proto5250.AIDPF2, proto5250.AIDPF3, proto5250.AIDPF4,
		proto5250.AIDPF5, proto5250.AIDPF6, proto5250.AIDPF7, proto5250.AIDPF8,
		proto5250.AIDPF9, proto5250.AIDPF10, proto5250.AIDPF11, proto5250.AIDPF12,
		proto5250.AIDPF13, proto5250.AIDPF14, proto5250.AIDPF15, proto5250.AIDPF16,
		proto5250.AIDPF17, proto5250.AIDPF18, proto5250.AIDPF19, proto5250.AIDPF20,
		proto5250.AIDPF21, proto5250.AIDPF22, proto5250.AIDPF23, proto5250.AIDPF24,
	}
	if n < 1 || n > len(table) {
		return 0, false
	}
	return table[n-1], true
}

func pfAID3270(key FunctionKey) (byte, bool) {
	n, ok := pfNumber(key)
	if !ok {
		return 0, false
	}
	table := []byte{
		proto3270.AIDPF1, proto3270.AIDPF2, proto3270.AIDPF3, proto3270.AIDPF4,
		proto3270.AIDPF5, proto3270.AIDPF6, proto3270.AIDPF7, proto3270.AIDPF8,
		proto3270.AIDPF9, proto3270.AIDPF10, proto3270.AIDPF11, proto3270.AIDPF12,
		proto3270.AIDPF13, proto3270.AIDPF14, proto3270.AIDPF15, proto3270.AIDPF16,
		proto3270.AIDPF17, proto3270.AIDPF18, proto3270.AIDPF19, proto3270.AIDPF20,
		proto3270.AIDPF21, proto3270.AIDPF22, proto3270.AIDPF23, proto3270.AIDPF24,
	}
	if n < 1 || n > len(table) {
		return 0, false
	}
	return table[n-1], true
}

// pfNumber parses "F<n>" into n, the inverse of the package-level PF
// helper.
func pfNumber(key FunctionKey) (int, bool) {
	s := string(key)
	if len(s) < 2 || s[0] != 'F' {
		return 0, false
	}
	n := 0
	for _, c := range s[1:] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
