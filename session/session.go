// Package session wires the telnet negotiator, the 5250/3270
// processors, and the error/recovery engine into the single connected
// spine a terminal session runs on: one network goroutine performing
// connect-with-deadline and then the blocking receive loop, and every
// UI-facing method try-locking the same state mutex that loop holds
// while mutating the display buffer, falling back to a cached
// last-known-good snapshot (or Busy, for edits) on contention rather
// than ever blocking the caller.
package session

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/drake/tn5250/config"
	"github.com/drake/tn5250/logging"
	"github.com/drake/tn5250/recovery"
	"github.com/drake/tn5250/screen"
	"github.com/drake/tn5250/telnet"
)

// ConnectionState is the coarse state the controller façade exposes.
type ConnectionState int32

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
	Error
)

const readBufSize = 8 * 1024 // resource bound: inbound single read 8 KB

// Session is the connected spine for one host session. Exported
// methods are safe for concurrent use; the fields they touch are
// either atomic or held behind mu (the shared-resource policy: display
// buffer, field table, cursor, keyboard state, and negotiator state
// all live behind one mutex; the error engine's counters are
// independently atomic).
type Session struct {
	mu   sync.Mutex
	proc processor
	neg  *telnet.Negotiator
	scr  *screen.Screen
	conn net.Conn

	// ID identifies this session for log correlation and history-store
	// keys; stable for the session's lifetime regardless of reconnects.
	ID uuid.UUID

	// Logger receives the session's observable side effects. Never nil: New installs logging.Default() so callers that
	// don't care about logs don't have to nil-check it.
	Logger *logging.Logger

	cfg config.SessionConfig

	cancelConnect atomic.Bool
	running       atomic.Bool
	state         atomic.Int32
	lastActivity  atomic.Int64 // unix nano
	negComplete   atomic.Bool
	protocol      atomic.Int32 // config.ProtocolMode, valid once negComplete

	Sanitizer      recovery.Sanitizer
	Violations     *recovery.ViolationTracker
	SequenceCheck  *recovery.SequenceValidator
	Breaker        *recovery.CircuitBreaker
	ConnectLimiter *recovery.RateLimiter

	lastErrMu sync.Mutex
	lastErr   *recovery.SanitizedError

	// cache holds the last state observed under mu, so a reader that
	// loses the try-lock race returns recent data instead of blocking.
	cache atomic.Pointer[stateCache]

	done chan struct{}
}

// stateCache is the try-lock fallback snapshot refreshed by
// refreshCacheLocked every time a locked operation completes.
type stateCache struct {
	scr     screen.Screen
	fields  []FieldSnapshot
	row     int
	col     int
	locked  bool
	content string
}

// refreshCacheLocked recomputes the fallback snapshot from the current
// processor state. Caller must hold mu.
func (s *Session) refreshCacheLocked() {
	if s.proc == nil {
		return
	}
	scr := s.proc.Screen()
	row, col := scr.CursorRowCol()
	s.cache.Store(&stateCache{
		scr:     scr.Snapshot(),
		fields:  buildFieldSnapshots(s.proc.Fields(), scr),
		row:     row,
		col:     col,
		locked:  s.proc.IsKeyboardLocked(),
		content: scr.ToString(),
	})
}

// New builds a disconnected Session over a 24x80 display, the 5250/
// 3270 default model; the model is fixed for the session's lifetime
// once negotiated.
func New() *Session {
	s := &Session{
		scr:            screen.New(24, 80),
		ID:             uuid.New(),
		Logger:         logging.Default(),
		Violations:     recovery.NewViolationTracker(0),
		SequenceCheck:  &recovery.SequenceValidator{},
		Breaker:        recovery.NewCircuitBreaker(0, 0),
		ConnectLimiter: recovery.ConnectionAttempts(),
	}
	go s.logViolations()
	return s
}

// logViolations drains the violation tracker's log for the session's
// whole lifetime, so a protocol violation always reaches the log even
// though recording one (on the network goroutine) never blocks on it.
func (s *Session) logViolations() {
	for v := range s.Violations.LogOut {
		s.Logger.Warnf(v.Kind, v.Detail, nil)
	}
}

func (s *Session) State() ConnectionState { return ConnectionState(s.state.Load()) }

// String renders the coarse connection state for status-line display.
func (c ConnectionState) String() string {
	switch c {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Protocol reports the auto-detected (or configured) protocol once
// negotiation has settled; config.ProtocolAuto before then.
func (s *Session) Protocol() config.ProtocolMode {
	if !s.negComplete.Load() {
		return config.ProtocolAuto
	}
	return config.ProtocolMode(s.protocol.Load())
}

// TakeLastError consumes and clears the last sanitized error.
func (s *Session) TakeLastError() (recovery.SanitizedError, bool) {
	s.lastErrMu.Lock()
	defer s.lastErrMu.Unlock()
	if s.lastErr == nil {
		return recovery.SanitizedError{}, false
	}
	e := *s.lastErr
	s.lastErr = nil
	return e, true
}

// setError records a connection-fatal error and moves the session to
// the Error state. Input-layer validation failures (protected cell,
// keyboard locked, ...) are not connection-fatal and use
// recordError instead, which leaves state untouched.
func (s *Session) setError(kind recovery.Kind, message string, err error) recovery.SanitizedError {
	sanitized := s.recordError(kind, message, err)
	s.state.Store(int32(Error))
	s.Logger.Errorf(kind, message, err)
	return sanitized
}

func (s *Session) recordError(kind recovery.Kind, message string, err error) recovery.SanitizedError {
	sanitized, _ := s.Sanitizer.Sanitize(kind, message, err)
	s.lastErrMu.Lock()
	s.lastErr = &sanitized
	s.lastErrMu.Unlock()
	return sanitized
}

// Screen, Fields, IsKeyboardLocked give the controller façade
// try-locked access to live session state: a losing caller gets the
// last snapshot the cache holds rather than blocking behind the
// network goroutine's dispatch. All return the zero/empty value when
// nothing has connected yet.
func (s *Session) Screen() screen.Screen {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		if s.proc == nil {
			return s.scr.Snapshot()
		}
		s.refreshCacheLocked()
		return s.proc.Screen().Snapshot()
	}
	if c := s.cache.Load(); c != nil {
		return c.scr
	}
	return s.scr.Snapshot()
}

func (s *Session) IsKeyboardLocked() bool {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		if s.proc == nil {
			return true
		}
		s.refreshCacheLocked()
		return s.proc.IsKeyboardLocked()
	}
	if c := s.cache.Load(); c != nil {
		return c.locked
	}
	return true
}

// CancelConnect requests that an in-flight Connect abort at its next
// checkpoint: cancel_connect is monitored during connect, and a
// transition immediately causes Cancelled.
func (s *Session) CancelConnect() { s.cancelConnect.Store(true) }

// Disconnect sets both cancellation flags and detaches the network
// goroutine's teardown onto a short-lived cleanup goroutine so the
// caller never blocks on it.
func (s *Session) Disconnect() {
	s.running.Store(false)
	s.cancelConnect.Store(true)
	s.mu.Lock()
	c := s.conn
	d := s.done
	s.mu.Unlock()
	if c == nil {
		return
	}
	c.SetDeadline(time.Now()) // unblocks a pending Read immediately
	go func() {
		if d != nil {
			<-d
		}
	}()
}

// Connect performs the blocking connect-and-negotiate sequence and, on
// success, spawns the receive-loop goroutine before returning. It is
// itself meant to be invoked from a goroutine by the controller
// façade, which must never block the UI thread on it.
func (s *Session) Connect(cfg config.SessionConfig) error {
	s.cfg = cfg
	s.cancelConnect.Store(false)
	s.state.Store(int32(Connecting))

	if !s.ConnectLimiter.Allow("connect", time.Now()) {
		err := errors.New("rate limited")
		s.setError(recovery.KindConnectRefused, "connection attempts rate-limited", err)
		return err
	}
	if !s.Breaker.Allow(time.Now()) {
		err := errors.New("circuit open")
		s.setError(recovery.KindConnectRefused, "circuit breaker open", err)
		return err
	}

	conn, err := s.dial(cfg)
	if err != nil {
		s.Breaker.RecordFailure(time.Now())
		return err
	}

	if s.cancelConnect.Load() {
		conn.Close()
		s.setError(recovery.KindCancelled, "connect cancelled", nil)
		return errors.New("cancelled")
	}

	if cfg.TLSMode != config.TLSOff {
		conn, err = s.wrapTLS(conn, cfg)
		if err != nil {
			s.Breaker.RecordFailure(time.Now())
			return err
		}
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		configureKeepalive(tc, cfg.KeepaliveInterval)
	}

	neg := telnet.NewNegotiator()
	if cfg.Username != "" {
		neg.SetCredentials(cfg.Username, cfg.Password)
	}
	lead, err := s.negotiate(conn, neg)
	if err != nil {
		conn.Close()
		s.Breaker.RecordFailure(time.Now())
		return err
	}

	if s.cancelConnect.Load() {
		conn.Close()
		s.setError(recovery.KindCancelled, "connect cancelled", nil)
		return errors.New("cancelled")
	}

	mode := cfg.Protocol
	if mode == config.ProtocolAuto {
		eorUp := activeBothWays(neg, telnet.OptEOR)
		envUp := activeBothWays(neg, telnet.OptNewEnviron)
		mode = detectProtocol(lead, eorUp, envUp)
	}

	onViolation := func(kind, detail string) {
		if s.Violations.Record(recovery.Kind(kind), detail) {
			// dispatch holds s.mu while this runs; Disconnect also takes
			// it, so hand the teardown to its own goroutine rather than
			// deadlocking here.
			go s.Disconnect()
		}
	}
	buildDSNR := func(seq byte, kind, message string) []byte {
		return recovery.BuildDSNRPacket(seq, recovery.Kind(kind), message)
	}

	s.mu.Lock()
	s.scr.Clear()
	switch mode {
	case config.ProtocolTN3270:
		s.proc = newProto3270Processor(s.scr, onViolation)
	case config.ProtocolNVT:
		s.proc = newNVTProcessor(s.scr)
	default:
		s.proc = newProto5250Processor(s.scr, "IBM-5250-11", onViolation, s.SequenceCheck, buildDSNR)
	}
	s.neg = neg
	s.conn = conn
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.protocol.Store(int32(mode))
	s.negComplete.Store(true)
	s.lastActivity.Store(time.Now().UnixNano())
	s.running.Store(true)
	s.state.Store(int32(Connected))
	s.Breaker.RecordSuccess()
	s.Logger.Infof("session %s connected to %s:%d (protocol=%d)", s.ID, cfg.Host, cfg.Port, mode)

	if len(lead) > 0 {
		s.dispatch(lead)
	}

	go s.receiveLoop(conn, done)
	return nil
}

func (s *Session) dial(cfg config.SessionConfig) (net.Conn, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			e := s.setError(recovery.KindConnectTimeout, err.Error(), err)
			return nil, fmt.Errorf("%s: %w", e.Code, err)
		}
		e := s.setError(recovery.KindConnectRefused, err.Error(), err)
		return nil, fmt.Errorf("%s: %w", e.Code, err)
	}
	return conn, nil
}

func (s *Session) wrapTLS(conn net.Conn, cfg config.SessionConfig) (net.Conn, error) {
	tlsCfg, err := buildTLSConfig(cfg.Host, cfg.CustomCAPEM)
	if err != nil {
		conn.Close()
		s.setError(recovery.KindCertInvalid, err.Error(), err)
		return nil, err
	}
	tc := tls.Client(conn, tlsCfg)
	conn.SetDeadline(time.Now().Add(10 * time.Second))
	if err := tc.Handshake(); err != nil {
		conn.Close()
		s.setError(recovery.KindTlsHandshake, err.Error(), tlsHandshakeError(err))
		return nil, err
	}
	conn.SetDeadline(time.Time{})
	return tc, nil
}

// negotiate drives telnet option negotiation with a 10-second deadline,
// returning any application-data bytes the negotiator's parser
// surfaced alongside the IAC traffic so nothing received is lost ahead
// of protocol auto-detect.
func (s *Session) negotiate(conn net.Conn, neg *telnet.Negotiator) ([]byte, error) {
	for _, ev := range neg.InitialBundle() {
		if ev.Kind == telnet.EventDataSend {
			if _, err := conn.Write(ev.Data); err != nil {
				return nil, err
			}
		}
	}

	deadline := time.Now().Add(10 * time.Second)
	defer conn.SetReadDeadline(time.Time{})

	var lead []byte
	buf := make([]byte, readBufSize)
	for !neg.NegotiationComplete() && len(lead) < detectSampleSize {
		if s.cancelConnect.Load() {
			break
		}
		if time.Now().After(deadline) {
			break // best-effort: plain NVT hosts never complete negotiation
		}
		conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue // poll interval elapsed; re-check cancel/deadline above
			}
			return lead, err
		}
		for _, ev := range neg.Receive(buf[:n]) {
			switch ev.Kind {
			case telnet.EventDataSend:
				conn.Write(ev.Data)
			case telnet.EventDataReceive:
				lead = append(lead, ev.Data...)
			}
		}
	}
	return lead, nil
}

func activeBothWays(neg *telnet.Negotiator, opt byte) bool {
	e := neg.Parser.Options.Get(opt)
	return e.LocalState && e.RemoteState
}

// receiveLoop is the network goroutine's body: blocking reads with a
// timeout, feeding the telnet parser and then the active processor.
// The scratch buffer is reset on every iteration, success or failure,
// so malformed input never accumulates — a first-class invariant, not
// an optimisation.
func (s *Session) receiveLoop(conn net.Conn, done chan struct{}) {
	defer close(done)
	defer conn.Close()

	buf := make([]byte, readBufSize)
	for s.running.Load() {
		idle := s.cfg.IdleTimeout
		if idle <= 0 {
			idle = 5 * time.Minute
		}
		conn.SetReadDeadline(time.Now().Add(idle))

		n, err := conn.Read(buf)
		if err != nil {
			if !s.running.Load() {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				last := time.Unix(0, s.lastActivity.Load())
				if time.Since(last) > idle {
					s.setError(recovery.KindIdleTimeout, "no traffic within idle timeout", err)
					s.running.Store(false)
					s.state.Store(int32(Disconnected))
					return
				}
				continue
			}
			s.setError(recovery.KindDropped, err.Error(), err)
			s.running.Store(false)
			s.state.Store(int32(Disconnected))
			return
		}

		s.lastActivity.Store(time.Now().UnixNano())
		s.dispatch(buf[:n])
		// buf is reused as-is: every byte is consumed by dispatch above
		// or discarded by the next Read's overwrite, so nothing
		// accumulates across iterations even on a malformed stream.
	}
	s.state.Store(int32(Disconnected))
}

// dispatch feeds raw bytes through the telnet parser and then the
// active processor, writing back whatever the processor produces and
// flushing on every telnet EOR (3270's record boundary; a no-op for
// 5250).
//
// mu is held only for the parse/mutate section: proc.feed/flush
// mutate the display buffer, field table, and keyboard-lock state that
// the UI thread's try-locked operations also touch, but the reply
// write must never happen while holding mu, since a slow or stalled
// peer would then stall every UI-facing call for up to the write
// deadline.
func (s *Session) dispatch(data []byte) {
	s.mu.Lock()
	neg := s.neg
	proc := s.proc
	conn := s.conn
	if neg == nil || proc == nil {
		s.mu.Unlock()
		return
	}

	var out []byte
	for _, ev := range neg.Receive(data) {
		switch ev.Kind {
		case telnet.EventDataSend:
			out = append(out, ev.Data...)
		case telnet.EventDataReceive:
			out = append(out, proc.feed(ev.Data)...)
		case telnet.EventIAC:
			if ev.Command == telnet.CmdEOR {
				out = append(out, proc.flush()...)
			}
		}
	}
	s.refreshCacheLocked()
	s.mu.Unlock()

	if len(out) > 0 && conn != nil {
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		conn.Write(out)
		conn.SetWriteDeadline(time.Time{})
	}
}
