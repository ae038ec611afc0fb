package session

import (
	"time"

	"github.com/drake/tn5250/field"
	"github.com/drake/tn5250/recovery"
	"github.com/drake/tn5250/screen"
)

// InputError reports a rejected keyboard/pointer operation by Kind. The
// controller façade inspects Kind rather than matching message text.
type InputError struct {
	Kind recovery.Kind
}

func (e *InputError) Error() string { return string(e.Kind) }

func (s *Session) inputErr(kind recovery.Kind, detail string) error {
	s.recordError(kind, detail, nil)
	return &InputError{Kind: kind}
}

// FieldSnapshot is one field table entry plus its current on-screen
// content, the shape the controller façade's fields() operation
// returns.
type FieldSnapshot struct {
	ID             int
	StartAddress   int
	Length         int
	Protected      bool
	Numeric        bool
	Intensified    bool
	NonDisplay     bool
	MandatoryFill  bool
	MandatoryEntry bool
	Modified       bool
	Content        string
}

// buildFieldSnapshots renders every field in table against scr's
// current content, in buffer order.
func buildFieldSnapshots(table *field.Table, scr *screen.Screen) []FieldSnapshot {
	var out []FieldSnapshot
	for _, f := range table.Fields() {
		runes := make([]rune, 0, f.Length)
		for i := f.StartAddress; i < f.End(); i++ {
			runes = append(runes, scr.Get(i).Char)
		}
		out = append(out, FieldSnapshot{
			ID:             f.ID,
			StartAddress:   f.StartAddress,
			Length:         f.Length,
			Protected:      f.Protected,
			Numeric:        f.Numeric,
			Intensified:    f.Intensified,
			NonDisplay:     f.NonDisplay,
			MandatoryFill:  f.MandatoryFill,
			MandatoryEntry: f.MandatoryEntry,
			Modified:       f.Modified,
			Content:        string(runes),
		})
	}
	return out
}

// Fields returns a content snapshot of every field in the active
// field table, in buffer order. Returns nil if no session is active;
// returns the cached snapshot, rather than blocking, if the network
// goroutine currently holds the state lock.
func (s *Session) Fields() []FieldSnapshot {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		if s.proc == nil {
			return nil
		}
		out := buildFieldSnapshots(s.proc.Fields(), s.proc.Screen())
		s.refreshCacheLocked()
		return out
	}
	if c := s.cache.Load(); c != nil {
		return c.fields
	}
	return nil
}

// Cursor returns the current (row, col), or the cached position if the
// state lock is contended; (0, 0) if nothing has connected yet.
func (s *Session) Cursor() (int, int) {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		if s.proc == nil {
			return 0, 0
		}
		s.refreshCacheLocked()
		return s.proc.Screen().CursorRowCol()
	}
	if c := s.cache.Load(); c != nil {
		return c.row, c.col
	}
	return 0, 0
}

// TerminalContent renders the current display buffer as
// newline-separated rows, or the cached rendering if the state lock is
// contended.
func (s *Session) TerminalContent() string {
	if s.mu.TryLock() {
		defer s.mu.Unlock()
		if s.proc == nil {
			return ""
		}
		s.refreshCacheLocked()
		return s.proc.Screen().ToString()
	}
	if c := s.cache.Load(); c != nil {
		return c.content
	}
	return ""
}

// activeField locates the field owning the cursor, applying the same
// KeyboardLocked/NotConnected/NoActiveField checks every editing
// operation needs before it touches the buffer.
func (s *Session) activeField() (*field.Table, field.Field, int, error) {
	if s.proc == nil {
		return nil, field.Field{}, 0, s.inputErr(recovery.KindNotConnected, "no active session")
	}
	if s.proc.IsKeyboardLocked() {
		return nil, field.Field{}, 0, s.inputErr(recovery.KindKeyboardLocked, "keyboard is locked")
	}
	table := s.proc.Fields()
	cursor := s.proc.Screen().Cursor()
	f, ok := table.At(cursor)
	if !ok {
		return nil, field.Field{}, 0, s.inputErr(recovery.KindNoActiveField, "cursor is not inside a field")
	}
	if f.Protected {
		return nil, field.Field{}, 0, s.inputErr(recovery.KindProtectedCell, "field is protected")
	}
	return table, f, cursor, nil
}

// TypeChar validates and writes one character at the cursor, advancing
// it and setting the owning field's MDT. Returns Busy, rather than
// blocking, if the network goroutine currently holds the state lock.
func (s *Session) TypeChar(r rune) error {
	if !s.mu.TryLock() {
		return s.inputErr(recovery.KindBusy, "session state is busy")
	}
	defer s.mu.Unlock()

	table, f, cursor, err := s.activeField()
	if err != nil {
		return err
	}
	if f.Numeric && !isNumericInput(r) {
		return s.inputErr(recovery.KindNumericRequired, "field requires numeric input")
	}

	scr := s.proc.Screen()
	scr.WriteChar(r, scr.Get(cursor).Attr)
	table.SetModified(cursor, true)
	s.refreshCacheLocked()
	return nil
}

func isNumericInput(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '-' || r == '.' || r == ',' || r == '+' || r == ' ':
		return true
	default:
		return false
	}
}

// Backspace moves the cursor back one position within the active
// field and blanks the character there. Returns Busy, rather than
// blocking, if the network goroutine currently holds the state lock.
func (s *Session) Backspace() error {
	if !s.mu.TryLock() {
		return s.inputErr(recovery.KindBusy, "session state is busy")
	}
	defer s.mu.Unlock()

	if s.proc == nil {
		return s.inputErr(recovery.KindNotConnected, "no active session")
	}
	if s.proc.IsKeyboardLocked() {
		return s.inputErr(recovery.KindKeyboardLocked, "keyboard is locked")
	}
	scr := s.proc.Screen()
	table := s.proc.Fields()
	cursor := scr.Cursor()
	f, ok := table.At(cursor)
	if !ok || cursor == f.StartAddress {
		return s.inputErr(recovery.KindNoActiveField, "already at field start")
	}
	prev := cursor - 1
	if _, ok := table.At(prev); !ok {
		return s.inputErr(recovery.KindNoActiveField, "already at field start")
	}
	scr.SetCursor(prev)
	scr.WriteAt(prev, ' ', scr.Get(prev).Attr)
	table.SetModified(prev, true)
	s.refreshCacheLocked()
	return nil
}

// Delete blanks the character at the cursor without moving it. Returns
// Busy, rather than blocking, if the network goroutine currently holds
// the state lock.
func (s *Session) Delete() error {
	if !s.mu.TryLock() {
		return s.inputErr(recovery.KindBusy, "session state is busy")
	}
	defer s.mu.Unlock()

	table, _, cursor, err := s.activeField()
	if err != nil {
		return err
	}
	scr := s.proc.Screen()
	scr.WriteAt(cursor, ' ', scr.Get(cursor).Attr)
	table.SetModified(cursor, true)
	s.refreshCacheLocked()
	return nil
}

// NextField moves the cursor to the start of the next unprotected
// field, wrapping past the last field to the first. Returns Busy,
// rather than blocking, if the network goroutine currently holds the
// state lock.
func (s *Session) NextField() error {
	if !s.mu.TryLock() {
		return s.inputErr(recovery.KindBusy, "session state is busy")
	}
	defer s.mu.Unlock()

	if s.proc == nil {
		return s.inputErr(recovery.KindNotConnected, "no active session")
	}
	table := s.proc.Fields()
	scr := s.proc.Screen()
	next, ok := scr.FindNextUnprotectedField(scr.Cursor(), table.IsFieldStart, table.IsUnprotected)
	if !ok {
		return s.inputErr(recovery.KindNoActiveField, "no unprotected field on screen")
	}
	scr.SetCursor(next)
	s.refreshCacheLocked()
	return nil
}

// PrevField moves the cursor to the start of the previous unprotected
// field, wrapping past the first field to the last. screen.Screen has
// no backward scan (only PT's forward one is part of the wire
// protocol), so this walks the field table directly instead. Returns
// Busy, rather than blocking, if the network goroutine currently holds
// the state lock.
func (s *Session) PrevField() error {
	if !s.mu.TryLock() {
		return s.inputErr(recovery.KindBusy, "session state is busy")
	}
	defer s.mu.Unlock()

	if s.proc == nil {
		return s.inputErr(recovery.KindNotConnected, "no active session")
	}
	table := s.proc.Fields()
	scr := s.proc.Screen()
	fields := table.Fields()
	cursor := scr.Cursor()

	best := -1
	for _, f := range fields {
		if f.Protected {
			continue
		}
		if f.StartAddress < cursor && (best == -1 || f.StartAddress > fields[best].StartAddress) {
			best = f.ID
		}
	}
	if best == -1 {
		for _, f := range fields {
			if f.Protected {
				continue
			}
			if best == -1 || f.StartAddress > fields[best].StartAddress {
				best = f.ID
			}
		}
	}
	if best == -1 {
		return s.inputErr(recovery.KindNoActiveField, "no unprotected field on screen")
	}
	scr.SetCursor(fields[best].StartAddress)
	s.refreshCacheLocked()
	return nil
}

// ClickAt moves the cursor to (row, col), clamped into bounds by
// screen.Screen.SetCursorRowCol. Pointer placement is never rejected
// for landing on a protected cell; only editing is. Returns Busy,
// rather than blocking, if the network goroutine currently holds the
// state lock.
func (s *Session) ClickAt(row, col int) error {
	if !s.mu.TryLock() {
		return s.inputErr(recovery.KindBusy, "session state is busy")
	}
	defer s.mu.Unlock()
	if s.proc == nil {
		return s.inputErr(recovery.KindNotConnected, "no active session")
	}
	s.proc.Screen().SetCursorRowCol(row, col)
	s.refreshCacheLocked()
	return nil
}

// validateSubmit runs every unprotected field's mandatory-fill/
// mandatory-entry constraints against its current content. Caller must
// hold mu and have already checked s.proc != nil.
func (s *Session) validateSubmit() error {
	table := s.proc.Fields()
	scr := s.proc.Screen()
	read := func(i int) rune { return scr.Get(i).Char }
	for _, f := range table.Fields() {
		if f.Protected {
			continue
		}
		switch err := table.ValidateSubmit(f, read); err {
		case nil:
		case field.ErrMandatoryEntry:
			return s.inputErr(recovery.KindMandatoryEntry, "mandatory entry field is empty")
		case field.ErrMandatoryFill:
			return s.inputErr(recovery.KindMandatoryFill, "mandatory fill field is incomplete")
		default:
			return s.inputErr(recovery.KindBug, err.Error())
		}
	}
	return nil
}

// TriggerAID validates the submitted fields, then builds and sends a
// client-initiated AID response for a function-key press, locking the
// keyboard the same way a host Write would until the next unlock.
// Returns Busy, rather than blocking, if the network goroutine
// currently holds the state lock.
func (s *Session) TriggerAID(aid byte) error {
	if !s.mu.TryLock() {
		return s.inputErr(recovery.KindBusy, "session state is busy")
	}
	proc := s.proc
	conn := s.conn
	if proc == nil || conn == nil {
		s.mu.Unlock()
		return s.inputErr(recovery.KindNotConnected, "no active session")
	}
	if err := s.validateSubmit(); err != nil {
		s.mu.Unlock()
		return err
	}
	out := proc.emitAID(aid)
	s.refreshCacheLocked()
	s.mu.Unlock()

	if len(out) == 0 {
		return nil
	}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	_, err := conn.Write(out)
	conn.SetWriteDeadline(time.Time{})
	if err != nil {
		s.setError(recovery.KindDropped, err.Error(), err)
		return err
	}
	return nil
}

// SetCredentials updates the username/password used for the next
// Connect and, if a session is already negotiating NEW-ENVIRON, the
// values it will answer a later ENVIRON SEND with.
func (s *Session) SetCredentials(username, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Username = username
	s.cfg.Password = password
	if s.neg != nil {
		s.neg.SetCredentials(username, password)
	}
}
