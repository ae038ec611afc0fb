// Package screen implements the fixed-size character-cell display buffer
// shared by the 5250 and 3270 processors.
package screen

import "strings"

// Attr is a cell's character attribute.
type Attr int

const (
	AttrNormal Attr = iota
	AttrIntensified
	AttrNonDisplay
	AttrReverse
)

// Cell is one position in the display grid.
type Cell struct {
	Char    rune
	Attr    Attr
	FieldID int // -1 when the cell belongs to no field
}

// NoField is the FieldID sentinel for cells outside any field.
const NoField = -1

// Screen is a fixed-size rows*cols grid of Cells plus the cursor.
//
// Writes from the host processors never set MDT; only the field
// manager's input-layer writes do. Screen itself has no
// notion of fields beyond carrying the back-reference id.
type Screen struct {
	Rows, Cols int
	cells      []Cell
	cursor     int
}

// New allocates a cleared Rows x Cols screen. Supported dimensions are
// 24x80, 32x80, 43x80, 27x132, but any positive size is
// accepted — the core does not hardcode the model list.
func New(rows, cols int) *Screen {
	s := &Screen{Rows: rows, Cols: cols, cells: make([]Cell, rows*cols)}
	s.Clear()
	return s
}

// Clear resets every cell to a blank, unattributed, fieldless state and
// moves the cursor to 0.
func (s *Screen) Clear() {
	for i := range s.cells {
		s.cells[i] = Cell{Char: ' ', Attr: AttrNormal, FieldID: NoField}
	}
	s.cursor = 0
}

// Len returns rows*cols, the invariant buffer length.
func (s *Screen) Len() int { return len(s.cells) }

// InBounds reports whether index is a valid cell index.
func (s *Screen) InBounds(index int) bool {
	return index >= 0 && index < len(s.cells)
}

// Cursor returns the current cursor index.
func (s *Screen) Cursor() int { return s.cursor }

// CursorRowCol returns the cursor as (row, col).
func (s *Screen) CursorRowCol() (int, int) {
	return s.cursor / s.Cols, s.cursor % s.Cols
}

// SetCursor moves the cursor to index, clamping into bounds so the
// "cursor is always a valid index" invariant can never be
// violated by a bad order.
func (s *Screen) SetCursor(index int) {
	if index < 0 {
		index = 0
	}
	if index >= len(s.cells) {
		index = len(s.cells) - 1
	}
	s.cursor = index
}

// SetCursorRowCol moves the cursor to (row, col), clamping both axes.
func (s *Screen) SetCursorRowCol(row, col int) {
	if row < 0 {
		row = 0
	}
	if row >= s.Rows {
		row = s.Rows - 1
	}
	if col < 0 {
		col = 0
	}
	if col >= s.Cols {
		col = s.Cols - 1
	}
	s.SetCursor(row*s.Cols + col)
}

// Get returns the cell at index, or the zero Cell if out of range.
func (s *Screen) Get(index int) Cell {
	if !s.InBounds(index) {
		return Cell{FieldID: NoField}
	}
	return s.cells[index]
}

// WriteAt places char/attr at index directly, without moving the
// cursor or touching FieldID. Used by order handlers (SBA-addressed
// writes) that manage the cursor themselves.
func (s *Screen) WriteAt(index int, char rune, attr Attr) {
	if !s.InBounds(index) {
		return
	}
	s.cells[index].Char = char
	s.cells[index].Attr = attr
}

// SetFieldID stamps a cell's field back-reference, independent of its
// display content.
func (s *Screen) SetFieldID(index, fieldID int) {
	if !s.InBounds(index) {
		return
	}
	s.cells[index].FieldID = fieldID
}

// WriteChar writes char/attr at the cursor and advances it, wrapping at
// end of row within a field write and at end of buffer back to 0.
func (s *Screen) WriteChar(char rune, attr Attr) {
	if len(s.cells) == 0 {
		return
	}
	s.cells[s.cursor].Char = char
	s.cells[s.cursor].Attr = attr
	s.cursor++
	if s.cursor >= len(s.cells) {
		s.cursor = 0
	}
}

// RepeatChar writes char count times starting at the cursor (the 5250
// Repeat-to-Address/RA order), advancing and wrapping exactly like
// WriteChar for each cell.
func (s *Screen) RepeatChar(char rune, attr Attr, count int) {
	for i := 0; i < count; i++ {
		s.WriteChar(char, attr)
	}
}

// FindNextUnprotectedField scans forward from `from` (exclusive),
// wrapping once (so `from` itself is checked last), and returns the
// index of the first cell that both starts a field, as reported by
// isFieldStart, and is unprotected, as reported by isUnprotected.
// Returns (0, false) if no such field exists.
//
// This is the sole mechanism for PT (Program Tab) and Tab navigation;
// callers pass a predicate rather than a *field.Table directly so
// screen has no import-time dependency on field.
func (s *Screen) FindNextUnprotectedField(from int, isFieldStart func(index int) bool, isUnprotected func(index int) bool) (int, bool) {
	n := len(s.cells)
	if n == 0 {
		return 0, false
	}
	for i := 1; i <= n; i++ {
		idx := (from + i) % n
		if isFieldStart(idx) && isUnprotected(idx) {
			return idx, true
		}
	}
	return 0, false
}

// ToString renders the screen as newline-separated rows of display
// characters.
func (s *Screen) ToString() string {
	var b strings.Builder
	b.Grow(len(s.cells) + s.Rows)
	for r := 0; r < s.Rows; r++ {
		if r > 0 {
			b.WriteByte('\n')
		}
		for c := 0; c < s.Cols; c++ {
			b.WriteRune(s.cells[r*s.Cols+c].Char)
		}
	}
	return b.String()
}

// Snapshot copies the grid and cursor for use by History.
func (s *Screen) Snapshot() Screen {
	cp := make([]Cell, len(s.cells))
	copy(cp, s.cells)
	return Screen{Rows: s.Rows, Cols: s.Cols, cells: cp, cursor: s.cursor}
}
