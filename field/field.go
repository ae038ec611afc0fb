// Package field implements the field table derived from start-field
// orders: attribute flags, the Modified-Data-Tag, navigation and
// per-character input validation.
package field

import "errors"

// ErrInvalidFieldDefinition is returned when a field table fails
// validation (start/end out of buffer, or end < start). The entire
// table is dropped for that screen on this error.
var ErrInvalidFieldDefinition = errors.New("field: invalid field definition")

// Field is one entry of a screen's field table.
type Field struct {
	ID             int
	StartAddress   int
	Length         int
	Protected      bool
	Numeric        bool
	Intensified    bool
	NonDisplay     bool
	MandatoryFill  bool
	MandatoryEntry bool
	Trigger        bool
	Modified       bool // MDT
}

// End returns the field's exclusive end address (StartAddress+Length).
func (f Field) End() int { return f.StartAddress + f.Length }

// Contains reports whether index falls within [Start, End).
func (f Field) Contains(index int) bool {
	return index >= f.StartAddress && index < f.End()
}

// StartFieldEvent is what a 5250 SF order or a 3270 SF/attribute byte
// produces: a field's start address and its decoded attribute bits.
// Processors build these directly; Table does the two-pass length
// computation and validation.
type StartFieldEvent struct {
	StartAddress   int
	Protected      bool
	Numeric        bool
	Intensified    bool
	NonDisplay     bool
	MandatoryFill  bool
	MandatoryEntry bool
	Trigger        bool
}

// Table is the field table for one screen: an arena of Fields indexed
// by id, plus a cell->field-id lookup the screen's Cell.FieldID also
// carries redundantly for O(1) display-side lookups.
type Table struct {
	fields []Field
	byCell map[int]int // cell index -> field id, for start-of-field membership tests
	bufLen int
}

// Build constructs a Table from the start-field events emitted while
// processing the most recent Write/Erase-Write, in buffer order. Each
// field's length is the distance to the next field's start, or to
// bufLen for the last field.
//
// Returns ErrInvalidFieldDefinition — and no Table — if any field's
// start or end falls outside [0, bufLen), or end < start.
func Build(events []StartFieldEvent, bufLen int) (*Table, error) {
	t := &Table{byCell: make(map[int]int, len(events)), bufLen: bufLen}
	for i, ev := range events {
		if ev.StartAddress < 0 || ev.StartAddress >= bufLen {
			return nil, ErrInvalidFieldDefinition
		}
		length := bufLen - ev.StartAddress
		if i+1 < len(events) {
			length = events[i+1].StartAddress - ev.StartAddress
		}
		end := ev.StartAddress + length
		if end < ev.StartAddress || end > bufLen {
			return nil, ErrInvalidFieldDefinition
		}
		f := Field{
			ID:             i,
			StartAddress:   ev.StartAddress,
			Length:         length,
			Protected:      ev.Protected,
			Numeric:        ev.Numeric,
			Intensified:    ev.Intensified,
			NonDisplay:     ev.NonDisplay,
			MandatoryFill:  ev.MandatoryFill,
			MandatoryEntry: ev.MandatoryEntry,
			Trigger:        ev.Trigger,
		}
		t.fields = append(t.fields, f)
		t.byCell[ev.StartAddress] = i
	}
	return t, nil
}

// Empty returns a Table with no fields (e.g. right after Clear-Unit).
func Empty() *Table {
	return &Table{byCell: map[int]int{}}
}

// Fields returns the table's fields in buffer order.
func (t *Table) Fields() []Field {
	return t.fields
}

// Empty reports whether the table has no fields.
func (t *Table) Empty() bool {
	return len(t.fields) == 0
}

// IsFieldStart reports whether index is a field's start address.
func (t *Table) IsFieldStart(index int) bool {
	_, ok := t.byCell[index]
	return ok
}

// At returns the field owning index, if any.
func (t *Table) At(index int) (Field, bool) {
	for _, f := range t.fields {
		if f.Contains(index) {
			return f, true
		}
	}
	return Field{}, false
}

// IsUnprotected reports whether the field starting at index is
// unprotected; used as the predicate screen.FindNextUnprotectedField
// needs alongside IsFieldStart.
func (t *Table) IsUnprotected(index int) bool {
	id, ok := t.byCell[index]
	if !ok {
		return false
	}
	return !t.fields[id].Protected
}

// SetModified sets or clears the MDT for the field owning index.
// Returns false if index belongs to no field.
func (t *Table) SetModified(index int, modified bool) bool {
	for i := range t.fields {
		if t.fields[i].Contains(index) {
			t.fields[i].Modified = modified
			return true
		}
	}
	return false
}

// ResetMDT clears every field's Modified-Data-Tag (WCC Reset-MDT bit).
func (t *Table) ResetMDT() {
	for i := range t.fields {
		t.fields[i].Modified = false
	}
}

// ModifiedContent is one entry of ModifiedFields: a field's start
// address and its current cell contents.
type ModifiedContent struct {
	StartAddress int
	Content      []rune
}

// ModifiedFields returns, in buffer order, the content of every field
// whose MDT is set, reading each cell's rune via read(index). Used by
// Read-MDT-Fields.
func (t *Table) ModifiedFields(read func(index int) rune) []ModifiedContent {
	var out []ModifiedContent
	for _, f := range t.fields {
		if !f.Modified {
			continue
		}
		out = append(out, ModifiedContent{StartAddress: f.StartAddress, Content: readRange(read, f.StartAddress, f.End())})
	}
	return out
}

// UnprotectedFields returns, in buffer order, the content of every
// unprotected field regardless of MDT. Used by Read-Input-Fields and
// 3270 Read-Modified-All.
func (t *Table) UnprotectedFields(read func(index int) rune) []ModifiedContent {
	var out []ModifiedContent
	for _, f := range t.fields {
		if f.Protected {
			continue
		}
		out = append(out, ModifiedContent{StartAddress: f.StartAddress, Content: readRange(read, f.StartAddress, f.End())})
	}
	return out
}

func readRange(read func(index int) rune, start, end int) []rune {
	out := make([]rune, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, read(i))
	}
	return out
}
