package field

import "errors"

// Input-layer errors. Callers map these to recovery kinds before
// sanitizing; field itself never formats a message.
var (
	ErrProtectedCell  = errors.New("field: protected cell")
	ErrNumericRequired = errors.New("field: numeric required")
	ErrMandatoryEntry = errors.New("field: mandatory entry")
	ErrMandatoryFill  = errors.New("field: mandatory fill")
	ErrNoActiveField  = errors.New("field: no active field")
)

// ValidateChar checks whether ch may be typed into the field at index,
// without mutating anything. Numeric fields accept digits, a sign
// ('+'/'-'), and space (signed numeric entry); the check is per
// character, so a sign is accepted at any position. All other fields
// accept any rune.
func (t *Table) ValidateChar(index int, ch rune) error {
	f, ok := t.At(index)
	if !ok {
		return ErrNoActiveField
	}
	if f.Protected {
		return ErrProtectedCell
	}
	if f.Numeric && !isNumericInput(ch) {
		return ErrNumericRequired
	}
	return nil
}

func isNumericInput(ch rune) bool {
	if ch >= '0' && ch <= '9' {
		return true
	}
	return ch == '+' || ch == '-' || ch == ' '
}

// ValidateSubmit checks a field's mandatory-fill/mandatory-entry
// constraints against its current content, at submit time. read supplies each cell's current rune.
func (t *Table) ValidateSubmit(f Field, read func(index int) rune) error {
	content := readRange(read, f.StartAddress, f.End())
	if f.MandatoryEntry && !hasNonSpace(content) {
		return ErrMandatoryEntry
	}
	if f.MandatoryFill && !allNonSpace(content) {
		return ErrMandatoryFill
	}
	return nil
}

func hasNonSpace(content []rune) bool {
	for _, r := range content {
		if r != ' ' && r != 0 {
			return true
		}
	}
	return false
}

func allNonSpace(content []rune) bool {
	for _, r := range content {
		if r == ' ' || r == 0 {
			return false
		}
	}
	return true
}
