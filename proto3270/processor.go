package proto3270

import (
	"github.com/drake/tn5250/ebcdic"
	"github.com/drake/tn5250/field"
	"github.com/drake/tn5250/screen"
)

// Processor applies 3270 commands to a Screen/field.Table pair. One
// Processor is owned exclusively by a session's network thread, the
// same ownership model as proto5250.Processor.
type Processor struct {
	Screen *screen.Screen
	Fields *field.Table

	keyboardLocked bool
	pendingAID     byte

	// OnViolation reports skipped orders (invalid cursor position) and
	// dropped field tables, decoupled from recovery via callback.
	OnViolation func(kind, detail string)
}

// NewProcessor creates a Processor with the keyboard locked, matching
// the state before any Write/Erase-Write has run.
func NewProcessor(s *screen.Screen) *Processor {
	return &Processor{
		Screen:         s,
		Fields:         field.Empty(),
		keyboardLocked: true,
	}
}

// IsKeyboardLocked reports the current keyboard lock state.
func (p *Processor) IsKeyboardLocked() bool { return p.keyboardLocked }

// SetPendingAID records the AID byte for the next Read-Modified(-All)
// response.
func (p *Processor) SetPendingAID(aid byte) { p.pendingAID = aid }

// EmitAID builds the Read-Modified response a function-key press
// produces on its own, without the host having issued a read command
// first.
func (p *Processor) EmitAID(aid byte) []byte {
	p.pendingAID = aid
	return p.readModified()
}

// Apply dispatches one parsed command and returns any outbound
// response bytes.
func (p *Processor) Apply(cmd *Command) ([]byte, error) {
	switch cmd.Code {
	case CmdWrite, CmdEraseWrite, CmdEraseWriteAlternate:
		if cmd.Code != CmdWrite {
			p.Screen.Clear()
			p.Fields = field.Empty()
		}
		return nil, p.write(cmd.Data)
	case CmdReadBuffer, CmdReadModified:
		return p.readModified(), nil
	case CmdReadModifiedAll:
		return p.readModifiedAll(), nil
	case CmdWriteStructuredField:
		return nil, nil // no 3270 structured fields are modeled; accepted as a no-op
	default:
		return nil, nil
	}
}

// write applies one Write/Erase-Write command: the keyboard locks at
// the start of every call, unlocking only if WCC RESTORE is set, and
// mid-stream orders (PT, MF, ...) never unlock it.
func (p *Processor) write(data []byte) error {
	p.keyboardLocked = true
	if len(data) == 0 {
		return nil
	}
	wcc := DecodeWCC(data[0])
	if wcc.Reset {
		p.pendingAID = 0
	}

	events := p.walkOrders(data[1:])
	if events != nil {
		table, err := field.Build(events, p.Screen.Len())
		if err != nil {
			if p.OnViolation != nil {
				p.OnViolation("InvalidFieldDefinition", err.Error())
			}
			p.Fields = field.Empty()
		} else {
			p.Fields = table
			for _, f := range table.Fields() {
				p.Screen.SetFieldID(f.StartAddress, f.ID)
			}
		}
	}
	if wcc.ResetMDT {
		p.Fields.ResetMDT()
	}
	if wcc.Restore {
		p.keyboardLocked = false
	}
	return nil
}

// walkOrders processes the order stream after the WCC byte. Orders
// with an out-of-range address are skipped (and reported via
// OnViolation) rather than aborting the rest of the stream.
func (p *Processor) walkOrders(data []byte) []field.StartFieldEvent {
	var events []field.StartFieldEvent
	attr := screen.AttrNormal
	i := 0
	for i < len(data) {
		b := data[i]
		switch b {
		case OrderSBA:
			if i+2 >= len(data) {
				return events
			}
			addr, ok := DecodeAddress(data[i+1], data[i+2])
			if !ok || !p.Screen.InBounds(addr) {
				p.reportInvalidCursor()
			} else {
				p.Screen.SetCursor(addr)
			}
			i += 3

		case OrderSA:
			if i+2 >= len(data) {
				return events
			}
			i += 3 // attribute type/value pair; accepted without a modeled effect

		case OrderIC:
			i++

		case OrderPT:
			p.programTab()
			i++

		case OrderRA:
			if i+3 >= len(data) {
				return events
			}
			addr, ok := DecodeAddress(data[i+1], data[i+2])
			ch := ebcdic.ToASCII(data[i+3])
			if !ok || !p.Screen.InBounds(addr) {
				p.reportInvalidCursor()
			} else {
				count := addr - p.Screen.Cursor()
				if count < 0 {
					count = 0
				}
				p.Screen.RepeatChar(ch, attr, count)
			}
			i += 4

		case OrderEUA:
			if i+2 >= len(data) {
				return events
			}
			addr, ok := DecodeAddress(data[i+1], data[i+2])
			if !ok || !p.Screen.InBounds(addr) {
				p.reportInvalidCursor()
			} else {
				p.eraseUnprotectedTo(addr)
			}
			i += 3

		case OrderMF:
			if i+1 >= len(data) {
				return events
			}
			i += 2 // modify-field attribute pair count; accepted without a modeled effect

		case OrderSF:
			if i+1 >= len(data) {
				return events
			}
			attrByte := data[i+1]
			ev := decodeStartField(attrByte, p.Screen.Cursor())
			events = append(events, ev)
			attr = attrFromFlags(ev)
			id := len(events) - 1
			p.Screen.SetFieldID(p.Screen.Cursor(), id)
			p.Screen.WriteChar(' ', attr)
			i += 2

		default:
			p.Screen.WriteChar(ebcdic.ToASCII(b), attr)
			i++
		}
	}
	return events
}

func (p *Processor) reportInvalidCursor() {
	if p.OnViolation != nil {
		p.OnViolation("INVCURSPOS", ErrInvalidCursorPosition.Error())
	}
}

// programTab advances the cursor to the start of the next unprotected
// field, matching PT's behavior in a Write data stream.
func (p *Processor) programTab() {
	next, ok := p.Screen.FindNextUnprotectedField(p.Screen.Cursor(), p.Fields.IsFieldStart, p.Fields.IsUnprotected)
	if ok {
		p.Screen.SetCursor(next)
	}
}

// eraseUnprotectedTo blanks every unprotected cell from the cursor up
// to (not including) addr.
func (p *Processor) eraseUnprotectedTo(addr int) {
	for i := p.Screen.Cursor(); i != addr && p.Screen.InBounds(i); i = (i + 1) % p.Screen.Len() {
		if f, ok := p.Fields.At(i); ok && !f.Protected {
			p.Screen.WriteAt(i, ' ', screen.AttrNormal)
		}
	}
}

func decodeStartField(attrByte byte, addr int) field.StartFieldEvent {
	return field.StartFieldEvent{
		StartAddress:   addr,
		Protected:      attrByte&0x20 != 0,
		Numeric:        attrByte&0x10 != 0,
		NonDisplay:     attrByte&0x0C == 0x0C,
		Intensified:    attrByte&0x08 != 0,
		MandatoryFill:  attrByte&0x04 != 0,
		MandatoryEntry: attrByte&0x02 != 0,
		Trigger:        attrByte&0x01 != 0,
	}
}

func attrFromFlags(ev field.StartFieldEvent) screen.Attr {
	switch {
	case ev.NonDisplay:
		return screen.AttrNonDisplay
	case ev.Intensified:
		return screen.AttrIntensified
	default:
		return screen.AttrNormal
	}
}

// readModified builds the Read-Modified response: AID, cursor address,
// then SBA-prefixed content for every field with MDT set.
func (p *Processor) readModified() []byte {
	row, col := p.Screen.CursorRowCol()
	out := []byte{p.pendingAID, byte(row), byte(col)}
	for _, f := range p.Fields.ModifiedFields(p.readCell) {
		hi, lo := EncodeAddress14(f.StartAddress)
		out = append(out, OrderSBA, hi, lo)
		out = append(out, ebcdic.Encode(runesToBytes(f.Content))...)
	}
	return out
}

// readModifiedAll builds the Read-Modified-All response: same shape as
// Read-Modified, but every unprotected field regardless of MDT.
func (p *Processor) readModifiedAll() []byte {
	row, col := p.Screen.CursorRowCol()
	out := []byte{p.pendingAID, byte(row), byte(col)}
	for _, f := range p.Fields.UnprotectedFields(p.readCell) {
		hi, lo := EncodeAddress14(f.StartAddress)
		out = append(out, OrderSBA, hi, lo)
		out = append(out, ebcdic.Encode(runesToBytes(f.Content))...)
	}
	return out
}

func (p *Processor) readCell(i int) rune {
	return p.Screen.Get(i).Char
}

func runesToBytes(rs []rune) []byte {
	out := make([]byte, len(rs))
	for i, r := range rs {
		out[i] = byte(r)
	}
	return out
}
