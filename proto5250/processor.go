package proto5250

import (
	"fmt"

	"github.com/drake/tn5250/ebcdic"
	"github.com/drake/tn5250/field"
	"github.com/drake/tn5250/screen"
)

// Processor applies 5250 packets to a Screen/field.Table pair and
// builds AID-keyed read responses. One Processor is owned exclusively
// by a session's network thread.
type Processor struct {
	Screen *screen.Screen
	Fields *field.Table

	keyboardLocked bool
	pendingAID     byte

	// OnViolation is called when a structured field is skipped or a
	// field table is dropped for InvalidFieldDefinition. Decoupled from
	// recovery via callback to avoid an import cycle (proto5250 is a
	// leaf package; recovery sits above it).
	OnViolation func(kind, detail string)

	// BuildErrorResponse, when set, builds the wire bytes for a negative
	// response (5250's Write-Error-Code/DSNR) to seq for a violation
	// kind/message pair. Wired by the session layer to
	// recovery.BuildDSNRPacket for the same reason OnViolation is a
	// callback rather than a direct import.
	BuildErrorResponse func(seq byte, kind, message string) []byte

	queryCache *queryReplyCache
	lastDSNR   []byte
}

// NewProcessor creates a Processor bound to screen/fields, with the
// keyboard initially locked.
func NewProcessor(s *screen.Screen, terminalType string) *Processor {
	return &Processor{
		Screen:         s,
		Fields:         field.Empty(),
		keyboardLocked: true,
		queryCache:     newQueryReplyCache(terminalType),
	}
}

// Apply dispatches one parsed packet and returns any outbound response
// bytes (already packet-encoded) to ship back to the host.
func (p *Processor) Apply(pkt *Packet) ([]byte, error) {
	switch pkt.Command {
	case CmdWriteToDisplay:
		return p.writeToDisplay(pkt.Sequence, pkt.Data)
	case CmdReadInputFields:
		return p.readInputFields(pkt.Sequence), nil
	case CmdReadMDTFields:
		return p.readMDTFields(pkt.Sequence), nil
	case CmdReadImmediate:
		return p.readInputFields(pkt.Sequence), nil
	case CmdClearUnit, CmdClearFormatTable, CmdEraseReset:
		p.Screen.Clear()
		p.Fields = field.Empty()
		p.keyboardLocked = false
		return nil, nil
	case CmdSaveScreen:
		return nil, nil // accepted without effect; no screen snapshot is stored
	case CmdRestoreScreen:
		return nil, nil
	case CmdQuery:
		return p.queryCache.reply(pkt.Sequence), nil
	case CmdWriteStructuredField:
		p.ApplyStructuredFields(pkt.Data)
		return nil, nil
	default:
		if p.OnViolation != nil {
			p.OnViolation("InvalidCommand", fmt.Sprintf("unrecognized 5250 command 0x%02X", pkt.Command))
		}
		return nil, nil
	}
}

// IsKeyboardLocked reports the current keyboard lock state.
func (p *Processor) IsKeyboardLocked() bool { return p.keyboardLocked }

// SetPendingAID records the AID byte for the next read response,
// triggered by the controller's function_key operation.
func (p *Processor) SetPendingAID(aid byte) { p.pendingAID = aid }

// EmitAID builds the unsolicited read response a function-key press
// produces,
// client-initiated rather than answering a host-issued read command,
// so there is no meaningful host sequence number to echo.
func (p *Processor) EmitAID(aid byte) []byte {
	p.pendingAID = aid
	return p.readMDTFields(0)
}

// writeToDisplay applies one Write-to-Display command: WCC byte first,
// then the order stream. seq is the host packet's sequence number,
// echoed back on any DSNR negative response the order stream produces.
func (p *Processor) writeToDisplay(seq byte, data []byte) ([]byte, error) {
	p.keyboardLocked = true
	p.lastDSNR = nil
	if len(data) == 0 {
		return nil, nil
	}
	wcc := DecodeWCC(data[0])
	if wcc.Reset {
		p.pendingAID = 0
	}

	events, err := p.walkOrders(seq, data[1:])
	if err != nil {
		if p.OnViolation != nil {
			p.OnViolation("InvalidFieldDefinition", err.Error())
		}
		p.Fields = field.Empty()
	} else if events != nil {
		table, ferr := field.Build(events, p.Screen.Len())
		if ferr != nil {
			if p.OnViolation != nil {
				p.OnViolation("InvalidFieldDefinition", ferr.Error())
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
	if wcc.UnlockKbd {
		p.keyboardLocked = false
	}
	return p.lastDSNR, nil
}

// noteInvalidAddress reports an out-of-range buffer address both to
// OnViolation and, if the session layer wired BuildErrorResponse, as a
// DSNR negative response queued for this writeToDisplay call.
func (p *Processor) noteInvalidAddress(seq byte, addr int) {
	detail := fmt.Sprintf("buffer address %d out of range", addr)
	if p.OnViolation != nil {
		p.OnViolation("InvalidAddress", detail)
	}
	if p.BuildErrorResponse != nil {
		p.lastDSNR = append(p.lastDSNR, p.BuildErrorResponse(seq, "InvalidAddress", detail)...)
	}
}

// walkOrders processes the order stream following the WCC byte,
// advancing the cursor and writing display bytes, and collects
// start-field events for the caller to build a field.Table from. An
// out-of-range SBA address yields a DSNR response and is skipped
// rather than aborting the rest of the stream.
func (p *Processor) walkOrders(seq byte, data []byte) ([]field.StartFieldEvent, error) {
	var events []field.StartFieldEvent
	attr := screen.AttrNormal
	i := 0
	for i < len(data) {
		b := data[i]
		switch b {
		case OrderSBA:
			if i+2 >= len(data) {
				return events, nil
			}
			addr := int(data[i+1])<<8 | int(data[i+2])
			if !p.Screen.InBounds(addr) {
				p.noteInvalidAddress(seq, addr)
				i += 3
				continue
			}
			p.Screen.SetCursor(addr)
			i += 3

		case OrderIC:
			i++

		case OrderRA:
			if i+3 >= len(data) {
				return events, nil
			}
			addr := int(data[i+1])<<8 | int(data[i+2])
			ch := ebcdic.ToASCII(data[i+3])
			count := addr - p.Screen.Cursor()
			if count < 0 {
				count = 0
			}
			p.Screen.RepeatChar(ch, attr, count)
			i += 4

		case OrderSF:
			if i+1 >= len(data) {
				return events, nil
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
	return events, nil
}

// decodeStartField turns a 5250 field-attribute byte into a
// StartFieldEvent. Bit assignment here is an implementation choice: one
// bit per flag, documented in DESIGN.md, worth re-verifying against a
// live capture.
func decodeStartField(attrByte byte, addr int) field.StartFieldEvent {
	return field.StartFieldEvent{
		StartAddress:   addr,
		Protected:      attrByte&0x01 != 0,
		Numeric:        attrByte&0x02 != 0,
		NonDisplay:     attrByte&0x04 != 0,
		Intensified:    attrByte&0x08 != 0,
		MandatoryFill:  attrByte&0x10 != 0,
		MandatoryEntry: attrByte&0x20 != 0,
		Trigger:        attrByte&0x40 != 0,
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

// readInputFields builds the Read-Input-Fields AID response: AID,
// cursor address, then every unprotected field's content in buffer
// order, EBCDIC-encoded.
func (p *Processor) readInputFields(seq byte) []byte {
	row, col := p.Screen.CursorRowCol()
	data := []byte{p.pendingAID, byte(row), byte(col)}
	for _, f := range p.Fields.UnprotectedFields(p.readCell) {
		data = append(data, ebcdic.Encode(runesToBytes(f.Content))...)
	}
	return (&Packet{Command: CmdReadInputFields, Sequence: seq, Data: data}).Encode()
}

// readMDTFields builds the Read-MDT-Fields response: AID, cursor
// address, then each MDT-set field prefixed by SBA addr.
func (p *Processor) readMDTFields(seq byte) []byte {
	row, col := p.Screen.CursorRowCol()
	data := []byte{p.pendingAID, byte(row), byte(col)}
	for _, f := range p.Fields.ModifiedFields(p.readCell) {
		data = append(data, OrderSBA, byte(f.StartAddress>>8), byte(f.StartAddress&0xFF))
		data = append(data, ebcdic.Encode(runesToBytes(f.Content))...)
	}
	return (&Packet{Command: CmdReadMDTFields, Sequence: seq, Data: data}).Encode()
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
