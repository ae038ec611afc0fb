package proto5250

import "github.com/drake/tn5250/field"

// Structured field IDs carried in Write-to-Display structured-field
// data. Field IDs this processor doesn't recognize are skipped and
// logged rather than treated as a stream error.
const (
	SFIDEraseReset             byte = 0x5B
	SFIDDefineExtendedAttr     byte = 0xD3
	SFIDDefineNamedLogicalUnit byte = 0x7E
	SFIDDefinePendingOps       byte = 0x80
	SFIDQuery                  byte = 0x70
	SFIDQueryReply             byte = 0x71
	SFIDSetReplyMode           byte = 0x72
	SFIDDefineRollDirection    byte = 0x73
	SFIDSetMonitorMode         byte = 0x74
	SFIDCancelRecovery         byte = 0x75
)

var knownStructuredFields = map[byte]string{
	SFIDEraseReset:             "EraseReset",
	SFIDDefineExtendedAttr:     "DefineExtendedAttribute",
	SFIDDefineNamedLogicalUnit: "DefineNamedLogicalUnit",
	SFIDDefinePendingOps:       "DefinePendingOperations",
	SFIDQuery:                  "Query",
	SFIDQueryReply:             "QueryReply",
	SFIDSetReplyMode:           "SetReplyMode",
	SFIDDefineRollDirection:    "DefineRollDirection",
	SFIDSetMonitorMode:         "SetMonitorMode",
	SFIDCancelRecovery:         "CancelRecovery",
}

// StructuredField is one parsed structured field from a Write
// Structured Field command: a 2-byte big-endian length, an SFID byte,
// and a data payload.
type StructuredField struct {
	ID   byte
	Data []byte
}

// ParseStructuredFields walks a length-prefixed stream of structured
// fields. Fields whose declared length runs past the remaining buffer
// are dropped along with the rest of the stream (the length prefix is
// the only framing available; once it lies, resync isn't possible).
func ParseStructuredFields(data []byte) []StructuredField {
	var out []StructuredField
	i := 0
	for i+3 <= len(data) {
		length := int(data[i])<<8 | int(data[i+1])
		if length < 3 || i+length > len(data) {
			return out
		}
		out = append(out, StructuredField{
			ID:   data[i+2],
			Data: data[i+3 : i+length],
		})
		i += length
	}
	return out
}

// ApplyStructuredFields processes each field in order, calling back
// into p for the ones that affect display state and invoking
// OnViolation for anything unrecognized.
func (p *Processor) ApplyStructuredFields(data []byte) {
	for _, sf := range ParseStructuredFields(data) {
		name, known := knownStructuredFields[sf.ID]
		if !known {
			if p.OnViolation != nil {
				p.OnViolation("UnknownStructuredField", name)
			}
			continue
		}
		switch sf.ID {
		case SFIDEraseReset:
			p.Screen.Clear()
			p.Fields = field.Empty()
		case SFIDQuery:
			// handled at the command layer via CmdQuery; a Query
			// structured field inside a Write-to-Display stream is
			// treated the same way.
		default:
			// Recognized but not modeled as display state (extended
			// attributes, logical-unit naming, monitor mode, pending
			// operations, reply mode, roll direction, recovery
			// cancellation) - accepted without effect.
		}
	}
}
