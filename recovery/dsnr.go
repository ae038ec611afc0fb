package recovery

// DSNR (negative-response) codes for the 5250 Write-Error-Code command.
const (
	DSNRInvalidCursor    byte = 0x22
	DSNRWritePastEnd     byte = 0x2A
	DSNRInvalidFieldAttr byte = 0x26
	DSNRFieldPastEOD     byte = 0x28
	DSNRUnmapped         byte = 0xFF
)

var dsnrByKind = map[Kind]byte{
	KindInvalidAddress:         DSNRInvalidCursor,
	KindInvalidOrder:           DSNRWritePastEnd,
	KindInvalidFieldDefinition: DSNRInvalidFieldAttr,
}

// DSNRFor maps an error kind to its 5250 negative-response code,
// falling back to DSNRUnmapped for anything not in the table above.
func DSNRFor(kind Kind) byte {
	if code, ok := dsnrByKind[kind]; ok {
		return code
	}
	return DSNRUnmapped
}

const (
	escByte           byte = 0x04
	cmdWriteErrorCode byte = 0xF5
	dsnrHeaderLen          = 6 // ESC, cmd, seq, len_hi, len_lo, flags
	maxDSNRMessage         = 64
)

// BuildDSNRPacket produces the wire packet for a negative response:
// [ESC][cmd_write_error_code][seq][len_hi][len_lo][flags][dsnr_code][message],
// truncating message to keep the whole packet bounded.
func BuildDSNRPacket(seq byte, kind Kind, message string) []byte {
	if len(message) > maxDSNRMessage {
		message = message[:maxDSNRMessage]
	}
	body := append([]byte{DSNRFor(kind)}, []byte(message)...)
	total := dsnrHeaderLen + len(body)
	out := make([]byte, 0, total)
	out = append(out, escByte, cmdWriteErrorCode, seq, byte(total>>8), byte(total&0xFF), 0x00)
	out = append(out, body...)
	return out
}
