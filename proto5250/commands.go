package proto5250

// Command codes. Write-To-Display, Read-Input-Fields and Read-MDT-Fields
// are pinned down explicitly; the rest are placeholders worth
// re-verifying against a live AS/400 capture. Clear-Unit, Clear-Format-
// Table and Erase-Reset sit in 0x40-0x5B and Write-Error-Code/Write-
// Structured-Field in 0xF0-0xFB, while Save/Restore-Screen (0x02/0x03),
// Query (0x04) and Read-Immediate (0x72) fall outside those ranges.
const (
	CmdClearUnit        byte = 0x40
	CmdClearFormatTable byte = 0x50
	CmdEraseReset       byte = 0x5B
	CmdSaveScreen       byte = 0x02
	CmdRestoreScreen    byte = 0x03
	CmdReadImmediate    byte = 0x72
	CmdQuery            byte = 0x04
	CmdWriteToDisplay       byte = 0xF1
	CmdReadInputFields      byte = 0xF2
	CmdReadMDTFields        byte = 0xF3
	CmdWriteErrorCode       byte = 0xF5
	CmdWriteStructuredField byte = 0xF6
)

// Order bytes within Write-to-Display data.
const (
	OrderSBA byte = 0x11 // Set Buffer Address
	OrderIC  byte = 0x13 // Insert Cursor
	OrderRA  byte = 0x02 // Repeat to Address
	OrderSF  byte = 0x1D // Start Field
)

// WCC (Write Control Character) bit positions.
const (
	wccReset        byte = 1 << 0
	wccResetMDT     byte = 1 << 1
	wccUnlockKbd    byte = 1 << 2
	wccSoundAlarm   byte = 1 << 3
	wccStartPrinter byte = 1 << 4
)

// WCC decodes a raw Write Control Character byte.
type WCC struct {
	Reset        bool
	ResetMDT     bool
	UnlockKbd    bool
	SoundAlarm   bool
	StartPrinter bool
}

// DecodeWCC splits a raw WCC byte into its component flags.
func DecodeWCC(b byte) WCC {
	return WCC{
		Reset:        b&wccReset != 0,
		ResetMDT:     b&wccResetMDT != 0,
		UnlockKbd:    b&wccUnlockKbd != 0,
		SoundAlarm:   b&wccSoundAlarm != 0,
		StartPrinter: b&wccStartPrinter != 0,
	}
}

// AID (Attention Identifier) codes for function/Enter keys.
const (
	AIDEnter byte = 0xF1
	AIDPF1   byte = 0xF2
	AIDPF2   byte = 0xF3
	AIDPF3   byte = 0xF4
	AIDPF4   byte = 0xF5
	AIDPF5   byte = 0xF6
	AIDPF6   byte = 0xF7
	AIDPF7   byte = 0xF8
	AIDPF8   byte = 0xF9
	AIDPF9   byte = 0x7A
	AIDPF10  byte = 0x7B
	AIDPF11  byte = 0x7C
	AIDPF12  byte = 0x7D
	AIDPF13  byte = 0xB1
	AIDPF14  byte = 0xB2
	AIDPF15  byte = 0xB3
	AIDPF16  byte = 0xB4
	AIDPF17  byte = 0xB5
	AIDPF18  byte = 0xB6
	AIDPF19  byte = 0xB7
	AIDPF20  byte = 0xB8
	AIDPF21  byte = 0xB9
	AIDPF22  byte = 0xBA
	AIDPF23  byte = 0xBB
	AIDPF24  byte = 0xBC

	AIDClear     byte = 0xBD
	AIDAttn      byte = 0x6C
	AIDSysReq    byte = 0xF0
	AIDFieldExit byte = 0x6D
)
