package proto5250

import (
	"testing"

	"github.com/drake/tn5250/screen"
)

func TestParsePacketBoundary(t *testing.T) {
	buf := []byte{0xF1, 0x01, 0x00, 0x0A, 0x00, 0x40, 0x40, 0x40, 0x40, 0x40}
	pkt, consumed, err := ParsePacket(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consumed != 10 {
		t.Fatalf("expected 10 bytes consumed, got %d", consumed)
	}
	if pkt.Command != CmdWriteToDisplay || pkt.Sequence != 1 || pkt.Flags != 0x00 {
		t.Fatalf("unexpected header: %+v", pkt)
	}
	if len(pkt.Data) != 5 {
		t.Fatalf("expected 5 data bytes, got %d", len(pkt.Data))
	}
	for _, b := range pkt.Data {
		if b != 0x40 {
			t.Fatalf("expected all 0x40 data bytes, got %x", b)
		}
	}
}

func TestParsePacketTooShort(t *testing.T) {
	buf := []byte{0xF1, 0x01, 0x00, 0x04, 0x00, 0x40}
	_, _, err := ParsePacket(buf)
	if err != ErrMalformedPacket {
		t.Fatalf("expected ErrMalformedPacket, got %v", err)
	}
}

func TestPacketEncodeRoundTrips(t *testing.T) {
	pkt := &Packet{Command: CmdWriteToDisplay, Sequence: 3, Flags: 0, Data: []byte{0x40, 0x40}}
	encoded := pkt.Encode()
	decoded, consumed, err := ParsePacket(encoded)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if consumed != len(encoded) {
		t.Fatalf("expected to consume entire encoded packet")
	}
	if decoded.Command != pkt.Command || decoded.Sequence != pkt.Sequence {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, pkt)
	}
}

func newTestProcessor() (*Processor, *screen.Screen) {
	s := screen.New(24, 80)
	return NewProcessor(s, "IBM-3179-2"), s
}

func TestWriteToDisplayWritesTextAndAppliesWCC(t *testing.T) {
	p, s := newTestProcessor()
	data := []byte{0x00} // WCC: no bits set
	data = append(data, 'H', 'I')
	if _, err := p.writeToDisplay(0, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.IsKeyboardLocked() {
		t.Fatal("expected keyboard to remain locked without unlock bit")
	}
	if s.Get(0).Char == 0 {
		t.Fatal("expected screen to have been written")
	}
}

func TestWriteToDisplayUnlockKeyboard(t *testing.T) {
	p, _ := newTestProcessor()
	data := []byte{wccUnlockKbd}
	if _, err := p.writeToDisplay(0, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.IsKeyboardLocked() {
		t.Fatal("expected keyboard unlocked after WCC unlock bit")
	}
}

func TestWriteToDisplayBuildsFieldTableFromStartField(t *testing.T) {
	p, _ := newTestProcessor()
	data := []byte{0x00, OrderSBA, 0x00, 0x05, OrderSF, 0x00}
	if _, err := p.writeToDisplay(0, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Fields.Empty() {
		t.Fatal("expected a non-empty field table after a Start Field order")
	}
	f, ok := p.Fields.At(5)
	if !ok {
		t.Fatal("expected field registered at address 5")
	}
	if f.StartAddress != 5 {
		t.Fatalf("expected start address 5, got %d", f.StartAddress)
	}
}

func TestWriteToDisplayInvalidFieldDropsTable(t *testing.T) {
	p, _ := newTestProcessor()
	// Start fields out of buffer order (10, then 5): the first field's
	// computed end (5) falls before its start, an invalid definition. An
	// out-of-range SBA cannot produce one, since walkOrders skips it.
	data := []byte{0x00, OrderSBA, 0x00, 0x0A, OrderSF, 0x00, OrderSBA, 0x00, 0x05, OrderSF, 0x00}
	var violations []string
	p.OnViolation = func(kind, detail string) { violations = append(violations, kind) }
	if _, err := p.writeToDisplay(0, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.Fields.Empty() {
		t.Fatal("expected field table to be dropped on invalid field definition")
	}
	if len(violations) == 0 {
		t.Fatal("expected OnViolation to be called")
	}
}

func TestReadInputFieldsIncludesUnprotectedContentOnly(t *testing.T) {
	p, s := newTestProcessor()
	data := []byte{0x00,
		OrderSBA, 0x00, 0x00, OrderSF, 0x01, // protected field at 0
		OrderSBA, 0x00, 0x05, OrderSF, 0x00, // unprotected field at 5
	}
	if _, err := p.writeToDisplay(0, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.WriteAt(6, 'X', screen.AttrNormal)
	p.SetPendingAID(AIDEnter)
	resp := p.readInputFields(7)
	pkt, _, err := ParsePacket(resp)
	if err != nil {
		t.Fatalf("unexpected error parsing response: %v", err)
	}
	if pkt.Data[0] != AIDEnter {
		t.Fatalf("expected AID byte first, got %x", pkt.Data[0])
	}
	// AID+cursor, then only the unprotected field at 5 (runs to end of
	// buffer); the protected field at 0 contributes nothing.
	if want := 3 + (s.Len() - 5); len(pkt.Data) != want {
		t.Fatalf("expected %d data bytes (unprotected field only), got %d", want, len(pkt.Data))
	}
}

func TestApplyStructuredFieldsSkipsUnknownAndLogs(t *testing.T) {
	p, _ := newTestProcessor()
	var kinds []string
	p.OnViolation = func(kind, detail string) { kinds = append(kinds, kind) }
	unknown := byte(0xFE)
	data := []byte{0x00, 0x03, unknown} // length 3: header only, no payload
	p.ApplyStructuredFields(data)
	if len(kinds) != 1 || kinds[0] != "UnknownStructuredField" {
		t.Fatalf("expected one UnknownStructuredField violation, got %v", kinds)
	}
}

func TestApplyStructuredFieldsEraseResetClearsScreen(t *testing.T) {
	p, s := newTestProcessor()
	s.WriteAt(0, 'Z', screen.AttrNormal)
	data := []byte{0x00, 0x03, SFIDEraseReset}
	p.ApplyStructuredFields(data)
	if s.Get(0).Char != ' ' {
		t.Fatalf("expected screen cleared by Erase/Reset structured field, got %q", s.Get(0).Char)
	}
}

func TestQueryReplyCachesAcrossCalls(t *testing.T) {
	p, _ := newTestProcessor()
	first := p.queryCache.reply(1)
	second := p.queryCache.reply(2)
	pkt1, _, _ := ParsePacket(first)
	pkt2, _, _ := ParsePacket(second)
	if string(pkt1.Data) != string(pkt2.Data) {
		t.Fatal("expected identical cached Query-Reply body across calls")
	}
	if pkt1.Sequence != 1 || pkt2.Sequence != 2 {
		t.Fatal("expected sequence numbers to still vary per response")
	}
}

func TestClearUnitResetsEverything(t *testing.T) {
	p, s := newTestProcessor()
	s.WriteAt(0, 'Q', screen.AttrNormal)
	if _, err := p.Apply(&Packet{Command: CmdClearUnit}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Get(0).Char != ' ' {
		t.Fatal("expected Clear Unit to clear the screen")
	}
	if !p.Fields.Empty() {
		t.Fatal("expected Clear Unit to drop the field table")
	}
	if p.IsKeyboardLocked() {
		t.Fatal("expected Clear Unit to unlock the keyboard")
	}
}

func TestWriteToDisplayInvalidAddressEmitsDSNRAndSkipsOrder(t *testing.T) {
	p, s := newTestProcessor()
	oob := s.Len() + 1
	data := []byte{0x00, OrderSBA, byte(oob >> 8), byte(oob & 0xFF), 'H', 'I'}

	var violations []string
	p.OnViolation = func(kind, detail string) { violations = append(violations, kind) }
	p.BuildErrorResponse = func(seq byte, kind, message string) []byte {
		return []byte{0x04, CmdWriteErrorCode, seq, 0x00, 0x00, 0x00, 0x22}
	}

	resp, err := p.writeToDisplay(9, data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(violations) != 1 || violations[0] != "InvalidAddress" {
		t.Fatalf("expected one InvalidAddress violation, got %v", violations)
	}
	if len(resp) == 0 {
		t.Fatal("expected a DSNR response for the out-of-range address")
	}
	if resp[2] != 9 {
		t.Fatalf("expected DSNR response to echo sequence 9, got %d", resp[2])
	}
	// The order following the invalid SBA still executes: the cursor
	// just never moved to the bad address, so "HI" lands at 0.
	if s.Get(0).Char == 0 {
		t.Fatal("expected the stream to keep processing after the skipped order")
	}
}

func TestApplyRoutesWriteStructuredFieldCommand(t *testing.T) {
	p, s := newTestProcessor()
	s.WriteAt(0, 'Z', screen.AttrNormal)
	data := []byte{0x00, 0x03, SFIDEraseReset}
	if _, err := p.Apply(&Packet{Command: CmdWriteStructuredField, Data: data}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Get(0).Char != ' ' {
		t.Fatal("expected Write Structured Field's Erase/Reset to clear the screen via Apply")
	}
}

func TestApplyLogsInvalidCommandForUnknownCode(t *testing.T) {
	p, _ := newTestProcessor()
	var kinds []string
	p.OnViolation = func(kind, detail string) { kinds = append(kinds, kind) }
	if _, err := p.Apply(&Packet{Command: 0xEE}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(kinds) != 1 || kinds[0] != "InvalidCommand" {
		t.Fatalf("expected one InvalidCommand violation, got %v", kinds)
	}
}

func TestRepeatToAddressFillsRange(t *testing.T) {
	p, s := newTestProcessor()
	data := []byte{0x00, OrderRA, 0x00, 0x03, 0xC1} // EBCDIC 'A' repeated to address 3
	if _, err := p.writeToDisplay(0, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 3; i++ {
		if s.Get(i).Char != 'A' {
			t.Fatalf("expected cell %d filled with 'A', got %q", i, s.Get(i).Char)
		}
	}
}
