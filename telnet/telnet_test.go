package telnet

import (
	"bytes"
	"testing"
)

func eventKinds(events []Event) []EventKind {
	kinds := make([]EventKind, len(events))
	for i, ev := range events {
		kinds[i] = ev.Kind
	}
	return kinds
}

func TestParserHandlesSplitDoNegotiation(t *testing.T) {
	table := NewCompatibilityTable()
	table.SupportLocal(OptNAWS)
	parser := NewParser(table)

	events := parser.Receive([]byte{CmdIAC, CmdDO})
	if len(events) != 0 {
		t.Fatalf("expected no events yet, got %v", events)
	}

	events = parser.Receive([]byte{OptNAWS})
	var reply []byte
	for _, ev := range events {
		if ev.Kind == EventDataSend {
			reply = ev.Data
			break
		}
	}
	if reply == nil {
		t.Fatalf("expected a negotiation reply, got none")
	}
	expected := []byte{CmdIAC, CmdWILL, OptNAWS}
	if !bytes.Equal(reply, expected) {
		t.Fatalf("unexpected reply: want %v got %v", expected, reply)
	}
}

func TestEscapeUnescapeRoundTrip(t *testing.T) {
	initial := []byte{CmdIAC, CmdSB, 37, CmdIAC, 205, 202, CmdIAC, CmdSE}
	expected := []byte{CmdIAC, CmdIAC, CmdSB, 37, CmdIAC, CmdIAC, 205, 202, CmdIAC, CmdIAC, CmdSE}

	escaped := EscapeIAC(initial)
	if !bytes.Equal(escaped, expected) {
		t.Errorf("EscapeIAC failed: expected %v, got %v", expected, escaped)
	}
	unescaped := UnescapeIAC(expected)
	if !bytes.Equal(unescaped, initial) {
		t.Errorf("UnescapeIAC failed: expected %v, got %v", initial, unescaped)
	}
}

func TestEscapeRoundtripArbitraryBytes(t *testing.T) {
	cases := [][]byte{
		{CmdIAC, CmdIAC, 228},
		{228, CmdIAC, CmdIAC},
		{0x01, CmdIAC, 0x02, CmdIAC, CmdIAC, 0x03},
	}
	for _, data := range cases {
		escaped := EscapeIAC(data)
		unescaped := UnescapeIAC(escaped)
		if !bytes.Equal(unescaped, data) {
			t.Errorf("round trip failed for %v: got %v via %v", data, unescaped, escaped)
		}
	}
}

func TestIACRoundTripBinaryScenario(t *testing.T) {
	input := []byte{0x01, 0xFF, 0x02, 0xFF, 0xFF, 0x03}
	wantEscaped := []byte{0x01, 0xFF, 0xFF, 0x02, 0xFF, 0xFF, 0xFF, 0xFF, 0x03}
	escaped := EscapeIAC(input)
	if !bytes.Equal(escaped, wantEscaped) {
		t.Fatalf("escape mismatch: want %v got %v", wantEscaped, escaped)
	}
	if !bytes.Equal(UnescapeIAC(escaped), input) {
		t.Fatalf("unescape(escape(x)) != x")
	}
}

func TestBadSubnegBufferNoPanic(t *testing.T) {
	entry := CompatibilityEntry{Local: true, Remote: false, LocalState: true, RemoteState: false}
	table := FromOptions([][2]byte{{CmdIAC, entry.toU8()}})
	parser := NewParser(table)
	parser.Receive([]byte{CmdIAC, CmdSB, CmdIAC, CmdSE})
}

func TestCompatibilityTableReset(t *testing.T) {
	table := NewCompatibilityTable()
	entry := CompatibilityEntry{Local: true, Remote: true, LocalState: true, RemoteState: true}
	table.Set(OptTTYPE, entry)

	table.ResetStates()
	result := table.Get(OptTTYPE)

	if !result.Local || !result.Remote {
		t.Error("ResetStates should preserve support flags")
	}
	if result.LocalState || result.RemoteState {
		t.Error("ResetStates should clear state flags")
	}
}

func TestCompatibilityEntryBitmask(t *testing.T) {
	tests := []struct {
		entry CompatibilityEntry
		want  byte
	}{
		{CompatibilityEntry{Local: true}, bitLocal},
		{CompatibilityEntry{Remote: true}, bitRemote},
		{CompatibilityEntry{LocalState: true}, bitLocalState},
		{CompatibilityEntry{RemoteState: true}, bitRemoteState},
	}
	for _, tt := range tests {
		got := tt.entry.toU8()
		if got != tt.want {
			t.Errorf("toU8(%+v) = %d, want %d", tt.entry, got, tt.want)
		}
		if roundtrip := entryFromU8(got); roundtrip != tt.entry {
			t.Errorf("entryFromU8(%d) = %+v, want %+v", got, roundtrip, tt.entry)
		}
	}
}

func TestNegotiationWILLAccepted(t *testing.T) {
	table := NewCompatibilityTable()
	table.SupportRemote(OptEcho)
	parser := NewParser(table)

	events := parser.Receive([]byte{CmdIAC, CmdWILL, OptEcho})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d: %+v", len(events), events)
	}
	if !bytes.Equal(events[0].Data, []byte{CmdIAC, CmdDO, OptEcho}) {
		t.Errorf("expected IAC DO ECHO, got %v", events[0].Data)
	}
	if !parser.Options.Get(OptEcho).RemoteState {
		t.Error("RemoteState should be true after WILL")
	}
}

func TestNegotiationDOUnsupported(t *testing.T) {
	parser := NewParserDefault()
	events := parser.Receive([]byte{CmdIAC, CmdDO, OptNAWS})
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %+v", len(events), events)
	}
	if !bytes.Equal(events[0].Data, []byte{CmdIAC, CmdWONT, OptNAWS}) {
		t.Errorf("expected IAC WONT NAWS, got %v", events[0].Data)
	}
}

func TestDoubleIACInDataPassesThrough(t *testing.T) {
	parser := NewParserDefault()
	events := parser.Receive([]byte{72, 101, 108, 108, 111, 255, 255, 87, 111, 114, 108, 100})
	if len(events) != 1 || events[0].Kind != EventDataReceive {
		t.Fatalf("expected 1 DataReceive event, got %+v", events)
	}
}

func TestIncompleteIACBuffersAcrossReceives(t *testing.T) {
	parser := NewParserDefault()
	events := parser.Receive([]byte{CmdIAC})
	if len(events) != 0 {
		t.Errorf("expected 0 events for lone IAC, got %d", len(events))
	}
	events = parser.Receive([]byte{CmdGA})
	if len(events) != 1 || events[0].Kind != EventIAC || events[0].Command != CmdGA {
		t.Fatalf("expected 1 IAC(GA) event, got %+v", events)
	}
}

func TestSubnegSplitAcrossReceives(t *testing.T) {
	table := NewCompatibilityTable()
	table.SupportLocal(OptTTYPE)
	parser := NewParser(table)
	parser.Will(OptTTYPE)

	events := parser.Receive([]byte{CmdIAC, CmdSB, OptTTYPE, CmdSEND})
	if len(events) != 0 {
		t.Errorf("expected 0 events for incomplete subneg, got %d", len(events))
	}
	events = parser.Receive([]byte{CmdIAC, CmdSE})
	if len(events) != 1 || events[0].Kind != EventSubnegotiation {
		t.Fatalf("expected 1 Subnegotiation event, got %+v", events)
	}
}

// --- Negotiator tests ---

func TestInitialBundleIsSixEssentialOptionsPlusTwo(t *testing.T) {
	n := NewNegotiator()
	events := n.InitialBundle()
	if len(events) != 8 {
		t.Fatalf("expected 8 events (3 WILL + 3 DO + WILL TTYPE + WILL NEWENVIRON), got %d: %+v", len(events), events)
	}
}

func TestNegotiationCompleteAfterEssentials(t *testing.T) {
	n := NewNegotiator()
	n.InitialBundle()
	if n.NegotiationComplete() {
		t.Fatal("should not be complete before host acknowledges")
	}
	n.Receive([]byte{CmdIAC, CmdDO, OptBinary})
	n.Receive([]byte{CmdIAC, CmdDO, OptEOR})
	n.Receive([]byte{CmdIAC, CmdDO, OptSGA})
	n.Receive([]byte{CmdIAC, CmdWILL, OptBinary})
	n.Receive([]byte{CmdIAC, CmdWILL, OptEOR})
	n.Receive([]byte{CmdIAC, CmdWILL, OptSGA})
	if !n.NegotiationComplete() {
		t.Fatal("expected negotiation complete once Binary/EOR/SGA active both ways")
	}
}

func TestEmptyNewEnvironSend(t *testing.T) {
	n := NewNegotiator()
	n.InitialBundle()
	events := n.Receive([]byte{CmdIAC, CmdSB, OptNewEnviron, CmdSEND, CmdIAC, CmdSE})

	var reply []byte
	for _, ev := range events {
		if ev.Kind == EventDataSend {
			reply = ev.Data
		}
	}
	if reply == nil {
		t.Fatalf("expected a NewEnviron reply, got events %+v", events)
	}
	if len(reply) < 40 {
		t.Errorf("expected reply length >= 40, got %d: %v", len(reply), reply)
	}
	if !bytes.Contains(reply, []byte("DEVNAME")) {
		t.Errorf("expected DEVNAME present in reply, got %v", reply)
	}
	wantPrefix := []byte{CmdIAC, CmdSB, OptNewEnviron, envIS}
	if !bytes.HasPrefix(reply, wantPrefix) {
		t.Errorf("expected reply prefix %v, got %v", wantPrefix, reply[:4])
	}
	if !bytes.HasSuffix(reply, []byte{CmdIAC, CmdSE}) {
		t.Errorf("expected reply suffix IAC SE, got %v", reply[len(reply)-2:])
	}
}

func TestNewEnvironSendNamedSubset(t *testing.T) {
	n := NewNegotiator()
	n.InitialBundle()
	payload := []byte{CmdSEND, envVAR}
	payload = append(payload, []byte("USER")...)
	events := n.Receive(append([]byte{CmdIAC, CmdSB, OptNewEnviron}, append(payload, CmdIAC, CmdSE)...))

	var reply []byte
	for _, ev := range events {
		if ev.Kind == EventDataSend {
			reply = ev.Data
		}
	}
	if reply == nil {
		t.Fatal("expected a reply")
	}
	if bytes.Contains(reply, []byte("DEVNAME")) {
		t.Errorf("did not expect DEVNAME in a named-subset reply: %v", reply)
	}
	if !bytes.Contains(reply, []byte("USER")) {
		t.Errorf("expected USER in reply: %v", reply)
	}
}

func TestNewEnvironIBMRSEEDAutoSignon(t *testing.T) {
	n := NewNegotiator()
	n.InitialBundle()
	n.SetCredentials("QSECOFR", "hunter2")

	payload := []byte{CmdIAC, CmdSB, OptNewEnviron, envIS, envUSERVAR}
	payload = append(payload, []byte("IBMRSEED")...)
	payload = append(payload, envValue)
	payload = append(payload, CmdIAC, CmdSE)

	events := n.Receive(payload)
	var reply []byte
	for _, ev := range events {
		if ev.Kind == EventDataSend {
			reply = ev.Data
		}
	}
	if reply == nil {
		t.Fatalf("expected auto-signon reply, got %+v", events)
	}
	if !bytes.Contains(reply, []byte("QSECOFR")) {
		t.Errorf("expected username in reply, got %v", reply)
	}
	if !bytes.Contains(reply, []byte("hunter2")) {
		t.Errorf("expected password in reply, got %v", reply)
	}
	if !bytes.Contains(reply, []byte("IBMRSEED")) {
		t.Errorf("expected IBMRSEED echoed back empty, got %v", reply)
	}
}

func TestTerminalTypeCycles(t *testing.T) {
	n := NewNegotiator()
	n.InitialBundle()
	first := sendTTYPEAndCapture(t, n)
	second := sendTTYPEAndCapture(t, n)
	if first == second {
		t.Errorf("expected terminal type to advance between requests, both were %q", first)
	}
}

func sendTTYPEAndCapture(t *testing.T, n *Negotiator) string {
	t.Helper()
	events := n.Receive([]byte{CmdIAC, CmdSB, OptTTYPE, CmdSEND, CmdIAC, CmdSE})
	for _, ev := range events {
		if ev.Kind == EventDataSend && len(ev.Data) > 6 {
			return string(ev.Data[4 : len(ev.Data)-2])
		}
	}
	t.Fatalf("no terminal type reply produced")
	return ""
}
