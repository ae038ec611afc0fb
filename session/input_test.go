package session

import (
	"net"
	"testing"

	"github.com/drake/tn5250/proto5250"
	"github.com/drake/tn5250/recovery"
	"github.com/drake/tn5250/screen"
)

// newStandaloneProcessor builds a proto5250Processor wired to scr
// without going through Connect/negotiate, for tests that only care
// about the processor/session input-layer wiring.
func newStandaloneProcessor(scr *screen.Screen) *proto5250Processor {
	return newProto5250Processor(scr, "IBM-5250-11", nil, nil, nil)
}

func TestTriggerAIDRejectsEmptyMandatoryEntryField(t *testing.T) {
	scr := screen.New(24, 80)
	proc := newStandaloneProcessor(scr)
	pkt := &proto5250.Packet{
		Command: proto5250.CmdWriteToDisplay,
		Data:    []byte{0x04, proto5250.OrderSF, 0x20}, // unlock kbd, mandatory-entry field at 0
	}
	proc.feed(pkt.Encode())

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	s := New()
	s.scr = scr
	s.proc = proc
	s.conn = c1

	err := s.TriggerAID(proto5250.AIDEnter)
	if err == nil {
		t.Fatal("TriggerAID: expected a validation error for an empty mandatory-entry field")
	}
	ie, ok := err.(*InputError)
	if !ok || ie.Kind != recovery.KindMandatoryEntry {
		t.Fatalf("TriggerAID error = %#v, want InputError{Kind: KindMandatoryEntry}", err)
	}
}

func TestTriggerAIDAllowsFilledMandatoryEntryField(t *testing.T) {
	scr := screen.New(24, 80)
	proc := newStandaloneProcessor(scr)
	pkt := &proto5250.Packet{
		Command: proto5250.CmdWriteToDisplay,
		Data:    []byte{0x04, proto5250.OrderSF, 0x20},
	}
	proc.feed(pkt.Encode())
	scr.WriteAt(1, 'X', screen.AttrNormal) // cell 0 holds the SF order's own blank

	c1, c2 := net.Pipe()
	defer c1.Close()
	defer c2.Close()

	respDone := make(chan struct{})
	go func() {
		defer close(respDone)
		buf := make([]byte, 256)
		c2.Read(buf)
	}()

	s := New()
	s.scr = scr
	s.proc = proc
	s.conn = c1

	if err := s.TriggerAID(proto5250.AIDEnter); err != nil {
		t.Fatalf("TriggerAID: unexpected error %v", err)
	}
	<-respDone
}

func TestUIOpsReturnBusyRatherThanBlock(t *testing.T) {
	s := New()
	scr := screen.New(24, 80)
	proc := newStandaloneProcessor(scr)
	s.scr = scr
	s.proc = proc

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.TypeChar('A'); err == nil {
		t.Fatal("TypeChar: expected Busy while mu is held elsewhere")
	} else if ie, ok := err.(*InputError); !ok || ie.Kind != recovery.KindBusy {
		t.Fatalf("TypeChar error = %#v, want KindBusy", err)
	}
	if err := s.NextField(); err == nil {
		t.Fatal("NextField: expected Busy while mu is held elsewhere")
	}
	if err := s.TriggerAID(proto5250.AIDEnter); err == nil {
		t.Fatal("TriggerAID: expected Busy while mu is held elsewhere")
	}
}

func TestReadOpsFallBackToCacheRatherThanBlock(t *testing.T) {
	s := New()
	scr := screen.New(24, 80)
	proc := newStandaloneProcessor(scr)
	s.scr = scr
	s.proc = proc

	// Prime the cache the way a successful locked call would.
	s.mu.Lock()
	s.refreshCacheLocked()
	s.mu.Unlock()
	want := s.TerminalContent()

	s.mu.Lock()
	defer s.mu.Unlock()

	if got := s.TerminalContent(); got != want {
		t.Fatalf("TerminalContent() under contention = %.20q, want cached %.20q", got, want)
	}
	if !s.IsKeyboardLocked() {
		t.Fatal("IsKeyboardLocked() under contention should fail safe to locked")
	}
}

func TestProto5250FeedDetectsOutOfOrderSequence(t *testing.T) {
	scr := screen.New(24, 80)
	var kinds []string
	onViolation := func(kind, detail string) { kinds = append(kinds, kind) }
	proc := newProto5250Processor(scr, "IBM-5250-11", onViolation, &recovery.SequenceValidator{}, nil)

	first := (&proto5250.Packet{Command: proto5250.CmdClearUnit, Sequence: 1}).Encode()
	proc.feed(first)
	if len(kinds) != 0 {
		t.Fatalf("expected no violation on the first packet, got %v", kinds)
	}

	outOfOrder := (&proto5250.Packet{Command: proto5250.CmdClearUnit, Sequence: 9}).Encode()
	proc.feed(outOfOrder)
	if len(kinds) != 1 || kinds[0] != string(recovery.KindOutOfOrderSequence) {
		t.Fatalf("expected one OutOfOrderSequence violation, got %v", kinds)
	}
}
