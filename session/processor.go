package session

import (
	"github.com/drake/tn5250/field"
	"github.com/drake/tn5250/proto3270"
	"github.com/drake/tn5250/proto5250"
	"github.com/drake/tn5250/recovery"
	"github.com/drake/tn5250/screen"
	"github.com/drake/tn5250/telnet"
)

// processor is the tagged-sum-type interface the session spine
// dispatches through after protocol auto-detect.
type processor interface {
	// feed hands newly-received bytes to the protocol's own framing.
	// It returns any response bytes to write back to the host.
	feed(data []byte) []byte
	// flush completes any record framed by something other than feed
	// itself (3270's telnet-EOR framing); a no-op for protocols that
	// frame entirely inside feed.
	flush() []byte
	Screen() *screen.Screen
	Fields() *field.Table
	IsKeyboardLocked() bool
	SetPendingAID(aid byte)
	// emitAID builds a client-initiated AID response (a function-key
	// press with no preceding host read command) and returns the bytes
	// to write back to the host, already framed the way this protocol
	// expects (3270's trailing IAC EOR, 5250's length-prefixed packet).
	emitAID(aid byte) []byte
}

// proto5250Processor adapts proto5250.Processor to the session's
// processor interface, owning the length-prefixed packet framing
// across reads.
type proto5250Processor struct {
	p       *proto5250.Processor
	pending []byte

	seqCheck    *recovery.SequenceValidator
	onViolation func(kind, detail string)
}

func newProto5250Processor(s *screen.Screen, terminalType string, onViolation func(kind, detail string), seqCheck *recovery.SequenceValidator, buildErrorResponse func(seq byte, kind, message string) []byte) *proto5250Processor {
	p := proto5250.NewProcessor(s, terminalType)
	p.OnViolation = onViolation
	p.BuildErrorResponse = buildErrorResponse
	return &proto5250Processor{p: p, seqCheck: seqCheck, onViolation: onViolation}
}

func (a *proto5250Processor) feed(data []byte) []byte {
	a.pending = append(a.pending, data...)
	var out []byte
	for {
		pkt, consumed, err := proto5250.ParsePacket(a.pending)
		if err == proto5250.ErrIncompletePacket {
			break
		}
		if err != nil {
			// Genuine corruption: drop one byte and resync rather than
			// discarding everything buffered so far.
			a.pending = a.pending[1:]
			if len(a.pending) == 0 {
				break
			}
			continue
		}
		a.pending = a.pending[consumed:]
		if a.seqCheck != nil && a.seqCheck.Check(pkt.Sequence) && a.onViolation != nil {
			a.onViolation(string(recovery.KindOutOfOrderSequence), "packet sequence out of order")
		}
		resp, _ := a.p.Apply(pkt)
		out = append(out, resp...)
	}
	return out
}

func (a *proto5250Processor) flush() []byte { return nil }

func (a *proto5250Processor) Screen() *screen.Screen { return a.p.Screen }
func (a *proto5250Processor) Fields() *field.Table   { return a.p.Fields }
func (a *proto5250Processor) IsKeyboardLocked() bool { return a.p.IsKeyboardLocked() }
func (a *proto5250Processor) SetPendingAID(aid byte) { a.p.SetPendingAID(aid) }
func (a *proto5250Processor) emitAID(aid byte) []byte { return a.p.EmitAID(aid) }

// proto3270Processor adapts proto3270.Processor, framing commands on
// telnet IAC EOR boundaries rather than a length-prefixed header
// (RFC 2355); the session's receive loop flushes a record to feed
// whenever it sees an EOR.
type proto3270Processor struct {
	p       *proto3270.Processor
	pending []byte
}

func newProto3270Processor(s *screen.Screen, onViolation func(kind, detail string)) *proto3270Processor {
	p := proto3270.NewProcessor(s)
	p.OnViolation = onViolation
	return &proto3270Processor{p: p}
}

// feed accumulates bytes; the caller (session's receive loop) is
// responsible for calling flush on EOR, since proto3270 has no
// internal length framing of its own.
func (a *proto3270Processor) feed(data []byte) []byte {
	a.pending = append(a.pending, data...)
	return nil
}

func (a *proto3270Processor) flush() []byte {
	if len(a.pending) == 0 {
		return nil
	}
	cmd, err := proto3270.ParseCommand(a.pending)
	a.pending = a.pending[:0]
	if err != nil {
		return nil
	}
	resp, _ := a.p.Apply(cmd)
	if len(resp) == 0 {
		return nil
	}
	return append(resp, telnet.CmdIAC, telnet.CmdEOR)
}

func (a *proto3270Processor) Screen() *screen.Screen { return a.p.Screen }
func (a *proto3270Processor) Fields() *field.Table   { return a.p.Fields }
func (a *proto3270Processor) IsKeyboardLocked() bool { return a.p.IsKeyboardLocked() }
func (a *proto3270Processor) SetPendingAID(aid byte) { a.p.SetPendingAID(aid) }

// emitAID appends the trailing IAC EOR the 3270 record-framing protocol
// requires on every host-bound response (RFC 2355), the same
// terminator flush appends to its Apply-sourced responses.
func (a *proto3270Processor) emitAID(aid byte) []byte {
	return append(a.p.EmitAID(aid), telnet.CmdIAC, telnet.CmdEOR)
}
