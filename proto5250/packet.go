// Package proto5250 implements the IBM 5250 data-stream processor
// (RFC 2877): packet parsing, Write-to-Display orders, WCC handling,
// structured fields, and AID-keyed read responses.
package proto5250

import "errors"

// ErrMalformedPacket is returned when a packet header fails validation
// (length field out of range for any possible packet). The caller
// drops one byte and resyncs, continuing with the next packet in the
// stream.
var ErrMalformedPacket = errors.New("proto5250: malformed packet")

// ErrIncompletePacket is returned when the header declares a length
// longer than what's been received so far. Unlike ErrMalformedPacket,
// this isn't corruption: the caller should keep the buffer and wait
// for more bytes from the next read.
var ErrIncompletePacket = errors.New("proto5250: incomplete packet")

// Packet is one 5250 data-stream packet: a 5-byte header followed by
// data. Length in the header is the *total* packet size including the
// header.
type Packet struct {
	Command  byte
	Sequence byte
	Flags    byte
	Data     []byte
}

const headerLen = 5
const maxPacketLen = 65535

// ParsePacket reads one packet from the front of buf. It returns the
// packet, the number of bytes consumed, and an error. On any error
// consumed is 0; on ErrMalformedPacket the caller drops one byte and
// resyncs, as ErrMalformedPacket's doc describes.
func ParsePacket(buf []byte) (*Packet, int, error) {
	if len(buf) < headerLen {
		return nil, 0, ErrIncompletePacket
	}
	length := int(buf[2])<<8 | int(buf[3])
	if length < headerLen || length > maxPacketLen {
		return nil, 0, ErrMalformedPacket
	}
	if length > len(buf) {
		return nil, 0, ErrIncompletePacket
	}
	dataStart := headerLen
	dataEnd := length
	if dataStart > dataEnd {
		return nil, 0, ErrMalformedPacket
	}
	p := &Packet{
		Command:  buf[0],
		Sequence: buf[1],
		Flags:    buf[4],
		Data:     buf[dataStart:dataEnd],
	}
	return p, length, nil
}

// Encode serializes p back into wire format, computing the length byte
// pair from len(Data)+headerLen.
func (p *Packet) Encode() []byte {
	total := headerLen + len(p.Data)
	out := make([]byte, 0, total)
	out = append(out, p.Command, p.Sequence, byte(total>>8), byte(total&0xFF), p.Flags)
	out = append(out, p.Data...)
	return out
}
