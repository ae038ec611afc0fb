package session

import (
	"github.com/drake/tn5250/field"
	"github.com/drake/tn5250/screen"
)

// nvtProcessor is a minimal plain-ASCII teletype writer for sessions
// that negotiate neither 5250 nor 3270. It is deliberately not a
// VT100 emulator — escape sequences are written through as their raw
// bytes rather than interpreted.
type nvtProcessor struct {
	s      *screen.Screen
	fields *field.Table
	row    int
	col    int
}

func newNVTProcessor(s *screen.Screen) *nvtProcessor {
	return &nvtProcessor{s: s, fields: field.Empty()}
}

func (n *nvtProcessor) feed(data []byte) []byte {
	for _, b := range data {
		switch b {
		case '\r':
			n.col = 0
		case '\n':
			n.col = 0
			n.row++
		default:
			n.writeAdvance(rune(b))
		}
		if n.row >= n.s.Rows {
			n.row = n.s.Rows - 1
		}
	}
	return nil
}

func (n *nvtProcessor) writeAdvance(r rune) {
	idx := n.row*n.s.Cols + n.col
	if idx >= 0 && idx < n.s.Len() {
		n.s.WriteAt(idx, r, screen.AttrNormal)
	}
	n.col++
	if n.col >= n.s.Cols {
		n.col = 0
		n.row++
	}
}

func (n *nvtProcessor) flush() []byte { return nil }

func (n *nvtProcessor) Screen() *screen.Screen { return n.s }
func (n *nvtProcessor) Fields() *field.Table   { return n.fields }
func (n *nvtProcessor) IsKeyboardLocked() bool { return false }
func (n *nvtProcessor) SetPendingAID(byte)     {}
func (n *nvtProcessor) emitAID(byte) []byte    { return nil }
