package proto5250

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// queryReplyCache memoizes the Query-Reply structured field template
// for a terminal type so repeated Query commands on the same
// connection don't rebuild it. Capacity is small: a
// session only ever queries the one terminal type it negotiated.
type queryReplyCache struct {
	terminalType string
	cache        *lru.Cache[string, []byte]
}

func newQueryReplyCache(terminalType string) *queryReplyCache {
	c, _ := lru.New[string, []byte](8)
	return &queryReplyCache{terminalType: terminalType, cache: c}
}

// reply returns a packet-encoded Query-Reply for the cache's terminal
// type, building and caching the template on first use.
func (q *queryReplyCache) reply(seq byte) []byte {
	body, ok := q.cache.Get(q.terminalType)
	if !ok {
		body = buildQueryReplyTemplate(q.terminalType)
		q.cache.Add(q.terminalType, body)
	}
	pkt := &Packet{Command: CmdQuery, Sequence: seq, Data: body}
	return pkt.Encode()
}

// buildQueryReplyTemplate assembles the structured-field body reported
// back to the host: SFID QueryReply followed by a terminal-type name
// field and the fixed device characteristics this emulator supports.
// Real controllers report rows/cols/keyboard/extended-attribute
// capability here; this keeps to what this emulator's display model
// actually implements.
func buildQueryReplyTemplate(terminalType string) []byte {
	out := []byte{SFIDQueryReply}
	out = append(out, byte(len(terminalType)))
	out = append(out, []byte(terminalType)...)
	out = append(out, 0x01) // capability flags: basic WTD/RIF/RMF supported, no extended attrs
	return out
}
