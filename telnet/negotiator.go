package telnet

import "bytes"

// EnvVarOrder lists the session environment variables in their fixed,
// declared order. NewEnviron replies transmit variables in
// this order regardless of map iteration.
var EnvVarOrder = []string{
	"USER", "DEVNAME", "KBDTYPE", "CODEPAGE", "CHARSET",
	"IBMRSEED", "IBMSUBSPW", "LFA", "TERM", "LANG", "DISPLAY",
}

// NEW-ENVIRON (RFC 1572) subnegotiation command and variable-type bytes.
// IS/VAR and SEND/VALUE and INFO/ESC intentionally share numeric values;
// that reuse is part of the wire format, not a typo.
const (
	envIS      byte = 0
	envSEND    byte = 1
	envVAR     byte = 0
	envValue   byte = 1
	envUSERVAR byte = 3
)

// terminalTypes is the cycling list offered in response to repeated
// TERMINAL-TYPE SEND requests; the client advances one
// position per request and wraps.
var terminalTypes = []string{
	"IBM-3179-2", "IBM-5555-C01", "IBM-3477-FC", "IBM-3180-2",
	"IBM-3196-A1", "IBM-5292-2", "IBM-5250-11",
}

// Negotiator owns per-session telnet option negotiation: the
// compatibility table, the environment-variable table, and terminal-type
// cycling state. It wraps a Parser and answers the TerminalType/
// NewEnviron subnegotiations the base Parser has no opinion on.
type Negotiator struct {
	Parser *Parser

	envValues map[string]string
	termIndex int
}

// NewNegotiator builds a Negotiator with Binary/EOR/SGA supported in both
// directions and TerminalType/NewEnviron supported locally.
func NewNegotiator() *Negotiator {
	table := NewCompatibilityTable()
	table.Support(OptBinary)
	table.Support(OptEOR)
	table.Support(OptSGA)
	table.SupportLocal(OptTTYPE)
	table.SupportLocal(OptNewEnviron)
	table.SupportRemote(OptNewEnviron)

	return &Negotiator{
		Parser:    NewParser(table),
		envValues: defaultEnvValues(),
	}
}

func defaultEnvValues() map[string]string {
	return map[string]string{
		"DEVNAME":  "",
		"KBDTYPE":  "USB",
		"CODEPAGE": "037",
		"CHARSET":  "37",
		"IBMRSEED": "",
		"LFA":      "",
		"TERM":     "IBM-5250-11",
		"LANG":     "en_US",
		"DISPLAY":  "",
	}
}

// SetCredentials stores USER/IBMSUBSPW for the plaintext auto-signon
// exchange (RFC 4777 §5). Neither value is ever logged.
func (n *Negotiator) SetCredentials(user, pass string) {
	n.envValues["USER"] = user
	n.envValues["IBMSUBSPW"] = pass
}

// InitialBundle returns the opening exchange: WILL/DO for Binary, EOR,
// SGA, plus WILL TerminalType and WILL NewEnviron.
func (n *Negotiator) InitialBundle() []Event {
	var out []Event
	for _, opt := range []byte{OptBinary, OptEOR, OptSGA} {
		if ev := n.Parser.Will(opt); ev != nil {
			out = append(out, *ev)
		}
		if ev := n.Parser.Do(opt); ev != nil {
			out = append(out, *ev)
		}
	}
	if ev := n.Parser.Will(OptTTYPE); ev != nil {
		out = append(out, *ev)
	}
	if ev := n.Parser.Will(OptNewEnviron); ev != nil {
		out = append(out, *ev)
	}
	return out
}

// NegotiationComplete reports whether Binary, EOR and SGA are all Active
// in both directions.
func (n *Negotiator) NegotiationComplete() bool {
	for _, opt := range [3]byte{OptBinary, OptEOR, OptSGA} {
		e := n.Parser.Options.Get(opt)
		if !e.LocalState || !e.RemoteState {
			return false
		}
	}
	return true
}

// Receive feeds bytes through the parser and additionally answers any
// TerminalType/NewEnviron subnegotiation the base Parser surfaced but did
// not reply to. The combined event list (parser events plus any replies
// this call produced) is returned for the session to ship/act on.
func (n *Negotiator) Receive(data []byte) []Event {
	events := n.Parser.Receive(data)
	var extra []Event
	for _, ev := range events {
		if ev.Kind != EventSubnegotiation {
			continue
		}
		switch ev.Option {
		case OptTTYPE:
			if reply := n.handleTerminalType(ev.Data); reply != nil {
				extra = append(extra, *reply)
			}
		case OptNewEnviron:
			if reply := n.handleNewEnviron(ev.Data); reply != nil {
				extra = append(extra, *reply)
			}
		}
	}
	return append(events, extra...)
}

func (n *Negotiator) handleTerminalType(payload []byte) *Event {
	if len(payload) == 0 || payload[0] != CmdSEND {
		return nil
	}
	name := terminalTypes[n.termIndex%len(terminalTypes)]
	n.termIndex++
	data := append([]byte{CmdIS}, []byte(name)...)
	return n.Parser.Subnegotiation(OptTTYPE, data)
}

func (n *Negotiator) handleNewEnviron(payload []byte) *Event {
	if len(payload) == 0 {
		return nil
	}
	switch payload[0] {
	case envSEND:
		return n.replyNewEnvironSend(payload[1:])
	case envIS:
		return n.replyNewEnvironIS(payload[1:])
	}
	return nil
}

// replyNewEnvironSend answers a SEND (RFC 1572 §4): an empty requested
// list means "send everything" in declared order; a populated list means
// "send only these", with empty VALUE for names we don't recognize.
func (n *Negotiator) replyNewEnvironSend(requested []byte) *Event {
	names := parseRequestedNames(requested)
	if len(names) == 0 {
		names = EnvVarOrder
	}
	var buf bytes.Buffer
	buf.WriteByte(envIS)
	for _, k := range names {
		writeVar(&buf, k, n.envValues[k])
	}
	return n.Parser.Subnegotiation(OptNewEnviron, buf.Bytes())
}

// replyNewEnvironIS handles the server-driven plaintext auto-signon flow
// (RFC 4777 §5): an IS containing IBMRSEED as a USERVAR triggers a reply
// with USER, an empty IBMRSEED (plaintext, no seed), and IBMSUBSPW.
func (n *Negotiator) replyNewEnvironIS(payload []byte) *Event {
	vars := parseVarList(payload)
	if _, ok := vars["IBMRSEED"]; !ok {
		return nil
	}
	var buf bytes.Buffer
	buf.WriteByte(envIS)
	writeVar(&buf, "USER", n.envValues["USER"])
	writeUserVar(&buf, "IBMRSEED", "")
	writeUserVar(&buf, "IBMSUBSPW", n.envValues["IBMSUBSPW"])
	return n.Parser.Subnegotiation(OptNewEnviron, buf.Bytes())
}

func writeVar(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(envVAR)
	buf.WriteString(name)
	buf.WriteByte(envValue)
	buf.WriteString(value)
}

func writeUserVar(buf *bytes.Buffer, name, value string) {
	buf.WriteByte(envUSERVAR)
	buf.WriteString(name)
	buf.WriteByte(envValue)
	buf.WriteString(value)
}

// parseRequestedNames walks a SEND payload's VAR/USERVAR-tagged name list
// (no VALUE bytes present in a request).
func parseRequestedNames(payload []byte) []string {
	var names []string
	i := 0
	for i < len(payload) {
		if payload[i] != envVAR && payload[i] != envUSERVAR {
			i++
			continue
		}
		i++
		start := i
		for i < len(payload) && payload[i] != envVAR && payload[i] != envUSERVAR {
			i++
		}
		names = append(names, string(payload[start:i]))
	}
	return names
}

// parseVarList walks an IS payload's VAR/USERVAR name=value pairs.
func parseVarList(payload []byte) map[string]string {
	out := map[string]string{}
	i := 0
	for i < len(payload) {
		kind := payload[i]
		if kind != envVAR && kind != envUSERVAR {
			i++
			continue
		}
		i++
		nameStart := i
		for i < len(payload) && payload[i] != envValue {
			i++
		}
		name := string(payload[nameStart:i])
		value := ""
		if i < len(payload) && payload[i] == envValue {
			i++
			valStart := i
			for i < len(payload) && payload[i] != envVAR && payload[i] != envUSERVAR {
				i++
			}
			value = string(payload[valStart:i])
		}
		out[name] = value
	}
	return out
}
