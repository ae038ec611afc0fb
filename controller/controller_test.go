package controller

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/drake/tn5250/proto5250"
	"github.com/drake/tn5250/telnet"
)

func acceptOnce(t *testing.T, handler func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() {
		conn, err := ln.Accept()
		ln.Close()
		if err != nil {
			return
		}
		handler(conn)
	}()
	return ln.Addr().String()
}

func hostPort(addr string) (string, int) {
	host, portStr, _ := net.SplitHostPort(addr)
	port := 0
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	return host, port
}

// writeToDisplayUnlockedField builds a single 5250 packet that writes
// one unprotected field spanning the whole buffer and unlocks the
// keyboard, so a test host can put the session in a state TypeChar and
// FunctionKey can act on.
func writeToDisplayUnlockedField() []byte {
	pkt := &proto5250.Packet{
		Command:  proto5250.CmdWriteToDisplay,
		Sequence: 1,
		Data:     []byte{0x04 /* unlock keyboard */, proto5250.OrderSF, 0x00},
	}
	return pkt.Encode()
}

// aidHost acks telnet negotiation, sends one Write-to-Display packet
// defining an unprotected field, then reports the next bytes the
// client writes back (the AID response from FunctionKey) on respCh.
func aidHost(respCh chan<- []byte) func(net.Conn) {
	return func(conn net.Conn) {
		defer conn.Close()
		buf := make([]byte, 4096)
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := conn.Read(buf); err != nil {
			return
		}
		var acks []byte
		for _, opt := range []byte{telnet.OptBinary, telnet.OptEOR, telnet.OptSGA} {
			acks = append(acks, telnet.CmdIAC, telnet.CmdWILL, opt)
		}
		conn.Write(acks)
		time.Sleep(150 * time.Millisecond)
		conn.Write(writeToDisplayUnlockedField())

		conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		n, err := conn.Read(buf)
		if err != nil {
			close(respCh)
			return
		}
		out := make([]byte, n)
		copy(out, buf[:n])
		respCh <- out
	}
}

func TestConnectReachesConnectedState(t *testing.T) {
	respCh := make(chan []byte, 1)
	addr := acceptOnce(t, aidHost(respCh))
	host, port := hostPort(addr)

	c := New()
	if err := c.Connect(host, port, TLSOptions{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !c.IsConnected() {
		t.Fatal("IsConnected() = false, want true")
	}
	c.Disconnect()
}

func TestTypeCharAndFunctionKeyRoundTrip(t *testing.T) {
	respCh := make(chan []byte, 1)
	addr := acceptOnce(t, aidHost(respCh))
	host, port := hostPort(addr)

	c := New()
	if err := c.Connect(host, port, TLSOptions{}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer c.Disconnect()

	deadline := time.Now().Add(2 * time.Second)
	for len(c.Fields()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	fields := c.Fields()
	if len(fields) != 1 {
		t.Fatalf("Fields() = %d entries, want 1", len(fields))
	}

	if err := c.TypeChar('A'); err != nil {
		t.Fatalf("TypeChar: %v", err)
	}
	fields = c.Fields()
	if len(fields) != 1 || !strings.Contains(fields[0].Content, "A") {
		t.Fatalf("Fields() after TypeChar = content %.10q..., want it to contain 'A'", fields[0].Content)
	}
	if !fields[0].Modified {
		t.Fatal("field MDT not set after TypeChar")
	}

	if err := c.FunctionKey(Enter); err != nil {
		t.Fatalf("FunctionKey: %v", err)
	}

	select {
	case resp, ok := <-respCh:
		if !ok || len(resp) < 6 {
			t.Fatalf("expected a Read-MDT-Fields response packet, got %d bytes", len(resp))
		}
		if resp[0] != proto5250.CmdReadMDTFields {
			t.Fatalf("response command = %#x, want %#x", resp[0], proto5250.CmdReadMDTFields)
		}
		if aid := resp[5]; aid != proto5250.AIDEnter {
			t.Fatalf("response AID = %#x, want %#x", aid, proto5250.AIDEnter)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for AID response")
	}
}

func TestConnectBusyWhileConnectInFlight(t *testing.T) {
	addr := acceptOnce(t, func(conn net.Conn) {
		defer conn.Close()
		// Never acks, so negotiate() polls until this close unblocks its
		// read with an error; holds Connect's try-lock open meanwhile.
		time.Sleep(500 * time.Millisecond)
	})
	host, port := hostPort(addr)

	c := New()
	started := make(chan struct{})
	go func() {
		close(started)
		c.Connect(host, port, TLSOptions{})
	}()
	<-started
	time.Sleep(100 * time.Millisecond)

	if err := c.SetSessionConfig(c.pending); err != ErrBusy {
		t.Fatalf("SetSessionConfig during in-flight Connect = %v, want ErrBusy", err)
	}
}

func TestFunctionKeyRejectsUnknownKey(t *testing.T) {
	c := New()
	if err := c.FunctionKey(FunctionKey("NotAKey")); err == nil {
		t.Fatal("FunctionKey(NotAKey): expected an error")
	}
}
