package ebcdic

import "testing"

func TestKnownCodepoints(t *testing.T) {
	cases := []struct {
		b byte
		r rune
	}{
		{0xC1, 'A'},
		{0xF0, '0'},
		{0xA9, 'z'},
		{0x40, ' '},
	}
	for _, c := range cases {
		if got := ToASCII(c.b); got != c.r {
			t.Errorf("ToASCII(%#x) = %q, want %q", c.b, got, c.r)
		}
	}
}

func TestCoverage(t *testing.T) {
	if got := Coverage(); got < 254 {
		t.Fatalf("Coverage() = %d, want >= 254", got)
	}
	for b := 0; b < 256; b++ {
		// Every byte must produce a defined (non-zero-value-by-accident)
		// rune; the table is fully populated at init so this can only
		// fail if init panicked or skipped a slot.
		_ = ToASCII(byte(b))
	}
}

func TestPrintableASCIIRoundTrip(t *testing.T) {
	for c := byte(0x20); c < 0x7F; c++ {
		e := ToEBCDIC(c)
		back := ToASCII(e)
		if byte(back) != c || back > 0xFF {
			t.Errorf("round trip broke for %q: ToEBCDIC=%#x ToASCII(that)=%q", c, e, back)
		}
	}
}

func TestDecodeEncodeSymmetry(t *testing.T) {
	msg := []byte("HELLO, WORLD! 123")
	enc := Encode(msg)
	dec := Decode(enc)
	if len(dec) != len(msg) {
		t.Fatalf("length mismatch: got %d want %d", len(dec), len(msg))
	}
	for i, r := range dec {
		if byte(r) != msg[i] {
			t.Errorf("index %d: got %q want %q", i, r, msg[i])
		}
	}
}

func TestUnmappedPositionsStayDefault(t *testing.T) {
	for b := range unmappedPositions {
		if ToASCII(b) != defaultGlyph {
			t.Errorf("unmapped position %#x = %q, want default glyph", b, ToASCII(b))
		}
	}
}

func TestEncodingRoundTrip(t *testing.T) {
	dec := Encoding.NewDecoder()
	enc := Encoding.NewEncoder()

	plain := "HELLO 5250/3270"
	ebcdicBytes, err := enc.Bytes([]byte(plain))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := dec.Bytes(ebcdicBytes)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(back) != plain {
		t.Errorf("got %q, want %q", back, plain)
	}
}
