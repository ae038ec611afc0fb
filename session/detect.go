package session

import "github.com/drake/tn5250/config"

const detectSampleSize = 256

// threeTwoSeventyOnlyCommands are 3270 command bytes with no 5250
// counterpart: seeing one of these in the sample is the only
// unambiguous way to tell the two protocols apart once negotiation
// alone has signaled "5250-family".
var threeTwoSeventyOnlyCommands = map[byte]bool{
	0x7E: true, // Erase/Write Alternate
	0xF6: true, // Read-Modified
	0x6E: true, // Read-Modified-All
}

// detectProtocol auto-detects the active protocol from the first
// ≤256 bytes received after telnet negotiation completes: an ESC `0x1B [` prefix selects NVT; otherwise, presence of
// ESC (0x04) anywhere, or negotiation having settled on the
// 5250/3270-signature options (EOR at 25, NewEnviron at 39), selects
// the 5250/3270 family, disambiguated by command vocabulary; absent
// any signal, TN5250 is the default.
func detectProtocol(sample []byte, negotiatedEOR, negotiatedNewEnviron bool) config.ProtocolMode {
	if len(sample) > detectSampleSize {
		sample = sample[:detectSampleSize]
	}
	if len(sample) >= 2 && sample[0] == 0x1B && sample[1] == '[' {
		return config.ProtocolNVT
	}

	sawESC := false
	for _, b := range sample {
		if b == 0x04 {
			sawESC = true
			break
		}
	}
	if !sawESC && !(negotiatedEOR && negotiatedNewEnviron) {
		return config.ProtocolTN5250
	}
	for _, b := range sample {
		if threeTwoSeventyOnlyCommands[b] {
			return config.ProtocolTN3270
		}
	}
	return config.ProtocolTN5250
}
