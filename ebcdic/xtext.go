package ebcdic

import (
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// Encoding exposes CP037 as a golang.org/x/text/encoding.Encoding so it can
// be dropped in anywhere an x/text codec is expected (io.Reader/Writer
// wrapping via transform.NewReader/NewWriter, encoding.Decoder/Encoder
// chains, etc).
var Encoding encoding.Encoding = cp037{}

type cp037 struct{}

func (cp037) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: decoder{}}
}

func (cp037) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: encoder{}}
}

func (cp037) String() string { return "IBM037" }

// decoder turns one EBCDIC byte into its UTF-8 display rune.
type decoder struct{ transform.NopResetter }

func (decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		r := toASCII[src[nSrc]]
		size := utf8.RuneLen(r)
		if size < 0 {
			size = utf8.RuneLen(utf8.RuneError)
			r = utf8.RuneError
		}
		if nDst+size > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		nDst += utf8.EncodeRune(dst[nDst:], r)
		nSrc++
	}
	return nDst, nSrc, nil
}

// encoder turns UTF-8 display text into EBCDIC bytes. Only runes in the
// codec's ASCII image round-trip; anything else maps to EBCDIC space.
type encoder struct{ transform.NopResetter }

func (encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		b := src[nSrc]
		if b < utf8.RuneSelf {
			dst[nDst] = toEBCD[b]
			nDst++
			nSrc++
			continue
		}
		r, size := utf8.DecodeRune(src[nSrc:])
		if r == utf8.RuneError && size <= 1 {
			if !atEOF && !utf8.FullRune(src[nSrc:]) {
				return nDst, nSrc, transform.ErrShortSrc
			}
			size = 1
		}
		dst[nDst] = ebcdicSpace
		nDst++
		nSrc += size
	}
	return nDst, nSrc, nil
}
