package tabular

import (
	"bytes"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF32LE = []byte{0xFF, 0xFE, 0x00, 0x00}
	bomUTF32BE = []byte{0x00, 0x00, 0xFE, 0xFF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeText converts raw uploaded bytes to a string. Explicit BOMs win;
// otherwise BOM-less UTF-16 is detected by where the null bytes sit, then
// UTF-8 is tried, then Windows-1252, and Latin-1 is the never-failing
// fallback since every byte sequence is valid Latin-1.
func DecodeText(raw []byte) (string, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF8):
		return string(raw[len(bomUTF8):]), nil
	case bytes.HasPrefix(raw, bomUTF32LE):
		return decodeWith(utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM), raw[4:])
	case bytes.HasPrefix(raw, bomUTF32BE):
		return decodeWith(utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM), raw[4:])
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), raw[2:])
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), raw[2:])
	}

	if enc := sniffUTF16(raw); enc != nil {
		if s, err := decodeWith(enc, raw); err == nil {
			return s, nil
		}
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if s, err := decodeWith(charmap.Windows1252, raw); err == nil {
		return s, nil
	}
	s, _ := decodeWith(charmap.ISO8859_1, raw)
	return s, nil
}

// sniffUTF16 detects BOM-less UTF-16 from null-byte placement. Latin-heavy
// UTF-16BE text has nulls on even offsets, UTF-16LE on odd offsets. A clear
// skew (one side more than double the other) decides; anything else is
// treated as a single-byte encoding.
func sniffUTF16(raw []byte) encoding.Encoding {
	if len(raw) < 4 {
		return nil
	}
	sample := raw
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	var evenZeros, oddZeros int
	for i, b := range sample {
		if b != 0 {
			continue
		}
		if i%2 == 0 {
			evenZeros++
		} else {
			oddZeros++
		}
	}
	if evenZeros+oddZeros == 0 {
		return nil
	}
	if evenZeros > oddZeros*2 {
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	}
	if oddZeros > evenZeros*2 {
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	}
	return nil
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
