package tagcsv

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Encoding names a text encoding the parser knows how to decode.
// The names follow the spelling used by the tagging tool's users.
type Encoding string

const (
	UTF8SIG     Encoding = "utf-8-sig"
	UTF16LE     Encoding = "utf-16-le"
	UTF16BE     Encoding = "utf-16-be"
	UTF32LE     Encoding = "utf-32-le"
	UTF32BE     Encoding = "utf-32-be"
	UTF8        Encoding = "utf-8"
	Windows1252 Encoding = "windows-1252"
	ISO88591    Encoding = "iso-8859-1"
)

// Encodings lists every supported encoding, most specific first.
var Encodings = []Encoding{UTF8SIG, UTF16LE, UTF16BE, UTF32LE, UTF32BE, UTF8, Windows1252, ISO88591}

func (e Encoding) String() string { return string(e) }

// ParseEncoding resolves a user supplied name, accepting a few common aliases.
func ParseEncoding(name string) (Encoding, error) {
	switch name {
	case "utf-8-sig", "utf8-sig", "utf-8-bom":
		return UTF8SIG, nil
	case "utf-16-le", "utf-16le", "utf16le":
		return UTF16LE, nil
	case "utf-16-be", "utf-16be", "utf16be":
		return UTF16BE, nil
	case "utf-32-le", "utf-32le":
		return UTF32LE, nil
	case "utf-32-be", "utf-32be":
		return UTF32BE, nil
	case "utf-8", "utf8":
		return UTF8, nil
	case "windows-1252", "cp1252":
		return Windows1252, nil
	case "iso-8859-1", "latin1", "latin-1":
		return ISO88591, nil
	}
	return "", fmt.Errorf("unknown encoding %q", name)
}

// Text returns the x/text implementation for e.
func (e Encoding) Text() encoding.Encoding {
	switch e {
	case UTF8SIG:
		return unicode.UTF8BOM
	case UTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case UTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	case UTF32LE:
		return utf32.UTF32(utf32.LittleEndian, utf32.IgnoreBOM)
	case UTF32BE:
		return utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM)
	case Windows1252:
		return charmap.Windows1252
	case ISO88591:
		return charmap.ISO8859_1
	default:
		return unicode.UTF8
	}
}

// Decode converts raw to UTF-8 and fails with ErrDecode on any byte sequence
// that is not valid in e.
func (e Encoding) Decode(raw []byte) (string, error) {
	if e == UTF8 || e == UTF8SIG {
		if !utf8.Valid(raw) {
			return "", fmt.Errorf("%w: invalid %s sequence at byte %d", ErrDecode, e, firstInvalidUTF8(raw))
		}
		if e == UTF8SIG {
			raw = bytes.TrimPrefix(raw, utf8Marker)
		}
		return string(raw), nil
	}

	enc := e.Text()
	out, _, err := transform.Bytes(enc.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrDecode, e, err)
	}

	// x/text substitutes U+FFFD for bad input; a replacement that does not
	// survive re-encoding was not in the source.
	if bytes.ContainsRune(out, utf8.RuneError) {
		back, _, err := transform.Bytes(enc.NewEncoder(), out)
		if err != nil || !bytes.Equal(back, raw) {
			return "", fmt.Errorf("%w: invalid %s sequence", ErrDecode, e)
		}
	}
	return string(out), nil
}

// DecodeLenient converts raw to UTF-8, replacing invalid sequences. It never fails.
func (e Encoding) DecodeLenient(raw []byte) string {
	if e == UTF8 || e == UTF8SIG {
		if e == UTF8SIG {
			raw = bytes.TrimPrefix(raw, utf8Marker)
		}
		return string(sanitizeUTF8(raw))
	}
	out, _, err := transform.Bytes(e.Text().NewDecoder(), raw)
	if err != nil {
		return string(sanitizeUTF8(raw))
	}
	return string(out)
}

func firstInvalidUTF8(data []byte) int {
	for i := 0; i < len(data); {
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			return i
		}
		i += size
	}
	return -1
}

// sanitizeUTF8 replaces every invalid byte with U+FFFD.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune(utf8.RuneError)
		} else {
			buf.WriteRune(r)
		}
		data = data[size:]
	}

	return buf.Bytes()
}
