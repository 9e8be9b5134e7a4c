package export

import (
	"encoding/xml"
	"io"
	"strings"
	"unicode"
)

// writeXML writes <mp3collection><track><Field>value</Field>...</track></mp3collection>.
func writeXML(w io.Writer, header []string, rows [][]string) error {
	names := make([]xml.Name, len(header))
	for i, h := range header {
		names[i] = xml.Name{Local: elementName(h)}
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")

	root := xml.StartElement{Name: xml.Name{Local: "mp3collection"}}
	track := xml.StartElement{Name: xml.Name{Local: "track"}}

	if err := enc.EncodeToken(root); err != nil {
		return err
	}
	for _, row := range rows {
		if err := enc.EncodeToken(track); err != nil {
			return err
		}
		for i, v := range row {
			if err := enc.EncodeElement(v, xml.StartElement{Name: names[i]}); err != nil {
				return err
			}
		}
		if err := enc.EncodeToken(track.End()); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(root.End()); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// elementName turns a header into an XML element name: spaces become
// underscores, other characters not allowed in a name are dropped, and a
// name that cannot start an element gets a leading underscore.
func elementName(h string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(h) {
		switch {
		case r == ' ':
			b.WriteRune('_')
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if name == "" {
		return "_"
	}
	first := []rune(name)[0]
	if (!unicode.IsLetter(first) && first != '_') || strings.HasPrefix(strings.ToLower(name), "xml") {
		name = "_" + name
	}
	return name
}
