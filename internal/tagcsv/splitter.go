package tagcsv

import "strings"

// SplitQuoted splits line on delim outside double quotes. A field that both
// starts and ends with a quote loses them; doubled quotes inside a field are
// left as is.
func SplitQuoted(line string, delim rune) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	flush := func() {
		f := current.String()
		if len(f) > 1 && strings.HasPrefix(f, `"`) && strings.HasSuffix(f, `"`) {
			f = f[1 : len(f)-1]
		}
		fields = append(fields, f)
		current.Reset()
	}

	for _, c := range line {
		switch {
		case c == '"':
			inQuotes = !inQuotes
			current.WriteRune(c)
		case c == delim && !inQuotes:
			flush()
		default:
			current.WriteRune(c)
		}
	}
	flush()

	return fields
}
