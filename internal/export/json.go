package export

import (
	"bytes"
	"encoding/json"
	"io"
	"strconv"
)

// record marshals as an object whose keys keep header order.
type record struct {
	header []string
	values []string
}

func (r record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, h := range r.header {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(&buf, h); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSONString(&buf, r.values[i]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// items marshals as an object keyed item_0, item_1, ...
type items []record

func (it items) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rec := range it {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote("item_" + strconv.Itoa(i)))
		buf.WriteByte(':')
		b, err := rec.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends a newline
	return nil
}

func writeJSON(w io.Writer, header []string, rows [][]string, opts Options) error {
	recs := make([]record, len(rows))
	for i, row := range rows {
		recs[i] = record{header: header, values: row}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if opts.JSONObject {
		return enc.Encode(items(recs))
	}
	return enc.Encode(recs)
}
