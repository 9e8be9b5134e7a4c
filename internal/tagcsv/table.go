package tagcsv

import "strings"

// Record maps every header name of its Table to a text value.
type Record map[string]string

// Values returns the record's fields in header order.
func (r Record) Values(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = r[h]
	}
	return out
}

// Table is the result of a successful parse. It always holds at least one
// Record and every Record has exactly the keys in Header.
type Table struct {
	Header    []string
	Records   []Record
	Encoding  Encoding
	Delimiter Delimiter

	// Strategy names the cascade stage that produced the table.
	Strategy string

	// Degraded is set when the header was not read from the file but
	// assumed from the fixed schema; columns may be misaligned.
	Degraded bool
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.Records) }

// Rows returns the records as string slices in header order.
func (t *Table) Rows() [][]string {
	rows := make([][]string, len(t.Records))
	for i, rec := range t.Records {
		rows[i] = rec.Values(t.Header)
	}
	return rows
}

// Clone returns a deep copy that callers may edit freely.
func (t *Table) Clone() *Table {
	c := *t
	c.Header = append([]string(nil), t.Header...)
	c.Records = make([]Record, len(t.Records))
	for i, rec := range t.Records {
		cp := make(Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		c.Records[i] = cp
	}
	return &c
}

// tableBuilder accumulates records against a fixed header.
type tableBuilder struct {
	header  []string
	records []Record
}

// add fits fields to the header width and keeps the row unless every field
// is blank. It reports whether the row was kept.
func (b *tableBuilder) add(fields []string) bool {
	if isBlankRow(fields) {
		return false
	}
	rec := make(Record, len(b.header))
	for i, h := range b.header {
		if i < len(fields) {
			rec[h] = fields[i]
		} else {
			rec[h] = ""
		}
	}
	b.records = append(b.records, rec)
	return true
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
