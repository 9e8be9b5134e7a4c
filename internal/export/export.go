// Package export writes a header and rows of tag values in the formats the
// tagging tool's users exchange: delimited text, JSON, XML, spreadsheets and
// standalone SQLite databases.
package export

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// Format is an output format.
type Format string

const (
	CSV    Format = "csv"
	JSON   Format = "json"
	XML    Format = "xml"
	XLSX   Format = "xlsx"
	SQLite Format = "sqlite"
)

// Formats lists every supported format.
var Formats = []Format{CSV, JSON, XML, XLSX, SQLite}

// ParseFormat resolves a format name such as "csv" or "xlsx".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "csv", "txt":
		return CSV, nil
	case "json":
		return JSON, nil
	case "xml":
		return XML, nil
	case "xlsx", "excel":
		return XLSX, nil
	case "sqlite", "sqlite3", "db":
		return SQLite, nil
	}
	return "", fmt.Errorf("unknown export format %q", name)
}

// FormatFromName picks the format from a file name's extension.
func FormatFromName(name string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", fmt.Errorf("no extension in %q", name)
	}
	return ParseFormat(ext)
}

// Extension returns the file extension written for f, with the dot.
func (f Format) Extension() string {
	if f == SQLite {
		return ".db"
	}
	return "." + string(f)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	switch f {
	case CSV:
		return "text/csv"
	case JSON:
		return "application/json"
	case XML:
		return "application/xml"
	case XLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case SQLite:
		return "application/vnd.sqlite3"
	}
	return "application/octet-stream"
}

// Options tunes the writers. The zero value is usable.
type Options struct {
	// Delimiter separates CSV fields (default ';').
	Delimiter rune
	// Encoding of CSV output: utf-8-sig (default), utf-16-le or utf-8.
	Encoding tagcsv.Encoding
	// JSONObject writes an object keyed item_<i> instead of an array.
	JSONObject bool
	// SheetName names the XLSX sheet (default "Tracks").
	SheetName string

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Delimiter == 0 {
		o.Delimiter = ';'
	}
	if o.Encoding == "" {
		o.Encoding = tagcsv.UTF8SIG
	}
	if o.SheetName == "" {
		o.SheetName = "Tracks"
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}

// Write writes header and rows to w in format f. Rows shorter than header
// are padded with empty values; longer rows are truncated.
func Write(f Format, w io.Writer, header []string, rows [][]string, opts Options) error {
	opts = opts.withDefaults()
	rows = fitRows(len(header), rows)

	var err error
	switch f {
	case CSV:
		err = writeDelimited(w, header, rows, opts)
	case JSON:
		err = writeJSON(w, header, rows, opts)
	case XML:
		err = writeXML(w, header, rows)
	case XLSX:
		err = writeXLSX(w, header, rows, opts)
	case SQLite:
		err = writeSQLite(w, header, rows, opts)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		return fmt.Errorf("export %s: %w", f, err)
	}

	opts.Logger.Info("export written", "format", f, "columns", len(header), "records", len(rows))
	return nil
}

// WriteTable writes a parsed table.
func WriteTable(f Format, w io.Writer, t *tagcsv.Table, opts Options) error {
	return Write(f, w, t.Header, t.Rows(), opts)
}

func fitRows(width int, rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		if len(row) == width {
			out[i] = row
			continue
		}
		fitted := make([]string, width)
		copy(fitted, row)
		out[i] = fitted
	}
	return out
}
