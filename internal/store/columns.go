package store

import (
	"path"
	"strings"

	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// Column pairs an export header name with its database column.
type Column struct {
	Header string
	Name   string
}

// renamed lists the headers whose column is not the plain snake_case form.
var renamed = map[string]string{
	"ISRC":             "isrc",
	"AudioLength":      "audio_length",
	"FileSize":         "file_size",
	"FileCreateDate":   "file_create_date",
	"LastModified":     "last_modified",
	"RelativePath":     "relative_path",
	"ParentDirectory":  "parent_directory",
	"ModeStereo":       "mode_stereo",
	"BPM":              "bpm",
	"VBR":              "vbr",
	"TagType":          "tag_type",
	"CoverDescription": "cover_description",
	"CoverSize":        "cover_size",
	"CoverType":        "cover_type",
	"CoverMime":        "cover_mime",
	"CoverHeight":      "cover_height",
	"CoverWidth":       "cover_width",
	"UnSyncLyrics":     "unsynced_lyrics",
	"SrcFix":           "src_fix",
	"PlayCounter":      "play_counter",
}

// Columns is the stored tag layout, in export order.
var Columns = buildColumns()

var (
	byHeader = map[string]string{}
	known    = map[string]bool{}
)

func buildColumns() []Column {
	schema := tagcsv.FixedSchema()
	cols := make([]Column, len(schema))
	for i, h := range schema {
		name, ok := renamed[h]
		if !ok {
			name = fallbackName(h)
		}
		cols[i] = Column{Header: h, Name: name}
	}
	return cols
}

func init() {
	for _, c := range Columns {
		byHeader[c.Header] = c.Name
		known[c.Name] = true
	}
}

// ColumnFor returns the database column for an export header. Headers not in
// the fixed layout are lowercased with spaces turned into underscores, and
// kept only if that names a stored column.
func ColumnFor(header string) (string, bool) {
	if name, ok := byHeader[header]; ok {
		return name, true
	}
	name := fallbackName(header)
	return name, known[name]
}

// IsColumn reports whether name is a stored tag column.
func IsColumn(name string) bool { return known[name] }

// ColumnNames returns the database column names in export order.
func ColumnNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}

// Headers returns the export header names in column order.
func Headers() []string {
	headers := make([]string, len(Columns))
	for i, c := range Columns {
		headers[i] = c.Header
	}
	return headers
}

func fallbackName(header string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(header)), " ", "_")
}

// NaturalKey returns the identity of a track: its cleaned relative path and
// trimmed file name. Backslash separators are treated as slashes.
func NaturalKey(relativePath, filename string) (string, string) {
	p := strings.TrimSpace(relativePath)
	if p != "" {
		p = path.Clean(strings.ReplaceAll(p, `\`, "/"))
	}
	return p, strings.TrimSpace(filename)
}

// NormalizeKey rewrites the relative_path and filename entries of values,
// which line up with cols, to their NaturalKey form and returns the key.
func NormalizeKey(cols, values []string) (relPath, filename string) {
	ri, fi := -1, -1
	for j, c := range cols {
		switch c {
		case "relative_path":
			ri = j
		case "filename":
			fi = j
		}
	}
	if ri >= 0 {
		relPath = values[ri]
	}
	if fi >= 0 {
		filename = values[fi]
	}
	relPath, filename = NaturalKey(relPath, filename)
	if ri >= 0 {
		values[ri] = relPath
	}
	if fi >= 0 {
		values[fi] = filename
	}
	return relPath, filename
}

// MapHeader returns the stored columns present in header and, for each, the
// position of the header feeding it. The first header mapping to a column
// wins; headers with no stored column are left out.
func MapHeader(header []string) (cols []string, pos []int) {
	taken := make(map[string]bool)
	for i, h := range header {
		col, ok := ColumnFor(h)
		if !ok || taken[col] {
			continue
		}
		taken[col] = true
		cols = append(cols, col)
		pos = append(pos, i)
	}
	return cols, pos
}
