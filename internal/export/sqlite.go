package export

import (
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/tagimport/internal/store"
)

// integerColumns hold numbers in the snapshot schema; SQLite stores
// non-numeric values in them as text.
var integerColumns = map[string]bool{
	"year": true, "audio_length": true, "bpm": true,
	"cover_height": true, "cover_width": true, "play_counter": true,
}

func snapshotSchema() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS mp3_files (\n")
	b.WriteString("\tid INTEGER PRIMARY KEY AUTOINCREMENT,\n")
	for _, c := range store.Columns {
		typ := "TEXT"
		if integerColumns[c.Name] {
			typ = "INTEGER"
		}
		if c.Name == "relative_path" || c.Name == "filename" {
			typ += " NOT NULL DEFAULT ''"
		}
		fmt.Fprintf(&b, "\t%s %s,\n", c.Name, typ)
	}
	b.WriteString("\timport_date TEXT,\n")
	b.WriteString("\tUNIQUE(relative_path, filename)\n)")
	return b.String()
}

// WriteSQLiteFile writes a standalone database at path holding one
// mp3_files row per record. Columns outside the stored layout are dropped
// and records repeating a relative path and file name are ignored.
func WriteSQLiteFile(path string, header []string, rows [][]string) (int64, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	if _, err := db.Exec(snapshotSchema()); err != nil {
		return 0, fmt.Errorf("create schema: %w", err)
	}

	cols, pos := store.MapHeader(header)
	if len(cols) == 0 {
		return 0, nil
	}

	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(fmt.Sprintf(
		"INSERT OR IGNORE INTO mp3_files (%s, import_date) VALUES (%s?)",
		strings.Join(cols, ", "), strings.Repeat("?, ", len(cols)),
	))
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().Format("2006-01-02 15:04:05")
	var inserted int64
	for n, row := range rows {
		values := make([]string, len(cols))
		for j, p := range pos {
			values[j] = row[p]
		}
		store.NormalizeKey(cols, values)

		args := make([]any, 0, len(cols)+1)
		for _, v := range values {
			args = append(args, v)
		}
		args = append(args, now)

		res, err := stmt.Exec(args...)
		if err != nil {
			return inserted, fmt.Errorf("insert record %d: %w", n+1, err)
		}
		if affected, _ := res.RowsAffected(); affected > 0 {
			inserted += affected
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func writeSQLite(w io.Writer, header []string, rows [][]string, opts Options) error {
	dir, err := os.MkdirTemp("", "tagimport-export-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "tracks.db")
	inserted, err := WriteSQLiteFile(path, header, rows)
	if err != nil {
		return err
	}
	if dropped := int64(len(rows)) - inserted; dropped > 0 {
		opts.Logger.Info("repeated tracks left out of database", "dropped", dropped)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
