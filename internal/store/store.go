// Package store persists imported tracks in PostgreSQL.
//
// One row per track, identified by its relative path and file name. Every
// tag column is text; the exports decide how values are shown.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// ErrNotFound is returned when a track id does not exist.
var ErrNotFound = errors.New("track not found")

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// DB is a DBTX that can also open transactions, such as *pgxpool.Pool.
type DB interface {
	DBTX
	Begin(context.Context) (pgx.Tx, error)
}

// Store reads and writes the tracks table.
type Store struct {
	db     DB
	logger *slog.Logger
}

// New returns a Store using db. A nil logger discards.
func New(db DB, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{db: db, logger: logger}
}

// Track is one stored row.
type Track struct {
	ID         int64
	ImportID   uuid.UUID
	ImportedAt time.Time
	// Tags is keyed by export header name and holds every column.
	Tags map[string]string
}

// Values returns the tags in Headers order.
func (t Track) Values() []string {
	out := make([]string, len(Columns))
	for i, c := range Columns {
		out[i] = t.Tags[c.Header]
	}
	return out
}

// FailedRow describes a record that could not be stored.
type FailedRow struct {
	Record int    `json:"record"` // 1-based position in the table
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// InsertResult summarizes one Insert.
type InsertResult struct {
	ImportID   uuid.UUID   `json:"import_id"`
	Total      int         `json:"total"`
	Inserted   int         `json:"inserted"`
	Duplicates int         `json:"duplicates"`
	Skipped    int         `json:"skipped"`
	Failed     []FailedRow `json:"failed,omitempty"`
}

// EnsureSchema creates the tracks table and its indexes if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func schemaSQL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS tracks (\n")
	b.WriteString("\tid BIGSERIAL PRIMARY KEY,\n")
	b.WriteString("\timport_id UUID NOT NULL,\n")
	for _, c := range Columns {
		fmt.Fprintf(&b, "\t%s TEXT NOT NULL DEFAULT '',\n", c.Name)
	}
	b.WriteString("\timport_date TIMESTAMPTZ NOT NULL DEFAULT now(),\n")
	b.WriteString("\tUNIQUE (relative_path, filename)\n);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS tracks_import_id_idx ON tracks (import_id);\n")
	return b.String()
}

// Insert stores every record of t under importID in one transaction.
//
// Each record gets its own savepoint so a bad row does not abort the rest.
// Records whose natural key already exists, in the database or earlier in
// t, are counted as duplicates. Records with no stored column are skipped.
func (s *Store) Insert(ctx context.Context, importID uuid.UUID, t *tagcsv.Table) (InsertResult, error) {
	res := InsertResult{ImportID: importID, Total: t.Len()}

	cols, pos := MapHeader(t.Header)
	if len(cols) == 0 {
		res.Skipped = t.Len()
		s.logger.Warn("no stored columns in header", "import_id", importID, "header", t.Header)
		return res, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := insertSQL(cols)
	pgID := pgtype.UUID{Bytes: importID, Valid: true}
	seen := make(map[[2]string]bool, t.Len())

	for i, rec := range t.Records {
		if i%100 == 0 && ctx.Err() != nil {
			return res, ctx.Err()
		}

		values := make([]string, len(cols))
		for j, p := range pos {
			values[j] = rec[t.Header[p]]
		}
		relPath, filename := NormalizeKey(cols, values)
		args := make([]any, 0, len(values)+1)
		args = append(args, pgID)
		for _, v := range values {
			args = append(args, v)
		}

		key := [2]string{relPath, filename}
		keyText := relPath + "/" + filename
		if seen[key] {
			res.Duplicates++
			continue
		}

		sp := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return res, fmt.Errorf("create savepoint: %w", err)
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp)
			res.Failed = append(res.Failed, FailedRow{Record: i + 1, Key: keyText, Reason: insertReason(err)})
			continue
		}
		_, _ = tx.Exec(ctx, "RELEASE SAVEPOINT "+sp)
		// A failed row stays unseen so a later row with its key is tried.
		seen[key] = true

		if tag.RowsAffected() == 0 {
			res.Duplicates++
			s.logger.Debug("track already stored", "key", keyText)
			continue
		}
		res.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info("tracks stored",
		"import_id", importID,
		"total", res.Total,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"failed", len(res.Failed),
	)
	return res, nil
}

func insertSQL(cols []string) string {
	placeholders := make([]string, len(cols)+1)
	for i := range placeholders {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO tracks (import_id, %s) VALUES (%s) ON CONFLICT (relative_path, filename) DO NOTHING",
		strings.Join(cols, ", "), strings.Join(placeholders, ", "),
	)
}

func insertReason(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Sprintf("%s (SQLSTATE %s)", pgErr.Message, pgErr.Code)
	}
	return err.Error()
}

// Delete removes one track.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM tracks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete track %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

// DeleteImport removes every track stored by one import.
func (s *Store) DeleteImport(ctx context.Context, importID uuid.UUID) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM tracks WHERE import_id = $1",
		pgtype.UUID{Bytes: importID, Valid: true})
	if err != nil {
		return 0, fmt.Errorf("delete import %s: %w", importID, err)
	}
	return tag.RowsAffected(), nil
}

// Clear removes every track and returns how many there were.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, "DELETE FROM tracks")
	if err != nil {
		return 0, fmt.Errorf("clear tracks: %w", err)
	}
	s.logger.Info("tracks cleared", "deleted", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// Count returns the number of stored tracks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM tracks").Scan(&n); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return n, nil
}
