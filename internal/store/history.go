package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ImportSummary describes one import that still has tracks stored.
type ImportSummary struct {
	ImportID   uuid.UUID `json:"import_id"`
	ImportedAt time.Time `json:"imported_at"`
	Tracks     int64     `json:"tracks"`
}

const importsSQL = `SELECT import_id, min(import_date), count(*)
FROM tracks
GROUP BY import_id
ORDER BY min(import_date) DESC
LIMIT $1`

// Imports returns the most recent imports first, at most limit of them.
func (s *Store) Imports(ctx context.Context, limit int) ([]ImportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, importsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	imports, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (ImportSummary, error) {
		var (
			sum ImportSummary
			id  pgtype.UUID
		)
		if err := row.Scan(&id, &sum.ImportedAt, &sum.Tracks); err != nil {
			return ImportSummary{}, err
		}
		sum.ImportID = id.Bytes
		return sum, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan imports: %w", err)
	}
	return imports, nil
}

// Rollback removes the tracks of one import, returning ErrNotFound when
// none are stored.
func (s *Store) Rollback(ctx context.Context, importID uuid.UUID) (int64, error) {
	n, err := s.DeleteImport(ctx, importID)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: import %s", ErrNotFound, importID)
	}
	s.logger.Info("import rolled back", "import_id", importID, "deleted", n)
	return n, nil
}
