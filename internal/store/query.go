package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// DefaultSearchColumns are matched by Filter.Query when Filter.Columns is empty.
var DefaultSearchColumns = []string{"title", "artist", "album", "filename"}

// Filter selects tracks for List.
type Filter struct {
	// Query matches, case-insensitively, a substring of any of Columns.
	Query   string
	Columns []string

	// Criteria requires a substring match on every listed column.
	Criteria map[string]string

	// Limit of zero means no limit.
	Limit  int
	Offset int
}

// List returns the tracks matching f, ordered by id.
func (s *Store) List(ctx context.Context, f Filter) ([]Track, error) {
	query, args, err := listSQL(f)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tracks: %w", err)
	}

	tracks, err := pgx.CollectRows(rows, scanTrack)
	if err != nil {
		return nil, fmt.Errorf("scan tracks: %w", err)
	}
	return tracks, nil
}

func listSQL(f Filter) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q := strings.TrimSpace(f.Query); q != "" {
		cols := f.Columns
		if len(cols) == 0 {
			cols = DefaultSearchColumns
		}
		p := arg("%" + escapeLike(q) + "%")
		var alts []string
		for _, c := range cols {
			if !IsColumn(c) {
				return "", nil, fmt.Errorf("unknown search column %q", c)
			}
			alts = append(alts, c+" ILIKE "+p)
		}
		where = append(where, "("+strings.Join(alts, " OR ")+")")
	}

	for _, c := range slices.Sorted(maps.Keys(f.Criteria)) {
		v := strings.TrimSpace(f.Criteria[c])
		if v == "" {
			continue
		}
		if !IsColumn(c) {
			return "", nil, fmt.Errorf("unknown search column %q", c)
		}
		where = append(where, c+" ILIKE "+arg("%"+escapeLike(v)+"%"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT id, import_id, import_date, %s FROM tracks", strings.Join(ColumnNames(), ", "))
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY id")
	if f.Limit > 0 {
		b.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		b.WriteString(" OFFSET " + arg(f.Offset))
	}
	return b.String(), args, nil
}

func scanTrack(row pgx.CollectableRow) (Track, error) {
	var (
		t        Track
		importID pgtype.UUID
		imported time.Time
	)
	values := make([]string, len(Columns))
	dest := make([]any, 0, len(Columns)+3)
	dest = append(dest, &t.ID, &importID, &imported)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := row.Scan(dest...); err != nil {
		return Track{}, err
	}

	t.ImportID = importID.Bytes
	t.ImportedAt = imported
	t.Tags = make(map[string]string, len(Columns))
	for i, c := range Columns {
		t.Tags[c.Header] = values[i]
	}
	return t, nil
}

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
