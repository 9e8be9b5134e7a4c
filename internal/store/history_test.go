package store

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// execDB answers every Exec with a fixed command tag.
type execDB struct {
	DB
	tag   string
	err   error
	stmts []string
}

func (db *execDB) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	db.stmts = append(db.stmts, sql)
	return pgconn.NewCommandTag(db.tag), db.err
}

func TestRollback(t *testing.T) {
	tests := []struct {
		name     string
		tag      string
		execErr  error
		want     int64
		notFound bool
		wantErr  bool
	}{
		{"deletes tracks", "DELETE 3", nil, 3, false, false},
		{"unknown import", "DELETE 0", nil, 0, true, true},
		{"database error", "", errors.New("connection reset by peer"), 0, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &execDB{tag: tt.tag, err: tt.execErr}
			n, err := New(db, nil).Rollback(context.Background(), uuid.New())

			if (err != nil) != tt.wantErr {
				t.Fatalf("Rollback() error = %v, wantErr %v", err, tt.wantErr)
			}
			if errors.Is(err, ErrNotFound) != tt.notFound {
				t.Errorf("errors.Is(err, ErrNotFound) = %v, want %v", !tt.notFound, tt.notFound)
			}
			if n != tt.want {
				t.Errorf("Rollback() = %d, want %d", n, tt.want)
			}
			if len(db.stmts) != 1 || db.stmts[0] != "DELETE FROM tracks WHERE import_id = $1" {
				t.Errorf("statements = %q", db.stmts)
			}
		})
	}
}
