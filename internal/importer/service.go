// Package importer runs the parse cascade for uploaded and local files and
// stores the resulting tracks.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tagimport/internal/store"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

var (
	// ErrNoStore is returned by Import when the service has no store.
	ErrNoStore = errors.New("no track store configured")
	// ErrNoFile is returned when an upload carries no file.
	ErrNoFile = errors.New("no file provided")
)

// Parser turns a file into a table. *tagcsv.Cascade implements it.
type Parser interface {
	Parse(path string) (*tagcsv.Table, error)
}

// Store persists parsed tables. *store.Store implements it.
type Store interface {
	Insert(ctx context.Context, importID uuid.UUID, t *tagcsv.Table) (store.InsertResult, error)
}

// Service parses files under a concurrency limit and stores the results.
type Service struct {
	parser  Parser
	store   Store
	limiter *Limiter
	logger  *slog.Logger
}

// New returns a Service. st may be nil, in which case Import fails with
// ErrNoStore; limiter may be nil for an unlimited service.
func New(parser Parser, st Store, limiter *Limiter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{parser: parser, store: st, limiter: limiter, logger: logger}
}

// Limiter returns the service's limiter, or nil.
func (s *Service) Limiter() *Limiter { return s.limiter }

type parseResult struct {
	table *tagcsv.Table
	err   error
}

// Parse runs the cascade on path in its own goroutine. ctx bounds only the
// wait: a parse that has started runs to completion and keeps its slot
// until then, even if Parse has already returned ctx.Err().
func (s *Service) Parse(ctx context.Context, path string) (*tagcsv.Table, error) {
	return s.parse(ctx, path, nil)
}

// ParseTemp is Parse for a spooled file that the service now owns. cleanup
// runs once the parse is over, which can be after ParseTemp has returned
// when ctx ends first.
func (s *Service) ParseTemp(ctx context.Context, path string, cleanup func()) (*tagcsv.Table, error) {
	return s.parse(ctx, path, cleanup)
}

func (s *Service) parse(ctx context.Context, path string, cleanup func()) (*tagcsv.Table, error) {
	if cleanup == nil {
		cleanup = func() {}
	}
	if s.limiter != nil {
		if err := s.limiter.Acquire(ctx); err != nil {
			cleanup()
			s.logger.Warn("parse slot not available", "path", path, "error", err)
			return nil, err
		}
	}

	done := make(chan parseResult, 1)
	go func() {
		if s.limiter != nil {
			defer s.limiter.Release()
		}
		res := s.runParser(path)
		cleanup()
		done <- res
	}()

	select {
	case r := <-done:
		return r.table, r.err
	case <-ctx.Done():
		s.logger.Warn("stopped waiting for parse", "path", path, "error", ctx.Err())
		return nil, ctx.Err()
	}
}

func (s *Service) runParser(path string) (res parseResult) {
	defer func() {
		if r := recover(); r != nil {
			res = parseResult{err: fmt.Errorf("parse %s panicked: %v", path, r)}
		}
	}()

	start := time.Now()
	t, err := s.parser.Parse(path)
	s.logger.Debug("parse finished", "path", path, "duration_ms", time.Since(start).Milliseconds(), "ok", err == nil)
	return parseResult{table: t, err: err}
}

// Result describes one import.
type Result struct {
	ImportID  uuid.UUID          `json:"import_id"`
	Encoding  tagcsv.Encoding    `json:"encoding"`
	Delimiter string             `json:"delimiter"`
	Strategy  string             `json:"strategy"`
	Degraded  bool               `json:"degraded"`
	Columns   int                `json:"columns"`
	Store     store.InsertResult `json:"store"`
}

// Import parses path and stores its tracks under a new import id.
func (s *Service) Import(ctx context.Context, path string) (Result, error) {
	return s.importFile(ctx, path, nil)
}

// ImportTemp is Import for a spooled file; cleanup follows ParseTemp.
func (s *Service) ImportTemp(ctx context.Context, path string, cleanup func()) (Result, error) {
	return s.importFile(ctx, path, cleanup)
}

func (s *Service) importFile(ctx context.Context, path string, cleanup func()) (Result, error) {
	if s.store == nil {
		if cleanup != nil {
			cleanup()
		}
		return Result{}, ErrNoStore
	}

	t, err := s.parse(ctx, path, cleanup)
	if err != nil {
		return Result{}, err
	}

	id := uuid.New()
	logger := s.logger.With("import_id", id, "path", path)
	if t.Degraded {
		logger.Warn("importing a table read with an assumed header", "strategy", t.Strategy)
	}

	res := Result{
		ImportID:  id,
		Encoding:  t.Encoding,
		Delimiter: t.Delimiter.String(),
		Strategy:  t.Strategy,
		Degraded:  t.Degraded,
		Columns:   len(t.Header),
	}

	res.Store, err = s.store.Insert(ctx, id, t)
	if err != nil {
		logger.Error("store failed", "error", err)
		return res, fmt.Errorf("store %s: %w", filepath.Base(path), err)
	}

	logger.Info("import complete",
		"records", t.Len(),
		"inserted", res.Store.Inserted,
		"duplicates", res.Store.Duplicates,
		"failed", len(res.Store.Failed),
	)
	return res, nil
}

// Spool copies r into a temporary file so the cascade can read it more than
// once. It refuses more than max bytes when max > 0. The returned cleanup
// removes the file.
func Spool(r io.Reader, name string, max int64) (path string, cleanup func(), err error) {
	f, err := os.CreateTemp("", "tagimport-*"+filepath.Ext(filepath.Base(name)))
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup = func() { os.Remove(f.Name()) }

	src := r
	if max > 0 {
		src = io.LimitReader(r, max+1)
	}
	n, err := io.Copy(f, src)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", nil, fmt.Errorf("spool upload: %w", err)
	}
	if max > 0 && n > max {
		cleanup()
		return "", nil, fmt.Errorf("%w: %s exceeds %d bytes", tagcsv.ErrFileTooLarge, name, max)
	}
	return f.Name(), cleanup, nil
}
