package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/tagimport/internal/export"
	"github.com/JonMunkholm/tagimport/internal/importer"
	"github.com/JonMunkholm/tagimport/internal/logging"
	"github.com/JonMunkholm/tagimport/internal/store"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

type trackResponse struct {
	ID         int64             `json:"id"`
	ImportID   uuid.UUID         `json:"import_id"`
	ImportedAt time.Time         `json:"imported_at"`
	Tags       map[string]string `json:"tags"`
}

type listResponse struct {
	Tracks []trackResponse `json:"tracks"`
	Count  int             `json:"count"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

// parseFilter reads q, columns and filter[column]=value parameters.
func parseFilter(r *http.Request) (store.Filter, error) {
	q := r.URL.Query()
	f := store.Filter{Query: strings.TrimSpace(q.Get("q"))}

	if cols := q.Get("columns"); cols != "" {
		for _, c := range strings.Split(cols, ",") {
			c = strings.TrimSpace(c)
			if !store.IsColumn(c) {
				return f, fmt.Errorf("%w: unknown column %q", errBadRequest, c)
			}
			f.Columns = append(f.Columns, c)
		}
	}

	for key, values := range q {
		if !strings.HasPrefix(key, "filter[") || !strings.HasSuffix(key, "]") {
			continue
		}
		col := key[len("filter[") : len(key)-1]
		if !store.IsColumn(col) {
			return f, fmt.Errorf("%w: unknown column %q", errBadRequest, col)
		}
		if len(values) == 0 || values[0] == "" {
			continue
		}
		if f.Criteria == nil {
			f.Criteria = make(map[string]string)
		}
		f.Criteria[col] = values[0]
	}
	return f, nil
}

func (s *Server) requireTracks(w http.ResponseWriter, r *http.Request) bool {
	if s.tracks == nil {
		s.respondError(w, r, importer.ErrNoStore, 0)
		return false
	}
	return true
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracks(w, r) {
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	f.Limit = min(max(parseIntParam(r, "limit", defaultPageSize), 1), maxPageSize)
	f.Offset = parseIntParam(r, "offset", 0)

	tracks, err := s.tracks.List(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	resp := listResponse{
		Tracks: make([]trackResponse, len(tracks)),
		Count:  len(tracks),
		Limit:  f.Limit,
		Offset: f.Offset,
	}
	for i, t := range tracks {
		resp.Tracks[i] = trackResponse{ID: t.ID, ImportID: t.ImportID, ImportedAt: t.ImportedAt, Tags: t.Tags}
	}
	s.writeJSON(w, resp)
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracks(w, r) {
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		s.respondError(w, r, fmt.Errorf("%w: invalid track id", errBadRequest), 0)
		return
	}

	if err := s.tracks.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	logging.FromContext(r.Context(), s.logger).Info("track deleted", "id", id)
	s.writeJSON(w, map[string]int64{"deleted": 1})
}

func (s *Server) handleClearTracks(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracks(w, r) {
		return
	}
	n, err := s.tracks.Clear(r.Context())
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	logging.FromContext(r.Context(), s.logger).Warn("all tracks deleted", "count", n)
	s.writeJSON(w, map[string]int64{"deleted": n})
}

// handleExportTracks writes the stored tracks matching the list filters as
// a download in ?format= (csv by default). For csv, ?encoding= and
// ?delimiter= override the configured defaults.
func (s *Server) handleExportTracks(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracks(w, r) {
		return
	}

	q := r.URL.Query()
	format := export.CSV
	if name := q.Get("format"); name != "" {
		f, err := export.ParseFormat(name)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: %v", errBadRequest, err), 0)
			return
		}
		format = f
	}

	opts, err := s.exportOptions(q.Get("encoding"), q.Get("delimiter"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	opts.Logger = logging.FromContext(r.Context(), s.logger)

	f, err := parseFilter(r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	tracks, err := s.tracks.List(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	rows := make([][]string, len(tracks))
	for i, t := range tracks {
		rows[i] = t.Values()
	}

	var buf bytes.Buffer
	if err := export.Write(format, &buf, store.Headers(), rows, opts); err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="tracks%s"`, format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

func (s *Server) exportOptions(encName, delim string) (export.Options, error) {
	var opts export.Options
	if enc, err := tagcsv.ParseEncoding(s.cfg.Export.Encoding); err == nil {
		opts.Encoding = enc
	}
	opts.Delimiter = s.cfg.Export.DelimiterRune()

	if encName != "" {
		enc, err := tagcsv.ParseEncoding(encName)
		if err != nil {
			return opts, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		if enc != tagcsv.UTF8SIG && enc != tagcsv.UTF16LE && enc != tagcsv.UTF8 {
			return opts, fmt.Errorf("%w: exports are written as utf-8-sig, utf-16-le or utf-8", errBadRequest)
		}
		opts.Encoding = enc
	}
	if delim != "" {
		rs := []rune(delim)
		if len(rs) != 1 {
			return opts, fmt.Errorf("%w: delimiter must be one character", errBadRequest)
		}
		opts.Delimiter = rs[0]
	}
	return opts, nil
}
