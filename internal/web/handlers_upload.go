package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"slices"

	"github.com/JonMunkholm/tagimport/internal/importer"
	"github.com/JonMunkholm/tagimport/internal/logging"
	"github.com/JonMunkholm/tagimport/internal/store"
	"github.com/JonMunkholm/tagimport/internal/tagcsv"
)

// formOverhead is allowed on top of the file size for multipart framing.
const formOverhead = 1 << 20

// spoolUpload copies the multipart "file" field into a temporary file.
func (s *Server) spoolUpload(w http.ResponseWriter, r *http.Request) (path, name string, cleanup func(), err error) {
	maxSize := s.cfg.Parse.MaxFileSize
	if maxSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+formOverhead)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", "", nil, fmt.Errorf("%w: upload exceeds %d bytes", tagcsv.ErrFileTooLarge, maxSize)
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return "", "", nil, importer.ErrNoFile
		}
		return "", "", nil, fmt.Errorf("%w: invalid multipart form: %v", errBadRequest, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, importer.ErrNoFile
	}
	defer file.Close()

	name = filepath.Base(header.Filename)
	path, cleanup, err = importer.Spool(file, name, maxSize)
	if err != nil {
		return "", "", nil, err
	}
	return path, name, cleanup, nil
}

type previewResponse struct {
	Filename  string          `json:"filename"`
	Encoding  tagcsv.Encoding `json:"encoding"`
	Delimiter string          `json:"delimiter"`
	Strategy  string          `json:"strategy"`
	Degraded  bool            `json:"degraded"`
	Header    []string        `json:"header"`
	Records   [][]string      `json:"records"`
	Total     int             `json:"total"`
	// Stored lists the database columns an import would fill; Ignored
	// lists header fields with no stored column.
	Stored  []string `json:"stored_columns"`
	Ignored []string `json:"ignored_columns"`
}

// handlePreview parses an upload and returns its header and first records
// without storing anything.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	path, name, cleanup, err := s.spoolUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	t, err := s.service.ParseTemp(r.Context(), path, cleanup)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	rows := t.Rows()
	if n := s.cfg.Parse.PreviewRows; n > 0 && len(rows) > n {
		rows = rows[:n]
	}

	cols, pos := store.MapHeader(t.Header)
	ignored := []string{}
	for i, h := range t.Header {
		if !slices.Contains(pos, i) {
			ignored = append(ignored, h)
		}
	}
	if cols == nil {
		cols = []string{}
	}

	logging.FromContext(r.Context(), s.logger).Info("preview",
		"filename", name,
		"encoding", t.Encoding,
		"strategy", t.Strategy,
		"records", t.Len(),
	)

	s.writeJSON(w, previewResponse{
		Filename:  name,
		Encoding:  t.Encoding,
		Delimiter: t.Delimiter.String(),
		Strategy:  t.Strategy,
		Degraded:  t.Degraded,
		Header:    t.Header,
		Records:   rows,
		Total:     t.Len(),
		Stored:    cols,
		Ignored:   ignored,
	})
}

type importResponse struct {
	Filename string `json:"filename"`
	importer.Result
}

// handleImport parses an upload and stores its tracks.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	path, name, cleanup, err := s.spoolUpload(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	ctx := r.Context()
	if d := s.cfg.Parse.Timeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	res, err := s.service.ImportTemp(ctx, path, cleanup)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	s.writeJSON(w, importResponse{Filename: name, Result: res})
}
