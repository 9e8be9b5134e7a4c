package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/tagimport/internal/logging"
	"github.com/JonMunkholm/tagimport/internal/store"
)

// handleListImports lists the imports that still have stored tracks.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracks(w, r) {
		return
	}
	limit := min(max(parseIntParam(r, "limit", 50), 1), maxPageSize)

	imports, err := s.tracks.Imports(r.Context(), limit)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	if imports == nil {
		imports = []store.ImportSummary{}
	}
	s.writeJSON(w, map[string]any{"imports": imports})
}

// handleRollbackImport deletes every track stored by one import.
func (s *Server) handleRollbackImport(w http.ResponseWriter, r *http.Request) {
	if !s.requireTracks(w, r) {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "importID"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: invalid import id", errBadRequest), 0)
		return
	}

	n, err := s.tracks.Rollback(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	logging.FromContext(r.Context(), s.logger).Warn("import rolled back", "import_id", id, "deleted", n)
	s.writeJSON(w, map[string]any{"import_id": id, "deleted": n})
}
