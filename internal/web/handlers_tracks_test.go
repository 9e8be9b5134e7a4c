package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/JonMunkholm/tagimport/internal/store"
)

func sampleTracks() []store.Track {
	id := uuid.New()
	return []store.Track{
		{ID: 7, ImportID: id, Tags: map[string]string{"Title": "Song A", "Artist": "Band", "Filename": "a.mp3"}},
		{ID: 8, ImportID: id, Tags: map[string]string{"Title": "Song B", "Artist": "Band", "Filename": "b.mp3"}},
	}
}

func TestListTracks(t *testing.T) {
	tracks := &fakeTracks{tracks: sampleTracks()}
	s := newTestServer(testConfig(), nil, tracks)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks?q=song&limit=5000&offset=10&filter[artist]=Band", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got := decode[listResponse](t, rec)
	if got.Count != 2 || len(got.Tracks) != 2 || got.Tracks[0].ID != 7 {
		t.Errorf("response = %+v", got)
	}
	if got.Tracks[1].Tags["Title"] != "Song B" {
		t.Errorf("tags = %v", got.Tracks[1].Tags)
	}

	f := tracks.filters[0]
	if f.Query != "song" || f.Limit != maxPageSize || f.Offset != 10 {
		t.Errorf("filter = %+v", f)
	}
	if f.Criteria["artist"] != "Band" {
		t.Errorf("criteria = %v", f.Criteria)
	}
}

func TestListTracks_Defaults(t *testing.T) {
	tracks := &fakeTracks{}
	s := newTestServer(testConfig(), nil, tracks)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks?limit=abc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if f := tracks.filters[0]; f.Limit != defaultPageSize || f.Offset != 0 || f.Criteria != nil {
		t.Errorf("filter = %+v", f)
	}
	if !strings.Contains(rec.Body.String(), `"tracks":[]`) {
		t.Errorf("empty list should encode as [], got %s", rec.Body.String())
	}
}

func TestListTracks_BadRequests(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"unknown filter column", "filter[nope]=x"},
		{"unknown search column", "q=x&columns=title,nope"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(testConfig(), nil, &fakeTracks{})
			rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks?"+tt.query, nil))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if got := decode[ErrorResponse](t, rec); got.Code != "REQ001" || !strings.Contains(got.Message, "nope") {
				t.Errorf("error = %+v", got)
			}
		})
	}
}

func TestListTracks_StoreError(t *testing.T) {
	s := newTestServer(testConfig(), nil, &fakeTracks{listErr: errors.New("deadlock detected")})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "DB004" {
		t.Errorf("code = %q, want DB004", got.Code)
	}
}

func TestTracks_NoStore(t *testing.T) {
	s := newTestServer(testConfig(), nil, nil)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/tracks", nil),
		httptest.NewRequest(http.MethodDelete, "/api/tracks/1", nil),
		httptest.NewRequest(http.MethodDelete, "/api/tracks", nil),
		httptest.NewRequest(http.MethodGet, "/api/tracks/export", nil),
	} {
		if rec := do(s, req); rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: status = %d, want 503", req.Method, req.URL.Path, rec.Code)
		}
	}
}

func TestDeleteTrack(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantCode int
		wantErr  string
	}{
		{"existing", "7", http.StatusOK, ""},
		{"missing", "99", http.StatusNotFound, "DB001"},
		{"not a number", "abc", http.StatusBadRequest, "REQ001"},
		{"zero", "0", http.StatusBadRequest, "REQ001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks := &fakeTracks{tracks: sampleTracks()}
			s := newTestServer(testConfig(), nil, tracks)

			rec := do(s, httptest.NewRequest(http.MethodDelete, "/api/tracks/"+tt.id, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantErr != "" {
				if got := decode[ErrorResponse](t, rec); got.Code != tt.wantErr {
					t.Errorf("code = %q, want %q", got.Code, tt.wantErr)
				}
				return
			}
			if len(tracks.deleted) != 1 || tracks.deleted[0] != 7 {
				t.Errorf("deleted = %v", tracks.deleted)
			}
		})
	}
}

func TestClearTracks(t *testing.T) {
	tracks := &fakeTracks{tracks: sampleTracks()}
	s := newTestServer(testConfig(), nil, tracks)

	rec := do(s, httptest.NewRequest(http.MethodDelete, "/api/tracks", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !tracks.cleared {
		t.Error("Clear was not called")
	}
	if got := decode[map[string]int64](t, rec); got["deleted"] != 2 {
		t.Errorf("deleted = %d, want 2", got["deleted"])
	}
}

func TestExportTracks_CSV(t *testing.T) {
	tracks := &fakeTracks{tracks: sampleTracks()}
	s := newTestServer(testConfig(), nil, tracks)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks/export?q=song", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="tracks.csv"` {
		t.Errorf("Content-Disposition = %q", cd)
	}

	body := rec.Body.Bytes()
	if !bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatalf("body should start with a UTF-8 BOM: % x", body[:min(len(body), 8)])
	}
	lines := strings.Split(strings.TrimSuffix(string(body[3:]), "\r\n"), "\r\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Title;Artist;Album;") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "Song A;Band;;") {
		t.Errorf("first row = %q", lines[1])
	}
	if tracks.filters[0].Query != "song" || tracks.filters[0].Limit != 0 {
		t.Errorf("export filter = %+v", tracks.filters[0])
	}
}

func TestExportTracks_Formats(t *testing.T) {
	tests := []struct {
		query       string
		contentType string
		filename    string
	}{
		{"format=json", "application/json", "tracks.json"},
		{"format=xml", "application/xml", "tracks.xml"},
		{"format=xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "tracks.xlsx"},
		{"format=sqlite", "application/vnd.sqlite3", "tracks.db"},
		{"format=csv&encoding=utf-16-le&delimiter=,", "text/csv", "tracks.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			s := newTestServer(testConfig(), nil, &fakeTracks{tracks: sampleTracks()})

			rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks/export?"+tt.query, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
			}
			if ct := rec.Header().Get("Content-Type"); ct != tt.contentType {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, tt.filename) {
				t.Errorf("Content-Disposition = %q, want %s", cd, tt.filename)
			}
			if rec.Body.Len() == 0 {
				t.Error("empty body")
			}
		})
	}
}

func TestExportTracks_JSONBody(t *testing.T) {
	s := newTestServer(testConfig(), nil, &fakeTracks{tracks: sampleTracks()})

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks/export?format=json", nil))
	var got []map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1]["Filename"] != "b.mp3" || got[1]["Album"] != "" {
		t.Errorf("records = %v", got)
	}
}

func TestExportTracks_BadRequests(t *testing.T) {
	for _, q := range []string{"format=pdf", "encoding=windows-1252", "encoding=klingon", "delimiter=ab"} {
		t.Run(q, func(t *testing.T) {
			s := newTestServer(testConfig(), nil, &fakeTracks{tracks: sampleTracks()})
			rec := do(s, httptest.NewRequest(http.MethodGet, "/api/tracks/export?"+q, nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}
