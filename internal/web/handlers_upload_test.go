package web

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
)

func TestPreview(t *testing.T) {
	cfg := testConfig()
	cfg.Parse.PreviewRows = 1
	s := newTestServer(cfg, nil, nil)

	rec := do(s, uploadRequest(t, "/api/preview", "tracks.csv", []byte(sampleExport)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	got := decode[previewResponse](t, rec)
	if got.Filename != "tracks.csv" {
		t.Errorf("filename = %q", got.Filename)
	}
	if got.Encoding != "utf-8-sig" || got.Delimiter != ";" || got.Strategy != "primary" || got.Degraded {
		t.Errorf("dialect = %s %q %s degraded=%v", got.Encoding, got.Delimiter, got.Strategy, got.Degraded)
	}
	if !slices.Equal(got.Header, []string{"Title", "Artist", "Filename", "Mystery"}) {
		t.Errorf("header = %v", got.Header)
	}
	if got.Total != 2 || len(got.Records) != 1 {
		t.Errorf("total = %d, records = %d; want 2 and 1", got.Total, len(got.Records))
	}
	if len(got.Records) == 1 && got.Records[0][0] != "Song A" {
		t.Errorf("first record = %v", got.Records[0])
	}
	if !slices.Equal(got.Stored, []string{"title", "artist", "filename"}) {
		t.Errorf("stored columns = %v", got.Stored)
	}
	if !slices.Equal(got.Ignored, []string{"Mystery"}) {
		t.Errorf("ignored columns = %v", got.Ignored)
	}
}

func TestPreview_Errors(t *testing.T) {
	tests := []struct {
		name     string
		maxSize  int64
		req      func(t *testing.T) *http.Request
		wantCode int
		wantErr  string
	}{
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/preview", strings.NewReader("Title\r\nx\r\n"))
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name: "wrong field",
			req: func(t *testing.T) *http.Request {
				var body bytes.Buffer
				mw := multipart.NewWriter(&body)
				mw.WriteField("upload", sampleExport)
				mw.Close()
				req := httptest.NewRequest(http.MethodPost, "/api/preview", &body)
				req.Header.Set("Content-Type", mw.FormDataContentType())
				return req
			},
			wantCode: http.StatusBadRequest,
			wantErr:  "FILE004",
		},
		{
			name: "empty file",
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/preview", "empty.csv", nil)
			},
			wantCode: http.StatusUnprocessableEntity,
			wantErr:  "FILE003",
		},
		{
			name:    "too large",
			maxSize: 16,
			req: func(t *testing.T) *http.Request {
				return uploadRequest(t, "/api/preview", "tracks.csv", []byte(sampleExport))
			},
			wantCode: http.StatusRequestEntityTooLarge,
			wantErr:  "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.maxSize > 0 {
				cfg.Parse.MaxFileSize = tt.maxSize
			}
			s := newTestServer(cfg, nil, nil)

			rec := do(s, tt.req(t))
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantErr == "" {
				return
			}
			if got := decode[ErrorResponse](t, rec); got.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", got.Code, tt.wantErr)
			}
		})
	}
}

func TestImport(t *testing.T) {
	ins := &fakeInserter{}
	s := newTestServer(testConfig(), ins, nil)

	rec := do(s, uploadRequest(t, "/api/import", "tracks.csv", []byte(sampleExport)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ins.calls != 1 {
		t.Errorf("Insert calls = %d, want 1", ins.calls)
	}

	got := decode[importResponse](t, rec)
	if got.Filename != "tracks.csv" || got.Strategy != "primary" || got.Columns != 4 {
		t.Errorf("response = %+v", got)
	}
	if got.Store.Inserted != 2 || got.Store.ImportID != got.ImportID {
		t.Errorf("store result = %+v, import id %s", got.Store, got.ImportID)
	}
}

func TestImport_NoStore(t *testing.T) {
	s := newTestServer(testConfig(), nil, nil)

	rec := do(s, uploadRequest(t, "/api/import", "tracks.csv", []byte(sampleExport)))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "IMP002" {
		t.Errorf("code = %q, want IMP002", got.Code)
	}
}
