package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/csvmatch/internal/config"
	"github.com/JonMunkholm/csvmatch/internal/core"
	"github.com/JonMunkholm/csvmatch/internal/logging"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Match: config.MatchConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			JobTimeout:    5 * time.Second,
			TempDir:       t.TempDir(),
			CleanupDelay:  0,
			OutputName:    "matched.csv",
		},
		Rate:     config.RateLimitConfig{Enabled: false},
		Security: config.SecurityConfig{EnableCSP: true},
		History:  config.HistoryConfig{ListLimit: 50, MemoryLimit: 100},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv := NewServer(core.NewService(nil, cfg), cfg)
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv
}

// multipartBody builds an upload form. A nil content omits the field.
func multipartBody(t *testing.T, files map[string]*string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		if content == nil {
			continue
		}
		part, err := mw.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		part.Write([]byte(*content))
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func ptr(s string) *string { return &s }

func upload(t *testing.T, srv *Server, file1, file2 *string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, map[string]*string{"file1": file1, "file2": file2})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func tempDirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUpload_Success(t *testing.T) {
	cfg := testConfig(t)
	srv := newTestServer(t, cfg)

	rec := upload(t, srv, ptr("Name,Age"), ptr("age,name\n30,Alice\n"), nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if got := rec.Body.String(); got != "Name,Age\nAlice,30\n" {
		t.Errorf("body = %q", got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename=matched.csv`) || !strings.HasPrefix(cd, "attachment") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get("X-Match-ID") == "" {
		t.Error("missing X-Match-ID header")
	}

	// With a zero cleanup delay the temp files are gone once the handler returns.
	if left := tempDirEntries(t, cfg.Match.TempDir); len(left) != 0 {
		t.Errorf("temp files left behind: %v", left)
	}
}

func TestUpload_DelayedCleanup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Match.CleanupDelay = 300 * time.Millisecond
	srv := newTestServer(t, cfg)

	rec := upload(t, srv, ptr("a"), ptr("a\n1"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	// Two inputs and one output wait for the grace delay.
	if n := len(tempDirEntries(t, cfg.Match.TempDir)); n != 3 {
		t.Errorf("temp files right after response = %d, want 3", n)
	}

	deadline := time.Now().Add(2 * time.Second)
	for len(tempDirEntries(t, cfg.Match.TempDir)) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("temp files were not removed after the cleanup delay")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name     string
		file1    *string
		file2    *string
		status   int
		wantCode string
	}{
		{"missing file2", ptr("a"), nil, http.StatusBadRequest, "FILE004"},
		{"missing both", nil, nil, http.StatusBadRequest, "FILE004"},
		{"empty table", ptr("   "), ptr("a\n1"), http.StatusBadRequest, "FILE005"},
		{"no data rows", ptr("a,b"), ptr("a,b\n\n"), http.StatusBadRequest, "MATCH001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, testConfig(t))
			rec := upload(t, srv, tt.file1, tt.file2, map[string]string{"Accept": "application/json"})

			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestUpload_MissingFileHTML(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	rec := upload(t, srv, ptr("a"), nil, nil)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Both files are required") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestUpload_HTMXError(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	rec := upload(t, srv, ptr("a"), nil, map[string]string{"HX-Request": "true"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `class="alert alert-error"`) || strings.Contains(body, "<html") {
		t.Errorf("expected bare alert fragment, got %s", body)
	}
}

func TestUpload_NotMultipart(t *testing.T) {
	srv := newTestServer(t, testConfig(t))
	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpload_TooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Match.MaxFileSize = 16
	srv := newTestServer(t, cfg)

	rec := upload(t, srv, ptr("a"), ptr("a\n"+strings.Repeat("x\n", 64)), map[string]string{"Accept": "application/json"})
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "FILE001") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestUpload_RequiresAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"secret"}
	srv := newTestServer(t, cfg)

	if rec := upload(t, srv, ptr("a"), ptr("a\n1"), nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("without key: status = %d, want 401", rec.Code)
	}
	if rec := upload(t, srv, ptr("a"), ptr("a\n1"), map[string]string{"X-API-Key": "secret"}); rec.Code != http.StatusOK {
		t.Errorf("with key: status = %d, want 200", rec.Code)
	}
}

func TestUpload_RateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 1}
	srv := newTestServer(t, cfg)

	if rec := upload(t, srv, ptr("a"), ptr("a\n1"), nil); rec.Code != http.StatusOK {
		t.Fatalf("first upload: status = %d", rec.Code)
	}
	rec := upload(t, srv, ptr("a"), ptr("a\n1"), nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second upload: status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
}

func TestHistoryAPI(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	ok := upload(t, srv, ptr("a"), ptr("a\n1\n2"), nil)
	upload(t, srv, ptr("a"), ptr(""), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var records []core.MatchRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}

	statuses := map[core.MatchStatus]int{}
	for _, r := range records {
		statuses[r.Status]++
	}
	if statuses[core.StatusSucceeded] != 1 || statuses[core.StatusRejected] != 1 {
		t.Errorf("statuses = %v", statuses)
	}

	id := ok.Header().Get("X-Match-ID")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/"+id, nil))
	var one core.MatchRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &one); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if one.ID != id || one.Rows != 2 || one.File1Name != "file1.csv" {
		t.Errorf("record = %+v", one)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", rec.Code)
	}
}

func TestPages(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	for _, path := range []string{"/", "/history", "/static/style.css"} {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s: status = %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), `action="/upload"`) {
		t.Error("index page missing upload form")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff header")
	}
}

func TestStatusAndHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	var status core.LimiterStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if status.MaxConcurrent != 2 || status.Available != 2 {
		t.Errorf("status = %+v", status)
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	srv.SetHealthCheck(func(context.Context) error { return errors.New("db down") })
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz with failing probe = %d, want 503", rec.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrEmptyInput, http.StatusBadRequest},
		{fmt.Errorf("match x: %w", core.ErrEmptyResult), http.StatusBadRequest},
		{&core.WorkerError{Cause: "boom"}, http.StatusInternalServerError},
		{core.ErrTooManyJobs, http.StatusServiceUnavailable},
		{core.ErrMatchNotFound, http.StatusNotFound},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{errBothFilesRequired, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{fmt.Errorf("read %s: %w", filepath.Join("tmp", "x"), os.ErrPermission), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteError_UnmappedErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantMsg string
	}{
		{"client error uses status text", http.StatusUnsupportedMediaType, "Unsupported Media Type"},
		{"server error stays generic", http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
			rec := httptest.NewRecorder()
			writeError(rec, req, tt.status, errors.New("pgconn: relation does not exist"))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Message != tt.wantMsg || resp.Code != "ERR000" {
				t.Errorf("response = %+v, want message %q with ERR000", resp, tt.wantMsg)
			}
			if strings.Contains(rec.Body.String(), "pgconn") {
				t.Error("technical error leaked to the client")
			}
		})
	}
}

func TestWriteError_MappedClientErrorKeepsMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/history/x", nil)
	rec := httptest.NewRecorder()
	writeError(rec, req, http.StatusNotFound, core.ErrMatchNotFound)

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Code != "JOB002" || resp.Message != "Match not found" {
		t.Errorf("response = %+v", resp)
	}
}

type brokenResponseWriter struct {
	*httptest.ResponseRecorder
}

func (brokenResponseWriter) Write([]byte) (int, error) {
	return 0, errors.New("connection reset by peer")
}

func TestPages_RenderErrorLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(logging.New(&logs, "debug", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	srv := newTestServer(t, testConfig(t))
	for _, path := range []string{"/", "/history"} {
		logs.Reset()
		w := brokenResponseWriter{httptest.NewRecorder()}
		srv.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))

		out := logs.String()
		if !strings.Contains(out, "render failed") || !strings.Contains(out, "connection reset by peer") {
			t.Errorf("GET %s: render error not logged: %s", path, out)
		}
	}
}

func TestHistoryAPI_LimitCapped(t *testing.T) {
	cfg := testConfig(t)
	cfg.History.ListLimit = 1
	cfg.History.MaxListLimit = 2
	srv := newTestServer(t, cfg)

	for range 3 {
		upload(t, srv, ptr("a"), ptr("a\n1"), nil)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history?limit=100000000", nil))
	var records []core.MatchRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("len = %d, want 2", len(records))
	}
}
