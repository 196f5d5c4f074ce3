package distserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"review-heatmap-v1.0.0.ankiaddon":         "local",
		"review-heatmap-v1.0.0-ankiweb.ankiaddon": "ankiweb",
		"notes.txt":                               "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "build"), 0755); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestList(t *testing.T) {
	s := New(setupDir(t))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	var artifacts []Artifact
	if err := json.NewDecoder(rec.Body).Decode(&artifacts); err != nil {
		t.Fatal(err)
	}
	if len(artifacts) != 2 {
		t.Fatalf("artifacts = %+v", artifacts)
	}
	if artifacts[0].Name != "review-heatmap-v1.0.0-ankiweb.ankiaddon" {
		t.Errorf("artifacts not sorted: %+v", artifacts)
	}
	if artifacts[1].Size != int64(len("local")) {
		t.Errorf("Size = %d", artifacts[1].Size)
	}
	if artifacts[1].URL != "/artifacts/review-heatmap-v1.0.0.ankiaddon" {
		t.Errorf("URL = %q", artifacts[1].URL)
	}
}

func TestListMissingDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "dist"))
	artifacts, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if artifacts == nil || len(artifacts) != 0 {
		t.Errorf("artifacts = %v, want empty list", artifacts)
	}
}

func TestDownload(t *testing.T) {
	s := New(setupDir(t))

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/artifacts/review-heatmap-v1.0.0.ankiaddon", http.StatusOK, "local"},
		{"/artifacts/review-heatmap-v9.ankiaddon", http.StatusNotFound, ""},
		{"/artifacts/notes.txt", http.StatusNotFound, ""},
		{"/artifacts/..%2Fsecret.ankiaddon", http.StatusNotFound, ""},
		{"/artifacts/build", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantBody != "" && rec.Body.String() != tt.wantBody {
				t.Errorf("body = %q", rec.Body.String())
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := New(setupDir(t))

	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest("GET", "/artifacts/review-heatmap-v1.0.0.ankiaddon", nil)
	s.Handler().ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest("GET", "/metrics", nil)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `aadt_distserver_downloads_total{artifact="review-heatmap-v1.0.0.ankiaddon"} 1`) {
		t.Errorf("metrics missing download counter:\n%s", body)
	}
}

func TestListenAndServeShutdown(t *testing.T) {
	s := New(setupDir(t))
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("ListenAndServe error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
