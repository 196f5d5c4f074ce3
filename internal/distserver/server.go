// Package distserver serves built artifacts over HTTP so that a test
// machine can download and install the latest build.
package distserver

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/build"
)

// Artifact describes one packaged add-on in the output directory.
type Artifact struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

// Server serves the artifacts in an output directory.
type Server struct {
	dir       string
	router    chi.Router
	registry  *prometheus.Registry
	downloads *prometheus.CounterVec
	logger    *slog.Logger
}

// New creates a server for the artifacts in dir.
func New(dir string) *Server {
	s := &Server{
		dir:      dir,
		registry: prometheus.NewRegistry(),
		logger:   slog.Default().With("component", "distserver"),
	}
	s.downloads = promauto.With(s.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "aadt",
		Subsystem: "distserver",
		Name:      "downloads_total",
		Help:      "Total number of artifact downloads",
	}, []string{"artifact"})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/", s.handleList)
	r.Get("/artifacts/{name}", s.handleDownload)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	s.router = r
	return s
}

// SetLogger sets the server's logger.
func (s *Server) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving artifacts", "addr", addr, "dir", s.dir)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// List returns the artifacts in the output directory sorted by name.
func (s *Server) List() ([]Artifact, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []Artifact{}, nil
	}
	if err != nil {
		return nil, err
	}

	artifacts := []Artifact{}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != build.ArtifactExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, Artifact{
			Name:     e.Name(),
			Size:     info.Size(),
			Modified: info.ModTime().UTC(),
			URL:      "/artifacts/" + e.Name(),
		})
	}
	sort.Slice(artifacts, func(i, j int) bool { return artifacts[i].Name < artifacts[j].Name })
	return artifacts, nil
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	artifacts, err := s.List()
	if err != nil {
		s.logger.Error("list artifacts", "error", err)
		http.Error(w, "could not list artifacts", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(artifacts)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || strings.ContainsAny(name, `/\`) || name == ".." ||
		filepath.Ext(name) != build.ArtifactExt {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	s.downloads.WithLabelValues(name).Inc()
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// logRequests logs each request at debug level.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
