// Package server exposes the package index registry as a read-only JSON API.
//
// Routes:
//
//	GET /healthz
//	GET /v1/indexes
//	GET /v1/indexes/{index}/packages/{name}
//	GET /v1/indexes/{index}/versions/{name}
//	GET /v1/indexes/{index}/search?q=term
//
// Package names may contain slashes (@scope/pkg, group:artifact stays flat),
// so {name} matches the rest of the path.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/index"
)

// Opener constructs the backend registered under name.
type Opener func(name string) (index.PackageIndex, error)

// Options configures a Server.
type Options struct {
	// Open resolves index names. Required.
	Open Opener
	// Names lists the indexes reported by /v1/indexes.
	Names []string
	// Logger receives one line per request. Nil uses log.Default().
	Logger *log.Logger
	// Timeout bounds each request. Zero means 60s.
	Timeout time.Duration
}

// Server serves the API. Backends are opened on first use and reused.
type Server struct {
	opts   Options
	logger *log.Logger
	router chi.Router

	mu      sync.Mutex
	indexes map[string]index.PackageIndex
}

// New builds a Server with its routes mounted.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	s := &Server{
		opts:    opts,
		logger:  opts.Logger,
		indexes: make(map[string]index.PackageIndex),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(middleware.Timeout(opts.Timeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/v1/indexes", func(r chi.Router) {
		r.Get("/", s.handleIndexes)
		r.Route("/{index}", func(r chi.Router) {
			r.Get("/packages/*", s.handleFetch)
			r.Get("/versions/*", s.handleVersions)
			r.Get("/search", s.handleSearch)
		})
	})
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	s.logger.Info("listening", "addr", addr)
	select {
	case err := <-errc:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.Wrap(errors.ErrCodeNetwork, err, "listen on %s", addr)
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) index(name string) (index.PackageIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx, ok := s.indexes[name]; ok {
		return idx, nil
	}
	idx, err := s.opts.Open(name)
	if err != nil {
		return nil, err
	}
	s.indexes[name] = idx
	return idx, nil
}

func (s *Server) handleIndexes(w http.ResponseWriter, _ *http.Request) {
	type entry struct {
		Name     string `json:"name"`
		FetchAll bool   `json:"fetch_all"`
	}
	out := make([]entry, 0, len(s.opts.Names))
	for _, n := range s.opts.Names {
		e := entry{Name: n}
		if idx, err := s.index(n); err == nil {
			e.FetchAll = idx.SupportsFetchAll()
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFetch(w http.ResponseWriter, r *http.Request) {
	idx, name, ok := s.target(w, r)
	if !ok {
		return
	}
	meta, err := idx.Fetch(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleVersions(w http.ResponseWriter, r *http.Request) {
	idx, name, ok := s.target(w, r)
	if !ok {
		return
	}
	versions, err := idx.FetchVersions(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	idx, err := s.index(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, err)
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing query parameter q"))
		return
	}
	results, err := idx.Search(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []index.PackageMeta{}
	}
	writeJSON(w, http.StatusOK, results)
}

// target resolves the {index} and wildcard name of a package route.
func (s *Server) target(w http.ResponseWriter, r *http.Request) (index.PackageIndex, string, bool) {
	idx, err := s.index(chi.URLParam(r, "index"))
	if err != nil {
		writeError(w, err)
		return nil, "", false
	}
	name := strings.Trim(chi.URLParam(r, "*"), "/")
	if name == "" {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "missing package name"))
		return nil, "", false
	}
	return idx, name, true
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"id", middleware.GetReqID(r.Context()))
	})
}

type errorBody struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"error"`
	Hint    string      `json:"hint,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	writeJSON(w, statusFor(code), errorBody{
		Code:    code,
		Message: errors.UserMessage(err),
		Hint:    errors.GetHint(err),
	})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errors.ErrCodeNetwork, errors.ErrCodeDecompress, errors.ErrCodeParse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
