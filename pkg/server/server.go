// Package server exposes the archive browser over a local HTTP API.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bgwastu/deletex/internal/app"
	"github.com/bgwastu/deletex/internal/loader"
	"github.com/bgwastu/deletex/internal/store"
	"github.com/bgwastu/deletex/pkg/archive"
	"github.com/bgwastu/deletex/pkg/paginate"
	"github.com/bgwastu/deletex/pkg/query"
	"github.com/bgwastu/deletex/pkg/selection"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxImportSize bounds the archive upload body.
const maxImportSize = 512 << 20

// Server provides the local HTTP API.
type Server struct {
	app      *app.App
	port     int
	pageSize int
}

// New creates a server around the app controller.
func New(a *app.App, port, pageSize int) *Server {
	if port == 0 {
		port = 8080
	}
	if pageSize <= 0 {
		pageSize = paginate.DefaultPageSize
	}
	return &Server{app: a, port: port, pageSize: pageSize}
}

// Router builds the chi router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/state", s.handleState)
	r.Get("/api/v1/stats", s.handleStats)
	r.Post("/api/v1/import", s.handleImport)
	r.Post("/api/v1/reset", s.handleReset)
	r.Post("/api/v1/posts/query", s.handleQuery)
	r.Get("/api/v1/selection", s.handleGetSelection)
	r.Post("/api/v1/selection/all", s.handleSelectAll)
	r.Post("/api/v1/selection/toggle", s.handleToggle)
	r.Delete("/api/v1/selection", s.handleClearSelection)
	r.Get("/api/v1/script", s.handleScript)

	return r
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)
	fmt.Printf("deletex listening on http://%s\n", addr)
	return http.ListenAndServe(addr, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"state":  s.app.State(),
		"filter": s.app.Filter(),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.app.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxImportSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read payload: " + err.Error()})
		return
	}

	summary, err := s.app.Import(r.Context(), payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Reset(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

type queryRequest struct {
	Filter   query.Filter  `json:"filter"`
	Cursor   *store.Cursor `json:"cursor,omitempty"`
	PageSize int           `json:"page_size,omitempty"`
}

// handleQuery serves both filter application (no cursor: the filter becomes
// current and invalidates in-flight traversals) and cursor continuation
// under the current filter.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "decode request: " + err.Error()})
		return
	}
	if req.PageSize <= 0 {
		req.PageSize = s.pageSize
	}

	var res *paginate.Result
	var err error
	if req.Cursor == nil {
		res, err = s.app.ApplyFilter(r.Context(), req.Filter, req.PageSize)
	} else {
		res, err = s.app.Page(r.Context(), req.Cursor, req.PageSize)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	ids, total, err := s.app.SelectAll(r.Context(), nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ids":      ids,
		"selected": len(ids),
		"total":    total,
		// Truncation at the cap is not an error; the caller relays it.
		"truncated": len(ids) < total,
	})
}

func (s *Server) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	ids := s.app.Selection()
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids, "selected": len(ids)})
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}
	ids := s.app.Toggle(req.ID)
	writeJSON(w, http.StatusOK, map[string]any{"ids": ids, "selected": len(ids)})
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s.app.ClearSelection()
	writeJSON(w, http.StatusOK, map[string]any{"selected": 0})
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	js, err := s.app.Script()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, js)
}

// writeError maps the error taxonomy onto HTTP statuses. Every error kind
// surfaces as one human-readable message; nothing is swallowed.
func writeError(w http.ResponseWriter, err error) {
	var (
		malformed  *archive.MalformedArchiveError
		validation *query.ValidationError
		loadErr    *loader.LoadError
		stateErr   *app.StateError
		queryErr   *paginate.QueryError
	)

	status := http.StatusInternalServerError
	body := map[string]string{"error": err.Error()}

	switch {
	case errors.As(err, &malformed):
		status = http.StatusBadRequest
	case errors.As(err, &validation):
		status = http.StatusBadRequest
		body["field"] = validation.Field
	case errors.As(err, &stateErr), errors.Is(err, selection.ErrStale):
		status = http.StatusConflict
	case errors.As(err, &loadErr):
		status = http.StatusInternalServerError
	case errors.As(err, &queryErr):
		// Read-only, safe for the client to retry verbatim.
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
