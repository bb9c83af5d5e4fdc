// Package web exposes the study service as a JSON HTTP API.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/conorfennell/lexicard/internal/document"
	"github.com/conorfennell/lexicard/internal/session"
	"github.com/conorfennell/lexicard/internal/storage"
	"github.com/conorfennell/lexicard/internal/study"
	"github.com/conorfennell/lexicard/internal/sync"
)

const maxBodySize = 8 << 20

// SourceStore manages registered import sources.
type SourceStore interface {
	GetAllSources(ctx context.Context) ([]storage.Source, error)
	InsertSource(ctx context.Context, path, sourceType, deckID string) (int64, error)
	DeleteSource(ctx context.Context, sourceID int64) error
}

// Syncer reconciles every source.
type Syncer interface {
	Run(ctx context.Context) ([]sync.SourceReport, error)
}

// Server holds the dependencies for the HTTP server.
type Server struct {
	svc     *study.Service
	sources SourceStore
	syncer  Syncer
	router  *http.ServeMux
}

// NewServer creates and configures a new server.
func NewServer(svc *study.Service, sources SourceStore, syncer Syncer) *Server {
	s := &Server{
		svc:     svc,
		sources: sources,
		syncer:  syncer,
		router:  http.NewServeMux(),
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.HandleFunc("GET /api/decks", s.handleListDecks())
	s.router.HandleFunc("POST /api/decks", s.handleCreateDeck())
	s.router.HandleFunc("PATCH /api/decks/{id}", s.handleRenameDeck())
	s.router.HandleFunc("DELETE /api/decks/{id}", s.handleDeleteDeck())
	s.router.HandleFunc("POST /api/decks/{id}/select", s.handleSelectDeck())
	s.router.HandleFunc("GET /api/decks/{id}/cards", s.handleListCards())
	s.router.HandleFunc("POST /api/decks/{id}/import", s.handleImport())
	s.router.HandleFunc("GET /api/import/template", s.handleTemplate())

	s.router.HandleFunc("GET /api/settings", s.handleGetSettings())
	s.router.HandleFunc("PATCH /api/settings", s.handleUpdateSettings())

	s.router.HandleFunc("GET /api/session", s.handleGetSession())
	s.router.HandleFunc("POST /api/session", s.handleStartSession())
	s.router.HandleFunc("DELETE /api/session", s.handleStopSession())
	s.router.HandleFunc("POST /api/session/skip", s.handleSkip())
	s.router.HandleFunc("POST /api/session/grade", s.handleGrade())
	s.router.HandleFunc("POST /api/session/answer", s.handleAnswer())

	s.router.HandleFunc("GET /api/stats", s.handleStats())
	s.router.HandleFunc("GET /api/trend", s.handleTrend())
	s.router.HandleFunc("GET /api/ranking", s.handleRanking())

	s.router.HandleFunc("GET /api/export", s.handleExport())
	s.router.HandleFunc("POST /api/restore", s.handleRestore())

	// Source management routes
	s.router.HandleFunc("GET /api/sources", s.handleListSources())
	s.router.HandleFunc("POST /api/sources", s.handleAddSource())
	s.router.HandleFunc("DELETE /api/sources/{id}", s.handleDeleteSource())
	s.router.HandleFunc("POST /api/sync", s.handleSync())
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}

// writeError maps service errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, document.ErrDeckNotFound):
		status = http.StatusNotFound
	case errors.Is(err, study.ErrNoSession):
		status = http.StatusConflict
	case errors.Is(err, document.ErrEmptyName),
		errors.Is(err, document.ErrInvalidBackup),
		errors.Is(err, study.ErrInvalidSettings),
		errors.Is(err, session.ErrUnknownMode),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errBadRequest = errors.New("bad request")

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}
