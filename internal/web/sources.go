package web

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/conorfennell/lexicard/internal/document"
	"github.com/conorfennell/lexicard/internal/sync"
)

type sourceView struct {
	ID          int64   `json:"id"`
	Path        string  `json:"path"`
	Type        string  `json:"type"`
	DeckID      string  `json:"deckId"`
	LastScanned *string `json:"lastScanned,omitempty"`
}

type sourceRequest struct {
	Path   string `json:"path"`
	DeckID string `json:"deckId"`
}

func (s *Server) listSources(r *http.Request) ([]sourceView, error) {
	sources, err := s.sources.GetAllSources(r.Context())
	if err != nil {
		return nil, err
	}
	out := make([]sourceView, 0, len(sources))
	for _, src := range sources {
		v := sourceView{ID: src.ID, Path: src.Path, Type: src.Type, DeckID: src.DeckID}
		if src.LastScanned.Valid {
			ts := src.LastScanned.Time.Format(time.RFC3339)
			v.LastScanned = &ts
		}
		out = append(out, v)
	}
	return out, nil
}

// handleListSources renders the registered sources.
func (s *Server) handleListSources() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sources, err := s.listSources(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sources)
	}
}

// handleAddSource registers a local directory or git URL for a deck and
// returns the updated list.
func (s *Server) handleAddSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sourceRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		req.Path = strings.TrimSpace(req.Path)
		if req.Path == "" {
			writeError(w, r, fmt.Errorf("%w: path cannot be empty", errBadRequest))
			return
		}
		if req.DeckID == "" {
			req.DeckID = s.svc.SelectedDeckID()
		}
		if !s.hasDeck(req.DeckID) {
			writeError(w, r, document.ErrDeckNotFound)
			return
		}

		sourceType := sync.DetectType(req.Path)
		if _, err := s.sources.InsertSource(r.Context(), req.Path, sourceType, req.DeckID); err != nil {
			writeError(w, r, err)
			return
		}
		slog.Info("Added source", "path", req.Path, "type", sourceType, "deck_id", req.DeckID)

		sources, err := s.listSources(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, sources)
	}
}

func (s *Server) hasDeck(id string) bool {
	for _, d := range s.svc.Decks() {
		if d.ID == id {
			return true
		}
	}
	return false
}

// handleDeleteSource deletes a source. Cards already imported stay.
func (s *Server) handleDeleteSource() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid source ID", errBadRequest))
			return
		}
		if err := s.sources.DeleteSource(r.Context(), id); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type syncResult struct {
	SourceID   int64  `json:"sourceId"`
	Path       string `json:"path"`
	Files      int    `json:"files"`
	Added      int    `json:"added"`
	Updated    int    `json:"updated"`
	LineErrors int    `json:"lineErrors"`
	Revision   string `json:"revision,omitempty"`
	Error      string `json:"error,omitempty"`
}

// handleSync triggers a sync in the foreground to make the user wait.
func (s *Server) handleSync() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reports, err := s.syncer.Run(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		out := make([]syncResult, 0, len(reports))
		for _, rep := range reports {
			res := syncResult{
				SourceID:   rep.SourceID,
				Path:       rep.Path,
				Files:      rep.Files,
				Added:      rep.Result.Added,
				Updated:    rep.Result.Updated,
				LineErrors: rep.LineErrors,
				Revision:   rep.Revision,
			}
			if rep.Err != nil {
				res.Error = rep.Err.Error()
			}
			out = append(out, res)
		}
		writeJSON(w, http.StatusOK, out)
	}
}
