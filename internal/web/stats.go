package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/conorfennell/lexicard/internal/analytics"
	"github.com/conorfennell/lexicard/internal/domain"
)

const defaultTrendDays = 14

type statsResponse struct {
	Stats   analytics.DeckStats `json:"stats"`
	Summary *analytics.Summary  `json:"summary,omitempty"`
}

// handleStats reports deck statistics. ?deck=__all__ aggregates every deck.
func (s *Server) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID := r.URL.Query().Get("deck")
		resp := statsResponse{Stats: s.svc.Stats(deckID)}
		if sum, ok := s.svc.Summary(deckID); ok {
			resp.Summary = &sum
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) handleTrend() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := defaultTrendDays
		if v := r.URL.Query().Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 366 {
				writeError(w, r, fmt.Errorf("%w: days must be between 1 and 366", errBadRequest))
				return
			}
			days = n
		}
		writeJSON(w, http.StatusOK, s.svc.Trend(r.URL.Query().Get("deck"), days))
	}
}

// handleRanking returns tag accuracy, weakest first.
func (s *Server) handleRanking() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		field := domain.TagField(q.Get("field"))
		if field == "" {
			field = domain.TagTopic
		}
		if !field.Valid() {
			writeError(w, r, fmt.Errorf("%w: unknown tag field %q", errBadRequest, field))
			return
		}
		mode := domain.ReviewMode(q.Get("mode"))
		if mode != "" && !mode.Valid() {
			writeError(w, r, fmt.Errorf("%w: unknown review mode %q", errBadRequest, mode))
			return
		}
		writeJSON(w, http.StatusOK, s.svc.RankByTag(q.Get("deck"), field, mode))
	}
}
