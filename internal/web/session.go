package web

import (
	"net/http"

	"github.com/conorfennell/lexicard/internal/session"
	"github.com/conorfennell/lexicard/internal/study"
)

type startRequest struct {
	Mode   string `json:"mode"`
	DeckID string `json:"deckId"`
}

type gradeRequest struct {
	CardID string `json:"cardId"`
	Grade  int    `json:"grade"`
}

type answerRequest struct {
	CardID string `json:"cardId"`
	Input  string `json:"input"`
}

func (s *Server) handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.svc.Session())
	}
}

// handleStartSession builds a new queue. An empty deckId uses the selected
// deck; an empty mode means the daily queue.
func (s *Server) handleStartSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if req.Mode == "" {
			req.Mode = string(session.ModeDaily)
		}
		mode, err := session.ParseMode(req.Mode)
		if err != nil {
			writeError(w, r, err)
			return
		}
		view, err := s.svc.StartSession(mode, req.DeckID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) handleStopSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.svc.StopSession()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleSkip() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.svc.Skip()
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// handleGrade applies a 0-5 grade. A card that is no longer current yields
// applied=false rather than an error.
func (s *Server) handleGrade() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gradeRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.svc.Grade(r.Context(), req.CardID, req.Grade)
		writeGrade(w, r, res, err)
	}
}

func (s *Server) handleAnswer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req answerRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		res, err := s.svc.Answer(r.Context(), req.CardID, req.Input)
		writeGrade(w, r, res, err)
	}
}

func writeGrade(w http.ResponseWriter, r *http.Request, res study.GradeResult, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
