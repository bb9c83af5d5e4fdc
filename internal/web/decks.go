package web

import (
	"net/http"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/parser"
)

type deckList struct {
	Decks          []domain.Deck `json:"decks"`
	SelectedDeckID string        `json:"selectedDeckId"`
}

type deckRequest struct {
	Name string `json:"name"`
}

// handleListDecks returns every deck and the selected one.
func (s *Server) handleListDecks() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deckList{
			Decks:          s.svc.Decks(),
			SelectedDeckID: s.svc.SelectedDeckID(),
		})
	}
}

func (s *Server) handleCreateDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deckRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		d, err := s.svc.CreateDeck(r.Context(), req.Name)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, d)
	}
}

func (s *Server) handleRenameDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deckRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		if err := s.svc.RenameDeck(r.Context(), r.PathValue("id"), req.Name); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleDeleteDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := s.svc.DeleteDeck(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deletedCards": n})
	}
}

func (s *Server) handleSelectDeck() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.svc.SelectDeck(r.Context(), r.PathValue("id")); err != nil {
			writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleListCards returns the cards of a deck. The id "__all__" lists every
// card.
func (s *Server) handleListCards() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.svc.Cards(r.PathValue("id")))
	}
}

type importRequest struct {
	Text    string `json:"text"`
	Policy  string `json:"policy"`
	Preview bool   `json:"preview"`
}

type importResponse struct {
	Added   int                `json:"added"`
	Updated int                `json:"updated"`
	Skipped int                `json:"skipped"`
	Invalid int                `json:"invalid"`
	Errors  []parser.LineError `json:"errors"`
}

// handleImport parses pasted text into a deck. With preview set nothing is
// written and the duplicate count is returned instead.
func (s *Server) handleImport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req importRequest
		if err := decode(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}
		deckID := r.PathValue("id")

		if req.Preview {
			p, err := s.svc.PreviewImport(deckID, req.Text)
			if err != nil {
				writeError(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
			return
		}

		res, lineErrs, err := s.svc.ImportText(r.Context(), deckID, req.Text, domain.ParseDupPolicy(req.Policy))
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, importResponse{
			Added:   res.Added,
			Updated: res.Updated,
			Skipped: res.Skipped,
			Invalid: res.Invalid,
			Errors:  lineErrs,
		})
	}
}

func (s *Server) handleTemplate() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte(parser.Template() + "\n"))
	}
}
