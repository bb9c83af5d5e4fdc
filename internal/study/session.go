package study

import (
	"context"
	"log/slog"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/ledger"
	"github.com/conorfennell/lexicard/internal/session"
)

// SessionView is a snapshot of the session and its current card.
type SessionView struct {
	State     string       `json:"state"`
	Mode      session.Mode `json:"mode,omitempty"`
	DeckID    string       `json:"deckId,omitempty"`
	Remaining int          `json:"remaining"`
	Current   *domain.Card `json:"current,omitempty"`
}

// GradeResult reports a grade or answer. Applied is false when the card was
// not the current card, in which case nothing changed.
type GradeResult struct {
	Applied  bool          `json:"applied"`
	Card     *domain.Card  `json:"card,omitempty"`
	Event    *ledger.Event `json:"event,omitempty"`
	Correct  bool          `json:"correct"`
	Complete bool          `json:"complete"`
	Session  SessionView   `json:"session"`
}

// view must be called with mu held.
func (s *Service) view() SessionView {
	var cur *domain.Card
	if c, ok := s.sched.Current(); ok {
		cp := *c
		cur = &cp
	}
	info := s.sched.Info()
	return SessionView{
		State:     info.State.String(),
		Mode:      info.Mode,
		DeckID:    info.DeckID,
		Remaining: info.Remaining,
		Current:   cur,
	}
}

// StartSession builds a queue for mode over deckID, or the selected deck
// when deckID is empty. An empty queue leaves the session idle.
func (s *Service) StartSession(mode session.Mode, deckID string) (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deckID = s.deckOrSelected(deckID)
	n, err := s.sched.Start(mode, deckID)
	if err != nil {
		return SessionView{}, err
	}
	slog.Info("Started session", "mode", mode, "deck_id", deckID, "cards", n)
	return s.view(), nil
}

// Session returns the current session state.
func (s *Service) Session() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view()
}

// StopSession abandons the active session.
func (s *Service) StopSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sched.Stop()
}

// Skip moves to the next card of the active session.
func (s *Service) Skip() (SessionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sched.Info().State != session.Active {
		return SessionView{}, ErrNoSession
	}
	s.sched.Skip()
	return s.view(), nil
}

// Grade grades cardID if it is the current card. Without an active session
// it is a no-op like any other stale grade.
func (s *Service) Grade(ctx context.Context, cardID string, grade int) (GradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.sched.Grade(cardID, grade)
	return s.applied(ctx, out, ok)
}

// Answer grades a typed answer for cardID if it is the current card.
func (s *Service) Answer(ctx context.Context, cardID, input string) (GradeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out, ok := s.sched.Answer(cardID, input)
	return s.applied(ctx, out, ok)
}

// applied must be called with mu held.
func (s *Service) applied(ctx context.Context, out session.Outcome, ok bool) (GradeResult, error) {
	if !ok {
		return GradeResult{Session: s.view()}, nil
	}
	card := *out.Card
	ev := out.Event
	res := GradeResult{
		Applied:  true,
		Card:     &card,
		Event:    &ev,
		Correct:  ev.Correct,
		Complete: out.Complete,
		Session:  s.view(),
	}
	slog.Debug("Graded card", "card_id", card.ID, "grade", ev.Grade, "correct", ev.Correct)
	return res, s.save(ctx)
}
