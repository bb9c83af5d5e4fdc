package study

import (
	"github.com/conorfennell/lexicard/internal/analytics"
	"github.com/conorfennell/lexicard/internal/domain"
)

// Stats returns the statistics of deckID, or of every deck for
// domain.AllDecks.
func (s *Service) Stats(deckID string) analytics.DeckStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.Stats(s.deckOrSelected(deckID), s.now())
}

// Summary returns today's plan for deckID.
func (s *Service) Summary(deckID string) (analytics.Summary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.Summary(s.deckOrSelected(deckID), s.now())
}

// Trend returns per-day review totals for the last days days.
func (s *Service) Trend(deckID string, days int) []analytics.TrendPoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.Trend(s.deckOrSelected(deckID), days, s.now())
}

// RankByTag returns per-tag accuracy, weakest first. An empty mode counts
// every review.
func (s *Service) RankByTag(deckID string, field domain.TagField, mode domain.ReviewMode) []analytics.TagAccuracy {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.analyzer.RankByTag(s.deckOrSelected(deckID), field, mode)
}
