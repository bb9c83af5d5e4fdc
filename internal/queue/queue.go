// Package queue selects the cards of a study session: due reviews, new cards
// under the daily quota, and not-yet-due reinforcement cards.
//
// Every selector returns cards in a deterministic order. Ties on the primary
// sort key are broken by CreatedAt and then by card ID.
package queue

import (
	"sort"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/knol"
)

// Filter restricts selection by topic (exact, normalized) and part of speech
// (normalized prefix). Empty fields match everything.
type Filter struct {
	Topic string
	Pos   string
}

// FilterFrom returns the active filter stored in settings.
func FilterFrom(s domain.Settings) Filter {
	return Filter{Topic: s.FilterTopic, Pos: s.FilterPos}
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c *domain.Card) bool {
	if topic := knol.Normalize(f.Topic); topic != "" {
		if knol.Normalize(c.Topic) != topic {
			return false
		}
	}
	if knol.Normalize(f.Pos) != "" && !knol.HasPrefix(c.Pos, f.Pos) {
		return false
	}
	return true
}

// NewCounter reports how many new cards of a deck were graded on the day
// containing now. *ledger.Ledger implements it.
type NewCounter interface {
	NewGradedToday(deckID string, now time.Time) int
}

// Builder builds session queues from a deck's cards.
type Builder struct {
	counter NewCounter
}

// NewBuilder creates a Builder that reads today's new-card count from counter.
func NewBuilder(counter NewCounter) *Builder {
	return &Builder{counter: counter}
}

// Due returns reviewed cards with DueAt <= now, earliest due first.
func (b *Builder) Due(cards []*domain.Card, now time.Time, f Filter) []*domain.Card {
	out := selectCards(cards, func(c *domain.Card) bool {
		return !c.IsNew() && !c.DueAt.After(now) && f.Matches(c)
	})
	sortBy(out, func(c *domain.Card) time.Time { return c.DueAt })
	return out
}

// Remaining returns how many new cards deckID may still introduce today.
func (b *Builder) Remaining(deckID string, quota int, now time.Time) int {
	graded := 0
	if b.counter != nil {
		graded = b.counter.NewGradedToday(deckID, now)
	}
	return max(0, quota-graded)
}

// New returns never-reviewed cards, oldest first, capped at the remaining
// daily quota of deckID.
func (b *Builder) New(deckID string, cards []*domain.Card, quota int, now time.Time, f Filter) []*domain.Card {
	remaining := b.Remaining(deckID, quota, now)
	if remaining == 0 {
		return nil
	}
	out := selectCards(cards, func(c *domain.Card) bool {
		return c.IsNew() && f.Matches(c)
	})
	sortBy(out, func(c *domain.Card) time.Time { return c.CreatedAt })
	if len(out) > remaining {
		out = out[:remaining]
	}
	return out
}

// Reinforce returns reviewed cards that are not due yet, soonest due first.
func (b *Builder) Reinforce(cards []*domain.Card, now time.Time, f Filter) []*domain.Card {
	out := selectCards(cards, func(c *domain.Card) bool {
		return !c.IsNew() && c.DueAt.After(now) && f.Matches(c)
	})
	sortBy(out, func(c *domain.Card) time.Time { return c.DueAt })
	return out
}

// IDs extracts card IDs in order.
func IDs(cards []*domain.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func selectCards(cards []*domain.Card, keep func(*domain.Card) bool) []*domain.Card {
	var out []*domain.Card
	for _, c := range cards {
		if c != nil && keep(c) {
			out = append(out, c)
		}
	}
	return out
}

func sortBy(cards []*domain.Card, key func(*domain.Card) time.Time) {
	sort.SliceStable(cards, func(i, j int) bool {
		a, b := cards[i], cards[j]
		if ka, kb := key(a), key(b); !ka.Equal(kb) {
			return ka.Before(kb)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
