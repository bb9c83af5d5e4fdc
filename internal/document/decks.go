package document

import (
	"strings"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// CreateDeck adds a deck and selects it.
func (d *Document) CreateDeck(name string, now time.Time) (*domain.Deck, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	deck := &domain.Deck{ID: newID(), Name: name, CreatedAt: now, UpdatedAt: now}
	if d.Decks == nil {
		d.Decks = map[string]*domain.Deck{}
	}
	d.Decks[deck.ID] = deck
	d.SelectedDeckID = deck.ID
	return deck, nil
}

// RenameDeck changes a deck's display name.
func (d *Document) RenameDeck(id, name string, now time.Time) error {
	deck, ok := d.Deck(id)
	if !ok {
		return ErrDeckNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	deck.Name = name
	deck.UpdatedAt = now
	return nil
}

// DeleteDeck removes a deck together with its cards and returns the number
// of cards deleted. Ledger history is kept.
func (d *Document) DeleteDeck(id string) (int, error) {
	if _, ok := d.Deck(id); !ok {
		return 0, ErrDeckNotFound
	}
	removed := 0
	for cid, c := range d.Cards {
		if c == nil || c.DeckID == id {
			delete(d.Cards, cid)
			removed++
		}
	}
	delete(d.Decks, id)
	d.EnsureSelectedDeck()
	return removed, nil
}

// SelectDeck makes id the selected deck. It reports false for unknown decks.
func (d *Document) SelectDeck(id string) bool {
	if _, ok := d.Deck(id); !ok {
		return false
	}
	d.SelectedDeckID = id
	return true
}
