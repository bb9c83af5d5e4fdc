package document

import (
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/knol"
	"github.com/conorfennell/lexicard/internal/sm2"
)

// ImportResult counts what an import did.
type ImportResult struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
}

// frontIndex maps duplicate keys of deckID to the oldest card with that key.
func (d *Document) frontIndex(deckID string) map[string]*domain.Card {
	idx := map[string]*domain.Card{}
	for _, c := range d.DeckCards(deckID) {
		key := knol.FrontKey(c.Front)
		if key == "" {
			continue
		}
		if _, seen := idx[key]; !seen {
			idx[key] = c
		}
	}
	return idx
}

// CountDuplicates reports how many records would collide with existing
// cards of deckID.
func (d *Document) CountDuplicates(deckID string, records []domain.ImportRecord) int {
	idx := d.frontIndex(deckID)
	n := 0
	for _, r := range records {
		if key := knol.FrontKey(r.Front); key != "" && idx[key] != nil {
			n++
		}
	}
	return n
}

// Import upserts records into deckID. A record whose front matches an
// existing card (case-insensitive, trimmed) is skipped or merged depending on
// policy; records repeated within one import are treated the same way.
// Records missing front or back are counted as invalid.
func (d *Document) Import(deckID string, records []domain.ImportRecord, policy domain.DupPolicy, now time.Time) (ImportResult, error) {
	deck, ok := d.Deck(deckID)
	if !ok {
		return ImportResult{}, ErrDeckNotFound
	}
	if d.Cards == nil {
		d.Cards = map[string]*domain.Card{}
	}

	var res ImportResult
	idx := d.frontIndex(deckID)
	for _, r := range records {
		if err := validate.Struct(r); err != nil {
			res.Invalid++
			continue
		}
		key := knol.FrontKey(r.Front)
		if existing := idx[key]; existing != nil {
			if policy != domain.DupOverwrite {
				res.Skipped++
				continue
			}
			merge(existing, r, now)
			res.Updated++
			continue
		}

		c := &domain.Card{
			ID:          newID(),
			DeckID:      deckID,
			Front:       r.Front,
			Back:        r.Back,
			Example:     r.Example,
			Pos:         r.Pos,
			Topic:       r.Topic,
			Syn:         r.Syn,
			Collocation: r.Collocation,
			EF:          sm2.DefaultEase,
			DueAt:       now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		d.Cards[c.ID] = c
		idx[key] = c
		res.Added++
	}

	deck.UpdatedAt = now
	return res, nil
}

// merge copies the non-empty fields of r onto c.
func merge(c *domain.Card, r domain.ImportRecord, now time.Time) {
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&c.Front, r.Front)
	set(&c.Back, r.Back)
	set(&c.Example, r.Example)
	set(&c.Pos, r.Pos)
	set(&c.Topic, r.Topic)
	set(&c.Syn, r.Syn)
	set(&c.Collocation, r.Collocation)
	c.UpdatedAt = now
}
