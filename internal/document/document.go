// Package document defines the persisted study document (decks, cards,
// ledger and settings) and the load-time repair rules applied to it.
//
// The embedding application owns a single *Document, loads it once, runs
// core operations against it and saves it after every mutating operation.
// Nothing here is safe for concurrent use.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/ledger"
)

// Version is the document format version written by Default.
const Version = 1

// DefaultDeckName is the name of the deck created for a fresh document.
const DefaultDeckName = "默认牌组"

var (
	ErrDeckNotFound  = errors.New("document: deck not found")
	ErrEmptyName     = errors.New("document: deck name is empty")
	ErrInvalidBackup = errors.New("document: backup must contain decks and cards")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// newID generates deck and card identifiers.
var newID = uuid.NewString

// Document is the whole persisted state of the application.
type Document struct {
	Version        int                     `json:"version"`
	SelectedDeckID string                  `json:"selectedDeckId"`
	Settings       domain.Settings         `json:"settings"`
	Decks          map[string]*domain.Deck `json:"decks"`
	Cards          map[string]*domain.Card `json:"cards"`
	LogsByDay      ledger.Days             `json:"logsByDay"`
}

// Report describes what Decode had to repair.
type Report struct {
	// Reset is set when the input was replaced by a fresh document.
	Reset bool
	// Settings lists the settings fields that were replaced by defaults.
	Settings []string
}

// Default returns a fresh document with one empty deck.
func Default(now time.Time) *Document {
	deck := &domain.Deck{ID: newID(), Name: DefaultDeckName, CreatedAt: now, UpdatedAt: now}
	return &Document{
		Version:        Version,
		SelectedDeckID: deck.ID,
		Settings:       domain.DefaultSettings(),
		Decks:          map[string]*domain.Deck{deck.ID: deck},
		Cards:          map[string]*domain.Card{},
		LogsByDay:      ledger.Days{},
	}
}

type wireDocument struct {
	Version        int                     `json:"version"`
	SelectedDeckID string                  `json:"selectedDeckId"`
	Settings       json.RawMessage         `json:"settings"`
	Decks          map[string]*domain.Deck `json:"decks"`
	Cards          map[string]*domain.Card `json:"cards"`
	LogsByDay      ledger.Days             `json:"logsByDay"`
}

// Decode parses a stored document. Empty or unparseable input, or a
// document without decks, yields a fresh default document. Invalid settings
// fields are replaced by their defaults. Decode never fails.
func Decode(raw []byte, now time.Time) (*Document, Report) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Default(now), Report{Reset: true}
	}
	var w wireDocument
	if err := json.Unmarshal(raw, &w); err != nil {
		return Default(now), Report{Reset: true}
	}

	decks := make(map[string]*domain.Deck, len(w.Decks))
	for id, d := range w.Decks {
		if d == nil {
			continue
		}
		if d.ID == "" {
			d.ID = id
		}
		decks[d.ID] = d
	}
	if len(decks) == 0 {
		return Default(now), Report{Reset: true}
	}

	cards := make(map[string]*domain.Card, len(w.Cards))
	for id, c := range w.Cards {
		if c == nil {
			continue
		}
		if c.ID == "" {
			c.ID = id
		}
		cards[c.ID] = c
	}

	settings, repaired := decodeSettings(w.Settings)
	doc := &Document{
		Version:        w.Version,
		SelectedDeckID: w.SelectedDeckID,
		Settings:       settings,
		Decks:          decks,
		Cards:          cards,
		LogsByDay:      w.LogsByDay,
	}
	if doc.Version == 0 {
		doc.Version = Version
	}
	if doc.LogsByDay == nil {
		doc.LogsByDay = ledger.Days{}
	}
	doc.EnsureSelectedDeck()
	return doc, Report{Settings: repaired}
}

// decodeSettings reads each settings field on its own so that one bad value
// does not discard the others.
func decodeSettings(raw json.RawMessage) (domain.Settings, []string) {
	s := domain.DefaultSettings()
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return s, []string{"settings"}
	}

	var repaired []string
	if v, ok := m["newPerDay"].(float64); ok && !math.IsNaN(v) && !math.IsInf(v, 0) {
		s.NewPerDay = int(math.Floor(v))
	} else {
		repaired = append(repaired, "newPerDay")
	}
	if v, ok := m["reviewMode"].(string); ok {
		s.ReviewMode = domain.ReviewMode(v)
	} else {
		repaired = append(repaired, "reviewMode")
	}
	if v, ok := m["filterTopic"].(string); ok {
		s.FilterTopic = v
	} else {
		repaired = append(repaired, "filterTopic")
	}
	if v, ok := m["filterPos"].(string); ok {
		s.FilterPos = v
	} else {
		repaired = append(repaired, "filterPos")
	}

	return s, append(repaired, RepairSettings(&s)...)
}

// RepairSettings validates s and resets every invalid field to its default.
// It returns the JSON names of the fields it reset.
func RepairSettings(s *domain.Settings) []string {
	err := validate.Struct(s)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	def := domain.DefaultSettings()
	var fixed []string
	for _, fe := range verrs {
		switch fe.StructField() {
		case "NewPerDay":
			s.NewPerDay = def.NewPerDay
			fixed = append(fixed, "newPerDay")
		case "ReviewMode":
			s.ReviewMode = def.ReviewMode
			fixed = append(fixed, "reviewMode")
		case "FilterTopic":
			s.FilterTopic = def.FilterTopic
			fixed = append(fixed, "filterTopic")
		case "FilterPos":
			s.FilterPos = def.FilterPos
			fixed = append(fixed, "filterPos")
		}
	}
	return fixed
}

// Encode serializes the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Restore decodes a user-supplied backup. Unlike Decode it rejects input
// that does not look like a document instead of starting over, so a bad
// backup never replaces the current data.
func Restore(raw []byte, now time.Time) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if w.Decks == nil || w.Cards == nil {
		return nil, ErrInvalidBackup
	}
	doc, rep := Decode(raw, now)
	if rep.Reset {
		return nil, fmt.Errorf("%w: no usable decks", ErrInvalidBackup)
	}
	return doc, nil
}

// EnsureSelectedDeck points SelectedDeckID at an existing deck, the oldest
// one if the current selection is gone. It is cleared when no deck exists.
func (d *Document) EnsureSelectedDeck() {
	if _, ok := d.Decks[d.SelectedDeckID]; ok {
		return
	}
	d.SelectedDeckID = ""
	if decks := d.SortedDecks(); len(decks) > 0 {
		d.SelectedDeckID = decks[0].ID
	}
}

// SortedDecks returns the decks ordered by creation time.
func (d *Document) SortedDecks() []*domain.Deck {
	out := make([]*domain.Deck, 0, len(d.Decks))
	for _, deck := range d.Decks {
		out = append(out, deck)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Deck looks up a deck by ID.
func (d *Document) Deck(id string) (*domain.Deck, bool) {
	deck, ok := d.Decks[id]
	return deck, ok && deck != nil
}

// Card looks up a card by ID.
func (d *Document) Card(id string) (*domain.Card, bool) {
	c, ok := d.Cards[id]
	return c, ok && c != nil
}

// DeckCards returns the cards of deckID ordered by creation time and ID.
// domain.AllDecks returns every card.
func (d *Document) DeckCards(deckID string) []*domain.Card {
	var out []*domain.Card
	for _, c := range d.Cards {
		if c != nil && (deckID == domain.AllDecks || c.DeckID == deckID) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
