// Package study is the application service: it owns the loaded document,
// the ledger and the active session, and persists the document after every
// change.
package study

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/conorfennell/lexicard/internal/analytics"
	"github.com/conorfennell/lexicard/internal/document"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/ledger"
	"github.com/conorfennell/lexicard/internal/parser"
	"github.com/conorfennell/lexicard/internal/session"
	"github.com/conorfennell/lexicard/internal/storage"
)

// DefaultKey is the storage key of the document.
const DefaultKey = "vocab_anki_like_v1"

var (
	// ErrNoSession is returned by Skip while no session is active.
	ErrNoSession = errors.New("study: no active session")
	// ErrInvalidSettings is returned when a settings update fails validation.
	ErrInvalidSettings = errors.New("study: invalid settings")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store loads and saves raw documents.
type Store interface {
	LoadDocument(ctx context.Context, key string) ([]byte, error)
	SaveDocument(ctx context.Context, key string, body []byte) error
}

// Service serializes access to one study document.
type Service struct {
	mu    sync.Mutex
	store Store

	key      string
	now      func() time.Time
	loc      *time.Location
	capacity int

	doc      *document.Document
	ledger   *ledger.Ledger
	sched    *session.Scheduler
	analyzer *analytics.Analyzer
}

// Option configures a Service.
type Option func(*Service)

// WithKey sets the storage key of the document.
func WithKey(key string) Option {
	return func(s *Service) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLocation sets the time zone used for day keys.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLedgerCapacity bounds the events kept per day.
func WithLedgerCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// Open loads the document from store. A missing or corrupt document is
// replaced by a fresh one, which is saved immediately.
func Open(ctx context.Context, store Store, opts ...Option) (*Service, error) {
	s := &Service{
		store:    store,
		key:      DefaultKey,
		now:      time.Now,
		loc:      time.Local,
		capacity: ledger.DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, err := store.LoadDocument(ctx, s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrCorrupt) {
			return nil, fmt.Errorf("failed to load document: %w", err)
		}
		slog.Warn("Stored document is corrupt, starting fresh", "key", s.key, "error", err)
		raw = nil
	}

	doc, report := document.Decode(raw, s.now())
	if report.Reset && len(raw) > 0 {
		slog.Warn("Stored document was unreadable, starting fresh", "key", s.key)
	}
	if len(report.Settings) > 0 {
		slog.Warn("Repaired invalid settings", "fields", report.Settings)
	}
	s.attach(doc)

	if report.Reset || len(report.Settings) > 0 {
		if err := s.save(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Service) attach(doc *document.Document) {
	s.doc = doc
	s.ledger = ledger.New(doc.LogsByDay, ledger.WithLocation(s.loc), ledger.WithCapacity(s.capacity))
	doc.LogsByDay = s.ledger.Days()
	s.sched = session.New(doc, s.ledger, session.WithClock(s.now))
	s.analyzer = analytics.New(doc, s.ledger)
}

// save must be called with mu held.
func (s *Service) save(ctx context.Context) error {
	body, err := s.doc.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := s.store.SaveDocument(ctx, s.key, body); err != nil {
		slog.Error("Failed to save document", "key", s.key, "error", err)
		return err
	}
	return nil
}

// deckOrSelected must be called with mu held.
func (s *Service) deckOrSelected(deckID string) string {
	if deckID == "" {
		return s.doc.SelectedDeckID
	}
	return deckID
}

// Decks returns copies of all decks ordered by creation time.
func (s *Service) Decks() []domain.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()

	decks := s.doc.SortedDecks()
	out := make([]domain.Deck, len(decks))
	for i, d := range decks {
		out[i] = *d
	}
	return out
}

// SelectedDeckID returns the deck the user is working in.
func (s *Service) SelectedDeckID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.SelectedDeckID
}

// Cards returns copies of the cards of deckID, or of every deck for
// domain.AllDecks.
func (s *Service) Cards(deckID string) []domain.Card {
	s.mu.Lock()
	defer s.mu.Unlock()

	cards := s.doc.DeckCards(s.deckOrSelected(deckID))
	out := make([]domain.Card, len(cards))
	for i, c := range cards {
		out[i] = *c
	}
	return out
}

// CreateDeck adds a deck and selects it.
func (s *Service) CreateDeck(ctx context.Context, name string) (domain.Deck, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := s.doc.CreateDeck(name, s.now())
	if err != nil {
		return domain.Deck{}, err
	}
	slog.Info("Created deck", "deck_id", d.ID, "name", d.Name)
	return *d, s.save(ctx)
}

// RenameDeck renames a deck.
func (s *Service) RenameDeck(ctx context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.doc.RenameDeck(id, name, s.now()); err != nil {
		return err
	}
	return s.save(ctx)
}

// DeleteDeck removes a deck with its cards and returns how many cards were
// removed. Review history is kept.
func (s *Service) DeleteDeck(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.doc.DeleteDeck(id)
	if err != nil {
		return 0, err
	}
	if s.sched.Info().DeckID == id {
		s.sched.Stop()
	}
	slog.Info("Deleted deck", "deck_id", id, "cards", n)
	return n, s.save(ctx)
}

// SelectDeck makes id the selected deck.
func (s *Service) SelectDeck(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.doc.SelectDeck(id) {
		return document.ErrDeckNotFound
	}
	return s.save(ctx)
}

// Settings returns the current settings.
func (s *Service) Settings() domain.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Settings
}

// SettingsPatch holds the settings fields to change. Nil fields are kept.
type SettingsPatch struct {
	NewPerDay   *int               `json:"newPerDay"`
	ReviewMode  *domain.ReviewMode `json:"reviewMode"`
	FilterTopic *string            `json:"filterTopic"`
	FilterPos   *string            `json:"filterPos"`
}

// UpdateSettings applies patch if the result is valid.
func (s *Service) UpdateSettings(ctx context.Context, patch SettingsPatch) (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Settings
	if patch.NewPerDay != nil {
		next.NewPerDay = *patch.NewPerDay
	}
	if patch.ReviewMode != nil {
		next.ReviewMode = *patch.ReviewMode
	}
	if patch.FilterTopic != nil {
		next.FilterTopic = *patch.FilterTopic
	}
	if patch.FilterPos != nil {
		next.FilterPos = *patch.FilterPos
	}
	if err := validate.Struct(next); err != nil {
		return s.doc.Settings, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}

	s.doc.Settings = next
	return next, s.save(ctx)
}

// Import upserts records into deckID.
func (s *Service) Import(ctx context.Context, deckID string, records []domain.ImportRecord, policy domain.DupPolicy) (document.ImportResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deckID = s.deckOrSelected(deckID)
	res, err := s.doc.Import(deckID, records, policy, s.now())
	if err != nil {
		return res, err
	}
	slog.Info("Imported cards",
		"deck_id", deckID,
		"added", res.Added,
		"updated", res.Updated,
		"skipped", res.Skipped,
		"invalid", res.Invalid,
	)
	if res.Added+res.Updated == 0 {
		return res, nil
	}
	return res, s.save(ctx)
}

// Preview describes parsed import text before it is committed.
type Preview struct {
	Records    []domain.ImportRecord `json:"records"`
	Errors     []parser.LineError    `json:"errors"`
	Duplicates int                   `json:"duplicates"`
}

// PreviewImport parses text and counts records that collide with cards of
// deckID.
func (s *Service) PreviewImport(deckID, text string) (Preview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deckID = s.deckOrSelected(deckID)
	if _, ok := s.doc.Deck(deckID); !ok {
		return Preview{}, document.ErrDeckNotFound
	}
	res := parser.ParseString(text)
	return Preview{
		Records:    res.Records,
		Errors:     res.Errors,
		Duplicates: s.doc.CountDuplicates(deckID, res.Records),
	}, nil
}

// ImportText parses text and imports the valid lines.
func (s *Service) ImportText(ctx context.Context, deckID, text string, policy domain.DupPolicy) (document.ImportResult, []parser.LineError, error) {
	res := parser.ParseString(text)
	out, err := s.Import(ctx, deckID, res.Records, policy)
	return out, res.Errors, err
}

// Export returns the encoded document.
func (s *Service) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Encode()
}

// Restore replaces the document with a backup. Any active session ends.
func (s *Service) Restore(ctx context.Context, raw []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := document.Restore(raw, s.now())
	if err != nil {
		return err
	}
	s.attach(doc)
	slog.Info("Restored backup", "decks", len(doc.Decks), "cards", len(doc.Cards))
	return s.save(ctx)
}
