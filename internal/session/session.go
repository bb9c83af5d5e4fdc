// Package session runs a study session over a snapshot queue of card IDs.
//
// A Scheduler is Idle until Start builds a non-empty queue, then Active until
// grading removes the last card. The queue is computed once at Start; later
// changes to due dates do not add cards to it.
package session

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/conorfennell/lexicard/internal/document"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/knol"
	"github.com/conorfennell/lexicard/internal/ledger"
	"github.com/conorfennell/lexicard/internal/queue"
	"github.com/conorfennell/lexicard/internal/sm2"
)

// ErrUnknownMode is returned by Start and ParseMode for unsupported modes.
var ErrUnknownMode = errors.New("session: unknown mode")

// Mode selects which cards a session studies.
type Mode string

const (
	ModeNew       Mode = "new"
	ModeReview    Mode = "review"
	ModeReinforce Mode = "reinforce"
	// ModeDaily studies due reviews followed by today's new cards.
	ModeDaily Mode = "daily"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeNew, ModeReview, ModeReinforce, ModeDaily:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// State is the scheduler state.
type State int

const (
	Idle State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "idle"
}

// Outcome describes an applied grade.
type Outcome struct {
	Card  *domain.Card
	Event ledger.Event
	// Next is the card now at the cursor, nil when the session is complete.
	Next     *domain.Card
	Complete bool
}

// Info is a read-only view of the scheduler.
type Info struct {
	State     State
	Mode      Mode
	DeckID    string
	Remaining int
	Cursor    int
}

// Scheduler holds one active queue. It mutates the document's cards and
// ledger when grading and is not safe for concurrent use.
type Scheduler struct {
	doc     *document.Document
	ledger  *ledger.Ledger
	builder *queue.Builder
	now     func() time.Time

	state  State
	mode   Mode
	deckID string
	queue  []string
	cursor int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an idle scheduler over doc and l.
func New(doc *document.Document, l *ledger.Ledger, opts ...Option) *Scheduler {
	s := &Scheduler{
		doc:     doc,
		ledger:  l,
		builder: queue.NewBuilder(l),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start snapshots the queue for mode and deckID and returns its length. An
// empty queue leaves the scheduler Idle. Unknown decks yield an empty queue.
func (s *Scheduler) Start(mode Mode, deckID string) (int, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return 0, err
	}
	s.reset()
	s.mode = mode
	s.deckID = deckID

	if _, ok := s.doc.Deck(deckID); ok {
		s.queue = queue.IDs(s.build(mode, deckID, s.now()))
	}
	if len(s.queue) > 0 {
		s.state = Active
	}
	return len(s.queue), nil
}

func (s *Scheduler) build(mode Mode, deckID string, now time.Time) []*domain.Card {
	cards := s.doc.DeckCards(deckID)
	f := queue.FilterFrom(s.doc.Settings)
	quota := s.doc.Settings.NewPerDay

	switch mode {
	case ModeNew:
		return s.builder.New(deckID, cards, quota, now, f)
	case ModeReview:
		return s.builder.Due(cards, now, f)
	case ModeReinforce:
		return s.builder.Reinforce(cards, now, f)
	default:
		due := s.builder.Due(cards, now, f)
		return append(due, s.builder.New(deckID, cards, quota, now, f)...)
	}
}

// Stop abandons the session.
func (s *Scheduler) Stop() {
	s.reset()
}

func (s *Scheduler) reset() {
	s.state = Idle
	s.mode = ""
	s.deckID = ""
	s.queue = nil
	s.cursor = 0
}

// Info reports the current state.
func (s *Scheduler) Info() Info {
	return Info{
		State:     s.state,
		Mode:      s.mode,
		DeckID:    s.deckID,
		Remaining: len(s.queue),
		Cursor:    s.cursor,
	}
}

// Queue returns a copy of the remaining card IDs.
func (s *Scheduler) Queue() []string {
	return slices.Clone(s.queue)
}

// Current returns the card at the cursor. Cards deleted from the document
// since Start are dropped from the queue.
func (s *Scheduler) Current() (*domain.Card, bool) {
	for len(s.queue) > 0 {
		i := s.cursor % len(s.queue)
		if c, ok := s.doc.Card(s.queue[i]); ok {
			return c, true
		}
		s.queue = slices.Delete(s.queue, i, i+1)
	}
	s.finish()
	return nil, false
}

// Skip moves the cursor to the next card without touching any card.
func (s *Scheduler) Skip() {
	if len(s.queue) == 0 {
		return
	}
	s.cursor = (s.cursor + 1) % len(s.queue)
}

// Grade applies grade to cardID if it is the current card. Otherwise it does
// nothing and returns false.
func (s *Scheduler) Grade(cardID string, grade int) (Outcome, bool) {
	if s.state != Active {
		return Outcome{}, false
	}
	c, ok := s.Current()
	if !ok || c.ID != cardID {
		return Outcome{}, false
	}

	now := s.now()
	res := sm2.Review(c, grade, now)
	ev := s.ledger.Record(c.DeckID, c.ID, int(res.Grade), now, res.Before, s.doc.Settings.ReviewMode)

	s.queue = slices.DeleteFunc(s.queue, func(id string) bool { return id == cardID })
	out := Outcome{Card: c, Event: ev}
	if len(s.queue) > 0 {
		s.cursor %= len(s.queue)
	}
	if next, ok := s.Current(); ok {
		out.Next = next
	} else {
		out.Complete = true
	}
	return out, true
}

// Answer grades a typed answer for the spelling direction: an answer equal
// to the card's front (ignoring case and spacing) grades sm2.Remembered,
// anything else sm2.Forgot. A blank answer is ignored.
func (s *Scheduler) Answer(cardID, input string) (Outcome, bool) {
	if knol.Normalize(input) == "" {
		return Outcome{}, false
	}
	c, ok := s.Current()
	if !ok || c.ID != cardID {
		return Outcome{}, false
	}
	grade := sm2.Forgot
	if knol.MatchAnswer(input, c.Front) {
		grade = sm2.Remembered
	}
	return s.Grade(cardID, int(grade))
}

func (s *Scheduler) finish() {
	s.state = Idle
	s.queue = nil
	s.cursor = 0
}
