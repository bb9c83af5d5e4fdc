// Package ledger keeps the per-day review history: aggregate counters at day
// and deck scope plus a bounded list of raw review events.
//
// Day keys are local calendar dates (YYYY-MM-DD) in the ledger's location,
// time.Local unless configured otherwise. A review just before and just after
// local midnight lands on different days even when only minutes apart.
//
// Counters are never rolled back when old events are evicted from a full day,
// so they keep counting every review while the event list only keeps the most
// recent ones.
package ledger

import (
	"sort"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

// DayKeyLayout is the time layout of day keys.
const DayKeyLayout = "2006-01-02"

// Event is one grading action.
type Event struct {
	Time    time.Time         `json:"t"`
	DeckID  string            `json:"deckId"`
	CardID  string            `json:"cardId"`
	Grade   int               `json:"grade"`
	Correct bool              `json:"correct"`
	Kind    domain.Kind       `json:"kind"`
	Mode    domain.ReviewMode `json:"mode"`
}

// Counters aggregate events.
type Counters struct {
	Total   int `json:"total"`
	Correct int `json:"correct"`
	New     int `json:"new"`
}

func (c *Counters) add(e Event) {
	c.Total++
	if e.Correct {
		c.Correct++
	}
	if e.Kind == domain.KindNew {
		c.New++
	}
}

// Day is the ledger entry for one calendar date.
type Day struct {
	Counters
	ByDeck map[string]*Counters `json:"byDeck"`
	Events *EventRing           `json:"events"`
}

// Days maps day keys to entries. It is the persisted form of a ledger.
type Days map[string]*Day

// Ledger records review events into a Days map it does not own.
type Ledger struct {
	days     Days
	loc      *time.Location
	capacity int
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLocation sets the time zone used to compute day keys.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithCapacity sets the per-day event capacity.
func WithCapacity(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// New wraps days. A nil map is replaced by an empty one; use Days to get it
// back for persistence. Stored event lists are resized to the configured
// capacity, keeping the newest events.
func New(days Days, opts ...Option) *Ledger {
	if days == nil {
		days = Days{}
	}
	l := &Ledger{days: days, loc: time.Local, capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(l)
	}
	for _, day := range days {
		if day != nil && day.Events != nil {
			day.Events.SetCap(l.capacity)
		}
	}
	return l
}

// Days returns the underlying map.
func (l *Ledger) Days() Days {
	return l.days
}

// Location returns the time zone used for day keys.
func (l *Ledger) Location() *time.Location {
	return l.loc
}

// DayKey returns the local calendar date of t.
func (l *Ledger) DayKey(t time.Time) string {
	return t.In(l.loc).Format(DayKeyLayout)
}

// Record appends a review event to the day of at and updates the counters.
func (l *Ledger) Record(deckID, cardID string, grade int, at time.Time, kind domain.Kind, mode domain.ReviewMode) Event {
	if kind != domain.KindNew {
		kind = domain.KindReview
	}
	if mode != domain.ModeZhToEn {
		mode = domain.ModeEnToZh
	}
	e := Event{
		Time:    at,
		DeckID:  deckID,
		CardID:  cardID,
		Grade:   grade,
		Correct: grade >= 3,
		Kind:    kind,
		Mode:    mode,
	}

	day := l.ensureDay(l.DayKey(at))
	day.Events.Push(e)
	day.Counters.add(e)
	deck := day.ByDeck[deckID]
	if deck == nil {
		deck = &Counters{}
		day.ByDeck[deckID] = deck
	}
	deck.add(e)
	return e
}

func (l *Ledger) ensureDay(key string) *Day {
	day := l.days[key]
	if day == nil {
		day = &Day{}
		l.days[key] = day
	}
	if day.ByDeck == nil {
		day.ByDeck = map[string]*Counters{}
	}
	if day.Events == nil {
		day.Events = NewEventRing(l.capacity)
	} else if day.Events.Cap() != l.capacity {
		day.Events.SetCap(l.capacity)
	}
	return day
}

// Counters returns the counters of deckID on the given day. domain.AllDecks
// selects the day-level counters. Missing entries yield zero counters.
func (l *Ledger) Counters(key, deckID string) Counters {
	day := l.days[key]
	if day == nil {
		return Counters{}
	}
	if deckID == domain.AllDecks {
		return day.Counters
	}
	if c := day.ByDeck[deckID]; c != nil {
		return *c
	}
	return Counters{}
}

// Today returns the counters of deckID for the day containing now.
func (l *Ledger) Today(deckID string, now time.Time) Counters {
	return l.Counters(l.DayKey(now), deckID)
}

// NewGradedToday returns how many new cards of deckID were graded on the
// day containing now.
func (l *Ledger) NewGradedToday(deckID string, now time.Time) int {
	return l.Today(deckID, now).New
}

// Keys returns all day keys in ascending order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.days))
	for k := range l.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Events returns the stored events of deckID across all days, oldest day
// first. domain.AllDecks returns every event.
func (l *Ledger) Events(deckID string) []Event {
	var out []Event
	for _, k := range l.Keys() {
		day := l.days[k]
		if day == nil {
			continue
		}
		for _, e := range day.Events.Snapshot() {
			if deckID == domain.AllDecks || e.DeckID == deckID {
				out = append(out, e)
			}
		}
	}
	return out
}
