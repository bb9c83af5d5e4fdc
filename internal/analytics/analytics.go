// Package analytics derives statistics from the ledger and the card
// collection: tag accuracy rankings, per-deck counts and daily trends.
// Every function is a pure read of its inputs.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/conorfennell/lexicard/internal/document"
	"github.com/conorfennell/lexicard/internal/domain"
	"github.com/conorfennell/lexicard/internal/knol"
	"github.com/conorfennell/lexicard/internal/ledger"
	"github.com/conorfennell/lexicard/internal/queue"
)

// Unlabeled is the bucket for cards without a value in the ranked tag.
const Unlabeled = "(unlabeled)"

// Analyzer reads a document and its ledger.
type Analyzer struct {
	doc    *document.Document
	ledger *ledger.Ledger
}

// New creates an Analyzer.
func New(doc *document.Document, l *ledger.Ledger) *Analyzer {
	return &Analyzer{doc: doc, ledger: l}
}

// TagAccuracy is one bucket of a tag ranking.
type TagAccuracy struct {
	Key     string `json:"key"`
	Total   int    `json:"total"`
	Correct int    `json:"correct"`
}

// Accuracy returns Correct/Total.
func (t TagAccuracy) Accuracy() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Correct) / float64(t.Total)
}

// Percent returns the accuracy rounded to a whole percent.
func (t TagAccuracy) Percent() int {
	return percent(t.Correct, t.Total)
}

// RankByTag buckets the stored events of deckID by the normalized tag of
// the reviewed card and sorts the buckets weakest first: ascending accuracy,
// then descending volume, then key. Events of cards that no longer exist are
// ignored. A non-empty mode keeps only events recorded in that review mode.
func (a *Analyzer) RankByTag(deckID string, field domain.TagField, mode domain.ReviewMode) []TagAccuracy {
	if !field.Valid() {
		return nil
	}
	buckets := map[string]*TagAccuracy{}
	for _, e := range a.ledger.Events(deckID) {
		if mode != "" && e.Mode != mode {
			continue
		}
		c, ok := a.doc.Card(e.CardID)
		if !ok {
			continue
		}
		key := knol.Normalize(c.Tag(field))
		if key == "" {
			key = Unlabeled
		}
		b := buckets[key]
		if b == nil {
			b = &TagAccuracy{Key: key}
			buckets[key] = b
		}
		b.Total++
		if e.Correct {
			b.Correct++
		}
	}

	out := make([]TagAccuracy, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		x, y := out[i], out[j]
		// x.Correct/x.Total < y.Correct/y.Total without floating point.
		if l, r := x.Correct*y.Total, y.Correct*x.Total; l != r {
			return l < r
		}
		if x.Total != y.Total {
			return x.Total > y.Total
		}
		return x.Key < y.Key
	})
	return out
}

// DeckStats summarizes one deck, or every deck for domain.AllDecks.
type DeckStats struct {
	TotalCards   int `json:"totalCards"`
	DueReview    int `json:"dueReview"`
	NewAvailable int `json:"newAvailable"`
	TodayTotal   int `json:"todayTotal"`
	TodayCorrect int `json:"todayCorrect"`
	TodayNew     int `json:"todayNew"`
	// Accuracy is today's correct share in whole percent.
	Accuracy int `json:"accuracy"`
}

// Stats computes DeckStats at now. DueReview honours the active filter.
func (a *Analyzer) Stats(deckID string, now time.Time) DeckStats {
	cards := a.doc.DeckCards(deckID)
	today := a.ledger.Today(deckID, now)
	return DeckStats{
		TotalCards:   len(cards),
		DueReview:    len(queue.NewBuilder(a.ledger).Due(cards, now, queue.FilterFrom(a.doc.Settings))),
		NewAvailable: countNew(cards, queue.Filter{}),
		TodayTotal:   today.Total,
		TodayCorrect: today.Correct,
		TodayNew:     today.New,
		Accuracy:     percent(today.Correct, today.Total),
	}
}

// Summary is the pre-session overview of a deck.
type Summary struct {
	DeckID       string `json:"deckId"`
	DeckName     string `json:"deckName"`
	TotalCards   int    `json:"totalCards"`
	DueReview    int    `json:"dueReview"`
	NewToday     int    `json:"newToday"`
	NewLimit     int    `json:"newLimit"`
	// NewAvailable counts new cards passing the active filter.
	NewAvailable int `json:"newAvailable"`
	// NewPlanned is how many new cards a session started now would add.
	NewPlanned int `json:"newPlanned"`
}

// Summary describes deckID at now. It reports false for unknown decks.
func (a *Analyzer) Summary(deckID string, now time.Time) (Summary, bool) {
	deck, ok := a.doc.Deck(deckID)
	if !ok {
		return Summary{}, false
	}
	cards := a.doc.DeckCards(deckID)
	b := queue.NewBuilder(a.ledger)
	f := queue.FilterFrom(a.doc.Settings)
	limit := a.doc.Settings.NewPerDay
	return Summary{
		DeckID:       deckID,
		DeckName:     deck.Name,
		TotalCards:   len(cards),
		DueReview:    len(b.Due(cards, now, f)),
		NewToday:     a.ledger.NewGradedToday(deckID, now),
		NewLimit:     limit,
		NewAvailable: countNew(cards, f),
		NewPlanned:   len(b.New(deckID, cards, limit, now, f)),
	}, true
}

// TrendPoint is the review count of one day.
type TrendPoint struct {
	Day   string `json:"day"`
	Total int    `json:"total"`
}

// Trend returns the review totals of the last days calendar days ending with
// the day containing now, oldest first.
func (a *Analyzer) Trend(deckID string, days int, now time.Time) []TrendPoint {
	if days <= 0 {
		return nil
	}
	local := now.In(a.ledger.Location())
	out := make([]TrendPoint, 0, days)
	for i := days - 1; i >= 0; i-- {
		// Noon avoids landing on the wrong date across DST changes.
		d := time.Date(local.Year(), local.Month(), local.Day()-i, 12, 0, 0, 0, local.Location())
		key := a.ledger.DayKey(d)
		out = append(out, TrendPoint{Day: key, Total: a.ledger.Counters(key, deckID).Total})
	}
	return out
}

func countNew(cards []*domain.Card, f queue.Filter) int {
	n := 0
	for _, c := range cards {
		if c.IsNew() && f.Matches(c) {
			n++
		}
	}
	return n
}

func percent(part, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}
