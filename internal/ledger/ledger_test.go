package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conorfennell/lexicard/internal/domain"
)

var t0 = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)

func newLedger(opts ...Option) *Ledger {
	return New(Days{}, append([]Option{WithLocation(time.UTC)}, opts...)...)
}

func TestDayKeyUsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	late := time.Date(2025, 6, 15, 20, 0, 0, 0, time.UTC)

	assert.Equal(t, "2025-06-15", newLedger().DayKey(late))
	assert.Equal(t, "2025-06-16", New(nil, WithLocation(tokyo)).DayKey(late))
}

func TestRecordUpdatesCounters(t *testing.T) {
	l := newLedger()
	l.Record("d1", "c1", 5, t0, domain.KindNew, domain.ModeEnToZh)
	l.Record("d1", "c2", 0, t0.Add(time.Minute), domain.KindReview, domain.ModeEnToZh)
	l.Record("d2", "c3", 3, t0.Add(2*time.Minute), domain.KindNew, domain.ModeZhToEn)

	key := l.DayKey(t0)
	assert.Equal(t, Counters{Total: 3, Correct: 2, New: 2}, l.Counters(key, domain.AllDecks))
	assert.Equal(t, Counters{Total: 2, Correct: 1, New: 1}, l.Counters(key, "d1"))
	assert.Equal(t, Counters{Total: 1, Correct: 1, New: 1}, l.Counters(key, "d2"))
	assert.Equal(t, Counters{}, l.Counters(key, "missing"))
	assert.Equal(t, Counters{}, l.Counters("1999-01-01", "d1"))

	assert.Equal(t, 1, l.NewGradedToday("d1", t0))
	assert.Equal(t, 0, l.NewGradedToday("d1", t0.Add(24*time.Hour)))
}

func TestRecordNormalizesEvent(t *testing.T) {
	l := newLedger()
	e := l.Record("d1", "c1", 3, t0, domain.Kind("bogus"), domain.ReviewMode(""))
	assert.True(t, e.Correct)
	assert.Equal(t, domain.KindReview, e.Kind)
	assert.Equal(t, domain.ModeEnToZh, e.Mode)

	e = l.Record("d1", "c1", 2, t0, domain.KindNew, domain.ModeZhToEn)
	assert.False(t, e.Correct)
	assert.Equal(t, domain.ModeZhToEn, e.Mode)
}

func TestCountersMatchEvents(t *testing.T) {
	l := newLedger()
	at := t0
	for i := 0; i < 50; i++ {
		kind := domain.KindReview
		if i%4 == 0 {
			kind = domain.KindNew
		}
		deck := "d1"
		if i%3 == 0 {
			deck = "d2"
		}
		l.Record(deck, "c", i%6, at, kind, domain.ModeEnToZh)
		at = at.Add(37 * time.Minute)
	}

	for _, key := range l.Keys() {
		day := l.Days()[key]
		var want Counters
		byDeck := map[string]*Counters{}
		for _, e := range day.Events.Snapshot() {
			want.add(e)
			if byDeck[e.DeckID] == nil {
				byDeck[e.DeckID] = &Counters{}
			}
			byDeck[e.DeckID].add(e)
		}
		assert.Equal(t, want, day.Counters, "day %s", key)
		for deck, c := range byDeck {
			assert.Equal(t, *c, l.Counters(key, deck), "day %s deck %s", key, deck)
		}
	}
}

func TestEvictionKeepsCounters(t *testing.T) {
	l := newLedger(WithCapacity(3))
	for i := 0; i < 5; i++ {
		l.Record("d1", "c", 5, t0.Add(time.Duration(i)*time.Second), domain.KindNew, domain.ModeEnToZh)
	}
	day := l.Days()[l.DayKey(t0)]
	require.NotNil(t, day)
	assert.Equal(t, 3, day.Events.Len())
	assert.Equal(t, 5, day.Total)
	assert.Equal(t, 5, day.New)
	assert.Equal(t, 5, l.NewGradedToday("d1", t0))

	events := day.Events.Snapshot()
	assert.Equal(t, t0.Add(2*time.Second), events[0].Time)
}

func TestEventsAcrossDays(t *testing.T) {
	l := newLedger()
	l.Record("d1", "a", 5, t0.Add(48*time.Hour), domain.KindReview, domain.ModeEnToZh)
	l.Record("d2", "b", 5, t0, domain.KindNew, domain.ModeEnToZh)
	l.Record("d1", "c", 0, t0, domain.KindNew, domain.ModeEnToZh)

	d1 := l.Events("d1")
	require.Len(t, d1, 2)
	assert.Equal(t, "c", d1[0].CardID)
	assert.Equal(t, "a", d1[1].CardID)
	assert.Len(t, l.Events(domain.AllDecks), 3)
}

func TestDaysRoundTripAndRepair(t *testing.T) {
	l := newLedger()
	l.Record("d1", "c1", 5, t0, domain.KindNew, domain.ModeEnToZh)

	data, err := json.Marshal(l.Days())
	require.NoError(t, err)

	var days Days
	require.NoError(t, json.Unmarshal(data, &days))
	restored := New(days, WithLocation(time.UTC))
	assert.Equal(t, 1, restored.NewGradedToday("d1", t0))
	assert.Len(t, restored.Events("d1"), 1)

	// An entry written without events or byDeck is repaired on the next record.
	var sparse Days
	require.NoError(t, json.Unmarshal([]byte(`{"2025-06-15":{"total":4,"correct":1,"new":0}}`), &sparse))
	l2 := New(sparse, WithLocation(time.UTC))
	l2.Record("d1", "c1", 5, t0, domain.KindNew, domain.ModeEnToZh)
	assert.Equal(t, Counters{Total: 5, Correct: 2, New: 1}, l2.Counters("2025-06-15", domain.AllDecks))
	assert.Equal(t, 1, l2.Days()["2025-06-15"].Events.Len())
}

func TestReloadHonoursConfiguredCapacity(t *testing.T) {
	const stored = DefaultCapacity + 500
	l := newLedger(WithCapacity(stored + 100))
	for i := 0; i < stored; i++ {
		l.Record("d1", "c1", 5, t0.Add(time.Duration(i)*time.Millisecond), domain.KindReview, domain.ModeEnToZh)
	}
	data, err := json.Marshal(l.Days())
	require.NoError(t, err)

	var big Days
	require.NoError(t, json.Unmarshal(data, &big))
	reloaded := New(big, WithLocation(time.UTC), WithCapacity(stored+100))
	events := reloaded.Events("d1")
	assert.Len(t, events, stored, "a larger capacity survives a reload")

	var small Days
	require.NoError(t, json.Unmarshal(data, &small))
	trimmed := New(small, WithLocation(time.UTC))
	events = trimmed.Events("d1")
	require.Len(t, events, DefaultCapacity)
	assert.True(t, events[len(events)-1].Time.Equal(t0.Add(time.Duration(stored-1)*time.Millisecond)), "newest events are kept")
	assert.Equal(t, stored, trimmed.Counters(trimmed.DayKey(t0), "d1").Total, "counters are not rolled back")
}
