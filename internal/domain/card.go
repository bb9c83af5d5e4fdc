package domain

import "time"

// Kind tells whether a card was graded before. It is derived from
// LastReviewedAt and is also recorded on every review event.
type Kind string

const (
	KindNew    Kind = "new"
	KindReview Kind = "review"
)

// Card is a single vocabulary entry together with its scheduling state.
type Card struct {
	ID          string `json:"id"`
	DeckID      string `json:"deckId"`
	Front       string `json:"front"`
	Back        string `json:"back"`
	Example     string `json:"example"`
	Pos         string `json:"pos"`
	Topic       string `json:"topic"`
	Syn         string `json:"syn"`
	Collocation string `json:"collocation"`

	EF             float64    `json:"ef"`
	Reps           int        `json:"reps"`
	IntervalDays   int        `json:"intervalDays"`
	LastReviewedAt *time.Time `json:"lastReviewedAt"` // nil until the first grading
	DueAt          time.Time  `json:"dueAt"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Kind reports KindNew for a card that has never been graded.
func (c *Card) Kind() Kind {
	if c.LastReviewedAt == nil {
		return KindNew
	}
	return KindReview
}

// IsNew is shorthand for c.Kind() == KindNew.
func (c *Card) IsNew() bool {
	return c.LastReviewedAt == nil
}

// Status is the scheduling view of a card, resolved once from the stored
// fields. For a new card only Kind and EF are meaningful.
type Status struct {
	Kind         Kind
	EF           float64
	Reps         int
	IntervalDays int
	DueAt        time.Time
}

// Status resolves the card's scheduling state.
func (c *Card) Status() Status {
	if c.IsNew() {
		return Status{Kind: KindNew, EF: c.EF}
	}
	return Status{
		Kind:         KindReview,
		EF:           c.EF,
		Reps:         c.Reps,
		IntervalDays: c.IntervalDays,
		DueAt:        c.DueAt,
	}
}

// TagField names a card tag that can be filtered on or ranked by.
type TagField string

const (
	TagTopic TagField = "topic"
	TagPos   TagField = "pos"
)

// Valid reports whether f is one of the known tag fields.
func (f TagField) Valid() bool {
	return f == TagTopic || f == TagPos
}

// Tag returns the raw value of the given tag field.
func (c *Card) Tag(f TagField) string {
	switch f {
	case TagTopic:
		return c.Topic
	case TagPos:
		return c.Pos
	default:
		return ""
	}
}
