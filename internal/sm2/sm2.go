// Package sm2 implements the SM-2 style review update used to schedule cards.
package sm2

import (
	"math"
	"time"

	"github.com/conorfennell/lexicard/internal/domain"
)

const (
	DefaultEase = 2.5
	MinEase     = 1.3

	// Day is the length of one interval unit.
	Day = 24 * time.Hour
)

// Grade is the user's recall quality, 0 (blackout) to 5 (perfect).
type Grade int

const (
	MinGrade Grade = 0
	MaxGrade Grade = 5
	// PassGrade is the lowest grade that counts as a correct answer.
	PassGrade Grade = 3
)

// The three grades offered by the review buttons.
const (
	Forgot     Grade = 0
	Fuzzy      Grade = 3
	Remembered Grade = 5
)

// Clamp converts any integer into a valid grade.
func Clamp(g int) Grade {
	switch {
	case g < int(MinGrade):
		return MinGrade
	case g > int(MaxGrade):
		return MaxGrade
	default:
		return Grade(g)
	}
}

// Correct reports whether g is a passing grade.
func (g Grade) Correct() bool {
	return g >= PassGrade
}

// Result describes a single applied review.
type Result struct {
	// Before is the card's kind prior to this review.
	Before  domain.Kind
	Grade   Grade
	Correct bool
}

// NextEase applies the SM-2 ease delta and the MinEase floor.
func NextEase(ef float64, g Grade) float64 {
	q := float64(MaxGrade - g)
	ef += 0.1 - q*(0.08+q*0.02)
	return math.Max(MinEase, ef)
}

// NextInterval returns the interval in days after a successful review that
// brought the repetition count to reps.
func NextInterval(reps, intervalDays int, ef float64) int {
	switch reps {
	case 1:
		return 1
	case 2:
		return 6
	default:
		return max(1, int(math.Round(float64(intervalDays)*ef)))
	}
}

// Review grades the card at time at and updates its scheduling fields in
// place. Out-of-range grades are clamped.
func Review(c *domain.Card, grade int, at time.Time) Result {
	g := Clamp(grade)
	st := c.Status()

	ef := st.EF
	if ef <= 0 {
		ef = DefaultEase
	}
	ef = NextEase(ef, g)

	reps, interval := st.Reps, st.IntervalDays
	if g.Correct() {
		reps++
		interval = NextInterval(reps, interval, ef)
	} else {
		reps = 0
		interval = 1
	}

	reviewed := at
	c.EF = ef
	c.Reps = reps
	c.IntervalDays = interval
	c.LastReviewedAt = &reviewed
	c.DueAt = at.Add(time.Duration(interval) * Day)
	c.UpdatedAt = at

	return Result{Before: st.Kind, Grade: g, Correct: g.Correct()}
}
