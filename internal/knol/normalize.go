// Package knol holds the text normalization rules shared by filtering,
// duplicate detection, tag analytics and spelling checks.
package knol

import "strings"

// Normalize trims, lowercases and collapses every run of whitespace
// (including line breaks) into a single space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// FrontKey is the duplicate-detection key of a card front within a deck.
// Inner whitespace is kept as is.
func FrontKey(front string) string {
	return strings.ToLower(strings.TrimSpace(front))
}

// HasPrefix reports whether the normalized tag starts with the normalized
// filter, so that "adj" matches "adj.". An empty tag never matches.
func HasPrefix(tag, filter string) bool {
	t := Normalize(tag)
	if t == "" {
		return false
	}
	return strings.HasPrefix(t, Normalize(filter))
}

// MatchAnswer compares a typed answer with the expected text.
func MatchAnswer(input, want string) bool {
	in := Normalize(input)
	return in != "" && in == Normalize(want)
}
