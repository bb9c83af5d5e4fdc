package knol

import "testing"

func TestNormalize(t *testing.T) {
	testCases := []struct {
		in, want string
	}{
		{"  Daily   Life ", "daily life"},
		{"Food\r\nand\tDrink", "food and drink"},
		{"", ""},
		{"   ", ""},
		{"ADJ.", "adj."},
	}
	for _, tc := range testCases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFrontKey(t *testing.T) {
	if got := FrontKey("  Apple Pie "); got != "apple pie" {
		t.Errorf("FrontKey = %q, want %q", got, "apple pie")
	}
	if FrontKey("Apple") != FrontKey("apple ") {
		t.Error("Expected keys to be the same after trimming and lowercasing")
	}
}

func TestHasPrefix(t *testing.T) {
	testCases := []struct {
		name        string
		tag, filter string
		want        bool
	}{
		{"prefix", "adj.", "adj", true},
		{"case and spaces", " ADJ. ", " adj", true},
		{"exact", "n.", "n.", true},
		{"no match", "verb", "adj", false},
		{"empty tag", "", "adj", false},
		{"empty filter", "n.", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HasPrefix(tc.tag, tc.filter); got != tc.want {
				t.Errorf("HasPrefix(%q, %q) = %v, want %v", tc.tag, tc.filter, got, tc.want)
			}
		})
	}
}

func TestMatchAnswer(t *testing.T) {
	if !MatchAnswer("  Ice   Cream", "ice cream") {
		t.Error("Expected normalized answers to match")
	}
	if MatchAnswer("", "") {
		t.Error("Expected an empty answer never to match")
	}
	if MatchAnswer("apples", "apple") {
		t.Error("Expected different words not to match")
	}
}
