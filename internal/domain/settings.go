package domain

// ReviewMode selects the prompt direction of a study session.
type ReviewMode string

const (
	// ModeEnToZh shows the front and asks for the meaning.
	ModeEnToZh ReviewMode = "en2zh"
	// ModeZhToEn shows the meaning and asks the user to spell the front.
	ModeZhToEn ReviewMode = "zh2en"
)

// Valid reports whether m is a known review mode.
func (m ReviewMode) Valid() bool {
	return m == ModeEnToZh || m == ModeZhToEn
}

// Default settings values.
const (
	DefaultNewPerDay  = 20
	DefaultReviewMode = ModeEnToZh
)

// Settings are the user's study preferences stored with the document.
type Settings struct {
	NewPerDay   int        `json:"newPerDay" validate:"gte=0"`
	ReviewMode  ReviewMode `json:"reviewMode" validate:"oneof=en2zh zh2en"`
	FilterTopic string     `json:"filterTopic" validate:"max=200"`
	FilterPos   string     `json:"filterPos" validate:"max=200"`
}

// DefaultSettings returns the settings used for a fresh document.
func DefaultSettings() Settings {
	return Settings{
		NewPerDay:  DefaultNewPerDay,
		ReviewMode: DefaultReviewMode,
	}
}
