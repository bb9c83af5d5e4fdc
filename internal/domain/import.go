package domain

// ImportRecord is one parsed line of an import file.
type ImportRecord struct {
	Front       string `json:"front" validate:"required"`
	Back        string `json:"back" validate:"required"`
	Example     string `json:"example,omitempty"`
	Pos         string `json:"pos,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Syn         string `json:"syn,omitempty"`
	Collocation string `json:"collocation,omitempty"`
}

// DupPolicy decides what an import does with a front that already exists
// in the target deck.
type DupPolicy string

const (
	DupSkip      DupPolicy = "skip"
	DupOverwrite DupPolicy = "overwrite"
)

// ParseDupPolicy maps anything other than "overwrite" to DupSkip.
func ParseDupPolicy(s string) DupPolicy {
	if DupPolicy(s) == DupOverwrite {
		return DupOverwrite
	}
	return DupSkip
}
