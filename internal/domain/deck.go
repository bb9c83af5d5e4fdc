package domain

import "time"

// Deck groups cards. Cards reference their deck by ID.
type Deck struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AllDecks is the pseudo deck ID that addresses the global ledger counters.
const AllDecks = "__all__"
