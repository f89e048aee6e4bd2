package entity

import "time"

const (
	SubscriptionStatusActive = "active"
	SubscriptionStatusPaused = "paused"
)

type Subscription struct {
	ID       string
	Username string
	Email    string

	Title            string
	SourceKey        string
	CurrentEpisodes  int
	NotifiedEpisodes int

	Status      string
	LastChecked time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
