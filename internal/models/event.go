package models

import "time"

// RewardEvent is one unit of qualifying behavior reported by an
// external producer (ride finished, delivery finished, streak day
// advanced, referral qualified). The engine does not persist the event
// itself, only its id inside the deduplication window.
type RewardEvent struct {
	// EventID is the producer-supplied idempotency key. At-least-once
	// delivery of the same event must not double-count progress.
	EventID   string    `json:"eventId"`
	UserID    string    `json:"userId"`
	Source    TaskType  `json:"source"`
	Quantity  int       `json:"quantity"`
	Timestamp time.Time `json:"timestamp"`
}

// IngestResult reports what an ingested event changed.
type IngestResult struct {
	Duplicate bool        `json:"duplicate"`
	Updated   []*Progress `json:"updated"`
}
