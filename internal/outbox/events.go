package outbox

import "time"

// ActivityRecorded is emitted when a new ledger entry is committed.
type ActivityRecorded struct {
	ActivityID  string    `json:"activity_id"`
	UserID      string    `json:"user_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CarbonKg    float64   `json:"carbon_kg"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

// ActivityAnchored is emitted when anchor proof is attached to an entry.
type ActivityAnchored struct {
	ActivityID string    `json:"activity_id"`
	UserID     string    `json:"user_id"`
	TxID       string    `json:"tx_id"`
	Hash       string    `json:"hash"`
	OccurredAt time.Time `json:"occurred_at"`
}
