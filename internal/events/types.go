package events

import "time"

// EventType identifies the kind of domain event flowing through the bus.
type EventType string

const (
	// SnapshotCreated fires once a monthly snapshot finishes committing.
	SnapshotCreated EventType = "snapshot.created"
	// HoldingRecomputed fires after a holding position is replayed from its event stream.
	HoldingRecomputed EventType = "holding.recomputed"
	// AccountBalanceChanged fires after a deposit account's available balance changes.
	AccountBalanceChanged EventType = "account.balance_changed"
	// HealthFlagChanged fires when a wallet's aggregate health flags change (needs_review, missing quotes, missing prices, projection mismatch) or when the integrity check reports findings.
	HealthFlagChanged EventType = "wallet.health_changed"
)

// Event is a single published occurrence on the bus.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Module    string
	Data      map[string]interface{}
}
