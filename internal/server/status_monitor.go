// Package server provides the HTTP server and routing for the wallet
// service.
package server

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/wallet/valuate"
)

// HealthSnapshotFunc returns the current Health flags for every wallet,
// keyed by wallet ID. Building a tree per wallet is not cheap; the function
// wired in (Handlers.HealthSnapshot) rebuilds every user's trees on each
// call.
type HealthSnapshotFunc func() (map[uuid.UUID]valuate.Health, error)

// StatusMonitor periodically checks wallet health flags (missing quotes,
// missing prices, needs_review) and emits events.HealthFlagChanged only
// when a wallet's flags actually change.
type StatusMonitor struct {
	bus *events.Bus
	log zerolog.Logger

	getHealth HealthSnapshotFunc
	lastByID  map[uuid.UUID]valuate.Health
}

func NewStatusMonitor(bus *events.Bus, getHealth HealthSnapshotFunc, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		bus:       bus,
		getHealth: getHealth,
		log:       log.With().Str("component", "status_monitor").Logger(),
		lastByID:  map[uuid.UUID]valuate.Health{},
	}
}

// Start begins periodic status monitoring at interval.
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.checkStatuses()

	for range ticker.C {
		m.checkStatuses()
	}
}

func (m *StatusMonitor) checkStatuses() {
	if m.bus == nil || m.getHealth == nil {
		return
	}

	snapshot, err := m.getHealth()
	if err != nil {
		m.log.Warn().Err(err).Msg("unable to get wallet health snapshot")
		return
	}

	for walletID, health := range snapshot {
		if last, ok := m.lastByID[walletID]; ok && healthEqual(last, health) {
			continue
		}

		m.bus.Emit(events.HealthFlagChanged, "status_monitor", map[string]interface{}{
			"wallet_id":           walletID.String(),
			"needs_review":        health.NeedsReview,
			"missing_quotes":      health.MissingQuotes,
			"missing_price":       health.MissingPrice,
			"projection_mismatch": health.ProjectionMismatch,
			"timestamp":           time.Now().Format(time.RFC3339),
		})
		m.lastByID[walletID] = health
	}
}

func healthEqual(a, b valuate.Health) bool {
	return a.NeedsReview == b.NeedsReview &&
		a.MissingQuotes == b.MissingQuotes &&
		a.MissingPrice == b.MissingPrice &&
		a.ProjectionMismatch == b.ProjectionMismatch
}
