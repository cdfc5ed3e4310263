package server

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/wallet/valuate"
)

func TestStatusMonitorEmitsOnlyOnChange(t *testing.T) {
	log := zerolog.Nop()
	bus := events.NewBus(log)
	walletID := uuid.New()

	health := valuate.Health{NeedsReview: false, MissingQuotes: 0}
	monitor := NewStatusMonitor(bus, func() (map[uuid.UUID]valuate.Health, error) {
		return map[uuid.UUID]valuate.Health{walletID: health}, nil
	}, log)

	eventsChan := make(chan events.Event, 5)
	bus.Subscribe(events.HealthFlagChanged, func(event *events.Event) {
		eventsChan <- *event
	})

	monitor.checkStatuses()

	select {
	case <-eventsChan:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected first health changed event")
	}

	// Same snapshot should not emit again.
	monitor.checkStatuses()

	select {
	case evt := <-eventsChan:
		t.Fatalf("unexpected extra event: %+v", evt)
	case <-time.After(100 * time.Millisecond):
	}

	// Change the snapshot to trigger a new event.
	health = valuate.Health{NeedsReview: true, MissingQuotes: 2}

	monitor.checkStatuses()

	select {
	case evt := <-eventsChan:
		assert.Equal(t, true, evt.Data["needs_review"])
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected health changed event after flags changed")
	}

	assert.Equal(t, health, monitor.lastByID[walletID])
}
