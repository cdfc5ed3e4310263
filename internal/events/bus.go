package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventHandler receives a published event. Handlers run off the
// emitter's goroutine and must do their own locking.
type EventHandler func(*Event)

// Subscription identifies a registered handler so it can be removed
// when its consumer goes away (e.g. a websocket client disconnects).
type Subscription struct {
	eventType EventType
	id        uint64
}

type subscriber struct {
	id      uint64
	handler EventHandler
}

// Bus is the process-wide notification channel between the valuation
// core and its observers (status monitor, websocket stream). Emitting
// never blocks the caller: snapshot commits and balance updates must
// not wait on a slow consumer.
type Bus struct {
	mu     sync.RWMutex
	subs   map[EventType][]subscriber
	lastID uint64
	log    zerolog.Logger
}

func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subs: make(map[EventType][]subscriber),
		log:  log.With().Str("service", "events").Logger(),
	}
}

// Subscribe registers handler for eventType and returns a Subscription
// for later removal. Handlers for one event are invoked in subscription
// order.
func (b *Bus) Subscribe(eventType EventType, handler EventHandler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastID++
	b.subs[eventType] = append(b.subs[eventType], subscriber{id: b.lastID, handler: handler})
	return Subscription{eventType: eventType, id: b.lastID}
}

// Unsubscribe removes the handler behind sub. Safe to call more than
// once; an already-removed subscription is a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := b.subs[sub.eventType]
	for i, s := range list {
		if s.id == sub.id {
			b.subs[sub.eventType] = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(b.subs[sub.eventType]) == 0 {
		delete(b.subs, sub.eventType)
	}
}

// Emit publishes an event to every current subscriber of eventType.
// Delivery happens on a single dispatch goroutine per emit, preserving
// subscription order; the emitter returns immediately.
func (b *Bus) Emit(eventType EventType, module string, data map[string]interface{}) {
	e := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Module:    module,
		Data:      data,
	}

	b.mu.RLock()
	targets := make([]subscriber, len(b.subs[eventType]))
	copy(targets, b.subs[eventType])
	b.mu.RUnlock()

	if len(targets) > 0 {
		go func() {
			for _, s := range targets {
				s.handler(e)
			}
		}()
	}

	b.log.Debug().
		Str("event_type", string(eventType)).
		Str("module", module).
		Int("subscribers", len(targets)).
		Msg("Event emitted")
}
