package handlers

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/walletcore/internal/events"
	"github.com/aristath/walletcore/internal/walleterr"
)

// streamedEvent is the wire shape pushed to a connected client.
type streamedEvent struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Module    string                 `json:"module"`
	Data      map[string]interface{} `json:"data"`
}

var streamedEventTypes = []events.EventType{
	events.SnapshotCreated,
	events.HoldingRecomputed,
	events.AccountBalanceChanged,
	events.HealthFlagChanged,
}

// HandleEventStream handles GET /wallet/events/stream: a live push feed of
// snapshot, holding-recompute, balance-change, and health-flag events over
// a websocket connection, scoped to the authenticated caller's session
// One bus subscription per event type is
// registered and torn down when the connection drops.
func (h *Handlers) HandleEventStream(w http.ResponseWriter, r *http.Request) {
	if _, ok := userIDFromContext(r); !ok {
		writeError(w, walleterr.Auth("authentication required"))
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("event stream upgrade failed")
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	out := make(chan streamedEvent, 32)

	var subs []events.Subscription
	for _, t := range streamedEventTypes {
		subs = append(subs, h.bus.Subscribe(t, func(e *events.Event) {
			select {
			case out <- streamedEvent{Type: string(e.Type), Timestamp: e.Timestamp, Module: e.Module, Data: e.Data}:
			default:
				h.log.Warn().Str("event_type", string(e.Type)).Msg("event stream client too slow, dropping event")
			}
		}))
	}
	defer func() {
		for _, s := range subs {
			h.bus.Unsubscribe(s)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev := <-out:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, ev)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("event stream write failed, closing")
				return
			}
		}
	}
}
