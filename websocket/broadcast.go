// Package websocket pushes live meet state to read-only observers.
// file: websocket/broadcast.go
package websocket

import (
	"context"
	"encoding/json"
	"time"

	"go-meet-control/logger"
	"go-meet-control/metrics"
)

// HandleMessages listens for messages on the broadcast channel and distributes them to connections.
func HandleMessages() {
	for msg := range broadcast {
		deliver(msg)
	}
}

// deliver hands msg to every matching connection without blocking on slow
// clients; their copy is dropped and the next resync catches them up.
func deliver(msg outbound) {
	connMu.RLock()
	defer connMu.RUnlock()
	for c := range connections {
		if msg.competitionID != "" && c.competitionID != msg.competitionID {
			continue
		}
		select {
		case c.send <- msg.payload:
		default:
			metrics.BroadcastsDropped.Inc()
			logger.Warn.Printf("[deliver] Dropping message for connection %v competition=%s", c.conn.RemoteAddr(), c.competitionID)
		}
	}
}

// SendToCompetition queues a raw JSON payload for one competition's observers.
func SendToCompetition(competitionID string, payload []byte) {
	broadcast <- outbound{competitionID: competitionID, payload: payload}
}

// subscribedCompetitions lists the competitions with at least one observer.
func subscribedCompetitions() []string {
	connMu.RLock()
	defer connMu.RUnlock()
	seen := make(map[string]bool)
	var ids []string
	for c := range connections {
		if !seen[c.competitionID] {
			seen[c.competitionID] = true
			ids = append(ids, c.competitionID)
		}
	}
	return ids
}

// StartResync pushes the persisted snapshot of every subscribed competition
// on each interval until ctx is done, bounding observer staleness for
// clients that missed a push.
func StartResync(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Info.Println("[StartResync] Stopping resync loop")
				return
			case <-ticker.C:
				for _, id := range subscribedCompetitions() {
					resync(ctx, id)
				}
			}
		}
	}()
}

func resync(ctx context.Context, competitionID string) {
	msg, err := snapshotMessage(ctx, competitionID)
	if err != nil {
		logger.Debug.Printf("[resync] No snapshot for competition=%s: %v", competitionID, err)
		return
	}
	deliver(outbound{competitionID: competitionID, payload: msg})
}

// snapshotMessage builds the stateUpdate payload from the persisted state.
func snapshotMessage(ctx context.Context, competitionID string) ([]byte, error) {
	snap, err := defaultStateProvider.Snapshot(ctx, competitionID)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{
		"action":        "stateUpdate",
		"competitionId": competitionID,
		"state":         snap,
	})
}
