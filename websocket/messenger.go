// Package websocket Description: This file contains the implementation of the
// realMessenger struct, which is used to send messages to observers.
// file: websocket/messenger.go
package websocket

import (
	"encoding/json"

	"go-meet-control/logger"
)

var defaultMessenger Messenger = &realMessenger{}

// Messenger is an interface for broadcasting messages to one competition.
type Messenger interface {
	BroadcastMessage(competitionID string, msg map[string]interface{})
	BroadcastTimeUpdate(competitionID string, timeLeft int, running bool)
	BroadcastRaw(competitionID string, msg []byte)
}

// DefaultMessenger returns the messenger backed by the broadcast channel.
func DefaultMessenger() Messenger {
	return defaultMessenger
}

type realMessenger struct{}

// --------------- Methods on realMessenger -----------------

// BroadcastMessage tags the message with its competition, marshals it and
// queues it for that competition's observers.
func (r *realMessenger) BroadcastMessage(competitionID string, msg map[string]interface{}) {
	tagged := make(map[string]interface{}, len(msg)+1)
	for k, v := range msg {
		tagged[k] = v
	}
	tagged["competitionId"] = competitionID
	m, err := json.Marshal(tagged)
	if err != nil {
		logger.Error.Printf("[BroadcastMessage] Error marshalling message competition=%s: %v", competitionID, err)
		return
	}
	broadcast <- outbound{competitionID: competitionID, payload: m}
	logger.Debug.Printf("[BroadcastMessage] action=%v sent to competition=%s", msg["action"], competitionID)
}

// BroadcastTimeUpdate sends a timerUpdate message.
func (r *realMessenger) BroadcastTimeUpdate(competitionID string, timeLeft int, running bool) {
	m, err := json.Marshal(map[string]interface{}{
		"action":        "timerUpdate",
		"competitionId": competitionID,
		"timeLeft":      timeLeft,
		"running":       running,
	})
	if err != nil {
		logger.Error.Printf("[BroadcastTimeUpdate] Error marshalling time update: %v", err)
		return
	}
	broadcast <- outbound{competitionID: competitionID, payload: m}
}

// BroadcastRaw sends a raw JSON message.
func (r *realMessenger) BroadcastRaw(competitionID string, msg []byte) {
	broadcast <- outbound{competitionID: competitionID, payload: msg}
	logger.Debug.Printf("[BroadcastRaw] sent to competition=%s: %s", competitionID, string(msg))
}
