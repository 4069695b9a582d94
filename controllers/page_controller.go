// File: controllers/page_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"go-meet-control/logger"
	"go-meet-control/websocket"
)

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers the load balancer check.
func Health(c *gin.Context) {
	logger.Debug.Println("[Health] Health check requested")
	c.String(http.StatusOK, "OK")
}

// Ready reports 503 while the store cannot be reached.
func Ready(store Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			logger.Warn.Printf("[Ready] Store unreachable: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "retryable": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}

// ObserverSocket upgrades /ws?competitionId=... to a read-only observer feed.
func ObserverSocket(c *gin.Context) {
	websocket.ServeWs(c.Writer, c.Request)
}
