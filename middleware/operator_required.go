// Package middleware provides request filters and security checks for the application.
// file: middleware/operator_required.go
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"go-meet-control/logger"
)

// SessionOperatorKey holds the logged-in operator's username.
const SessionOperatorKey = "operator"

// OperatorRequired blocks requests without an operator session.
func OperatorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		operator, ok := session.Get(SessionOperatorKey).(string)

		if !ok || operator == "" {
			logger.Warn.Printf("[OperatorRequired] Unauthorized %s %s blocked", c.Request.Method, c.Request.URL.Path)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(SessionOperatorKey, operator)
		c.Next()
	}
}
