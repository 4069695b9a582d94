// File: controllers/auth_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"go-meet-control/logger"
	"go-meet-control/middleware"
)

// AuthController signs the meet operator in and out. There is a single
// operator account configured at startup.
type AuthController struct {
	Username     string
	PasswordHash string
}

func NewAuthController(username, passwordHash string) *AuthController {
	return &AuthController{Username: username, PasswordHash: passwordHash}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// checkPasswordHash verifies a plain-text password against a bcrypt hash.
func checkPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Login checks the credentials and stores the operator in the session.
func (ac *AuthController) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		logger.Warn.Println("[Login] Missing username or password")
		respondWithError(c, http.StatusBadRequest, "username and password are required")
		return
	}

	if ac.Username == "" || req.Username != ac.Username || !checkPasswordHash(req.Password, ac.PasswordHash) {
		logger.Warn.Printf("[Login] Invalid login attempt for user %s", req.Username)
		respondWithError(c, http.StatusUnauthorized, "invalid username or password")
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionOperatorKey, req.Username)
	if err := session.Save(); err != nil {
		logger.Error.Printf("[Login] Failed to save session: %v", err)
		respondWithError(c, http.StatusInternalServerError, "internal error, please try again")
		return
	}

	logger.Info.Printf("[Login] Operator %s signed in", req.Username)
	c.JSON(http.StatusOK, gin.H{"operator": req.Username})
}

// Logout clears the session.
func (ac *AuthController) Logout(c *gin.Context) {
	session := sessions.Default(c)
	if operator, ok := session.Get(middleware.SessionOperatorKey).(string); ok {
		logger.Info.Printf("[Logout] Operator %s signed out", operator)
	}
	session.Clear()
	if err := session.Save(); err != nil {
		logger.Error.Printf("[Logout] Error saving session: %v", err)
	}
	c.Status(http.StatusNoContent)
}

// Me reports the signed-in operator. It runs behind OperatorRequired.
func (ac *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"operator": c.GetString(middleware.SessionOperatorKey)})
}
