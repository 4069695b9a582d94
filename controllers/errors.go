// Package controllers holds the HTTP handlers of the meet control API.
// File: controllers/errors.go
package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-meet-control/logger"
	"go-meet-control/models"
)

func respondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// respondWithServiceError maps service errors onto HTTP statuses. Storage
// failures are reported as retryable.
func respondWithServiceError(c *gin.Context, handler string, err error) {
	switch {
	case errors.Is(err, models.ErrValidation):
		respondWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		respondWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrConflict):
		respondWithError(c, http.StatusConflict, err.Error())
	default:
		logger.Error.Printf("[%s] %v", handler, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable, please retry", "retryable": true})
	}
}

// bindJSON decodes the body into v and answers 400 on failure.
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		respondWithError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
