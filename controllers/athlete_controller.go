// File: controllers/athlete_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-meet-control/services"
)

// AthleteController exposes athletes and weight categories.
type AthleteController struct {
	Athletes services.AthleteServiceInterface
}

func NewAthleteController(athletes services.AthleteServiceInterface) *AthleteController {
	return &AthleteController{Athletes: athletes}
}

func (ac *AthleteController) List(c *gin.Context) {
	athletes, err := ac.Athletes.List(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, "ListAthletes", err)
		return
	}
	c.JSON(http.StatusOK, athletes)
}

func (ac *AthleteController) Get(c *gin.Context) {
	athlete, err := ac.Athletes.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, "GetAthlete", err)
		return
	}
	c.JSON(http.StatusOK, athlete)
}

func (ac *AthleteController) Create(c *gin.Context) {
	var in services.AthleteInput
	if !bindJSON(c, &in) {
		return
	}
	athlete, err := ac.Athletes.Create(c.Request.Context(), in)
	if err != nil {
		respondWithServiceError(c, "CreateAthlete", err)
		return
	}
	c.JSON(http.StatusCreated, athlete)
}

// Update replaces the athlete's fields. A changed squat opener re-ranks the
// lots of every upcoming competition the athlete is registered in.
func (ac *AthleteController) Update(c *gin.Context) {
	var in services.AthleteInput
	if !bindJSON(c, &in) {
		return
	}
	athlete, err := ac.Athletes.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondWithServiceError(c, "UpdateAthlete", err)
		return
	}
	c.JSON(http.StatusOK, athlete)
}

func (ac *AthleteController) Delete(c *gin.Context) {
	if err := ac.Athletes.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondWithServiceError(c, "DeleteAthlete", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (ac *AthleteController) ListCategories(c *gin.Context) {
	categories, err := ac.Athletes.ListCategories(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, "ListCategories", err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

func (ac *AthleteController) CreateCategory(c *gin.Context) {
	var in services.CategoryInput
	if !bindJSON(c, &in) {
		return
	}
	category, err := ac.Athletes.CreateCategory(c.Request.Context(), in)
	if err != nil {
		respondWithServiceError(c, "CreateCategory", err)
		return
	}
	c.JSON(http.StatusCreated, category)
}
