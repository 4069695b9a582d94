// File: controllers/competition_controller.go
package controllers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-meet-control/logger"
	"go-meet-control/models"
	"go-meet-control/services"
)

// CompetitionController manages competitions and their lifecycle.
type CompetitionController struct {
	Competitions services.CompetitionServiceInterface
}

func NewCompetitionController(competitions services.CompetitionServiceInterface) *CompetitionController {
	return &CompetitionController{Competitions: competitions}
}

func (cc *CompetitionController) List(c *gin.Context) {
	competitions, err := cc.Competitions.List(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, "ListCompetitions", err)
		return
	}
	c.JSON(http.StatusOK, competitions)
}

func (cc *CompetitionController) Get(c *gin.Context) {
	competition, err := cc.Competitions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, "GetCompetition", err)
		return
	}
	c.JSON(http.StatusOK, competition)
}

// Active returns the in-progress competition, or 404 when none is running.
func (cc *CompetitionController) Active(c *gin.Context) {
	competition, err := cc.Competitions.Active(c.Request.Context())
	if err != nil {
		respondWithServiceError(c, "ActiveCompetition", err)
		return
	}
	c.JSON(http.StatusOK, competition)
}

func (cc *CompetitionController) Create(c *gin.Context) {
	var in services.CompetitionInput
	if !bindJSON(c, &in) {
		return
	}
	competition, err := cc.Competitions.Create(c.Request.Context(), in)
	if err != nil {
		respondWithServiceError(c, "CreateCompetition", err)
		return
	}
	c.JSON(http.StatusCreated, competition)
}

func (cc *CompetitionController) Update(c *gin.Context) {
	var in services.CompetitionInput
	if !bindJSON(c, &in) {
		return
	}
	competition, err := cc.Competitions.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondWithServiceError(c, "UpdateCompetition", err)
		return
	}
	c.JSON(http.StatusOK, competition)
}

func (cc *CompetitionController) Start(c *gin.Context) {
	cc.lifecycle(c, "StartCompetition", cc.Competitions.Start)
}

func (cc *CompetitionController) Finish(c *gin.Context) {
	cc.lifecycle(c, "FinishCompetition", cc.Competitions.Finish)
}

func (cc *CompetitionController) Cancel(c *gin.Context) {
	cc.lifecycle(c, "CancelCompetition", cc.Competitions.Cancel)
}

// Reset wipes registrations, attempts and live state and returns the
// competition to upcoming.
func (cc *CompetitionController) Reset(c *gin.Context) {
	cc.lifecycle(c, "ResetCompetition", cc.Competitions.Reset)
}

func (cc *CompetitionController) lifecycle(c *gin.Context, handler string, op func(context.Context, string) (*models.Competition, error)) {
	id := c.Param("id")
	competition, err := op(c.Request.Context(), id)
	if err != nil {
		respondWithServiceError(c, handler, err)
		return
	}
	logger.Info.Printf("[%s] competition=%s status=%s by operator=%s", handler, id, competition.Status, c.GetString("operator"))
	c.JSON(http.StatusOK, competition)
}
