// File: controllers/ledger_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-meet-control/models"
	"go-meet-control/services"
)

// LedgerController writes attempts directly, outside the control panel.
// Recorded attempts go through the meet service so a running meet advances;
// a resolved outcome drops the cached control session.
type LedgerController struct {
	Ledger services.LedgerServiceInterface
	Meet   services.MeetServiceInterface
}

func NewLedgerController(ledger services.LedgerServiceInterface, meet services.MeetServiceInterface) *LedgerController {
	return &LedgerController{Ledger: ledger, Meet: meet}
}

// List returns the competition's attempts, optionally narrowed to one
// athlete and discipline.
func (lc *LedgerController) List(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	athleteID, discipline := c.Query("athleteId"), c.Query("discipline")

	var (
		attempts []models.Attempt
		err      error
	)
	if athleteID != "" && discipline != "" {
		attempts, err = lc.Ledger.AttemptsFor(ctx, id, athleteID, models.Discipline(discipline))
	} else {
		attempts, err = lc.Ledger.Attempts(ctx, id)
	}
	if err != nil {
		respondWithServiceError(c, "ListAttempts", err)
		return
	}
	c.JSON(http.StatusOK, attempts)
}

func (lc *LedgerController) Record(c *gin.Context) {
	var in services.AttemptInput
	if !bindJSON(c, &in) {
		return
	}
	in.CompetitionID = c.Param("id")
	attempt, err := lc.Meet.RecordAttempt(c.Request.Context(), in)
	if err != nil {
		respondWithServiceError(c, "RecordAttempt", err)
		return
	}
	c.JSON(http.StatusCreated, attempt)
}

type outcomeRequest struct {
	Outcome models.Outcome `json:"outcome"`
}

// ResolveOutcome judges a pending attempt once.
func (lc *LedgerController) ResolveOutcome(c *gin.Context) {
	var req outcomeRequest
	if !bindJSON(c, &req) {
		return
	}
	attempt, err := lc.Ledger.ResolveOutcome(c.Request.Context(), c.Param("id"), req.Outcome)
	if err != nil {
		respondWithServiceError(c, "ResolveOutcome", err)
		return
	}
	lc.Meet.Invalidate(attempt.CompetitionID)
	c.JSON(http.StatusOK, attempt)
}
