// File: controllers/results_controller.go
package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-meet-control/logger"
	"go-meet-control/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ResultsController serves the public read side: scoreboard, live state,
// standings and the board QR code.
type ResultsController struct {
	Results        services.ResultsServiceInterface
	ApplicationURL string
	Encoder        services.QREncoder
}

func NewResultsController(results services.ResultsServiceInterface, applicationURL string) *ResultsController {
	return &ResultsController{Results: results, ApplicationURL: applicationURL}
}

func (rc *ResultsController) Board(c *gin.Context) {
	board, err := rc.Results.Board(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, "Board", err)
		return
	}
	c.JSON(http.StatusOK, board)
}

// Live returns the persisted live snapshot, the same payload observers get
// over the websocket.
func (rc *ResultsController) Live(c *gin.Context) {
	snap, err := rc.Results.Live(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, "Live", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (rc *ResultsController) Standings(c *gin.Context) {
	standings, err := rc.Results.Standings(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, "Standings", err)
		return
	}
	c.JSON(http.StatusOK, standings)
}

func (rc *ResultsController) ExportStandings(c *gin.Context) {
	id := c.Param("id")
	data, err := rc.Results.ExportStandings(c.Request.Context(), id)
	if err != nil {
		respondWithServiceError(c, "ExportStandings", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="standings-%s.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// QRCode renders a PNG pointing spectators at the competition's board.
func (rc *ResultsController) QRCode(c *gin.Context) {
	size := 256
	if raw := c.Query("size"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 || v > 2048 {
			respondWithError(c, http.StatusBadRequest, "size must be between 1 and 2048")
			return
		}
		size = v
	}
	png, err := services.GenerateQRCode(services.BoardURL(rc.ApplicationURL, c.Param("id")), size, rc.Encoder)
	if err != nil {
		logger.Error.Printf("[QRCode] Failed to generate QR code: %v", err)
		respondWithError(c, http.StatusInternalServerError, "failed to generate QR code")
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
