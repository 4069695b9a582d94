// File: controllers/registration_controller.go
package controllers

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"go-meet-control/logger"
	"go-meet-control/services"
)

// RosterImporter loads registrations from an uploaded workbook.
type RosterImporter interface {
	ImportRoster(ctx context.Context, competitionID string, r io.Reader) (*services.ImportReport, error)
}

// maxRosterSize caps roster uploads at 10 MiB.
const maxRosterSize = 10 << 20

// RegistrationController registers athletes into competitions and manages lots.
type RegistrationController struct {
	Registrations services.RegistrationServiceInterface
	Results       services.ResultsServiceInterface
	Importer      RosterImporter
}

func NewRegistrationController(registrations services.RegistrationServiceInterface, results services.ResultsServiceInterface, importer RosterImporter) *RegistrationController {
	return &RegistrationController{Registrations: registrations, Results: results, Importer: importer}
}

// List returns the competition's registrations in lot order.
func (rc *RegistrationController) List(c *gin.Context) {
	regs, err := rc.Results.Registrations(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondWithServiceError(c, "ListRegistrations", err)
		return
	}
	c.JSON(http.StatusOK, regs)
}

func (rc *RegistrationController) Register(c *gin.Context) {
	var in services.RegistrationInput
	if !bindJSON(c, &in) {
		return
	}
	reg, err := rc.Registrations.Register(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondWithServiceError(c, "Register", err)
		return
	}
	c.JSON(http.StatusCreated, reg)
}

func (rc *RegistrationController) Delete(c *gin.Context) {
	if err := rc.Registrations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondWithServiceError(c, "DeleteRegistration", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PreviewLot reports the lot a new registrant with the given squat opener
// would receive. An empty opener sorts last.
func (rc *RegistrationController) PreviewLot(c *gin.Context) {
	var opener *float64
	if raw := c.Query("opener"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			respondWithError(c, http.StatusBadRequest, "opener must be a positive number")
			return
		}
		opener = &v
	}
	lot, err := rc.Registrations.AssignLot(c.Request.Context(), c.Param("id"), opener)
	if err != nil {
		respondWithServiceError(c, "PreviewLot", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"lotNumber": lot})
}

func (rc *RegistrationController) RecalculateLots(c *gin.Context) {
	id := c.Param("id")
	if err := rc.Registrations.RecalculateAllLots(c.Request.Context(), id); err != nil {
		respondWithServiceError(c, "RecalculateLots", err)
		return
	}
	rc.List(c)
}

// ImportRoster accepts a multipart "file" field holding an .xlsx roster.
func (rc *RegistrationController) ImportRoster(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRosterSize)
	header, err := c.FormFile("file")
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "file is required")
		return
	}
	file, err := header.Open()
	if err != nil {
		respondWithError(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	defer file.Close()

	id := c.Param("id")
	report, err := rc.Importer.ImportRoster(c.Request.Context(), id, file)
	if err != nil {
		respondWithServiceError(c, "ImportRoster", err)
		return
	}
	logger.Info.Printf("[ImportRoster] competition=%s file=%s created=%d skipped=%d errors=%d",
		id, header.Filename, report.Created, report.Skipped, len(report.Errors))
	c.JSON(http.StatusOK, report)
}
