// File: controllers/meet_controller.go
package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"go-meet-control/models"
	"go-meet-control/services"
	"go-meet-control/websocket"
)

// MeetController drives the live meet from the operator console. Every
// command answers with the full control view.
type MeetController struct {
	Meet services.MeetServiceInterface
}

func NewMeetController(meet services.MeetServiceInterface) *MeetController {
	return &MeetController{Meet: meet}
}

type selectRequest struct {
	AthleteID string `json:"athleteId"`
}

type resultRequest struct {
	Outcome models.Outcome `json:"outcome"`
}

type weightRequest struct {
	Weight  float64        `json:"weight"`
	Outcome models.Outcome `json:"outcome"`
}

type disciplineRequest struct {
	Discipline models.Discipline `json:"discipline"`
}

func (mc *MeetController) Control(c *gin.Context) {
	view, err := mc.Meet.Control(c.Request.Context(), c.Param("id"))
	mc.respond(c, "Control", view, err)
}

func (mc *MeetController) Select(c *gin.Context) {
	var req selectRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := mc.Meet.Select(c.Request.Context(), c.Param("id"), req.AthleteID)
	mc.respond(c, "SelectAthlete", view, err)
}

func (mc *MeetController) RecordResult(c *gin.Context) {
	var req resultRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := mc.Meet.RecordResult(c.Request.Context(), c.Param("id"), req.Outcome)
	mc.respond(c, "RecordResult", view, err)
}

// SubmitWeight commits the staged attempt with the declared weight. The
// outcome is optional; omitted means the attempt is judged later.
func (mc *MeetController) SubmitWeight(c *gin.Context) {
	var req weightRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := mc.Meet.SubmitWeight(c.Request.Context(), c.Param("id"), req.Weight, req.Outcome)
	mc.respond(c, "SubmitWeight", view, err)
}

func (mc *MeetController) CancelPending(c *gin.Context) {
	view, err := mc.Meet.CancelPending(c.Request.Context(), c.Param("id"))
	mc.respond(c, "CancelPending", view, err)
}

func (mc *MeetController) SetDiscipline(c *gin.Context) {
	var req disciplineRequest
	if !bindJSON(c, &req) {
		return
	}
	view, err := mc.Meet.SetDiscipline(c.Request.Context(), c.Param("id"), req.Discipline)
	mc.respond(c, "SetDiscipline", view, err)
}

// Timer handles /timer/:action where action is start, pause or reset.
func (mc *MeetController) Timer(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	var (
		snap websocket.TimerSnapshot
		err  error
	)
	switch action := c.Param("action"); action {
	case "start":
		snap, err = mc.Meet.StartTimer(ctx, id)
	case "pause":
		snap, err = mc.Meet.PauseTimer(ctx, id)
	case "reset":
		snap, err = mc.Meet.ResetTimer(ctx, id)
	default:
		respondWithError(c, http.StatusBadRequest, "unknown timer action: "+action)
		return
	}
	if err != nil {
		respondWithServiceError(c, "Timer", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (mc *MeetController) respond(c *gin.Context, handler string, view *services.ControlView, err error) {
	if err != nil {
		respondWithServiceError(c, handler, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
