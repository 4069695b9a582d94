//go:build unit
// +build unit

package controllers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-meet-control/middleware"
	"go-meet-control/models"
	"go-meet-control/services"
)

func meetRouter(t *testing.T, app *testApp) *gin.Engine {
	router := setupTestRouter(t)
	cc := NewCompetitionController(app.competitions)
	mc := NewMeetController(app.meet)
	protected := router.Group("/api", middleware.OperatorRequired())
	protected.POST("/competitions/:id/start", cc.Start)
	protected.POST("/competitions/:id/finish", cc.Finish)
	control := protected.Group("/competitions/:id/control")
	control.GET("", mc.Control)
	control.POST("/select", mc.Select)
	control.POST("/result", mc.RecordResult)
	control.POST("/weight", mc.SubmitWeight)
	control.POST("/cancel", mc.CancelPending)
	control.POST("/discipline", mc.SetDiscipline)
	control.POST("/timer/:action", mc.Timer)
	return router
}

func TestControl_RequiresOperator(t *testing.T) {
	app := newTestApp(t)
	comp, _ := app.competition(t, map[string]float64{"Ana": 100})
	router := meetRouter(t, app)

	w := doJSON(router, "GET", "/api/competitions/"+comp.ID+"/control", nil, nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestControl_NotInProgressIsConflict(t *testing.T) {
	app := newTestApp(t)
	comp, _ := app.competition(t, map[string]float64{"Ana": 100})
	router := meetRouter(t, app)

	w := doJSON(router, "GET", "/api/competitions/"+comp.ID+"/control", nil, operatorCookie(router))

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestControl_FullRound(t *testing.T) {
	app := newTestApp(t)
	comp, lifters := app.competition(t, map[string]float64{"Ana": 100, "Ben": 80})
	router := meetRouter(t, app)
	cookie := operatorCookie(router)
	base := "/api/competitions/" + comp.ID

	w := doJSON(router, "POST", base+"/start", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var view services.ControlView
	w = doJSON(router, "GET", base+"/control", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.Equal(t, []string{lifters["Ben"].ID, lifters["Ana"].ID}, view.Rotation, "lot order")

	w = doJSON(router, "POST", base+"/control/result", gin.H{"outcome": "valid"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code, "no athlete selected")

	w = doJSON(router, "POST", base+"/control/select", gin.H{"athleteId": lifters["Ben"].ID}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(router, "POST", base+"/control/result", gin.H{"outcome": "valid"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.Equal(t, lifters["Ana"].ID, view.Active)

	w = doJSON(router, "POST", base+"/control/result", gin.H{"outcome": "invalid"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	attempts, err := app.ledger.Attempts(context.Background(), comp.ID)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	assert.Equal(t, 80.0, attempts[0].Weight)
	assert.Equal(t, models.OutcomeInvalid, attempts[1].Outcome)
}

func TestControl_SubmitWeightValidation(t *testing.T) {
	app := newTestApp(t)
	comp, lifters := app.competition(t, map[string]float64{"Ana": 100})
	router := meetRouter(t, app)
	cookie := operatorCookie(router)
	base := "/api/competitions/" + comp.ID
	require.Equal(t, http.StatusOK, doJSON(router, "POST", base+"/start", nil, cookie).Code)

	w := doJSON(router, "POST", base+"/control/weight", gin.H{"weight": 105}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code, "nothing is staged yet")

	doJSON(router, "POST", base+"/control/select", gin.H{"athleteId": lifters["Ana"].ID}, cookie)
	doJSON(router, "POST", base+"/control/result", gin.H{"outcome": "valid"}, cookie)

	var view services.ControlView
	w = doJSON(router, "GET", base+"/control", nil, cookie)
	decode(t, w, &view)
	require.NotNil(t, view.Pending, "a lone lifter goes straight to their next attempt")
	assert.Equal(t, 2, view.NextAttemptNumber)

	w = doJSON(router, "POST", base+"/control/weight", gin.H{"weight": 90}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "POST", base+"/control/cancel", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	view = services.ControlView{}
	decode(t, w, &view)
	assert.Nil(t, view.Pending)
}

func TestControl_SetDiscipline(t *testing.T) {
	app := newTestApp(t)
	comp, _ := app.competition(t, map[string]float64{"Ana": 100})
	router := meetRouter(t, app)
	cookie := operatorCookie(router)
	base := "/api/competitions/" + comp.ID
	require.Equal(t, http.StatusOK, doJSON(router, "POST", base+"/start", nil, cookie).Code)

	w := doJSON(router, "POST", base+"/control/discipline", gin.H{"discipline": "clean"}, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, "POST", base+"/control/discipline", gin.H{"discipline": "deadlift"}, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var view services.ControlView
	decode(t, w, &view)
	assert.Equal(t, models.Deadlift, view.Discipline)
	assert.Equal(t, 1, view.Round)
}

func TestControl_Timer(t *testing.T) {
	app := newTestApp(t)
	comp, _ := app.competition(t, map[string]float64{"Ana": 100})
	router := meetRouter(t, app)
	cookie := operatorCookie(router)
	base := "/api/competitions/" + comp.ID
	require.Equal(t, http.StatusOK, doJSON(router, "POST", base+"/start", nil, cookie).Code)

	w := doJSON(router, "POST", base+"/control/timer/start", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":true`)

	w = doJSON(router, "POST", base+"/control/timer/pause", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)

	w = doJSON(router, "POST", base+"/control/timer/reset", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"timeLeft":60,"running":false}`, w.Body.String())

	w = doJSON(router, "POST", base+"/control/timer/explode", nil, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestControl_FinishClosesSession(t *testing.T) {
	app := newTestApp(t)
	comp, _ := app.competition(t, map[string]float64{"Ana": 100})
	router := meetRouter(t, app)
	cookie := operatorCookie(router)
	base := "/api/competitions/" + comp.ID
	require.Equal(t, http.StatusOK, doJSON(router, "POST", base+"/start", nil, cookie).Code)

	w := doJSON(router, "POST", base+"/finish", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"finished"`)

	w = doJSON(router, "GET", base+"/control", nil, cookie)
	assert.Equal(t, http.StatusConflict, w.Code)
}
