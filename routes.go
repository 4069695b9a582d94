// routes.go
package main

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-meet-control/controllers"
	"go-meet-control/middleware"
	"go-meet-control/services"
	"go-meet-control/store"
)

// app is the wired service graph the router serves.
type app struct {
	store         store.Store
	athletes      *services.AthleteService
	registrations *services.RegistrationService
	ledger        *services.LedgerService
	results       *services.ResultsService
	meet          *services.MeetService
	competitions  *services.CompetitionService
	importer      *services.RosterImporter
}

// setupRouter registers every route. Reads are public so scoreboards and
// phones can follow the meet; writes need an operator session.
func setupRouter(a *app, sessionStore sessions.Store, auth *controllers.AuthController, applicationURL string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.MetricsMiddleware())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Frame-Options", "SAMEORIGIN")
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Next()
	})
	router.Use(sessions.Sessions("mysession", sessionStore))

	router.GET("/health", controllers.Health)
	router.GET("/ready", controllers.Ready(a.store))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", controllers.ObserverSocket)

	athletes := controllers.NewAthleteController(a.athletes)
	competitions := controllers.NewCompetitionController(a.competitions)
	registrations := controllers.NewRegistrationController(a.registrations, a.results, a.importer)
	ledger := controllers.NewLedgerController(a.ledger, a.meet)
	meet := controllers.NewMeetController(a.meet)
	results := controllers.NewResultsController(a.results, applicationURL)

	api := router.Group("/api")
	{
		api.POST("/auth/login", auth.Login)
		api.POST("/auth/logout", auth.Logout)

		api.GET("/competitions", competitions.List)
		api.GET("/competitions/active", competitions.Active)
		api.GET("/competitions/:id", competitions.Get)
		api.GET("/competitions/:id/registrations", registrations.List)
		api.GET("/competitions/:id/attempts", ledger.List)
		api.GET("/competitions/:id/board", results.Board)
		api.GET("/competitions/:id/live", results.Live)
		api.GET("/competitions/:id/standings", results.Standings)
		api.GET("/competitions/:id/standings/export", results.ExportStandings)
		api.GET("/competitions/:id/qrcode", results.QRCode)
		api.GET("/categories", athletes.ListCategories)
	}

	protected := api.Group("/", middleware.OperatorRequired())
	{
		protected.GET("/auth/me", auth.Me)

		protected.GET("/athletes", athletes.List)
		protected.POST("/athletes", athletes.Create)
		protected.GET("/athletes/:id", athletes.Get)
		protected.PUT("/athletes/:id", athletes.Update)
		protected.DELETE("/athletes/:id", athletes.Delete)
		protected.POST("/categories", athletes.CreateCategory)

		protected.POST("/competitions", competitions.Create)
		protected.PUT("/competitions/:id", competitions.Update)
		protected.POST("/competitions/:id/start", competitions.Start)
		protected.POST("/competitions/:id/finish", competitions.Finish)
		protected.POST("/competitions/:id/cancel", competitions.Cancel)
		protected.POST("/competitions/:id/reset", competitions.Reset)

		protected.POST("/competitions/:id/registrations", registrations.Register)
		protected.DELETE("/registrations/:id", registrations.Delete)
		protected.GET("/competitions/:id/lots/preview", registrations.PreviewLot)
		protected.POST("/competitions/:id/lots/recalculate", registrations.RecalculateLots)
		protected.POST("/competitions/:id/roster", registrations.ImportRoster)

		protected.POST("/competitions/:id/attempts", ledger.Record)
		protected.PATCH("/attempts/:id/outcome", ledger.ResolveOutcome)

		protected.GET("/competitions/:id/control", meet.Control)
		protected.POST("/competitions/:id/control/select", meet.Select)
		protected.POST("/competitions/:id/control/result", meet.RecordResult)
		protected.POST("/competitions/:id/control/weight", meet.SubmitWeight)
		protected.POST("/competitions/:id/control/cancel", meet.CancelPending)
		protected.POST("/competitions/:id/control/discipline", meet.SetDiscipline)
		protected.POST("/competitions/:id/control/timer/:action", meet.Timer)
	}
	return router
}
