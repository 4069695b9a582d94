// main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"go-meet-control/config"
	"go-meet-control/controllers"
	"go-meet-control/logger"
	"go-meet-control/services"
	"go-meet-control/store"
	"go-meet-control/websocket"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.SetLogLevel(cfg.Env)
	defer logger.Sync()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s, err := openStore(cfg.Database)
	if err != nil {
		logger.Error.Fatalf("[main] Failed to open store: %v", err)
	}
	defer s.Close()

	var archive services.ResultsArchive
	if cfg.ArchiveEnabled() {
		archive, err = services.NewS3Archive(context.Background(), cfg.Archive)
		if err != nil {
			logger.Error.Fatalf("[main] Failed to configure results archive: %v", err)
		}
	}

	if err := websocket.InitCloudWatch(cfg.Metrics.CloudWatchEnabled, cfg.Metrics.Region, cfg.Metrics.Namespace); err != nil {
		logger.Warn.Printf("[main] CloudWatch metrics disabled: %v", err)
	}

	a := newApp(cfg, s, archive)
	websocket.SetAllowedOrigins(cfg.Server.ApplicationURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go websocket.HandleMessages()
	websocket.StartResync(ctx, cfg.Meet.ResyncInterval)

	sessionStore := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	auth := controllers.NewAuthController(cfg.Auth.Username, cfg.Auth.PasswordHash)
	if cfg.Auth.Username == "" {
		logger.Warn.Println("[main] No operator configured; control endpoints will reject every request")
	}

	var handler http.Handler = setupRouter(a, sessionStore, auth, cfg.Server.ApplicationURL)
	if cfg.Tracing.Enabled {
		handler = xray.Handler(xray.NewFixedSegmentNamer(cfg.Tracing.SegmentName), handler)
		logger.Info.Printf("[main] X-Ray tracing enabled segment=%s", cfg.Tracing.SegmentName)
	}

	srv := &http.Server{Addr: cfg.Server.Address, Handler: handler}
	go func() {
		logger.Info.Printf("[main] Listening on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error.Fatalf("[main] Failed to run server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info.Println("[main] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error.Printf("[main] Graceful shutdown failed: %v", err)
	}
}

// openStore connects to Postgres and migrates, or falls back to the
// in-memory store for local runs.
func openStore(cfg config.DatabaseConfig) (store.Store, error) {
	if cfg.Driver == "memory" {
		logger.Warn.Println("[openStore] Using in-memory store; data is lost on restart")
		return store.NewMemoryStore(), nil
	}
	return store.OpenGorm(cfg.DSN)
}

// newApp wires the services. The results service doubles as the websocket
// state provider; the timer persists through it.
func newApp(cfg config.Config, s store.Store, archive services.ResultsArchive) *app {
	registrations := services.NewRegistrationService(s)
	athletes := services.NewAthleteService(s, registrations)
	ledger := services.NewLedgerService(s)
	results := services.NewResultsService(s)
	websocket.SetStateProvider(results)

	messenger := websocket.DefaultMessenger()
	timer := websocket.NewTimerManager(results, messenger, cfg.Meet.TimerSeconds, cfg.Meet.PersistEveryTicks, cfg.Meet.TickInterval)
	meet := services.NewMeetService(s, ledger, timer, messenger, results)

	return &app{
		store:         s,
		athletes:      athletes,
		registrations: registrations,
		ledger:        ledger,
		results:       results,
		meet:          meet,
		competitions:  services.NewCompetitionService(s, meet, results, archive, messenger, cfg.Meet.TimerSeconds),
		importer:      services.NewRosterImporter(s, athletes, registrations),
	}
}
