// file: controllers/test_helpers.go
//go:build unit
// +build unit

package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"go-meet-control/middleware"
	"go-meet-control/models"
	"go-meet-control/services"
	"go-meet-control/store"
	"go-meet-control/websocket"
)

// setupTestRouter creates a new Gin engine with session middleware.
func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("testsession", store))
	return router
}

// SetSession sets the given key/value pairs in the session using a helper route
// and returns the session cookie that can be attached to subsequent test requests.
func SetSession(router *gin.Engine, route string, data map[string]interface{}) *http.Cookie {
	router.GET(route, func(c *gin.Context) {
		session := sessions.Default(c)
		for key, value := range data {
			session.Set(key, value)
		}
		if err := session.Save(); err != nil {
			c.String(http.StatusInternalServerError, "session save failed")
			return
		}
		c.String(http.StatusOK, "session set")
	})

	req, _ := http.NewRequest("GET", route, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "testsession" {
			return cookie
		}
	}
	return nil
}

// hashPassword hashes the given password using bcrypt.
func hashPassword(password string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic("failed to hash password: " + err.Error())
	}
	return string(hashed)
}

// testApp is the full service graph on an in-memory store.
type testApp struct {
	store         *store.MemoryStore
	athletes      *services.AthleteService
	registrations *services.RegistrationService
	ledger        *services.LedgerService
	results       *services.ResultsService
	meet          *services.MeetService
	competitions  *services.CompetitionService
	importer      *services.RosterImporter
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	websocket.InitTest()
	s := store.NewMemoryStore()
	registrations := services.NewRegistrationService(s)
	athletes := services.NewAthleteService(s, registrations)
	ledger := services.NewLedgerService(s)
	results := services.NewResultsService(s)
	websocket.SetStateProvider(results)
	timer := websocket.NewTimerManager(results, websocket.DefaultMessenger(), 60, 5, time.Second)
	meet := services.NewMeetService(s, ledger, timer, websocket.DefaultMessenger(), results)
	t.Cleanup(func() {
		comps, _ := s.ListCompetitions(context.Background())
		for _, c := range comps {
			timer.Remove(c.ID)
		}
	})
	return &testApp{
		store:         s,
		athletes:      athletes,
		registrations: registrations,
		ledger:        ledger,
		results:       results,
		meet:          meet,
		competitions:  services.NewCompetitionService(s, meet, results, nil, websocket.DefaultMessenger(), 60),
		importer:      services.NewRosterImporter(s, athletes, registrations),
	}
}

// competition creates an upcoming competition with the named lifters
// registered, openers 100, 80 and 120 and so on.
func (a *testApp) competition(t *testing.T, openers map[string]float64) (*models.Competition, map[string]*models.Athlete) {
	t.Helper()
	ctx := context.Background()
	comp, err := a.competitions.Create(ctx, services.CompetitionInput{Name: "Club Champs", Date: "2024-09-14"})
	require.NoError(t, err)
	athletes := make(map[string]*models.Athlete, len(openers))
	for name, opener := range openers {
		o, b, d := opener, opener*0.7, opener*1.2
		ath, err := a.athletes.Create(ctx, services.AthleteInput{
			Name: name, Gender: models.Female, BodyWeight: 63, SquatOpener: &o, BenchOpener: &b, DeadliftOpener: &d,
		})
		require.NoError(t, err)
		_, err = a.registrations.Register(ctx, comp.ID, services.RegistrationInput{AthleteID: ath.ID})
		require.NoError(t, err)
		athletes[name] = ath
	}
	return comp, athletes
}

// operatorCookie signs a request in as the operator.
func operatorCookie(router *gin.Engine) *http.Cookie {
	return SetSession(router, "/test/login", map[string]interface{}{middleware.SessionOperatorKey: "marshal"})
}

// doJSON sends body as JSON with the optional cookie and returns the recorder.
func doJSON(router *gin.Engine, method, path string, body interface{}, cookie *http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}
