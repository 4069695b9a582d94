//go:build unit
// +build unit

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"go-meet-control/metrics"
)

func setupOperatorTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	store := cookie.NewStore([]byte("test-secret"))
	router.Use(sessions.Sessions("testsession", store))

	// Helper route that logs in whoever is named in the query.
	router.GET("/login-as", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(SessionOperatorKey, c.Query("user"))
		_ = session.Save()
		c.Status(http.StatusOK)
	})

	protected := router.Group("/", OperatorRequired())
	protected.GET("/control", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"operator": c.GetString(SessionOperatorKey)})
	})
	return router
}

func sessionCookie(t *testing.T, router *gin.Engine, user string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/login-as?user="+user, nil))
	for _, c := range w.Result().Cookies() {
		if c.Name == "testsession" {
			return c
		}
	}
	t.Fatal("session cookie not set")
	return nil
}

func TestOperatorRequired_Success(t *testing.T) {
	router := setupOperatorTestRouter()
	req := httptest.NewRequest("GET", "/control", nil)
	req.AddCookie(sessionCookie(t, router, "marshal"))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"operator":"marshal"}`, w.Body.String())
}

func TestOperatorRequired_EmptyOperator(t *testing.T) {
	router := setupOperatorTestRouter()
	req := httptest.NewRequest("GET", "/control", nil)
	req.AddCookie(sessionCookie(t, router, ""))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOperatorRequired_MissingSession(t *testing.T) {
	router := setupOperatorTestRouter()
	w := httptest.NewRecorder()

	router.ServeHTTP(w, httptest.NewRequest("GET", "/control", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code, "Missing session should block access")
	assert.Contains(t, w.Body.String(), "Unauthorized")
}

func TestMetricsMiddleware_CountsByRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(MetricsMiddleware())
	router.GET("/api/competitions/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	counter := metrics.RequestCounter.WithLabelValues("200", "GET", "/api/competitions/:id")
	before := testutil.ToFloat64(counter)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/competitions/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/competitions/def", nil))

	assert.Equal(t, before+2, testutil.ToFloat64(counter))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RequestInProgress.WithLabelValues("GET", "/api/competitions/:id")))
}
